package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
)

// Store backends.
const (
	StoreSQLite = "sqlite"
	StoreCSV    = "csv"
)

// Config captures runtime configuration for the filecensus application.
type Config struct {
	// ListenAddr is the address the HTTP server binds to.
	ListenAddr string

	// Root is the directory scanned when no other directory is given.
	Root string

	// DataDir holds the saved inventory between sessions.
	DataDir string

	// Store selects the persistence backend: "sqlite" or "csv".
	Store string

	// ExportDir receives exported files.
	ExportDir string
}

// Default returns the configuration used when no flags are given.
func Default() Config {
	return Config{
		ListenAddr: ":8080",
		Root:       ".",
		DataDir:    "~/.filecensus",
		Store:      StoreSQLite,
		ExportDir:  "Exports",
	}
}

// BindFlags registers the configuration flags on fs, writing into cfg.
func BindFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "HTTP listen address")
	fs.StringVar(&cfg.Root, "root", cfg.Root, "directory to scan when none is given")
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory holding the saved inventory")
	fs.StringVar(&cfg.Store, "store", cfg.Store, "persistence backend: sqlite or csv")
	fs.StringVar(&cfg.ExportDir, "export-dir", cfg.ExportDir, "directory receiving exports")
}

// Normalize validates cfg and resolves its paths to absolute ones.
func (cfg *Config) Normalize() error {
	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))
	switch cfg.Store {
	case StoreSQLite, StoreCSV:
	default:
		return fmt.Errorf("unknown store %q", cfg.Store)
	}

	var err error
	if cfg.Root, err = normalizePath(cfg.Root, "."); err != nil {
		return fmt.Errorf("resolve root: %w", err)
	}
	if cfg.DataDir, err = normalizePath(cfg.DataDir, Default().DataDir); err != nil {
		return fmt.Errorf("resolve data dir: %w", err)
	}
	if cfg.ExportDir, err = normalizePath(cfg.ExportDir, Default().ExportDir); err != nil {
		return fmt.Errorf("resolve export dir: %w", err)
	}
	return nil
}

// DatabasePath is the SQLite database file inside DataDir.
func (cfg Config) DatabasePath() string {
	return filepath.Join(cfg.DataDir, "filecensus.db")
}

func normalizePath(raw, fallback string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = fallback
	}
	abs, err := filepath.Abs(ExpandHome(trimmed))
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", trimmed, err)
	}
	return filepath.Clean(abs), nil
}

// ExpandHome expands leading ~ to the user's home directory.
func ExpandHome(p string) string {
	if p == "" {
		return p
	}
	if strings.HasPrefix(p, "~/") || p == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			if p == "~" {
				return home
			}
			return filepath.Join(home, strings.TrimPrefix(p, "~/"))
		}
	}
	return p
}
