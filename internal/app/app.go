package app

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/rivo/tview"

	"filecensus/internal/config"
	"filecensus/internal/frontend"
	"filecensus/internal/server"
	"filecensus/internal/session"
	"filecensus/internal/storage/csvfile"
	"filecensus/internal/storage/sqlite"
	"filecensus/internal/tui"
)

type store interface {
	session.Store
	io.Closer
}

// App ties together configuration, the session, its store and the front ends.
type App struct {
	cfg     config.Config
	store   store
	session *session.Session
}

// New constructs an App using the provided configuration. The previously
// saved inventory, if any, is loaded.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	st, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	sess := session.New(st)
	ok, err := sess.Load(ctx)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("load inventory: %w", err)
	}
	if ok {
		meta := sess.Inventory().Metadata()
		log.Printf("loaded %d files of %s scanned %s", meta.TotalFiles, meta.RootLocation, meta.ScanDate)
	}

	return &App{cfg: cfg, store: st, session: sess}, nil
}

func openStore(cfg config.Config) (store, error) {
	switch cfg.Store {
	case config.StoreCSV:
		return csvfile.Open(cfg.DataDir)
	default:
		return sqlite.Open(cfg.DatabasePath())
	}
}

// Session exposes the underlying session.
func (a *App) Session() *session.Session {
	return a.session
}

// Config returns the configuration the App was built with.
func (a *App) Config() config.Config {
	return a.cfg
}

// Gather scans root, or the configured root when root is empty.
func (a *App) Gather(ctx context.Context, root string) error {
	if root == "" {
		root = a.cfg.Root
	}
	log.Printf("scanning %s", root)
	if err := a.session.Gather(ctx, root); err != nil {
		return err
	}
	meta := a.session.Inventory().Metadata()
	log.Printf("scanned %d files (%s) in %s", meta.TotalFiles, meta.TotalSize(), meta.ScanDuration)
	return nil
}

// Serve runs the HTTP server until the context is cancelled.
func (a *App) Serve(ctx context.Context) error {
	srv := server.New(a.session, frontend.NewRenderer())
	log.Printf("starting server on %s", a.cfg.ListenAddr)
	if err := srv.Start(ctx, a.cfg.ListenAddr); err != nil {
		return fmt.Errorf("run server: %w", err)
	}
	return nil
}

// RunTUI runs the terminal UI until the user quits or ctx is cancelled.
func (a *App) RunTUI(ctx context.Context) error {
	application := tview.NewApplication()
	ui := tui.New(ctx, application, a.session)

	go func() {
		<-ctx.Done()
		application.Stop()
	}()

	if err := ui.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}

// Close waits for pending saves and releases the store.
func (a *App) Close() error {
	a.session.Wait()
	return a.store.Close()
}
