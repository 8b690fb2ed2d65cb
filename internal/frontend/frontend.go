// Package frontend renders the embedded web interface.
package frontend

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"sync"

	"github.com/dustin/go-humanize"

	"filecensus/internal/inventory"
)

//go:embed templates/*.html static/*
var assets embed.FS

// Page is the data the index template renders. Matches are shown before
// the script takes over the table.
type Page struct {
	Meta      inventory.Metadata
	Matches   []inventory.FileRecord
	SortState inventory.SortState
	Year      int
}

var funcs = template.FuncMap{
	"comma": func(n int) string { return humanize.Comma(int64(n)) },
	"arrow": sortArrow,
}

// sortArrow marks the column header for column with the current direction.
func sortArrow(state inventory.SortState, column string) string {
	switch {
	case state == inventory.SortSizeAsc && column == "size",
		state == inventory.SortNameAsc && column == "name":
		return " ▲"
	case state == inventory.SortSizeDesc && column == "size",
		state == inventory.SortNameDesc && column == "name":
		return " ▼"
	}
	return ""
}

// Renderer renders the index page and serves the static assets.
type Renderer struct {
	once     sync.Once
	initErr  error
	template *template.Template
}

// NewRenderer creates a Renderer. Templates are parsed on first use.
func NewRenderer() *Renderer {
	return &Renderer{}
}

func (r *Renderer) ensureTemplates() error {
	r.once.Do(func() {
		r.template, r.initErr = template.New("index.html").Funcs(funcs).ParseFS(assets, "templates/index.html")
	})
	return r.initErr
}

// RenderIndex writes the index page for page.
func (r *Renderer) RenderIndex(w http.ResponseWriter, page Page) error {
	if err := r.ensureTemplates(); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return r.template.ExecuteTemplate(w, "index.html", page)
}

// StaticHandler serves the embedded script and stylesheet.
func (r *Renderer) StaticHandler() http.Handler {
	sub, err := fs.Sub(assets, "static")
	if err != nil {
		return http.NotFoundHandler()
	}
	files := http.FileServer(http.FS(sub))
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		files.ServeHTTP(w, req)
	})
}
