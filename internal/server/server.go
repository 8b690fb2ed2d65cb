package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"strconv"
	"time"

	"filecensus/internal/chart"
	"filecensus/internal/export"
	"filecensus/internal/frontend"
	"filecensus/internal/inventory"
	"filecensus/internal/query"
	"filecensus/internal/session"
	"filecensus/internal/sorting"
)

// Server wires together HTTP handlers for the API and embedded frontend.
type Server struct {
	session  *session.Session
	renderer *frontend.Renderer
	baseCtx  context.Context
}

// New creates a Server instance backed by the provided session and renderer.
func New(sess *session.Session, renderer *frontend.Renderer) *Server {
	return &Server{session: sess, renderer: renderer, baseCtx: context.Background()}
}

// Routes returns the HTTP handler that exposes the application endpoints.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/metadata", s.handleMetadata)
	mux.HandleFunc("/api/search", s.handleSearch)
	mux.HandleFunc("/api/sort", s.handleSort)
	mux.HandleFunc("/api/view", s.handleView)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/plot", s.handlePlot)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/scan", s.handleScan)
	mux.HandleFunc("/api/export", s.handleExport)
	mux.HandleFunc("/api/download", s.handleDownload)
	mux.Handle("/static/", http.StripPrefix("/static/", s.renderer.StaticHandler()))
	return mux
}

// Start runs the HTTP server until the provided context is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.baseCtx = ctx

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		} else {
			errCh <- nil
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return <-errCh
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	view := s.session.View()
	page := frontend.Page{
		Meta:      s.session.Inventory().Metadata(),
		Matches:   view.Matches,
		SortState: view.SortState,
		Year:      time.Now().Year(),
	}
	if err := s.renderer.RenderIndex(w, page); err != nil {
		http.Error(w, fmt.Sprintf("render page: %v", err), http.StatusInternalServerError)
	}
}

type metadataResponse struct {
	inventory.Metadata
	TotalSize string `json:"totalSize"`
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	meta := s.session.Inventory().Metadata()
	writeJSON(w, metadataResponse{Metadata: meta, TotalSize: meta.TotalSize()})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	view, err := s.session.Search(r.URL.Query().Get("q"))
	if err != nil {
		if errors.Is(err, query.ErrInvalidThreshold) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, fmt.Sprintf("search: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, view)
}

func (s *Server) handleSort(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var payload struct {
		Field string `json:"field"`
	}
	if !decodePayload(w, r, &payload) {
		return
	}

	field, err := sorting.ParseField(payload.Field)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, s.session.SortBy(field))
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.session.View())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	stats := s.session.Stats()
	writeJSON(w, map[string]any{
		"stats":      stats,
		"meanSize":   stats.MeanSize(),
		"medianSize": stats.MedianSize(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := s.session.Status()
	writeJSON(w, status)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var payload struct {
		Path string `json:"path"`
	}
	if !decodePayload(w, r, &payload) {
		return
	}

	root := strings.TrimSpace(payload.Path)
	if root == "" {
		root = s.session.Status().Root
	}
	if root == "" {
		http.Error(w, "missing path", http.StatusBadRequest)
		return
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid path: %v", err), http.StatusBadRequest)
		return
	}

	if err := s.session.StartGather(s.baseCtx, abs); err != nil {
		if errors.Is(err, session.ErrScanInProgress) {
			http.Error(w, "scan already in progress", http.StatusConflict)
			return
		}
		http.Error(w, fmt.Sprintf("start scan: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSONStatus(w, http.StatusAccepted, map[string]any{"status": s.session.Status()})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	kind, err := export.ParseKind(r.URL.Query().Get("format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	inv := s.session.Inventory()
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", s.session.ExportFileName(kind)))
	writeBuffered(w, contentTypes[kind], func(out io.Writer) error {
		return export.Write(out, kind, inv)
	})
}

var contentTypes = map[export.Kind]string{
	export.KindText:  "text/plain; charset=utf-8",
	export.KindCSV:   "text/csv; charset=utf-8",
	export.KindJSON:  "application/json; charset=utf-8",
	export.KindHTML:  "text/html; charset=utf-8",
	export.KindExcel: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

func (s *Server) handlePlot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	matches := s.session.View().Matches
	if len(matches) < 2 {
		http.Error(w, chart.ErrTooFewRecords.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeBuffered(w, "image/svg+xml", func(out io.Writer) error {
		return chart.WriteSVG(out, matches)
	})
}

// writeBuffered renders the whole body before the status line goes out, so a
// failed render is reported as a plain 500.
func writeBuffered(w http.ResponseWriter, contentType string, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		w.Header().Del("Content-Disposition")
		http.Error(w, fmt.Sprintf("render: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := r.URL.Query().Get("path")
	if path == "" {
		http.Error(w, "missing path parameter", http.StatusBadRequest)
		return
	}

	inv := s.session.Inventory()
	record, ok := inv.Lookup(path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	root := inv.Metadata().RootLocation
	if !filepath.IsAbs(root) || !isSubPath(root, record.Path) {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(record.Path)))
	http.ServeFile(w, r, record.Path)
}

func decodePayload(w http.ResponseWriter, r *http.Request, payload any) bool {
	if r.Body == nil {
		return true
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(payload); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return false
	}
	return true
}

func isSubPath(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func writeJSON(w http.ResponseWriter, payload any) {
	writeJSONStatus(w, http.StatusOK, payload)
}

func writeJSONStatus(w http.ResponseWriter, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, fmt.Sprintf("encode response: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}
