// Package web serves a read-only status page for the panel.
package web

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/sweeney/interlock-panel/internal/status"
)

// Screen renders the current display contents.
type Screen interface {
	WritePNG(w io.Writer) error
}

// Options are the optional parts of the server.
type Options struct {
	// Screen, if set, is served at /screen.png.
	Screen Screen
	// LiveInterval is the websocket push period. Zero means one second.
	LiveInterval time.Duration
	Logger       *slog.Logger
}

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	screen     Screen
	interval   time.Duration
	log        *slog.Logger
	done       chan struct{}
}

// New creates a Server that reads state from the given tracker.
func New(addr string, tracker *status.Tracker, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := opts.LiveInterval
	if interval <= 0 {
		interval = time.Second
	}
	s := &Server{
		tracker:  tracker,
		screen:   opts.Screen,
		interval: interval,
		log:      logger,
		done:     make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/screen.png", s.handleScreen)
	mux.HandleFunc("/ws", s.handleLive)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// Handler returns the HTTP handler. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown stops live feeds and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, snap, s.screen != nil); err != nil {
		s.log.Warn("render status page", "err", err)
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleScreen(w http.ResponseWriter, r *http.Request) {
	if s.screen == nil {
		http.NotFound(w, r)
		return
	}
	var buf bytes.Buffer
	if err := s.screen.WritePNG(&buf); err != nil {
		s.log.Warn("render screen", "err", err)
		http.Error(w, "screen unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}
