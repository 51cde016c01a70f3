// Package web provides an HTTP status server for the keypad-lock daemon.
// Every route is read-only.
package web

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/sweeney/keypad-lock/internal/audit"
	"github.com/sweeney/keypad-lock/internal/status"
)

// DefaultAttemptsLimit is used when /attempts.json has no limit parameter.
const DefaultAttemptsLimit = 50

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	attempts   audit.Lister
}

// New creates a Server that reads state from the given tracker and recent
// attempts from the given lister. A nil lister disables /attempts.json.
func New(addr string, tracker *status.Tracker, attempts audit.Lister) *Server {
	s := &Server{tracker: tracker, attempts: attempts}

	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/index.html", s.handleIndex).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/index.json", s.handleJSON).Methods(http.MethodGet, http.MethodHead)
	if attempts != nil {
		r.HandleFunc("/attempts.json", s.handleAttempts).Methods(http.MethodGet, http.MethodHead)
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the router. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, snap); err != nil {
		log.Printf("web: render index: %v", err)
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// AttemptsJSON is the envelope for /attempts.json.
type AttemptsJSON struct {
	Attempts []AttemptJSON `json:"attempts"`
}

// AttemptJSON is one audited submit.
type AttemptJSON struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Granted   bool   `json:"granted"`
	Length    int    `json:"length"`
	Reason    string `json:"reason"`
}

func (s *Server) handleAttempts(w http.ResponseWriter, r *http.Request) {
	limit := DefaultAttemptsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	attempts, err := s.attempts.Recent(r.Context(), limit)
	if err != nil {
		log.Printf("web: list attempts: %v", err)
		http.Error(w, "audit log unavailable", http.StatusInternalServerError)
		return
	}

	out := AttemptsJSON{Attempts: make([]AttemptJSON, 0, len(attempts))}
	for _, a := range attempts {
		out.Attempts = append(out.Attempts, AttemptJSON{
			ID:        a.ID,
			Timestamp: a.At.UTC().Format(time.RFC3339),
			Granted:   a.Granted,
			Length:    a.Length,
			Reason:    a.Reason,
		})
	}

	data, _ := json.MarshalIndent(out, "", "  ")
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}
