// Package api serves the read-only JSON dashboard: signals, ideas,
// positions, PnL, and the daily report.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"optionscout/internal/engine"
	"optionscout/internal/report"
)

// Server exposes engine state over HTTP. It never mutates anything.
type Server struct {
	engine *engine.Engine
	log    zerolog.Logger
}

func NewServer(e *engine.Engine, log zerolog.Logger) *Server {
	return &Server{engine: e, log: log.With().Str("component", "api").Logger()}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/signals", s.handleSignals)
	r.Get("/ideas", s.handleIdeas)
	r.Get("/positions/open", s.handleOpenPositions)
	r.Get("/positions/closed", s.handleClosedPositions)
	r.Get("/pnl", s.handlePnL)
	r.Get("/report", s.handleReport)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleSignals(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, s.engine.Signals())
}

func (s *Server) handleIdeas(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, s.engine.Ideas())
}

func (s *Server) handleOpenPositions(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, s.engine.Ledger().OpenPositions())
}

func (s *Server) handleClosedPositions(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, s.engine.Ledger().ClosedPositions())
}

func (s *Server) handlePnL(w http.ResponseWriter, _ *http.Request) {
	led := s.engine.Ledger()
	respondJSON(w, map[string]any{
		"realized_pnl":   led.TotalRealizedPnL(),
		"unrealized_pnl": led.TotalUnrealizedPnL(),
		"open_count":     len(led.OpenPositions()),
		"closed_count":   len(led.ClosedPositions()),
	})
}

// handleReport builds the summary for a given day (?date=YYYY-MM-DD,
// defaulting to today UTC).
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	day := time.Now().UTC()
	if q := r.URL.Query().Get("date"); q != "" {
		parsed, err := time.Parse("2006-01-02", q)
		if err != nil {
			http.Error(w, "invalid date, want YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		day = parsed
	}
	respondJSON(w, report.Build(s.engine.Ledger(), day))
}

func respondJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encoding failed", http.StatusInternalServerError)
	}
}
