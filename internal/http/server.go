// Package http exposes the expense core over a JSON API: create,
// per-day display models (flat or grouped), per-day totals, a live
// server-sent-events feed, and theme preferences.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"expensetracker/internal/cache"
	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/prefs"
	"expensetracker/internal/services"
)

const (
	dayCacheSize = 64
	dayCacheTTL  = 30 * time.Second
)

type Server struct {
	http.Server

	service *services.ExpenseService
	prefs   prefs.Store

	// Per-day display models, keyed by date and grouping mode,
	// invalidated when an expense lands on that day.
	dayCache *cache.LRUCache[core.DisplayModel]
}

func NewServer(addr string, service *services.ExpenseService, prefStore prefs.Store) *Server {
	s := &Server{
		service:  service,
		prefs:    prefStore,
		dayCache: cache.NewLRUCache[core.DisplayModel](dayCacheSize, dayCacheTTL),
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/expenses", s.handleCreateExpense)
		r.Get("/expenses/day", s.handleDay)
		r.Get("/expenses/day/total", s.handleDayTotal)
		r.Get("/expenses/day/watch", s.handleWatchDay)
		r.Get("/preferences/theme", s.handleGetTheme)
		r.Put("/preferences/theme", s.handleSetTheme)
	})

	s.Server = http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		IdleTimeout:  60 * time.Second,
		// No WriteTimeout: the watch endpoint streams indefinitely.
	}

	return s
}

// requestLogger logs one line per request with method, path, status and
// duration.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		start := time.Now()
		next.ServeHTTP(ww, r)

		slog.InfoContext(r.Context(), "Request handled",
			applog.FieldComponent, applog.ComponentHTTP,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, ww.Status(),
			applog.FieldDuration, time.Since(start).Milliseconds(),
			applog.FieldRequestID, chimw.GetReqID(r.Context()))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
