package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ryanm101/gamefuse/internal/game"
	"github.com/ryanm101/gamefuse/internal/health"
	"github.com/ryanm101/gamefuse/internal/logging"
	"github.com/ryanm101/gamefuse/internal/orchestrator"
)

// engine is the orchestrator surface the server exposes.
type engine interface {
	SearchGamesWithFallback(ctx context.Context, query string, opts orchestrator.SearchOptions) (game.SearchResultSet, error)
	GetGameDetailsWithFallback(ctx context.Context, gameID string, opts orchestrator.DetailsOptions) (game.DetailsResult, error)
	Statistics() orchestrator.Stats
	ClearCache(ctx context.Context) error
	ResetRateLimits()
}

// pinger checks the description store.
type pinger interface {
	PingContext(ctx context.Context) error
}

// Server handles HTTP requests.
type Server struct {
	engine  engine
	db      pinger // nil when the store is off
	mux     *http.ServeMux
	handler http.Handler
}

// NewServer creates a new web server.
func NewServer(e engine, db pinger) *Server {
	s := &Server{
		engine: e,
		db:     db,
		mux:    http.NewServeMux(),
	}
	s.setupRoutes()
	s.handler = otelhttp.NewHandler(s.mux, "gamefuse-web",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /api/search", s.handleSearch)
	s.mux.HandleFunc("GET /api/details", s.handleDetails)
	s.mux.HandleFunc("GET /api/stats", s.handleStats)
	s.mux.HandleFunc("POST /api/cache/clear", s.handleCacheClear)
	s.mux.HandleFunc("POST /api/ratelimits/reset", s.handleRateLimitReset)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.Handler())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// boolParam reads a boolean query parameter, falling back to def when absent.
func boolParam(r *http.Request, name string, def bool) (bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return strconv.ParseBool(v)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var opts orchestrator.SearchOptions
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		opts.Limit = n
	}
	var err error
	if opts.IncludeExternal, err = boolParam(r, "external", false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid external")
		return
	}
	if opts.SearchAllProviders, err = boolParam(r, "all", false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid all")
		return
	}

	rs, err := s.engine.SearchGamesWithFallback(r.Context(), q.Get("q"), opts)
	if errors.Is(err, orchestrator.ErrInvalidRequest) {
		writeError(w, http.StatusBadRequest, "missing q parameter")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rs)
}

func (s *Server) handleDetails(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := orchestrator.DetailsOptions{Title: q.Get("title")}

	params := []struct {
		name string
		dst  *bool
	}{
		{"external", &opts.IncludeExternal},
		{"pricing", &opts.IncludePricing},
		{"playtime", &opts.IncludeCompletionTime},
		{"critic", &opts.IncludeCriticScore},
	}
	for _, p := range params {
		v, err := boolParam(r, p.name, true)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid "+p.name)
			return
		}
		*p.dst = v
	}

	d, err := s.engine.GetGameDetailsWithFallback(r.Context(), q.Get("id"), opts)
	if errors.Is(err, orchestrator.ErrInvalidRequest) {
		writeError(w, http.StatusBadRequest, "missing id parameter")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	status := http.StatusOK
	if d.GameData == nil {
		status = http.StatusNotFound
	}
	writeJSON(w, status, d)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Statistics())
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.ClearCache(r.Context()); err != nil {
		logging.Error("cache clear failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleRateLimitReset(w http.ResponseWriter, _ *http.Request) {
	s.engine.ResetRateLimits()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	store := "disabled"
	if s.db != nil {
		store = "ok"
		if err := s.db.PingContext(r.Context()); err != nil {
			status, store = "unhealthy", err.Error()
			code = http.StatusServiceUnavailable
		}
	}

	available := 0
	st := s.engine.Statistics()
	for _, ps := range st.ByProvider {
		if ps.Status == health.StatusAvailable || ps.Status == health.StatusError {
			available++
		}
	}
	writeJSON(w, code, map[string]any{
		"status":             status,
		"store":              store,
		"availableProviders": available,
	})
}
