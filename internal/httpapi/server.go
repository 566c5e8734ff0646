// Package httpapi exposes growth analysis over HTTP: POST a growth-curve
// CSV, get the per-replicate results and summary back as JSON. The server
// also serves health and Prometheus metrics endpoints.
package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/linsu-lab/growthrate/internal/analysis"
	"github.com/linsu-lab/growthrate/internal/config"
	"github.com/linsu-lab/growthrate/internal/dataset"
	"github.com/linsu-lab/growthrate/internal/report"
)

// Server is the analysis HTTP service.
type Server struct {
	router   *mux.Router
	server   *http.Server
	analyzer *analysis.Analyzer
	metrics  *Metrics
	limiter  *rate.Limiter
}

// NewServer builds the service around an analyzer. The rate limiter is a
// single token bucket for the whole service; the tool is not multi-tenant.
func NewServer(cfg config.ServerConfig, analyzer *analysis.Analyzer) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		analyzer: analyzer,
		metrics:  NewMetrics(),
		limiter:  rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateBurst),
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
		IdleTimeout:  cfg.IdleTimeout(),
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	api := s.router.PathPrefix("/v1").Subrouter()
	api.Use(s.rateLimit)
	api.HandleFunc("/analyze", s.handleAnalyze).Methods(http.MethodPost)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe runs the server until it fails or is shut down.
func (s *Server) ListenAndServe() error {
	log.Info().Str("addr", s.server.Addr).Msg("Starting growthrate HTTP server")
	return s.server.ListenAndServe()
}

// rateLimit rejects requests once the token bucket is drained.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			s.metrics.RequestsThrottled.Inc()
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "time": time.Now().UTC().Format(time.RFC3339)})
}

// handleAnalyze reads a growth-curve CSV from the request body and returns
// the analysis results.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	ds, err := dataset.Read(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid CSV: %v", err))
		return
	}

	results := s.analyzer.Run(r.Context(), ds)
	rep := report.New(results)

	s.metrics.AnalysesTotal.Inc()
	s.metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
	s.metrics.ObserveOutcomes(
		rep.Summary.Detected,
		rep.Summary.Replicates-rep.Summary.Detected-rep.Summary.Failed,
		rep.Summary.Failed,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := rep.Render(w, report.FormatJSON); err != nil {
		log.Error().Err(err).Msg("Failed to encode analysis response")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
