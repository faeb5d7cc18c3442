// Package http exposes the engine over HTTP: POST /analyze for the
// synchronous analysis call, GET /analyses/{symbol} for the audit trail,
// plus health and Prometheus metrics endpoints.
package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/tradeforge/conviction/internal/domain"
	"github.com/tradeforge/conviction/internal/engine"
	"github.com/tradeforge/conviction/internal/persistence"
)

// Server wires the analyzer, optional audit repository and metrics into an
// HTTP surface.
type Server struct {
	analyzer *engine.Analyzer
	repo     persistence.AnalysisRepo
	registry *prometheus.Registry
	router   *mux.Router
}

// NewServer builds the HTTP surface. repo may be nil (no auditing);
// registry may be nil (no /metrics).
func NewServer(analyzer *engine.Analyzer, repo persistence.AnalysisRepo, registry *prometheus.Registry) *Server {
	s := &Server{
		analyzer: analyzer,
		repo:     repo,
		registry: registry,
		router:   mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/analyze", s.handleAnalyze).Methods(http.MethodPost)
	s.router.HandleFunc("/analyses/{symbol}", s.handleRecentAnalyses).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if s.registry != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
}

// Handler returns the routed handler, wrapped with request logging.
func (s *Server) Handler() http.Handler {
	return logRequests(s.router)
}

// ListenAndServe runs the server until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	log.Info().Str("addr", addr).Msg("http server listening")
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

type analyzeRequest struct {
	Symbol  string               `json:"symbol"`
	AsOf    time.Time            `json:"as_of"`
	Account domain.AccountConfig `json:"account"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	if req.AsOf.IsZero() {
		req.AsOf = time.Now().UTC().Truncate(24 * time.Hour)
	}

	result, err := s.analyzer.Analyze(r.Context(), req.Symbol, req.AsOf, req.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if s.repo != nil {
		rec := persistence.AnalysisRecord{
			ID:     uuid.NewString(),
			Symbol: result.Symbol,
			AsOf:   result.AsOf,
			Signal: result.Signal,
			Score:  result.ConvictionScore,
			Result: *result,
		}
		if err := s.repo.Insert(r.Context(), rec); err != nil {
			// Auditing is best effort; the analysis response still stands.
			log.Warn().Err(err).Str("symbol", result.Symbol).Msg("analysis audit insert failed")
		}
	}

	writeJSON(w, http.StatusOK, result)
}

// handleRecentAnalyses serves the audit trail for one symbol, newest first.
func (s *Server) handleRecentAnalyses(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		writeError(w, http.StatusNotFound, "audit store not configured")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	symbol := mux.Vars(r)["symbol"]
	records, err := s.repo.RecentBySymbol(r.Context(), symbol, limit)
	if err != nil {
		log.Error().Err(err).Str("symbol", symbol).Msg("audit query failed")
		writeError(w, http.StatusInternalServerError, "audit query failed")
		return
	}
	if records == nil {
		records = []persistence.AnalysisRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write response failed")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	})
}
