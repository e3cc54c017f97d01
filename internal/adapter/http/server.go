// Package http serves the JSON API the shore client polls, plus the health,
// readiness, and metrics endpoints. Data endpoints answer 200 with an
// {error} payload on upstream trouble so the polling loop never has to
// special-case transport statuses.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tom-villanueva/marea-tigre/internal/domain"
	"github.com/tom-villanueva/marea-tigre/internal/service"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// API is the ingestion surface the data routes serve from.
type API interface {
	ReadinessChecker
	Alerts(ctx context.Context) []string
	SanFernandoHeight(ctx context.Context) (service.HeightResponse, error)
	Tendency(ctx context.Context) service.TrendResponse
	Telemetry(ctx context.Context) (service.TelemetryResponse, error)
	SurgeStatus(ctx context.Context) service.SurgeResponse
}

// Server exposes the data API over HTTP.
type Server struct {
	httpServer *http.Server
	api        API
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the /api data routes plus /healthz,
// /readyz, and /metrics.
func NewServer(addr string, api API, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		api:    api,
		logger: logger,
	}

	mux.HandleFunc("GET /api/alertas", s.handleAlerts)
	mux.HandleFunc("GET /api/altura", s.handleHeight)
	mux.HandleFunc("GET /api/tendencia", s.handleTendency)
	mux.HandleFunc("GET /api/telemetria", s.handleTelemetry)
	mux.HandleFunc("GET /api/sudestada", s.handleSurge)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(api))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.api.Alerts(r.Context()))
}

func (s *Server) handleHeight(w http.ResponseWriter, r *http.Request) {
	resp, err := s.api.SanFernandoHeight(r.Context())
	if err != nil {
		s.logger.Warn("height request failed", "error", err)
		writeJSON(w, http.StatusOK, errorBody(err))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTendency(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.api.Tendency(r.Context()))
}

func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	resp, err := s.api.Telemetry(r.Context())
	if err != nil {
		s.logger.Warn("telemetry request failed", "error", err)
		writeJSON(w, http.StatusOK, errorBody(err))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSurge(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.api.SurgeStatus(r.Context()))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func errorBody(err error) map[string]string {
	return map[string]string{"error": errorMessage(err)}
}

// errorMessage maps a pipeline error onto the Spanish message the client
// renders. Internal detail stays in the logs.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrSecurityBlocked):
		return "La fuente de telemetría rechazó la consulta."
	case errors.Is(err, domain.ErrNoDataFound):
		return "El boletín no trae lectura para San Fernando."
	case errors.Is(err, domain.ErrUnexpectedFormat), errors.Is(err, domain.ErrParseFailure):
		return "La fuente respondió en un formato desconocido."
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return "La fuente de datos no responde."
	}
	return "Error inesperado al consultar la fuente."
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
