// Package server exposes computed strategy schedules over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/davidpgausai-svg/LeaderOS-sub003/internal/cpm"
	"github.com/davidpgausai-svg/LeaderOS-sub003/internal/engine"
	"github.com/davidpgausai-svg/LeaderOS-sub003/internal/graph"
	"github.com/davidpgausai-svg/LeaderOS-sub003/internal/logging"
	"github.com/davidpgausai-svg/LeaderOS-sub003/internal/model"
	"github.com/davidpgausai-svg/LeaderOS-sub003/internal/store"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// Computer produces the result for one strategy.
type Computer interface {
	Compute(ctx context.Context, strategyID string, asOf time.Time) (*engine.Result, error)
}

// Server routes HTTP requests to the engine.
type Server struct {
	computer Computer
	logger   *slog.Logger
	metrics  *metrics
	mux      *http.ServeMux
}

// errorBody is the JSON shape of every non-2xx response.
type errorBody struct {
	Error string   `json:"error"`
	Code  string   `json:"code"`
	Cycle []string `json:"cycle,omitempty"`
}

// New builds a Server. Metrics are registered on reg and served from it.
func New(c Computer, logger *slog.Logger, reg *prometheus.Registry) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		computer: c,
		logger:   logger,
		metrics:  newMetrics(reg),
		mux:      http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /strategies/{strategyID}/schedule", s.handleSchedule)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return s
}

// Handler returns the routed handler wrapped with request ID and logging.
func (s *Server) Handler() http.Handler {
	return s.withRequestID(s.mux)
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string, readTimeout, writeTimeout time.Duration) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.logger.Info("server listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)

		logger := s.logger.With("request_id", id)
		ctx := logging.WithLogger(r.Context(), logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	strategyID := r.PathValue("strategyID")
	logger := logging.FromContext(r.Context()).With("strategy_id", strategyID)

	var asOf time.Time
	if raw := r.URL.Query().Get("asOf"); raw != "" {
		d, err := time.Parse(model.DateLayout, raw)
		if err != nil {
			s.fail(w, http.StatusBadRequest, errorBody{Error: "asOf must be YYYY-MM-DD", Code: "BAD_REQUEST"})
			return
		}
		asOf = d
	}

	start := time.Now()
	res, err := s.computer.Compute(r.Context(), strategyID, asOf)
	s.metrics.duration.Observe(time.Since(start).Seconds())
	if err != nil {
		status, body := classify(err)
		if status >= 500 {
			logger.Error("schedule request failed", "error", err)
		} else {
			logger.Info("schedule request rejected", "code", body.Code, "error", err)
		}
		s.fail(w, status, body)
		return
	}

	s.metrics.tasks.Observe(float64(len(res.TaskRAG)))
	for _, a := range res.Anomalies {
		s.metrics.anomalies.WithLabelValues(string(a.Kind)).Inc()
	}

	w.Header().Set("Cache-Control", "no-store")
	if err := s.writeJSON(w, http.StatusOK, res); err != nil {
		logger.Error("encode schedule response", "error", err)
		s.metrics.requests.WithLabelValues("INTERNAL").Inc()
		return
	}
	s.metrics.requests.WithLabelValues("OK").Inc()
}

func (s *Server) fail(w http.ResponseWriter, status int, body errorBody) {
	s.metrics.requests.WithLabelValues(body.Code).Inc()
	w.Header().Set("Cache-Control", "no-store")
	s.writeJSON(w, status, body)
}

// classify maps a compute error onto an HTTP status and error body.
func classify(err error) (int, errorBody) {
	var cycle *graph.CycleError
	switch {
	case errors.Is(err, store.ErrStrategyNotFound):
		return http.StatusNotFound, errorBody{Error: "strategy not found", Code: "NOT_FOUND"}
	case errors.As(err, &cycle):
		return http.StatusUnprocessableEntity, errorBody{
			Error: "scheduling configuration invalid",
			Code:  "CYCLE_DETECTED",
			Cycle: cycle.Path,
		}
	case errors.Is(err, cpm.ErrInconsistentFloat):
		return http.StatusInternalServerError, errorBody{Error: "schedule computation inconsistent", Code: "INCONSISTENT_FLOAT"}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, errorBody{Error: "request cancelled", Code: "UNAVAILABLE"}
	default:
		return http.StatusInternalServerError, errorBody{Error: "internal error", Code: "INTERNAL"}
	}
}

// writeJSON encodes v before writing the header. If encoding fails the
// client gets 500 INTERNAL and the error is returned.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		data, _ = json.Marshal(errorBody{Error: "internal error", Code: "INTERNAL"})
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(data, '\n'))
	return err
}
