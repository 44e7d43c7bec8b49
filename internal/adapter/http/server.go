package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/rbn-top-calls/internal/dashboard"
	"github.com/couchcryptid/rbn-top-calls/internal/domain"
	"github.com/couchcryptid/rbn-top-calls/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Calculator produces rankings for dashboard queries.
type Calculator interface {
	Calculate(ctx context.Context, q dashboard.Query, progress func(pipeline.Progress)) (dashboard.Result, error)
}

// Options carries the form defaults and download file names.
type Options struct {
	Defaults dashboard.Query
	Filter   domain.Filter
	TextName string
	CSVName  string
}

// Server exposes the dashboard page, its API, and health, readiness, and
// metrics endpoints.
type Server struct {
	httpServer *http.Server
	calc       Calculator
	opts       Options
	validate   *validator.Validate
	logger     *slog.Logger
}

// NewServer creates the dashboard HTTP server.
func NewServer(addr string, calc Calculator, ready sharedobs.ReadinessChecker, opts Options, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		calc:     calc,
		opts:     opts,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /api/calculate", s.handleCalculate)
	mux.HandleFunc("GET /api/report", s.handleReport)
	mux.HandleFunc("GET /download/top_calls.csv", s.handleDownloadCSV)
	mux.HandleFunc("GET /download/calls.txt", s.handleDownloadText)
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
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
