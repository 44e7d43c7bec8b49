// Package dashboard serves memoized rankings to the interactive web page.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/couchcryptid/rbn-top-calls/internal/domain"
	"github.com/couchcryptid/rbn-top-calls/internal/observability"
	"github.com/couchcryptid/rbn-top-calls/internal/pipeline"
)

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Report, error)
}

// Query identifies one dashboard calculation.
type Query struct {
	From  time.Time
	To    time.Time
	Band  string
	TopN  int
	Fetch bool
}

func (q Query) key() string {
	return q.From.Format(domain.DayLayout) + "|" + q.To.Format(domain.DayLayout) + "|" +
		q.Band + "|" + strconv.Itoa(q.TopN) + "|" + strconv.FormatBool(q.Fetch)
}

// Result is a memoized calculation. NoData is set when nothing matched.
type Result struct {
	Report pipeline.Report `json:"report"`
	NoData bool            `json:"no_data"`
	Cached bool            `json:"cached"`
}

// Service runs the pipeline on behalf of the dashboard, one run at a time,
// and remembers the results of recent queries.
type Service struct {
	runner  Runner
	filter  domain.Filter
	dataDir string
	cache   *lruCache[Result]
	runMu   sync.Mutex
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewService creates a Service. filter supplies the fixed mode and prefix and
// the band used when a query leaves it empty.
func NewService(runner Runner, filter domain.Filter, dataDir string, cacheSize int, metrics *observability.Metrics, logger *slog.Logger) *Service {
	return &Service{
		runner:  runner,
		filter:  filter,
		dataDir: dataDir,
		cache:   newLRUCache[Result](cacheSize),
		metrics: metrics,
		logger:  logger,
	}
}

// Filter returns the filter a query would run with.
func (s *Service) Filter(q Query) domain.Filter {
	f := s.filter
	if q.Band != "" {
		f.Band = q.Band
	}
	return f
}

// Calculate returns the ranking for q. A cached result is returned without
// any pipeline work; otherwise the pipeline runs and progress is called once
// per day. Failed or cancelled runs are not remembered.
func (s *Service) Calculate(ctx context.Context, q Query, progress func(pipeline.Progress)) (Result, error) {
	key := q.key()
	if res, ok := s.cache.get(key); ok {
		s.metrics.ResultCache.WithLabelValues("hit").Inc()
		res.Cached = true
		return res, nil
	}

	s.runMu.Lock()
	defer s.runMu.Unlock()

	// Another request may have computed the same query while we waited.
	if res, ok := s.cache.get(key); ok {
		s.metrics.ResultCache.WithLabelValues("hit").Inc()
		res.Cached = true
		return res, nil
	}
	s.metrics.ResultCache.WithLabelValues("miss").Inc()

	report, err := s.runner.Run(ctx, pipeline.Request{
		From:     q.From,
		To:       q.To,
		Filter:   s.Filter(q),
		TopN:     q.TopN,
		Fetch:    q.Fetch,
		Progress: progress,
	})
	var res Result
	switch {
	case err == nil:
		res = Result{Report: report}
	case errors.Is(err, pipeline.ErrNoData):
		res = Result{Report: report, NoData: true}
	default:
		return Result{}, err
	}

	s.cache.put(key, res)
	s.logger.Info("calculation stored",
		"query", key, "entries", len(res.Report.Entries), "no_data", res.NoData)
	return res, nil
}

// CheckReadiness reports whether the archive cache directory is usable.
func (s *Service) CheckReadiness(_ context.Context) error {
	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return fmt.Errorf("data dir %s: %w", s.dataDir, err)
	}
	return nil
}
