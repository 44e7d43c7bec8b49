package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/rbn-top-calls/internal/domain"
	"github.com/couchcryptid/rbn-top-calls/internal/observability"
)

var (
	// ErrNoData is returned when no spot matched the filter anywhere in the range.
	ErrNoData = errors.New("no data after filtering")
	// ErrInvalidRange is returned when the end date precedes the start date.
	ErrInvalidRange = errors.New("invalid date range")
	// ErrInvalidTopN is returned when fewer than one entry is requested.
	ErrInvalidTopN = errors.New("top n must be at least 1")
)

// Fetcher makes a day's archive available on local disk.
type Fetcher interface {
	// Fetch returns the archive path, downloading it if needed.
	Fetch(ctx context.Context, day time.Time) (string, error)
	// Cached returns the archive path if it is already on disk.
	Cached(day time.Time) (string, bool)
}

// Parser decodes an archive into normalized spots.
type Parser interface {
	Parse(path string) (domain.Table, error)
}

// DayStatus describes what happened to one day of the range.
type DayStatus string

const (
	StatusProcessed  DayStatus = "processed"
	StatusMissing    DayStatus = "missing"
	StatusUnreadable DayStatus = "unreadable"
)

// Progress is reported once per day.
type Progress struct {
	Day    time.Time `json:"day"`
	Done   int       `json:"done"`
	Total  int       `json:"total"`
	Status DayStatus `json:"status"`
}

// Request parameterizes one run.
type Request struct {
	From   time.Time
	To     time.Time
	Filter domain.Filter
	TopN   int
	// Fetch downloads missing archives. When false only cached archives are used.
	Fetch bool
	// Progress, if set, is called after every day.
	Progress func(Progress)
}

// Validate checks the request before any I/O happens.
func (r Request) Validate() error {
	if r.From.IsZero() || r.To.IsZero() {
		return fmt.Errorf("%w: both dates are required", ErrInvalidRange)
	}
	if r.To.Before(r.From) {
		return fmt.Errorf("%w: %s is before %s", ErrInvalidRange,
			r.To.Format(domain.DayLayout), r.From.Format(domain.DayLayout))
	}
	if r.TopN < 1 {
		return ErrInvalidTopN
	}
	return nil
}

// Report is the outcome of a run.
type Report struct {
	domain.Ranking
	Days       int `json:"days"`
	Processed  int `json:"processed"`
	Missing    int `json:"missing"`
	Unreadable int `json:"unreadable"`
	Matched    int `json:"matched"`
	Distinct   int `json:"distinct"`
}

// Pipeline folds daily archives into a ranking.
type Pipeline struct {
	fetcher Fetcher
	parser  Parser
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Pipeline with the given stages and observability.
func New(f Fetcher, p Parser, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		fetcher: f,
		parser:  p,
		logger:  logger,
		metrics: metrics,
	}
}

// Run processes every day of the request sequentially. Days that cannot be
// fetched or parsed are logged and skipped. ErrNoData is returned, together
// with the day statistics, when nothing matched. A cancelled context aborts
// the run with the context's error and no partial report.
func (p *Pipeline) Run(ctx context.Context, req Request) (Report, error) {
	if err := req.Validate(); err != nil {
		return Report{}, err
	}

	start := time.Now()
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	report := Report{Days: domain.DayCount(req.From, req.To)}
	p.logger.Info("pipeline started",
		"from", req.From.Format(domain.DayLayout),
		"to", req.To.Format(domain.DayLayout),
		"days", report.Days,
		"mode", req.Filter.Mode,
		"prefix", req.Filter.Prefix,
		"band", req.Filter.Band,
		"fetch", req.Fetch,
	)

	var counts domain.Counts
	done := 0
	for day := range domain.Days(req.From, req.To) {
		if err := ctx.Err(); err != nil {
			return p.abort(err)
		}

		status, err := p.processDay(ctx, day, req, &counts)
		if err != nil {
			return p.abort(err)
		}
		switch status {
		case StatusProcessed:
			report.Processed++
		case StatusMissing:
			report.Missing++
		case StatusUnreadable:
			report.Unreadable++
		}
		p.metrics.DaysProcessed.WithLabelValues(string(status)).Inc()

		done++
		if req.Progress != nil {
			req.Progress(Progress{Day: day, Done: done, Total: report.Days, Status: status})
		}
	}

	if err := ctx.Err(); err != nil {
		return p.abort(err)
	}

	report.Ranking = domain.NewRanking(req.From, req.To, req.Filter, counts, req.TopN)
	report.Matched = counts.Total()
	report.Distinct = len(counts)
	p.metrics.RowsMatched.Add(float64(report.Matched))
	p.metrics.RunDuration.Observe(time.Since(start).Seconds())

	if len(counts) == 0 {
		p.metrics.Runs.WithLabelValues("no_data").Inc()
		p.logger.Warn("no spots matched the filter",
			"days", report.Days, "processed", report.Processed, "missing", report.Missing)
		return report, ErrNoData
	}

	p.metrics.Runs.WithLabelValues("ok").Inc()
	p.logger.Info("pipeline finished",
		"processed", report.Processed,
		"missing", report.Missing,
		"unreadable", report.Unreadable,
		"matched", report.Matched,
		"distinct", report.Distinct,
		"duration", time.Since(start),
	)
	return report, nil
}

func (p *Pipeline) abort(err error) (Report, error) {
	p.metrics.Runs.WithLabelValues("error").Inc()
	p.logger.Warn("pipeline aborted", "error", err)
	return Report{}, err
}

// processDay locates, parses, and folds one day into counts. Only a context
// error is returned; every other failure is reported as the day's status.
func (p *Pipeline) processDay(ctx context.Context, day time.Time, req Request, counts *domain.Counts) (DayStatus, error) {
	path, err := p.locate(ctx, day, req.Fetch)
	if err != nil {
		return "", err
	}
	if path == "" {
		return StatusMissing, nil
	}

	table, err := p.parser.Parse(path)
	if err != nil {
		p.logger.Warn("parse failed, skipping day",
			"day", day.Format(domain.DayLayout), "path", path, "error", err)
		return StatusUnreadable, nil
	}

	*counts = domain.Fold(table, req.Filter, *counts)
	p.metrics.RowsParsed.Add(float64(len(table)))
	return StatusProcessed, nil
}

// locate returns the archive path for day, or "" when it is unavailable.
func (p *Pipeline) locate(ctx context.Context, day time.Time, fetch bool) (string, error) {
	if !fetch {
		path, ok := p.fetcher.Cached(day)
		if !ok {
			p.logger.Debug("archive not cached, skipping day", "day", day.Format(domain.DayLayout))
			return "", nil
		}
		return path, nil
	}
	path, err := p.fetcher.Fetch(ctx, day)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		// The fetcher has already logged the URL and cause.
		return "", nil
	}
	return path, nil
}
