// Command topcalls ranks the callsigns most often heard by RBN skimmers over
// a date range and writes the ranked list as plain text and as counted CSV.
//
// Usage:
//
//	go run ./cmd/topcalls -from 2024-08-01 -to 2025-08-10 -top 500 -band all
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	kafkaadapter "github.com/couchcryptid/rbn-top-calls/internal/adapter/kafka"
	"github.com/couchcryptid/rbn-top-calls/internal/adapter/rbn"
	"github.com/couchcryptid/rbn-top-calls/internal/config"
	"github.com/couchcryptid/rbn-top-calls/internal/domain"
	"github.com/couchcryptid/rbn-top-calls/internal/export"
	"github.com/couchcryptid/rbn-top-calls/internal/observability"
	"github.com/couchcryptid/rbn-top-calls/internal/pipeline"
	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
)

const (
	exitOK     = 0
	exitNoData = 1
	exitUsage  = 2
	exitOutput = 3
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, observability.NewMetrics())
	stop()
	os.Exit(code)
}

// flags holds the raw command-line values. Only flags given explicitly
// override the configuration.
type flags struct {
	from, to           string
	dir                string
	top                int
	band, mode, prefix string
	outTXT, outCSV     string
	offline            bool
	profile            string
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, metrics *observability.Metrics) int {
	fset := flag.NewFlagSet("topcalls", flag.ContinueOnError)
	fset.SetOutput(stderr)

	var f flags
	fset.StringVar(&f.from, "from", "2024-08-01", "start date YYYY-MM-DD (inclusive)")
	fset.StringVar(&f.to, "to", "2025-08-10", "end date YYYY-MM-DD (inclusive)")
	fset.StringVar(&f.dir, "dir", "data", "archive cache directory")
	fset.IntVar(&f.top, "top", 500, "number of callsigns to keep")
	fset.StringVar(&f.band, "band", domain.BandAll, "band filter, e.g. 20m, or all")
	fset.StringVar(&f.mode, "mode", "CW", "transmission mode to count")
	fset.StringVar(&f.prefix, "prefix", "SP", "skimmer country prefix to count")
	fset.StringVar(&f.outTXT, "out-txt", "morse_runner_calls.txt", "plain callsign list output")
	fset.StringVar(&f.outCSV, "out-csv", "top_calls_sp_cw.csv", "callsign,count CSV output")
	fset.BoolVar(&f.offline, "offline", false, "use cached archives only, never download")
	fset.StringVar(&f.profile, "config", "", "optional YAML profile (default $RBN_CONFIG_FILE)")
	if err := fset.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	cfg, err := config.Load(f.profile)
	if err != nil {
		fmt.Fprintf(stderr, "[ERR] %v\n", err)
		return exitUsage
	}
	if err := applyFlags(fset, &f, cfg); err != nil {
		fmt.Fprintf(stderr, "[ERR] %v\n", err)
		return exitUsage
	}

	logger := observability.NewLoggerTo(stderr, cfg.LogLevel, cfg.LogFormat)
	client := rbn.NewClient(cfg, metrics, logger)
	p := pipeline.New(client, rbn.Parser{Logger: logger}, logger, metrics)

	start := time.Now()
	report, err := p.Run(ctx, pipeline.Request{
		From:   cfg.From,
		To:     cfg.To,
		Filter: cfg.Filter,
		TopN:   cfg.TopN,
		Fetch:  !f.offline,
		Progress: func(pr pipeline.Progress) {
			fmt.Fprintf(stderr, "[%d/%d] %s %s\n", pr.Done, pr.Total, domain.DayStem(pr.Day), pr.Status)
		},
	})
	switch {
	case errors.Is(err, pipeline.ErrNoData):
		fmt.Fprintf(stderr, "[WARN] No data after filtering (%d days, %d missing, %d unreadable).\n",
			report.Days, report.Missing, report.Unreadable)
		return exitNoData
	case errors.Is(err, pipeline.ErrInvalidRange), errors.Is(err, pipeline.ErrInvalidTopN):
		fmt.Fprintf(stderr, "[ERR] %v\n", err)
		return exitUsage
	case err != nil:
		fmt.Fprintf(stderr, "[ERR] %v\n", err)
		return exitNoData
	}

	if err := export.WriteFiles(cfg.OutTXT, cfg.OutCSV, report.Entries); err != nil {
		fmt.Fprintf(stderr, "[ERR] %v\n", err)
		return exitOutput
	}

	if cfg.KafkaEnabled {
		w := kafkaadapter.NewWriter(cfg, logger)
		err := w.Publish(ctx, report.Ranking)
		if cerr := w.Close(); cerr != nil {
			logger.Error("kafka writer close error", "error", cerr)
		}
		if err != nil {
			fmt.Fprintf(stderr, "[ERR] %v\n", err)
			return exitOutput
		}
		fmt.Fprintf(stdout, "[OK] Published %s callsigns to %s\n",
			humanize.Comma(int64(len(report.Entries))), cfg.KafkaTopic)
	}

	fmt.Fprintf(stdout, "[OK] Processed %s of %s days (%s missing, %s unreadable) in %s\n",
		humanize.Comma(int64(report.Processed)), humanize.Comma(int64(report.Days)),
		humanize.Comma(int64(report.Missing)), humanize.Comma(int64(report.Unreadable)),
		time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(stdout, "[OK] %s matching spots, %s distinct callsigns\n",
		humanize.Comma(int64(report.Matched)), humanize.Comma(int64(report.Distinct)))
	fmt.Fprintf(stdout, "[OK] Wrote %s callsigns to %s\n", humanize.Comma(int64(len(report.Entries))), cfg.OutTXT)
	fmt.Fprintf(stdout, "[OK] Wrote %s rows to %s\n", humanize.Comma(int64(len(report.Entries))), cfg.OutCSV)
	return exitOK
}

// applyFlags layers explicitly set flags over cfg and revalidates it.
func applyFlags(fset *flag.FlagSet, f *flags, cfg *config.Config) error {
	var err error
	fset.Visit(func(fl *flag.Flag) {
		if err != nil {
			return
		}
		switch fl.Name {
		case "from":
			cfg.From, err = domain.ParseDay(f.from)
		case "to":
			cfg.To, err = domain.ParseDay(f.to)
		case "dir":
			cfg.DataDir = f.dir
		case "top":
			cfg.TopN = f.top
		case "band":
			if !slices.Contains(domain.Bands, f.band) {
				err = fmt.Errorf("unknown band %q", f.band)
			}
			cfg.Filter.Band = f.band
		case "mode":
			cfg.Filter.Mode = f.mode
		case "prefix":
			cfg.Filter.Prefix = f.prefix
		case "out-txt":
			cfg.OutTXT = f.outTXT
		case "out-csv":
			cfg.OutCSV = f.outCSV
		}
	})
	if err != nil {
		return err
	}
	if cfg.To.Before(cfg.From) {
		return fmt.Errorf("end date %s is before start date %s",
			cfg.To.Format(domain.DayLayout), cfg.From.Format(domain.DayLayout))
	}
	return cfg.Validate()
}
