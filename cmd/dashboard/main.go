// Command dashboard serves the interactive top-calls page.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	httpadapter "github.com/couchcryptid/rbn-top-calls/internal/adapter/http"
	"github.com/couchcryptid/rbn-top-calls/internal/adapter/rbn"
	"github.com/couchcryptid/rbn-top-calls/internal/config"
	"github.com/couchcryptid/rbn-top-calls/internal/dashboard"
	"github.com/couchcryptid/rbn-top-calls/internal/observability"
	"github.com/couchcryptid/rbn-top-calls/internal/pipeline"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}

	profile := flag.String("config", "", "optional YAML profile (default $RBN_CONFIG_FILE)")
	flag.Parse()

	cfg, err := config.Load(*profile)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(2)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	client := rbn.NewClient(cfg, metrics, logger)
	p := pipeline.New(client, rbn.Parser{Logger: logger}, logger, metrics)
	svc := dashboard.NewService(p, cfg.Filter, cfg.DataDir, cfg.ResultCacheSize, metrics, logger)

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, svc, httpadapter.Options{
		Defaults: dashboard.Query{
			From:  cfg.From,
			To:    cfg.To,
			Band:  cfg.Filter.Band,
			TopN:  cfg.TopN,
			Fetch: true,
		},
		Filter:   cfg.Filter,
		TextName: filepath.Base(cfg.OutTXT),
		CSVName:  filepath.Base(cfg.OutCSV),
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()
	logger.Info("dashboard ready",
		"addr", cfg.HTTPAddr,
		"data_dir", cfg.DataDir,
		"mode", cfg.Filter.Mode,
		"prefix", cfg.Filter.Prefix,
		"cache_size", cfg.ResultCacheSize,
	)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
