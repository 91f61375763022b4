// Package main wires together the archive ingest binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"archive-ingest/internal/config"
	"archive-ingest/internal/enrich"
	"archive-ingest/internal/entity"
	"archive-ingest/internal/extract"
	"archive-ingest/internal/faults"
	"archive-ingest/internal/ingest"
	"archive-ingest/internal/limiter"
	"archive-ingest/internal/logging"
	"archive-ingest/internal/metrics"
	"archive-ingest/internal/pipeline"
	"archive-ingest/internal/store/postgres"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [-config path] [year] [month 1-12] [limit] [articles]\n", os.Args[0])
}

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) > 4 {
		usage()
		os.Exit(2)
	}
	periodKey := strconv.Itoa(time.Now().Year())
	if len(args) > 0 {
		periodKey = args[0]
		args = args[1:]
	}
	month, limit, articles, err := parseRunArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	if articles > 0 {
		cfg.Concurrency.Articles = articles
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := run(ctx, cfg, periodKey, month, limit, logger)
	if err != nil {
		logger.Error("ingest run failed", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("ingest run complete",
		zap.String("period", periodKey),
		zap.Int("inserted", report.Inserted),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
	)
}

func parseRunArgs(args []string) (time.Month, int, int, error) {
	var month time.Month
	var limit, articles int
	if len(args) > 0 {
		m, err := strconv.Atoi(args[0])
		if err != nil || m < 1 || m > 12 {
			return 0, 0, 0, fmt.Errorf("month must be 1-12, got %q", args[0])
		}
		month = time.Month(m)
	}
	if len(args) > 1 {
		l, err := strconv.Atoi(args[1])
		if err != nil || l < 0 {
			return 0, 0, 0, fmt.Errorf("limit must be a non-negative integer, got %q", args[1])
		}
		limit = l
	}
	if len(args) > 2 {
		a, err := strconv.Atoi(args[2])
		if err != nil || a < 1 {
			return 0, 0, 0, fmt.Errorf("articles must be a positive integer, got %q", args[2])
		}
		articles = a
	}
	return month, limit, articles, nil
}

func run(ctx context.Context, cfg config.Config, periodKey string, month time.Month, limit int, logger *zap.Logger) (ingest.Report, error) {
	runID := uuid.NewString()
	logger.Info("ingest run starting",
		zap.String("run_id", runID),
		zap.String("period", periodKey),
		zap.String("magazine", cfg.Archive.Magazine),
	)

	store, err := postgres.New(ctx, postgres.Config{
		DSN:             cfg.DB.DSN,
		MaxConns:        int32(cfg.DB.MaxConns),
		MinConns:        int32(cfg.DB.MinConns),
		MaxConnLifetime: cfg.ConnLifetime(),
	})
	if err != nil {
		return ingest.Report{}, fmt.Errorf("connect store: %w", err)
	}
	defer store.Close()

	renderer, err := extract.NewChromedpRenderer(extract.RendererConfig{
		UserAgent:         cfg.Archive.UserAgent,
		NavigationTimeout: cfg.NavTimeout(),
		HostQPS:           cfg.Browser.HostQPS,
	})
	if err != nil {
		return ingest.Report{}, fmt.Errorf("start renderer: %w", err)
	}
	defer renderer.Close()

	documents := extract.NewCollyDocumentFetcher(cfg.Archive.UserAgent, cfg.NavTimeout())
	extractor := extract.NewPageExtractor(renderer, documents, logger.Named("extract"))

	lister, err := extract.NewPeriodLister(renderer, extract.DiscoveryConfig{
		IndexURL:     cfg.Archive.IndexURL,
		LinkSelector: cfg.Archive.LinkSelector,
	}, logger.Named("discovery"))
	if err != nil {
		return ingest.Report{}, fmt.Errorf("build discoverer: %w", err)
	}

	completer, err := enrich.NewClient(enrich.ClientConfig{
		BaseURL: cfg.AI.BaseURL,
		APIKey:  cfg.AI.APIKey,
		Model:   cfg.AI.Model,
		Timeout: cfg.AITimeout(),
	})
	if err != nil {
		return ingest.Report{}, fmt.Errorf("build generation client: %w", err)
	}
	enricher := enrich.NewAdapter(completer, logger.Named("enrich"))

	timeouts := faults.NewLogger(cfg.TimeoutLog.Path, logger.Named("faults"))
	resolver := entity.NewResolver(store, logger.Named("entity"))

	runner := pipeline.NewArticleRunner(
		extractor,
		enricher,
		store,
		resolver,
		limiter.New(cfg.Concurrency.Enrichment),
		limiter.New(cfg.Concurrency.Relations),
		timeouts,
		pipeline.ArticleConfig{
			Magazine:  cfg.Archive.Magazine,
			Model:     cfg.AI.Model,
			RunID:     runID,
			Attempts:  cfg.Retry.ArticleAttempts,
			BackoffMs: cfg.Retry.BackoffMs,
		},
		logger.Named("article"),
	)
	orchestrator := pipeline.NewPeriodOrchestrator(
		lister,
		runner,
		limiter.New(cfg.Concurrency.Articles),
		timeouts,
		pipeline.PeriodConfig{
			Attempts:  cfg.Retry.PeriodAttempts,
			BackoffMs: cfg.Retry.BackoffMs,
		},
		logger.Named("period"),
	)

	if cfg.Metrics.Port > 0 {
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler:           metrics.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("metrics listener started", zap.Int("port", cfg.Metrics.Port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics listener error", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("metrics listener shutdown error", zap.Error(err))
			}
		}()
	}

	return orchestrator.Run(ctx, periodKey, month, limit)
}
