package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"archive-ingest/internal/faults"
	"archive-ingest/internal/ingest"
	"archive-ingest/internal/limiter"
	"archive-ingest/internal/metrics"
	"archive-ingest/internal/retry"
)

// articleProcessor is the slice of ArticleRunner the orchestrator needs.
type articleProcessor interface {
	Process(ctx context.Context, periodKey string, loc ingest.ArticleLocator) (*ingest.Record, error)
}

// PeriodConfig bounds one period run.
type PeriodConfig struct {
	// Attempts bounds timeout retries of the discovery step.
	Attempts  int
	BackoffMs int
}

// PeriodOrchestrator runs one archive period: discovery, then a bounded
// fan-out of article runs. Individual article failures are counted, never
// escalated; only discovery failure fails the period.
type PeriodOrchestrator struct {
	discoverer   ingest.Discoverer
	articles     articleProcessor
	articleSlots *limiter.Limiter

	timeouts *faults.Logger
	log      *zap.Logger
	cfg      PeriodConfig
}

// NewPeriodOrchestrator wires a period orchestrator.
func NewPeriodOrchestrator(
	discoverer ingest.Discoverer,
	articles articleProcessor,
	articleSlots *limiter.Limiter,
	timeouts *faults.Logger,
	cfg PeriodConfig,
	log *zap.Logger,
) *PeriodOrchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &PeriodOrchestrator{
		discoverer:   discoverer,
		articles:     articles,
		articleSlots: articleSlots,
		timeouts:     timeouts,
		log:          log,
		cfg:          cfg,
	}
}

// Run ingests one period. A non-zero month keeps only locators guessed to
// that month; a positive limit caps how many articles run after filtering.
func (o *PeriodOrchestrator) Run(ctx context.Context, periodKey string, month time.Month, limit int) (ingest.Report, error) {
	year, err := ingest.ParsePeriodKey(periodKey)
	if err != nil {
		return ingest.Report{}, err
	}

	locators, err := o.discover(ctx, periodKey)
	if err != nil {
		return ingest.Report{}, fmt.Errorf("discover period %s: %w", periodKey, err)
	}
	metrics.ObserveDiscovery(len(locators))

	if month != 0 {
		want := ingest.PeriodLabel(year, month)
		kept := locators[:0]
		for _, loc := range locators {
			if loc.PeriodGuess == want {
				kept = append(kept, loc)
			}
		}
		locators = kept
	}
	if limit > 0 && len(locators) > limit {
		locators = locators[:limit]
	}

	o.log.Info("period run starting",
		zap.String("period", periodKey),
		zap.Int("articles", len(locators)),
	)

	var inserted, skipped, failed atomic.Int64
	var wg sync.WaitGroup
	for _, loc := range locators {
		if err := o.articleSlots.Acquire(ctx); err != nil {
			// Shutdown mid-period; everything not yet started counts failed.
			failed.Add(1)
			metrics.ObserveArticle("failed")
			continue
		}
		wg.Add(1)
		go func(loc ingest.ArticleLocator) {
			defer wg.Done()
			defer o.articleSlots.Release()

			record, err := o.articles.Process(ctx, periodKey, loc)
			switch {
			case err != nil:
				failed.Add(1)
				metrics.ObserveArticle("failed")
				o.log.Error("article failed",
					zap.String("url", loc.URL),
					zap.Error(err),
				)
			case record == nil:
				skipped.Add(1)
				metrics.ObserveArticle("skipped")
			default:
				inserted.Add(1)
				metrics.ObserveArticle("inserted")
			}
		}(loc)
	}
	wg.Wait()

	report := ingest.Report{
		Inserted: int(inserted.Load()),
		Skipped:  int(skipped.Load()),
		Failed:   int(failed.Load()),
	}
	o.log.Info("period run finished",
		zap.String("period", periodKey),
		zap.Int("inserted", report.Inserted),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

// discover lists the period's locators, retrying timeout-class failures up
// to the period attempt ceiling.
func (o *PeriodOrchestrator) discover(ctx context.Context, periodKey string) ([]ingest.ArticleLocator, error) {
	var locators []ingest.ArticleLocator

	policy := retry.Policy{
		Attempts:  o.cfg.Attempts,
		Retryable: faults.IsTimeout,
		BaseDelay: time.Duration(o.cfg.BackoffMs) * time.Millisecond,
		OnFailure: func(attempt int, err error) {
			if !faults.IsTimeout(err) {
				return
			}
			metrics.ObserveTimeout("period")
			o.timeouts.Log("period", periodKey, attempt, o.cfg.Attempts, "", err)
		},
	}
	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		var derr error
		locators, derr = o.discoverer.ListPeriod(ctx, periodKey)
		return derr
	})
	return locators, err
}
