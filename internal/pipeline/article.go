// Package pipeline drives the ingest run: discovery of a period's articles,
// per-article extraction, enrichment and persistence, all under the three
// concurrency domains and the bounded timeout retry rules.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"archive-ingest/internal/entity"
	"archive-ingest/internal/faults"
	"archive-ingest/internal/ingest"
	"archive-ingest/internal/limiter"
	"archive-ingest/internal/metrics"
	"archive-ingest/internal/retry"
)

// ArticleConfig carries the run-scoped identity stamped into every record.
type ArticleConfig struct {
	Magazine string
	Model    string
	RunID    string
	// Attempts bounds timeout retries for one article, first run included.
	Attempts  int
	BackoffMs int
}

// ArticleRunner processes one article end to end. A runner is built once per
// ingest run and shared by all article goroutines.
type ArticleRunner struct {
	extractor ingest.Extractor
	enricher  ingest.Enricher
	store     ingest.Store
	resolver  *entity.Resolver

	enrichSlots   *limiter.Limiter
	relationSlots *limiter.Limiter

	timeouts *faults.Logger
	log      *zap.Logger
	cfg      ArticleConfig
	now      func() time.Time
}

// NewArticleRunner wires an article runner.
func NewArticleRunner(
	extractor ingest.Extractor,
	enricher ingest.Enricher,
	store ingest.Store,
	resolver *entity.Resolver,
	enrichSlots, relationSlots *limiter.Limiter,
	timeouts *faults.Logger,
	cfg ArticleConfig,
	log *zap.Logger,
) *ArticleRunner {
	if log == nil {
		log = zap.NewNop()
	}
	return &ArticleRunner{
		extractor:     extractor,
		enricher:      enricher,
		store:         store,
		resolver:      resolver,
		enrichSlots:   enrichSlots,
		relationSlots: relationSlots,
		timeouts:      timeouts,
		log:           log,
		cfg:           cfg,
		now:           time.Now,
	}
}

// Process runs one article through extract, enrich, insert and relate.
// A nil record with a nil error means the article had no usable text and
// was skipped. Timeout-class failures are retried up to the configured
// attempt ceiling; each full retry restarts from extraction.
func (r *ArticleRunner) Process(ctx context.Context, periodKey string, loc ingest.ArticleLocator) (*ingest.Record, error) {
	var record *ingest.Record

	policy := retry.Policy{
		Attempts:  r.cfg.Attempts,
		Retryable: faults.IsTimeout,
		BaseDelay: time.Duration(r.cfg.BackoffMs) * time.Millisecond,
		OnFailure: func(attempt int, err error) {
			if !faults.IsTimeout(err) {
				return
			}
			metrics.ObserveTimeout("article")
			r.timeouts.Log("article", periodKey, attempt, r.cfg.Attempts, loc.URL, err)
		},
	}

	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		rec, err := r.attempt(ctx, loc)
		record = rec
		return err
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *ArticleRunner) attempt(ctx context.Context, loc ingest.ArticleLocator) (*ingest.Record, error) {
	started := r.now()
	metrics.IncActiveArticles()
	defer metrics.DecActiveArticles()

	extracted, err := r.extractor.Extract(ctx, loc.URL)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(extracted.RawText) == "" {
		r.log.Info("article skipped, no usable text", zap.String("url", loc.URL))
		return nil, nil
	}

	enriched, err := r.enrich(ctx, extracted)
	if err != nil {
		return nil, err
	}

	record, err := r.buildRecord(loc, extracted, enriched)
	if err != nil {
		return nil, err
	}
	id, err := r.store.InsertRecord(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("insert record for %s: %w", loc.URL, err)
	}
	record.ID = id

	if err := r.relate(ctx, id, enriched); err != nil {
		return nil, err
	}

	metrics.ObserveArticleDuration(r.now().Sub(started))
	r.log.Info("article ingested",
		zap.Int64("record_id", id),
		zap.String("url", loc.URL),
		zap.String("period", record.PeriodLabel),
		zap.Int("tags", len(enriched.Tags)),
		zap.Int("authors", len(enriched.Authors)),
	)
	return &record, nil
}

// enrich fans the four generation calls out concurrently. Each call holds an
// enrichment slot only while in flight, so a wide article fan-out cannot
// exceed the enrichment ceiling. Any single failure aborts the article.
func (r *ArticleRunner) enrich(ctx context.Context, extracted ingest.ExtractionResult) (ingest.EnrichmentResult, error) {
	var result ingest.EnrichmentResult

	g, ctx := errgroup.WithContext(ctx)
	g.Go(r.enrichCall(ctx, "summary", func(ctx context.Context) error {
		var err error
		result.Summary, err = r.enricher.Summarize(ctx, extracted.RawText, extracted.Title)
		return err
	}))
	g.Go(r.enrichCall(ctx, "conclusion", func(ctx context.Context) error {
		var err error
		result.Conclusion, err = r.enricher.Conclude(ctx, extracted.RawText, extracted.Title)
		return err
	}))
	g.Go(r.enrichCall(ctx, "tags", func(ctx context.Context) error {
		var err error
		result.Tags, err = r.enricher.SuggestTags(ctx, extracted.RawText, extracted.Title)
		return err
	}))
	g.Go(r.enrichCall(ctx, "authors", func(ctx context.Context) error {
		var err error
		result.Authors, err = r.enricher.AttributeAuthors(ctx, extracted.RawText, extracted.Title)
		return err
	}))

	if err := g.Wait(); err != nil {
		return ingest.EnrichmentResult{}, err
	}
	return result, nil
}

func (r *ArticleRunner) enrichCall(ctx context.Context, mode string, fn func(context.Context) error) func() error {
	return func() error {
		err := r.enrichSlots.Do(ctx, func() error { return fn(ctx) })
		if err != nil {
			metrics.ObserveEnrichment(mode, "error")
			return fmt.Errorf("%s enrichment: %w", mode, err)
		}
		metrics.ObserveEnrichment(mode, "ok")
		return nil
	}
}

func (r *ArticleRunner) buildRecord(loc ingest.ArticleLocator, extracted ingest.ExtractionResult, enriched ingest.EnrichmentResult) (ingest.Record, error) {
	_, month, err := ingest.ParsePeriodLabel(loc.PeriodGuess)
	if err != nil {
		return ingest.Record{}, fmt.Errorf("locator %s: %w", loc.URL, err)
	}
	return ingest.Record{
		Magazine:    r.cfg.Magazine,
		PeriodLabel: loc.PeriodGuess,
		Volume:      ingest.VolumeForMonth(month),
		Title:       extracted.Title,
		DocumentURL: extracted.DocumentURL,
		Text:        extracted.RawText,
		Summary:     enriched.Summary,
		Conclusion:  enriched.Conclusion,
		Authors:     strings.Join(enriched.Authors, ", "),
		Attribution: ingest.Attribution{
			Model:       r.cfg.Model,
			RunID:       r.cfg.RunID,
			GeneratedAt: r.now().UTC(),
		},
	}, nil
}

// relate resolves every tag and author name and attaches the edges. Edge
// writes hold relation slots; entity resolution does not, since the resolver
// collapses concurrent duplicates on its own.
func (r *ArticleRunner) relate(ctx context.Context, recordID int64, enriched ingest.EnrichmentResult) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, tag := range enriched.Tags {
		tag := tag
		g.Go(func() error {
			ent, err := r.resolver.Resolve(ctx, ingest.KindTag, tag)
			if err != nil {
				return err
			}
			if ent == nil {
				return nil
			}
			return r.relationSlots.Do(ctx, func() error {
				if err := r.store.AttachTag(ctx, recordID, ent.ID); err != nil {
					return fmt.Errorf("attach tag %q: %w", tag, err)
				}
				return nil
			})
		})
	}
	for _, author := range enriched.Authors {
		author := author
		g.Go(func() error {
			ent, err := r.resolver.Resolve(ctx, ingest.KindAuthor, author)
			if err != nil {
				return err
			}
			if ent == nil {
				return nil
			}
			return r.relationSlots.Do(ctx, func() error {
				if err := r.store.AttachAuthor(ctx, recordID, ent.ID); err != nil {
					return fmt.Errorf("attach author %q: %w", author, err)
				}
				return nil
			})
		})
	}
	return g.Wait()
}
