package extract

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"archive-ingest/internal/ingest"
)

// DiscoveryConfig controls archive index traversal.
type DiscoveryConfig struct {
	// IndexURL is a printf template taking the period key and a 1-based
	// page number, e.g. "https://archive.example.org/issues?year=%s&page=%d".
	IndexURL string
	// LinkSelector matches anchors considered article links on an index
	// page. Markup-specific, so it is configuration, not code.
	LinkSelector string
	// MaxIndexPages caps pagination as a runaway guard.
	MaxIndexPages int
}

// PeriodLister implements ingest.Discoverer over the rendered archive index.
type PeriodLister struct {
	renderer Renderer
	cfg      DiscoveryConfig
	log      *zap.Logger
}

// NewPeriodLister builds a discoverer.
func NewPeriodLister(renderer Renderer, cfg DiscoveryConfig, log *zap.Logger) (*PeriodLister, error) {
	if cfg.IndexURL == "" {
		return nil, fmt.Errorf("archive.index_url is required")
	}
	if cfg.LinkSelector == "" {
		cfg.LinkSelector = "a[href]"
	}
	if cfg.MaxIndexPages <= 0 {
		cfg.MaxIndexPages = 50
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PeriodLister{renderer: renderer, cfg: cfg, log: log}, nil
}

// ListPeriod walks index pages for the period until a page contributes no
// new article links, inferring a month label per locator from surrounding
// text and URL. Articles without a recognizable month default to the
// period's first month.
func (l *PeriodLister) ListPeriod(ctx context.Context, periodKey string) ([]ingest.ArticleLocator, error) {
	year, err := ingest.ParsePeriodKey(periodKey)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var locators []ingest.ArticleLocator

	for page := 1; page <= l.cfg.MaxIndexPages; page++ {
		pageURL := fmt.Sprintf(l.cfg.IndexURL, periodKey, page)
		html, err := l.renderer.Render(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("render index page %d: %w", page, err)
		}

		base, perr := url.Parse(pageURL)
		if perr != nil {
			base = nil
		}
		entries, err := parseIndex(html, base, l.cfg.LinkSelector)
		if err != nil {
			return nil, fmt.Errorf("index page %d: %w", page, err)
		}

		added := 0
		for _, entry := range entries {
			if _, dup := seen[entry.href]; dup {
				continue
			}
			seen[entry.href] = struct{}{}

			month := time.January
			if m, ok := inferMonth(entry.text, entry.href); ok {
				month = m
			}
			locators = append(locators, ingest.ArticleLocator{
				URL:         entry.href,
				PeriodGuess: ingest.PeriodLabel(year, month),
			})
			added++
		}
		if added == 0 {
			break
		}
		l.log.Debug("index page discovered",
			zap.String("period", periodKey),
			zap.Int("page", page),
			zap.Int("new_locators", added),
		)
	}

	l.log.Info("period discovery complete",
		zap.String("period", periodKey),
		zap.Int("locators", len(locators)),
	)
	return locators, nil
}
