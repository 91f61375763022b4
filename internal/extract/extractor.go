package extract

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"archive-ingest/internal/ingest"
)

// PageExtractor implements ingest.Extractor. It prefers the text of an
// attached document and falls back to the rendered page body.
type PageExtractor struct {
	renderer  Renderer
	documents DocumentFetcher
	log       *zap.Logger
}

// NewPageExtractor builds a page extractor.
func NewPageExtractor(renderer Renderer, documents DocumentFetcher, log *zap.Logger) *PageExtractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &PageExtractor{
		renderer:  renderer,
		documents: documents,
		log:       log,
	}
}

// Extract navigates to the locator and produces title, document link and raw
// text. Navigation failures propagate so timeout-class faults stay visible
// to the retry layer; content-level failures degrade to an empty RawText,
// leaving the skip decision to the caller.
func (e *PageExtractor) Extract(ctx context.Context, rawURL string) (ingest.ExtractionResult, error) {
	html, err := e.renderer.Render(ctx, rawURL)
	if err != nil {
		return ingest.ExtractionResult{}, fmt.Errorf("render %s: %w", rawURL, err)
	}

	base, err := url.Parse(rawURL)
	if err != nil {
		base = nil
	}
	page, err := parseArticle(html, base)
	if err != nil {
		e.log.Warn("article parse failed", zap.String("url", rawURL), zap.Error(err))
		return ingest.ExtractionResult{}, nil
	}

	result := ingest.ExtractionResult{
		Title:       page.title,
		DocumentURL: page.documentURL,
		RawText:     page.bodyText,
	}

	if page.documentURL != "" && e.documents != nil {
		text, derr := e.documents.Text(ctx, page.documentURL)
		if derr != nil || strings.TrimSpace(text) == "" {
			e.log.Warn("document text extraction failed, using page text",
				zap.String("url", rawURL),
				zap.String("document", page.documentURL),
				zap.Error(derr),
			)
		} else {
			result.RawText = normalizeText(text)
		}
	}
	return result, nil
}
