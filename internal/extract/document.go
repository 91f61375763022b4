package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/ledongthuc/pdf"
)

// DocumentFetcher downloads an attached document and extracts its text.
type DocumentFetcher interface {
	Text(ctx context.Context, docURL string) (string, error)
}

// CollyDocumentFetcher downloads documents over plain HTTP with a Colly
// collector and extracts text from PDF bodies.
type CollyDocumentFetcher struct {
	base    *colly.Collector
	timeout time.Duration
}

// NewCollyDocumentFetcher builds a document fetcher.
func NewCollyDocumentFetcher(userAgent string, timeout time.Duration) *CollyDocumentFetcher {
	c := colly.NewCollector(colly.Async(false))
	if userAgent != "" {
		c.UserAgent = userAgent
	}
	c.IgnoreRobotsTxt = true
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &CollyDocumentFetcher{base: c, timeout: timeout}
}

// Text downloads docURL and returns its extracted plain text.
func (f *CollyDocumentFetcher) Text(ctx context.Context, docURL string) (string, error) {
	collector := f.base.Clone()
	collector.SetRequestTimeout(f.timeout)

	var (
		body     []byte
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(docURL)
	}()
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("document download canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return "", fmt.Errorf("document visit %s: %w", docURL, err)
		}
	}
	if fetchErr != nil {
		return "", fmt.Errorf("document download %s: %w", docURL, fetchErr)
	}
	if len(body) == 0 {
		return "", fmt.Errorf("document %s: empty body", docURL)
	}
	return pdfText(body)
}

func pdfText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}
