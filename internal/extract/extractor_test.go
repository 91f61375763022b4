package extract

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRenderer struct {
	pages map[string]string
	err   error
	calls []string
}

func (r *fakeRenderer) Render(_ context.Context, rawURL string) (string, error) {
	r.calls = append(r.calls, rawURL)
	if r.err != nil {
		return "", r.err
	}
	html, ok := r.pages[rawURL]
	if !ok {
		return "", fmt.Errorf("no page for %s", rawURL)
	}
	return html, nil
}

type fakeDocuments struct {
	text  string
	err   error
	calls []string
}

func (d *fakeDocuments) Text(_ context.Context, docURL string) (string, error) {
	d.calls = append(d.calls, docURL)
	return d.text, d.err
}

func TestExtract_PrefersDocumentText(t *testing.T) {
	t.Parallel()

	renderer := &fakeRenderer{pages: map[string]string{
		"https://x.org/articles/1": articleHTML,
	}}
	docs := &fakeDocuments{text: "document body  text\n"}

	e := NewPageExtractor(renderer, docs, zap.NewNop())
	res, err := e.Extract(context.Background(), "https://x.org/articles/1")
	require.NoError(t, err)

	require.Equal(t, "The Message of the Upanishads", res.Title)
	require.Equal(t, "https://x.org/docs/jan-2023-1.pdf?dl=1", res.DocumentURL)
	require.Equal(t, "document body text", res.RawText)
	require.Equal(t, []string{"https://x.org/docs/jan-2023-1.pdf?dl=1"}, docs.calls)
}

func TestExtract_FallsBackToPageTextOnDocumentFailure(t *testing.T) {
	t.Parallel()

	renderer := &fakeRenderer{pages: map[string]string{
		"https://x.org/articles/1": articleHTML,
	}}
	docs := &fakeDocuments{err: errors.New("corrupt pdf")}

	e := NewPageExtractor(renderer, docs, zap.NewNop())
	res, err := e.Extract(context.Background(), "https://x.org/articles/1")
	require.NoError(t, err)
	require.Contains(t, res.RawText, "First paragraph of the article.")
}

func TestExtract_NoDocumentUsesPageText(t *testing.T) {
	t.Parallel()

	renderer := &fakeRenderer{pages: map[string]string{
		"https://x.org/articles/2": "<html><body><h1>T</h1>\n<p>page only</p></body></html>",
	}}
	docs := &fakeDocuments{}

	e := NewPageExtractor(renderer, docs, zap.NewNop())
	res, err := e.Extract(context.Background(), "https://x.org/articles/2")
	require.NoError(t, err)
	require.Contains(t, res.RawText, "page only")
	require.Empty(t, res.DocumentURL)
	require.Empty(t, docs.calls)
}

func TestExtract_RenderErrorPropagates(t *testing.T) {
	t.Parallel()

	renderer := &fakeRenderer{err: errors.New("navigation timed out")}
	e := NewPageExtractor(renderer, &fakeDocuments{}, zap.NewNop())

	_, err := e.Extract(context.Background(), "https://x.org/articles/3")
	require.ErrorContains(t, err, "timed out")
}

func TestExtract_EmptyPageYieldsEmptyRawText(t *testing.T) {
	t.Parallel()

	renderer := &fakeRenderer{pages: map[string]string{
		"https://x.org/articles/4": "<html><body></body></html>",
	}}
	e := NewPageExtractor(renderer, &fakeDocuments{}, zap.NewNop())

	res, err := e.Extract(context.Background(), "https://x.org/articles/4")
	require.NoError(t, err)
	require.Empty(t, res.RawText)
}
