package extract

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

const articleHTML = `<html>
<head><title>Fallback Title | Archive</title></head>
<body>
<nav>Home Issues About</nav>
<h1> The Message of the Upanishads </h1>
<script>console.log("tracking")</script>
<style>.x{color:red}</style>
<div class="content">
  <p>First paragraph of   the article.</p>
  <p>Second paragraph.</p>
  <a href="#top">back to top</a>
  <a href="/docs/jan-2023-1.pdf?dl=1">Download PDF</a>
</div>
<footer>Copyright</footer>
</body></html>`

func TestParseArticle(t *testing.T) {
	t.Parallel()

	base := mustURL(t, "https://archive.example.org/articles/42")
	page, err := parseArticle(articleHTML, base)
	require.NoError(t, err)

	require.Equal(t, "The Message of the Upanishads", page.title)
	require.Equal(t, "https://archive.example.org/docs/jan-2023-1.pdf?dl=1", page.documentURL)

	require.Contains(t, page.bodyText, "First paragraph of the article.")
	require.Contains(t, page.bodyText, "Second paragraph.")
	require.NotContains(t, page.bodyText, "tracking")
	require.NotContains(t, page.bodyText, "color:red")
	require.NotContains(t, page.bodyText, "Home Issues About")
	require.NotContains(t, page.bodyText, "Copyright")
}

func TestParseArticle_TitleFallbacks(t *testing.T) {
	t.Parallel()

	page, err := parseArticle(`<html><head><title>Only The Tag</title></head><body><p>x</p></body></html>`, nil)
	require.NoError(t, err)
	require.Equal(t, "Only The Tag", page.title)

	page, err = parseArticle(`<html><head><meta property="og:title" content="From Meta"></head><body><p>x</p></body></html>`, nil)
	require.NoError(t, err)
	require.Equal(t, "From Meta", page.title)
}

func TestParseArticle_NoDocumentLink(t *testing.T) {
	t.Parallel()

	page, err := parseArticle("<html><body><a href=\"/about\">About</a>\n<p>body</p></body></html>", mustURL(t, "https://x.org/"))
	require.NoError(t, err)
	require.Empty(t, page.documentURL)
	require.Equal(t, "About\nbody", page.bodyText)
}

func TestLooksLikeDocument(t *testing.T) {
	t.Parallel()

	require.True(t, looksLikeDocument("https://x.org/files/issue.PDF"))
	require.True(t, looksLikeDocument("https://x.org/files/issue.pdf?dl=1"))
	require.True(t, looksLikeDocument("https://x.org/download/123"))
	require.False(t, looksLikeDocument("https://x.org/articles/pdf-history"))
	require.False(t, looksLikeDocument("https://x.org/about"))
}

func TestParseIndex(t *testing.T) {
	t.Parallel()

	html := `<html><body><ul>
	<li>January 2023 <a class="art" href="/articles/1">Opening Words</a></li>
	<li><a class="art" href="/articles/2">On Meditation</a> (Feb 2023)</li>
	<li><a href="/about">About us</a></li>
	</ul></body></html>`

	entries, err := parseIndex(html, mustURL(t, "https://archive.example.org/issues?year=2023&page=1"), "a.art")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "https://archive.example.org/articles/1", entries[0].href)
	require.Contains(t, entries[0].text, "January 2023")
	require.Equal(t, "https://archive.example.org/articles/2", entries[1].href)
	require.Contains(t, entries[1].text, "Feb 2023")
}

func TestInferMonth(t *testing.T) {
	t.Parallel()

	m, ok := inferMonth("Opening Words January 2023")
	require.True(t, ok)
	require.Equal(t, time.January, m)

	m, ok = inferMonth("", "https://x.org/2023/sept/article-4")
	require.True(t, ok)
	require.Equal(t, time.September, m)

	_, ok = inferMonth("an article about nothing", "https://x.org/articles/9")
	require.False(t, ok)

	// First match wins across inputs in order.
	m, ok = inferMonth("December issue", "https://x.org/jan/1")
	require.True(t, ok)
	require.Equal(t, time.December, m)
}

func TestNormalizeText(t *testing.T) {
	t.Parallel()

	out := normalizeText("  a   b \n\n\n c\t d \n")
	require.Equal(t, "a b\nc d", out)
}
