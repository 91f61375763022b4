package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// articlePage is the parsed form of one rendered article page.
type articlePage struct {
	title       string
	documentURL string
	bodyText    string
}

// parseArticle pulls the title, an optional attached-document link and the
// visible body text out of rendered HTML. base resolves relative hrefs.
func parseArticle(html string, base *url.URL) (articlePage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return articlePage{}, fmt.Errorf("parse article html: %w", err)
	}

	page := articlePage{
		title:       pageTitle(doc),
		documentURL: documentLink(doc, base),
	}

	// Strip non-content markup before reading text so scripts and chrome
	// never leak into the extracted body.
	doc.Find("script, style, noscript, iframe, nav, header, footer").Remove()
	page.bodyText = normalizeText(doc.Find("body").Text())
	return page, nil
}

func pageTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("h1").First().Text()); title != "" {
		return title
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	if title, ok := doc.Find("meta[property='og:title']").Attr("content"); ok && strings.TrimSpace(title) != "" {
		return strings.TrimSpace(title)
	}
	return ""
}

// documentLink returns the first anchor whose target looks like an attached
// document, resolved against base. Empty when the page has none.
func documentLink(doc *goquery.Document, base *url.URL) string {
	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		resolved := resolveHref(base, href)
		if resolved == "" || !looksLikeDocument(resolved) {
			return true
		}
		found = resolved
		return false
	})
	return found
}

func looksLikeDocument(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := strings.ToLower(u.Path)
	return strings.HasSuffix(path, ".pdf") || strings.Contains(path, "/download/")
}

func resolveHref(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

// normalizeText collapses rendered whitespace into trimmed lines.
func normalizeText(raw string) string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		lines = append(lines, strings.Join(fields, " "))
	}
	return strings.Join(lines, "\n")
}

// indexEntry is one candidate article link found on an archive index page.
type indexEntry struct {
	href string
	// text is the anchor text plus its immediate surroundings, used for
	// best-effort month inference.
	text string
}

// parseIndex collects article links from one rendered index page.
func parseIndex(html string, base *url.URL, linkSelector string) ([]indexEntry, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse index html: %w", err)
	}

	var entries []indexEntry
	doc.Find(linkSelector).Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		resolved := resolveHref(base, href)
		if resolved == "" {
			return
		}
		context := sel.Text()
		if parent := sel.Parent(); parent != nil {
			context += " " + parent.Text()
		}
		entries = append(entries, indexEntry{
			href: resolved,
			text: normalizeText(context),
		})
	})
	return entries, nil
}
