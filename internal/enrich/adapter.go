package enrich

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"
)

// Context windows bound request cost: prose modes see more of the article
// than the list modes.
const (
	proseWindow = 12000
	listWindow  = 6000
)

const (
	maxTags    = 5
	maxAuthors = 12
)

// Completer is the single operation the adapter needs from the service.
type Completer interface {
	Complete(ctx context.Context, instruction, input string) (string, error)
}

// Adapter shapes per-mode prompts and normalizes the service output into
// the four derived fields.
type Adapter struct {
	completer Completer
	log       *zap.Logger
}

// NewAdapter builds an adapter over a completion client.
func NewAdapter(completer Completer, log *zap.Logger) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{completer: completer, log: log}
}

// Summarize returns a trimmed prose summary of the article.
func (a *Adapter) Summarize(ctx context.Context, text, title string) (string, error) {
	return a.prose(ctx, "summary",
		"Write a concise summary of the following magazine article in one paragraph.",
		text, title)
}

// Conclude returns a trimmed prose conclusion drawn from the article.
func (a *Adapter) Conclude(ctx context.Context, text, title string) (string, error) {
	return a.prose(ctx, "conclusion",
		"State the central conclusion of the following magazine article in two or three sentences.",
		text, title)
}

// SuggestTags returns up to five deduplicated Title Case topic tags of two
// or three words each.
func (a *Adapter) SuggestTags(ctx context.Context, text, title string) ([]string, error) {
	raw, err := a.complete(ctx,
		"List the main topics of the following magazine article as short phrases of two or three words, one per line. No numbering, no commentary.",
		text, title, listWindow)
	if err != nil {
		return nil, fmt.Errorf("tags: %w", err)
	}
	tags := normalizeTags(raw)
	if len(tags) == 0 {
		return nil, fmt.Errorf("tags: no usable phrases in completion %q", snippetOf(raw))
	}
	return tags, nil
}

// AttributeAuthors returns up to twelve deduplicated author names. The
// service answers "Unknown" when attribution is impossible; the sentinel is
// filtered out, so an empty list is a valid result.
func (a *Adapter) AttributeAuthors(ctx context.Context, text, title string) ([]string, error) {
	raw, err := a.complete(ctx,
		"Name the author or authors of the following magazine article, one per line. Answer Unknown if the text does not name them.",
		text, title, listWindow)
	if err != nil {
		return nil, fmt.Errorf("authors: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("authors: empty completion")
	}
	return normalizeAuthors(raw), nil
}

func (a *Adapter) prose(ctx context.Context, mode, instruction, text, title string) (string, error) {
	raw, err := a.complete(ctx, instruction, text, title, proseWindow)
	if err != nil {
		return "", fmt.Errorf("%s: %w", mode, err)
	}
	out := strings.TrimSpace(raw)
	if out == "" {
		return "", fmt.Errorf("%s: empty completion", mode)
	}
	return out, nil
}

func (a *Adapter) complete(ctx context.Context, instruction, text, title string, window int) (string, error) {
	input := clip(text, window)
	if title != "" {
		input = "Title: " + title + "\n\n" + input
	}
	out, err := a.completer.Complete(ctx, instruction, input)
	if err != nil {
		return "", err
	}
	return out, nil
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func snippetOf(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 80 {
		s = s[:80]
	}
	return s
}

var listSplitter = strings.NewReplacer(",", "\n", ";", "\n", "|", "\n")

// normalizeTags keeps 2-3-word phrases, Title Cased, deduplicated, capped.
func normalizeTags(raw string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, line := range strings.Split(listSplitter.Replace(raw), "\n") {
		phrase := trimListNoise(line)
		words := strings.Fields(phrase)
		if len(words) < 2 || len(words) > 3 {
			continue
		}
		for i, w := range words {
			words[i] = titleCase(w)
		}
		tag := strings.Join(words, " ")
		key := strings.ToLower(tag)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
		if len(out) == maxTags {
			break
		}
	}
	return out
}

// normalizeAuthors trims bullet noise, drops the unknown sentinel and
// deduplicates case-insensitively.
func normalizeAuthors(raw string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, line := range strings.Split(listSplitter.Replace(raw), "\n") {
		name := trimListNoise(line)
		if name == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(name), "unknown") {
			continue
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
		if len(out) == maxAuthors {
			break
		}
	}
	return out
}

// trimListNoise strips leading bullets/numbering and surrounding quotes or
// trailing punctuation from one list line.
func trimListNoise(line string) string {
	s := strings.TrimSpace(line)
	s = strings.TrimLeft(s, "-*•–—0123456789.) \t")
	s = strings.Trim(s, `"'`)
	s = strings.TrimRight(s, ".,;")
	return strings.TrimSpace(s)
}

func titleCase(word string) string {
	runes := []rune(strings.ToLower(word))
	for i, r := range runes {
		if unicode.IsLetter(r) {
			runes[i] = unicode.ToUpper(r)
			break
		}
	}
	return string(runes)
}
