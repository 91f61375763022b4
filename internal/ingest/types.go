// Package ingest defines core types shared across subsystems.
package ingest

import (
	"errors"
	"time"
)

// ErrDuplicateEntity reports that an entity insert lost a uniqueness race.
// The entity resolver recovers from it by re-querying for the winner.
var ErrDuplicateEntity = errors.New("duplicate entity")

// ArticleLocator identifies one article discovered in the archive index.
// Locators are ephemeral and never persisted.
type ArticleLocator struct {
	URL         string
	PeriodGuess string
}

// ExtractionResult is the raw material produced for one article.
// An empty RawText means the article carries no usable content and is
// skipped by the pipeline without being persisted.
type ExtractionResult struct {
	Title       string
	DocumentURL string
	RawText     string
}

// EnrichmentResult holds the four fields derived by the generation service.
type EnrichmentResult struct {
	Summary    string
	Conclusion string
	Tags       []string
	Authors    []string
}

// Attribution records which model produced the derived fields and when.
// Stored as JSONB alongside the record row.
type Attribution struct {
	Model       string    `json:"model"`
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Record is the persisted row for one successfully enriched article.
// The pipeline inserts each record exactly once and never updates it.
type Record struct {
	ID          int64
	Magazine    string
	PeriodLabel string
	Volume      int
	Title       string
	DocumentURL string
	Text        string
	Summary     string
	Conclusion  string
	Authors     string
	Attribution Attribution
}

// EntityKind selects the tag or author table.
type EntityKind string

// Entity kinds resolvable through the entity resolver.
const (
	KindTag    EntityKind = "tag"
	KindAuthor EntityKind = "author"
)

// Entity is a tag or author row, unique by case-insensitive name.
type Entity struct {
	ID   int64
	Name string
}

// Report aggregates per-run outcomes across all articles of a period.
type Report struct {
	Inserted int
	Skipped  int
	Failed   int
}
