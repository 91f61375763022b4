package ingest

import (
	"context"
)

// Extractor turns an article locator into title, document link and raw text.
type Extractor interface {
	Extract(ctx context.Context, url string) (ExtractionResult, error)
}

// Discoverer collects all article locators for a period key.
type Discoverer interface {
	ListPeriod(ctx context.Context, periodKey string) ([]ArticleLocator, error)
}

// Enricher wraps the external generation service behind four typed operations.
type Enricher interface {
	Summarize(ctx context.Context, text, title string) (string, error)
	Conclude(ctx context.Context, text, title string) (string, error)
	SuggestTags(ctx context.Context, text, title string) ([]string, error)
	AttributeAuthors(ctx context.Context, text, title string) ([]string, error)
}

// EntityStore resolves and creates tag/author rows.
// FindEntity returns (nil, nil) when no row matches. CreateEntity reports a
// lost uniqueness race as an error wrapping ErrDuplicateEntity.
type EntityStore interface {
	FindEntity(ctx context.Context, kind EntityKind, name string) (*Entity, error)
	CreateEntity(ctx context.Context, kind EntityKind, name string) (*Entity, error)
}

// RecordStore persists record rows and their relation edges.
// Edge inserts are idempotent: attaching an existing edge is a no-op.
type RecordStore interface {
	InsertRecord(ctx context.Context, record Record) (int64, error)
	AttachTag(ctx context.Context, recordID, tagID int64) error
	AttachAuthor(ctx context.Context, recordID, authorID int64) error
}

// Store is the full persistence contract consumed by the pipeline.
type Store interface {
	RecordStore
	EntityStore
}
