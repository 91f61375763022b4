// Package entity resolves tag and author names to store rows, creating
// missing ones lazily. A per-run cache guarantees that concurrent articles
// discovering the same new name produce exactly one row.
package entity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"archive-ingest/internal/ingest"
	"archive-ingest/internal/metrics"
)

// Sentinel author name produced by the generation service when attribution
// is impossible. Matched case-insensitively and never persisted.
const unknownAuthor = "unknown"

type resolution struct {
	done   chan struct{}
	entity *ingest.Entity
	err    error
}

// Resolver memoizes resolve-or-create calls per normalized name for the
// lifetime of one run. It is owned by the run that constructs it, not a
// package singleton, so tests and parallel runs stay isolated.
type Resolver struct {
	store ingest.EntityStore
	log   *zap.Logger

	mu    sync.Mutex
	cache map[string]*resolution
}

// NewResolver builds a resolver over the given entity store.
func NewResolver(store ingest.EntityStore, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{
		store: store,
		log:   log,
		cache: make(map[string]*resolution),
	}
}

// Resolve returns the entity row for name, creating it when missing.
// Blank names and the unknown-author sentinel resolve to (nil, nil).
// Concurrent callers for the same normalized name share a single store
// round-trip; a failed resolution is evicted so a later call can retry.
func (r *Resolver) Resolve(ctx context.Context, kind ingest.EntityKind, name string) (*ingest.Entity, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, nil
	}
	if kind == ingest.KindAuthor && strings.HasPrefix(strings.ToLower(trimmed), unknownAuthor) {
		return nil, nil
	}

	key := string(kind) + "\x00" + strings.ToLower(trimmed)

	r.mu.Lock()
	if res, ok := r.cache[key]; ok {
		r.mu.Unlock()
		select {
		case <-res.done:
			return res.entity, res.err
		case <-ctx.Done():
			return nil, fmt.Errorf("await resolution of %s %q: %w", kind, trimmed, ctx.Err())
		}
	}
	res := &resolution{done: make(chan struct{})}
	r.cache[key] = res
	r.mu.Unlock()

	res.entity, res.err = r.resolveOrCreate(ctx, kind, trimmed)
	close(res.done)

	if res.err != nil {
		// Evict so the failure does not poison the name for the whole run.
		r.mu.Lock()
		delete(r.cache, key)
		r.mu.Unlock()
	}
	return res.entity, res.err
}

func (r *Resolver) resolveOrCreate(ctx context.Context, kind ingest.EntityKind, name string) (*ingest.Entity, error) {
	found, err := r.store.FindEntity(ctx, kind, name)
	if err != nil {
		return nil, fmt.Errorf("find %s %q: %w", kind, name, err)
	}
	if found != nil {
		return found, nil
	}

	created, err := r.store.CreateEntity(ctx, kind, name)
	if err == nil {
		metrics.ObserveEntityCreated(string(kind))
		r.log.Debug("entity created",
			zap.String("kind", string(kind)),
			zap.String("name", name),
			zap.Int64("id", created.ID),
		)
		return created, nil
	}
	if !errors.Is(err, ingest.ErrDuplicateEntity) {
		return nil, fmt.Errorf("create %s %q: %w", kind, name, err)
	}

	// Another writer outran this one; the winner's row must exist now.
	winner, ferr := r.store.FindEntity(ctx, kind, name)
	if ferr != nil {
		return nil, fmt.Errorf("requery %s %q after duplicate: %w", kind, name, ferr)
	}
	if winner == nil {
		return nil, fmt.Errorf("%s %q reported duplicate but not found: %w", kind, name, err)
	}
	r.log.Debug("lost entity creation race",
		zap.String("kind", string(kind)),
		zap.String("name", name),
		zap.Int64("id", winner.ID),
	)
	return winner, nil
}
