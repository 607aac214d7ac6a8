// Package shell stores the app-shell cache: HTML pages and static
// assets keyed by (generation, request path). Generations give
// whole-cache invalidation: activating a new generation evicts every
// row of the old ones.
package shell

import (
	"context"
)

// Entry is one cached response body.
type Entry struct {
	Generation  int
	Path        string
	ContentType string
	Body        []byte
	FetchedAt   int64 // epoch millis
}

type Repository interface {
	// Get returns nil (no error) on a cache miss.
	Get(ctx context.Context, generation int, path string) (*Entry, error)
	Put(ctx context.Context, e *Entry) error

	// EvictOtherGenerations deletes every entry whose generation is
	// not the given one.
	EvictOtherGenerations(ctx context.Context, current int) error
	Count(ctx context.Context, generation int) (int, error)
}
