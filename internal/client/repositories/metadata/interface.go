package metadata

import (
	"context"
)

// Repository is the singleton key/value meta store (last_sync stamps,
// notification counters, client id).
type Repository interface {
	// Get returns "" (no error) for a missing key.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string]string, error)
}
