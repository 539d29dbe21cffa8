package content

import (
	"context"
	"time"
)

// Repository reads entries from the content store. Implementations never
// mutate the store.
//
// Get returns an error wrapping apperrors.ErrNotFound when no entry exists.
// ListAll skips entries that fail to parse and returns an empty slice when
// the store holds nothing of that kind. LastModified never fails; it falls
// back to the current time when the store cannot be read.
type Repository interface {
	Get(ctx context.Context, kind Kind, slug string) (*Entry, error)
	ListAll(ctx context.Context, kind Kind) ([]*Entry, error)
	LastModified(ctx context.Context, kind Kind, slug string) time.Time
}
