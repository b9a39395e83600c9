package domain

import (
	"context"

	"github.com/google/uuid"
)

type ReviewRepository interface {
	// Write paths
	Create(ctx context.Context, r NewReview) (Review, error)
	// Moderate matches on id and tenant; a miss returns ErrNotFound.
	Moderate(ctx context.Context, tenantID string, id uuid.UUID, m Moderation) (Review, error)

	// Read paths
	List(ctx context.Context, q ListQuery) (ReviewsPage, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
	// Incr atomically increments the counter at key and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)
	// Counter returns the current value at key, 0 when unset.
	Counter(ctx context.Context, key string) (int64, error)
}
