package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"review_store/internal/adapters/observability"
	"review_store/internal/domain"
)

// Instrumented records per-call metrics for the wrapped repository.
type Instrumented struct {
	backend string
	next    domain.ReviewRepository
}

var _ domain.ReviewRepository = (*Instrumented)(nil)

func Instrument(backend string, next domain.ReviewRepository) *Instrumented {
	return &Instrumented{backend: backend, next: next}
}

func (i *Instrumented) Create(ctx context.Context, r domain.NewReview) (domain.Review, error) {
	start := time.Now()
	rv, err := i.next.Create(ctx, r)
	i.observe("create", err, start)
	return rv, err
}

func (i *Instrumented) List(ctx context.Context, q domain.ListQuery) (domain.ReviewsPage, error) {
	start := time.Now()
	pg, err := i.next.List(ctx, q)
	i.observe("list", err, start)
	return pg, err
}

func (i *Instrumented) Moderate(ctx context.Context, tenantID string, id uuid.UUID, m domain.Moderation) (domain.Review, error) {
	start := time.Now()
	rv, err := i.next.Moderate(ctx, tenantID, id, m)
	i.observe("moderate", err, start)
	return rv, err
}

func (i *Instrumented) observe(op string, err error, start time.Time) {
	outcome := "ok"
	switch {
	case err == nil:
	case domain.IsNotFound(err):
		outcome = "not_found"
	default:
		outcome = "error"
	}
	observability.ObserveStorage(i.backend, op, outcome, time.Since(start))
}
