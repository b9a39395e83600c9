// Package memory is an in-process review repository for local runs and tests.
// It follows the SQL backends' ordering, filtering and aggregate rules.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"review_store/internal/domain"
)

type Repo struct {
	mu   sync.RWMutex
	rows []domain.Review
	now  func() time.Time
	last time.Time
}

var _ domain.ReviewRepository = (*Repo)(nil)

func New() *Repo { return &Repo{now: time.Now} }

// NewWithClock is New with an injectable clock.
func NewWithClock(now func() time.Time) *Repo { return &Repo{now: now} }

func (r *Repo) Create(ctx context.Context, in domain.NewReview) (domain.Review, error) {
	if err := ctx.Err(); err != nil {
		return domain.Review{}, domain.NewStorageError("create", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	rv := domain.Review{
		ID:               uuid.New(),
		TenantID:         in.Scope.TenantID,
		AppID:            in.Scope.AppID,
		UserID:           in.UserID,
		Score:            in.Score,
		Comment:          in.Comment,
		CreatedAt:        r.stamp(),
		ModerationStatus: domain.StatusUnreviewed,
	}
	r.rows = append(r.rows, rv)
	return rv, nil
}

// stamp hands out strictly increasing timestamps so created_at ordering is total.
func (r *Repo) stamp() time.Time {
	t := r.now().UTC()
	if !t.After(r.last) {
		t = r.last.Add(time.Microsecond)
	}
	r.last = t
	return t
}

func (r *Repo) List(ctx context.Context, q domain.ListQuery) (domain.ReviewsPage, error) {
	if err := ctx.Err(); err != nil {
		return domain.ReviewsPage{}, domain.NewStorageError("list", err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		matched []domain.Review
		sum     int64
	)
	for _, rv := range r.rows {
		if rv.TenantID != q.Scope.TenantID || rv.AppID != q.Scope.AppID {
			continue
		}
		if q.ModeratedOnly && !rv.IsModerated {
			continue
		}
		matched = append(matched, rv)
		sum += int64(rv.Score)
	}

	out := domain.ReviewsPage{TotalCount: int64(len(matched)), Items: []domain.Review{}}
	if len(matched) > 0 {
		out.AverageScore = float64(sum) / float64(len(matched))
	}

	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	off := q.Offset()
	if off >= int64(len(matched)) || q.PageSize == 0 {
		return out, nil
	}
	end := off + int64(q.PageSize)
	if end > int64(len(matched)) {
		end = int64(len(matched))
	}
	out.Items = append(out.Items, matched[off:end]...)
	return out, nil
}

func (r *Repo) Moderate(ctx context.Context, tenantID string, id uuid.UUID, m domain.Moderation) (domain.Review, error) {
	if err := ctx.Err(); err != nil {
		return domain.Review{}, domain.NewStorageError("moderate", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.rows {
		rv := &r.rows[i]
		if rv.ID != id || rv.TenantID != tenantID {
			continue
		}
		rv.IsModerated = true
		rv.ModerationStatus = m.Status
		rv.ModeratorID = m.ModeratorID
		rv.ModerationNote = m.Note
		return *rv, nil
	}
	return domain.Review{}, domain.ErrNotFound
}
