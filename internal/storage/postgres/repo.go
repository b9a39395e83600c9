package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"review_store/internal/domain"
	"review_store/internal/storage"
)

type Repo struct {
	db  *pgxpool.Pool
	now func() time.Time
}

var _ domain.ReviewRepository = (*Repo)(nil)

func New(db *pgxpool.Pool) *Repo { return &Repo{db: db, now: time.Now} }

func (r *Repo) Create(ctx context.Context, in domain.NewReview) (domain.Review, error) {
	rows, err := r.db.Query(ctx, insertReviewSQL,
		in.Scope.TenantID,
		in.Scope.AppID,
		in.UserID,
		in.Score,
		in.Comment,
	)
	if err != nil {
		return domain.Review{}, domain.NewStorageError("create", err)
	}
	rv, err := r.one(rows)
	if err != nil {
		return domain.Review{}, domain.NewStorageError("create", err)
	}
	return rv, nil
}

func (r *Repo) List(ctx context.Context, q domain.ListQuery) (domain.ReviewsPage, error) {
	// one snapshot for the page and the aggregate
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return domain.ReviewsPage{}, domain.NewStorageError("list", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	out := domain.ReviewsPage{Items: []domain.Review{}}
	if q.PageSize > 0 {
		rows, err := tx.Query(ctx, listReviewsSQL,
			q.Scope.TenantID, q.Scope.AppID, q.ModeratedOnly,
			int64(q.PageSize), q.Offset(),
		)
		if err != nil {
			return domain.ReviewsPage{}, domain.NewStorageError("list", err)
		}
		maps, err := pgx.CollectRows(rows, pgx.RowToMap)
		if err != nil {
			return domain.ReviewsPage{}, domain.NewStorageError("list", err)
		}
		now := r.now()
		for _, m := range maps {
			rv, err := storage.ReviewFromRow(m, now)
			if err != nil {
				return domain.ReviewsPage{}, domain.NewStorageError("list", err)
			}
			out.Items = append(out.Items, rv)
		}
	}

	if err := tx.QueryRow(ctx, reviewStatsSQL, q.Scope.TenantID, q.Scope.AppID, q.ModeratedOnly).
		Scan(&out.TotalCount, &out.AverageScore); err != nil {
		return domain.ReviewsPage{}, domain.NewStorageError("stats", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.ReviewsPage{}, domain.NewStorageError("list", err)
	}
	return out, nil
}

func (r *Repo) Moderate(ctx context.Context, tenantID string, id uuid.UUID, m domain.Moderation) (domain.Review, error) {
	rows, err := r.db.Query(ctx, moderateReviewSQL, m.Status, m.ModeratorID, m.Note, id, tenantID)
	if err != nil {
		return domain.Review{}, domain.NewStorageError("moderate", err)
	}
	rv, err := r.one(rows)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Review{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Review{}, domain.NewStorageError("moderate", err)
	}
	return rv, nil
}

func (r *Repo) one(rows pgx.Rows) (domain.Review, error) {
	m, err := pgx.CollectExactlyOneRow(rows, pgx.RowToMap)
	if err != nil {
		return domain.Review{}, err
	}
	return storage.ReviewFromRow(m, r.now())
}
