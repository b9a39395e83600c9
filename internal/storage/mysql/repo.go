package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"review_store/internal/domain"
	"review_store/internal/storage"
)

type Repo struct {
	db  *sql.DB
	now func() time.Time
}

var _ domain.ReviewRepository = (*Repo)(nil)

func New(db *sql.DB) *Repo { return &Repo{db: db, now: time.Now} }

// Open connects with the mysql driver and verifies the connection.
// parseTime and UTC are forced so created_at always scans as time.Time.
func Open(ctx context.Context, dsn string, maxConns int, maxIdleTime time.Duration) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
		db.SetMaxIdleConns(maxConns)
	}
	if maxIdleTime > 0 {
		db.SetConnMaxIdleTime(maxIdleTime)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db.Ping: %w", err)
	}
	return db, nil
}

func (r *Repo) Create(ctx context.Context, in domain.NewReview) (domain.Review, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Review{}, domain.NewStorageError("create", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id string
	if err := tx.QueryRowContext(ctx, newIDSQL).Scan(&id); err != nil {
		return domain.Review{}, domain.NewStorageError("create", err)
	}
	if _, err := tx.ExecContext(ctx, insertReviewSQL,
		id,
		in.Scope.TenantID,
		in.Scope.AppID,
		in.UserID,
		in.Score,
		in.Comment,
	); err != nil {
		return domain.Review{}, domain.NewStorageError("create", err)
	}
	rv, err := r.get(ctx, tx, id, in.Scope.TenantID)
	if err != nil {
		return domain.Review{}, domain.NewStorageError("create", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Review{}, domain.NewStorageError("create", err)
	}
	return rv, nil
}

func (r *Repo) List(ctx context.Context, q domain.ListQuery) (domain.ReviewsPage, error) {
	// one snapshot for the page and the aggregate
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return domain.ReviewsPage{}, domain.NewStorageError("list", err)
	}
	defer func() { _ = tx.Rollback() }()

	out := domain.ReviewsPage{Items: []domain.Review{}}
	if q.PageSize > 0 {
		rows, err := tx.QueryContext(ctx, listReviewsSQL,
			q.Scope.TenantID, q.Scope.AppID, q.ModeratedOnly,
			int64(q.PageSize), q.Offset(),
		)
		if err != nil {
			return domain.ReviewsPage{}, domain.NewStorageError("list", err)
		}
		items, err := r.collect(rows)
		if err != nil {
			return domain.ReviewsPage{}, domain.NewStorageError("list", err)
		}
		out.Items = items
	}

	if err := tx.QueryRowContext(ctx, reviewStatsSQL, q.Scope.TenantID, q.Scope.AppID, q.ModeratedOnly).
		Scan(&out.TotalCount, &out.AverageScore); err != nil {
		return domain.ReviewsPage{}, domain.NewStorageError("stats", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.ReviewsPage{}, domain.NewStorageError("list", err)
	}
	return out, nil
}

func (r *Repo) Moderate(ctx context.Context, tenantID string, id uuid.UUID, m domain.Moderation) (domain.Review, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Review{}, domain.NewStorageError("moderate", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, moderateReviewSQL,
		m.Status, m.ModeratorID, m.Note, id.String(), tenantID,
	); err != nil {
		return domain.Review{}, domain.NewStorageError("moderate", err)
	}
	// RowsAffected is 0 for an unchanged re-moderation, so existence is decided by the read-back.
	rv, err := r.get(ctx, tx, id.String(), tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Review{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Review{}, domain.NewStorageError("moderate", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Review{}, domain.NewStorageError("moderate", err)
	}
	return rv, nil
}

func (r *Repo) get(ctx context.Context, tx *sql.Tx, id, tenantID string) (domain.Review, error) {
	rows, err := tx.QueryContext(ctx, getReviewSQL, id, tenantID)
	if err != nil {
		return domain.Review{}, err
	}
	items, err := r.collect(rows)
	if err != nil {
		return domain.Review{}, err
	}
	if len(items) == 0 {
		return domain.Review{}, sql.ErrNoRows
	}
	return items[0], nil
}

// collect drains rows into column maps and runs them through the shared mapper.
func (r *Repo) collect(rows *sql.Rows) ([]domain.Review, error) {
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	now := r.now()
	out := []domain.Review{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = vals[i]
		}
		rv, err := storage.ReviewFromRow(row, now)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
