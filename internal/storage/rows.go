// Package storage holds what the review backends share: the column list and
// the mapping from a storage row to a domain.Review.
package storage

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"review_store/internal/domain"
)

// Columns lists the review columns in the order every SELECT/RETURNING uses.
var Columns = []string{
	"id",
	"tenant_id",
	"app_id",
	"user_id",
	"score",
	"comment",
	"created_at",
	"is_moderated",
	"moderation_status",
	"moderator_id",
	"moderation_note",
}

// ReviewFromRow builds a Review from a column name -> value map.
//
// id, app_id, user_id and score must be present. Everything else defaults when the
// column is absent or NULL: is_moderated=false, moderation_status=0, text columns
// to "" and created_at to now. Tables that predate the tenant and moderation
// columns therefore still map.
func ReviewFromRow(row map[string]any, now time.Time) (domain.Review, error) {
	var (
		rv  domain.Review
		err error
	)
	if rv.ID, err = uuidCol(row, "id"); err != nil {
		return domain.Review{}, err
	}
	if rv.AppID, err = requiredText(row, "app_id"); err != nil {
		return domain.Review{}, err
	}
	if rv.UserID, err = requiredText(row, "user_id"); err != nil {
		return domain.Review{}, err
	}
	score, ok, err := intCol(row, "score")
	if err != nil {
		return domain.Review{}, err
	}
	if !ok {
		return domain.Review{}, fmt.Errorf("column score: missing")
	}
	rv.Score = score

	if rv.TenantID, _, err = textCol(row, "tenant_id"); err != nil {
		return domain.Review{}, err
	}
	if rv.Comment, _, err = textCol(row, "comment"); err != nil {
		return domain.Review{}, err
	}
	if rv.ModeratorID, _, err = textCol(row, "moderator_id"); err != nil {
		return domain.Review{}, err
	}
	if rv.ModerationNote, _, err = textCol(row, "moderation_note"); err != nil {
		return domain.Review{}, err
	}
	if rv.ModerationStatus, _, err = intCol(row, "moderation_status"); err != nil {
		return domain.Review{}, err
	}
	if rv.IsModerated, err = boolCol(row, "is_moderated"); err != nil {
		return domain.Review{}, err
	}

	rv.CreatedAt = now.UTC()
	switch v := row["created_at"].(type) {
	case nil:
	case time.Time:
		rv.CreatedAt = v.UTC()
	default:
		return domain.Review{}, fmt.Errorf("column created_at: unsupported type %T", v)
	}
	return rv, nil
}

func uuidCol(row map[string]any, col string) (uuid.UUID, error) {
	switch v := row[col].(type) {
	case uuid.UUID:
		return v, nil
	case [16]byte:
		return uuid.UUID(v), nil
	case string:
		return parseUUID(col, v)
	case []byte:
		if len(v) == 16 {
			return uuid.FromBytes(v)
		}
		return parseUUID(col, string(v))
	case nil:
		return uuid.Nil, fmt.Errorf("column %s: missing", col)
	default:
		return uuid.Nil, fmt.Errorf("column %s: unsupported type %T", col, v)
	}
}

func parseUUID(col, s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("column %s: %w", col, err)
	}
	return id, nil
}

func requiredText(row map[string]any, col string) (string, error) {
	s, ok, err := textCol(row, col)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("column %s: missing", col)
	}
	return s, nil
}

func textCol(row map[string]any, col string) (string, bool, error) {
	switch v := row[col].(type) {
	case nil:
		return "", false, nil
	case string:
		return v, true, nil
	case []byte:
		return string(v), true, nil
	default:
		return "", false, fmt.Errorf("column %s: unsupported type %T", col, v)
	}
}

func intCol(row map[string]any, col string) (int32, bool, error) {
	switch v := row[col].(type) {
	case nil:
		return 0, false, nil
	case int32:
		return v, true, nil
	case int64:
		return narrow(col, v)
	case int16:
		return int32(v), true, nil
	case int:
		return narrow(col, int64(v))
	case []byte:
		var n int32
		if _, err := fmt.Sscan(string(v), &n); err != nil {
			return 0, false, fmt.Errorf("column %s: %w", col, err)
		}
		return n, true, nil
	default:
		return 0, false, fmt.Errorf("column %s: unsupported type %T", col, v)
	}
}

func narrow(col string, v int64) (int32, bool, error) {
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, false, fmt.Errorf("column %s: value %d out of int32 range", col, v)
	}
	return int32(v), true, nil
}

// boolCol also accepts integers because MySQL stores BOOLEAN as TINYINT(1).
func boolCol(row map[string]any, col string) (bool, error) {
	switch v := row[col].(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case int64:
		return v != 0, nil
	case []byte:
		return len(v) > 0 && v[0] != '0', nil
	default:
		return false, fmt.Errorf("column %s: unsupported type %T", col, v)
	}
}
