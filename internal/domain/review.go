package domain

import (
	"time"

	"github.com/google/uuid"
)

// Moderation status codes. Codes other than these are caller-defined and stored verbatim.
const (
	StatusUnreviewed int32 = 0
	StatusApproved   int32 = 1
	StatusRejected   int32 = 2
	StatusFlagged    int32 = 3
)

// DefaultScoreMax is the upper score bound used when none is configured.
const DefaultScoreMax int32 = 5

type Review struct {
	ID               uuid.UUID
	TenantID         string
	AppID            string
	UserID           string
	Score            int32
	Comment          string
	CreatedAt        time.Time
	IsModerated      bool
	ModerationStatus int32
	ModeratorID      string
	ModerationNote   string
}

// Scope identifies the tenant/application pair every read and write is filtered by.
type Scope struct {
	TenantID string
	AppID    string
}

type NewReview struct {
	Scope   Scope
	UserID  string
	Score   int32
	Comment string
}

// Moderation carries the disposition recorded by a moderator.
type Moderation struct {
	Status      int32
	ModeratorID string
	Note        string
}

type ListQuery struct {
	Scope         Scope
	ModeratedOnly bool
	Page          uint32 // zero-indexed
	PageSize      uint32
}

// Offset returns Page*PageSize, saturated to the largest value storage accepts.
func (q ListQuery) Offset() int64 {
	off := uint64(q.Page) * uint64(q.PageSize)
	if off > uint64(maxOffset) {
		return maxOffset
	}
	return int64(off)
}

const maxOffset = int64(^uint64(0) >> 1)

// ReviewsPage is one window of a filtered listing plus aggregates over the whole filter.
type ReviewsPage struct {
	Items        []Review
	TotalCount   int64
	AverageScore float64
}
