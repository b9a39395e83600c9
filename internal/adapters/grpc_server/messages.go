package grpcserver

import (
	"time"

	"review_store/internal/domain"
)

type Review struct {
	ID               string `json:"id"`
	TenantID         string `json:"tenant_id"`
	AppID            string `json:"app_id"`
	UserID           string `json:"user_id"`
	Score            int32  `json:"score"`
	Comment          string `json:"comment"`
	CreatedAt        string `json:"created_at"` // RFC 3339
	IsModerated      bool   `json:"is_moderated"`
	ModerationStatus int32  `json:"moderation_status"`
	ModeratorID      string `json:"moderator_id"`
	ModerationNote   string `json:"moderation_note"`
}

type AddReviewRequest struct {
	TenantID string `json:"tenant_id"`
	AppID    string `json:"app_id"`
	UserID   string `json:"user_id"`
	Score    int32  `json:"score"`
	Comment  string `json:"comment"`
}

type AddReviewResponse struct {
	Review  *Review `json:"review"`
	Success bool    `json:"success"`
	Message string  `json:"message"`
}

type GetReviewsRequest struct {
	TenantID             string `json:"tenant_id"`
	AppID                string `json:"app_id"`
	IncludeModeratedOnly bool   `json:"include_moderated_only"`
	Page                 uint32 `json:"page"`
	PageSize             uint32 `json:"page_size"`
}

type GetReviewsResponse struct {
	Reviews      []*Review `json:"reviews"`
	TotalCount   int64     `json:"total_count"`
	AverageScore float64   `json:"average_score"`
}

type ModerateCommentRequest struct {
	TenantID         string `json:"tenant_id"`
	ReviewID         string `json:"review_id"`
	ModerationStatus int32  `json:"moderation_status"`
	ModeratorID      string `json:"moderator_id"`
	ModerationNote   string `json:"moderation_note"`
}

type ModerateCommentResponse struct {
	Success       bool    `json:"success"`
	Message       string  `json:"message"`
	UpdatedReview *Review `json:"updated_review"`
}

func toMessage(rv domain.Review) *Review {
	return &Review{
		ID:               rv.ID.String(),
		TenantID:         rv.TenantID,
		AppID:            rv.AppID,
		UserID:           rv.UserID,
		Score:            rv.Score,
		Comment:          rv.Comment,
		CreatedAt:        rv.CreatedAt.UTC().Format(time.RFC3339Nano),
		IsModerated:      rv.IsModerated,
		ModerationStatus: rv.ModerationStatus,
		ModeratorID:      rv.ModeratorID,
		ModerationNote:   rv.ModerationNote,
	}
}
