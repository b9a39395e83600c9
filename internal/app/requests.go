package app

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"review_store/internal/domain"
)

type AddReviewRequest struct {
	TenantID string `json:"tenant_id" validate:"notblank"`
	AppID    string `json:"app_id" validate:"notblank"`
	UserID   string `json:"user_id" validate:"notblank"`
	Score    int32  `json:"score"`
	Comment  string `json:"comment"`
}

type GetReviewsRequest struct {
	TenantID             string `json:"tenant_id" validate:"notblank"`
	AppID                string `json:"app_id" validate:"notblank"`
	IncludeModeratedOnly bool   `json:"include_moderated_only"`
	Page                 uint32 `json:"page"`
	PageSize             uint32 `json:"page_size"`
}

type ModerateCommentRequest struct {
	TenantID         string `json:"tenant_id" validate:"notblank"`
	ReviewID         string `json:"review_id" validate:"notblank"`
	ModerationStatus int32  `json:"moderation_status"`
	ModeratorID      string `json:"moderator_id"`
	ModerationNote   string `json:"moderation_note"`
}

type AddReviewResult struct {
	Review  domain.Review
	Success bool
	Message string
}

type GetReviewsResult struct {
	Reviews      []domain.Review
	TotalCount   int64
	AverageScore float64
}

type ModerateResult struct {
	Success       bool
	Message       string
	UpdatedReview domain.Review
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report json names (tenant_id) instead of Go field names (TenantID)
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	// notblank rejects empty and whitespace-only strings
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// invalid converts validator output into a domain.ErrInvalidArgument error.
func invalid(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.InvalidArgument("%v", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "notblank", "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		}
	}
	return domain.InvalidArgument("%s", strings.Join(msgs, "; "))
}
