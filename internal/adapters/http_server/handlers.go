package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"review_store/internal/app"
	"review_store/internal/domain"
)

const (
	defaultPageSize = 20
	maxBodyBytes    = 1 << 20
)

type Handlers struct{ Svc *app.ReviewService }

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Route("/v1/tenants/{tenantID}", func(r chi.Router) {
		r.Post("/apps/{appID}/reviews", h.addReview)
		r.Get("/apps/{appID}/reviews", h.getReviews)
		r.Post("/reviews/{reviewID}/moderation", h.moderateComment)
	})
}

// ---- wire shapes ----

type reviewJSON struct {
	ID               string    `json:"id"`
	TenantID         string    `json:"tenant_id"`
	AppID            string    `json:"app_id"`
	UserID           string    `json:"user_id"`
	Score            int32     `json:"score"`
	Comment          string    `json:"comment"`
	CreatedAt        time.Time `json:"created_at"`
	IsModerated      bool      `json:"is_moderated"`
	ModerationStatus int32     `json:"moderation_status"`
	ModeratorID      string    `json:"moderator_id"`
	ModerationNote   string    `json:"moderation_note"`
}

func toJSON(rv domain.Review) reviewJSON {
	return reviewJSON{
		ID:               rv.ID.String(),
		TenantID:         rv.TenantID,
		AppID:            rv.AppID,
		UserID:           rv.UserID,
		Score:            rv.Score,
		Comment:          rv.Comment,
		CreatedAt:        rv.CreatedAt.UTC(),
		IsModerated:      rv.IsModerated,
		ModerationStatus: rv.ModerationStatus,
		ModeratorID:      rv.ModeratorID,
		ModerationNote:   rv.ModerationNote,
	}
}

type addReviewBody struct {
	UserID  string `json:"user_id"`
	Score   int32  `json:"score"`
	Comment string `json:"comment"`
}

type addReviewResponse struct {
	Review  reviewJSON `json:"review"`
	Success bool       `json:"success"`
	Message string     `json:"message"`
}

type getReviewsResponse struct {
	Reviews      []reviewJSON `json:"reviews"`
	TotalCount   int64        `json:"total_count"`
	AverageScore float64      `json:"average_score"`
}

type moderateBody struct {
	ModerationStatus int32  `json:"moderation_status"`
	ModeratorID      string `json:"moderator_id"`
	ModerationNote   string `json:"moderation_note"`
}

type moderateResponse struct {
	Success       bool       `json:"success"`
	Message       string     `json:"message"`
	UpdatedReview reviewJSON `json:"updated_review"`
}

// ---- helpers ----

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps service errors onto problem responses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsInvalidArgument(err):
		writeProblem(w, http.StatusBadRequest, "Invalid Argument", err.Error())
	case domain.IsNotFound(err):
		writeProblem(w, http.StatusNotFound, "Not Found", "review not found")
	default:
		log.Error().Err(err).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	return `W/"` + hex.EncodeToString(sum[:]) + `"`, body
}

func queryUint32(r *http.Request, name string, def uint32) (uint32, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%s must be a non-negative 32-bit integer", name)
	}
	return uint32(n), nil
}

// ---- handlers ----

func (h *Handlers) addReview(w http.ResponseWriter, r *http.Request) {
	var body addReviewBody
	if err := readJSON(w, r, &body); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	res, err := h.Svc.AddReview(r.Context(), app.AddReviewRequest{
		TenantID: chi.URLParam(r, "tenantID"),
		AppID:    chi.URLParam(r, "appID"),
		UserID:   body.UserID,
		Score:    body.Score,
		Comment:  body.Comment,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, addReviewResponse{Review: toJSON(res.Review), Success: res.Success, Message: res.Message})
}

func (h *Handlers) getReviews(w http.ResponseWriter, r *http.Request) {
	modOnly := false
	if s := r.URL.Query().Get("moderated_only"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid moderated_only", "moderated_only must be a boolean")
			return
		}
		modOnly = b
	}
	page, err := queryUint32(r, "page", 0)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid page", err.Error())
		return
	}
	size, err := queryUint32(r, "page_size", defaultPageSize)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid page_size", err.Error())
		return
	}

	res, err := h.Svc.GetReviews(r.Context(), app.GetReviewsRequest{
		TenantID:             chi.URLParam(r, "tenantID"),
		AppID:                chi.URLParam(r, "appID"),
		IncludeModeratedOnly: modOnly,
		Page:                 page,
		PageSize:             size,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	out := getReviewsResponse{
		Reviews:      make([]reviewJSON, 0, len(res.Reviews)),
		TotalCount:   res.TotalCount,
		AverageScore: res.AverageScore,
	}
	for _, rv := range res.Reviews {
		out.Reviews = append(out.Reviews, toJSON(rv))
	}

	etag, body := calcETagAndBody(out)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write getReviews body")
	}
}

func (h *Handlers) moderateComment(w http.ResponseWriter, r *http.Request) {
	var body moderateBody
	if err := readJSON(w, r, &body); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	res, err := h.Svc.ModerateComment(r.Context(), app.ModerateCommentRequest{
		TenantID:         chi.URLParam(r, "tenantID"),
		ReviewID:         chi.URLParam(r, "reviewID"),
		ModerationStatus: body.ModerationStatus,
		ModeratorID:      body.ModeratorID,
		ModerationNote:   body.ModerationNote,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, moderateResponse{Success: res.Success, Message: res.Message, UpdatedReview: toJSON(res.UpdatedReview)})
}
