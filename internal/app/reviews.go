package app

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"review_store/internal/domain"
)

const (
	msgReviewAdded      = "Review added successfully"
	msgCommentModerated = "Comment moderated successfully"
)

// ReviewService is the boundary the transports call into. It validates requests,
// delegates to the repository and shapes the results. It keeps no state of its own;
// the optional cache only ever holds copies of repository answers.
type ReviewService struct {
	repo     domain.ReviewRepository
	cache    domain.Cache
	cacheTTL time.Duration
	scoreMax int32
	validate *validator.Validate

	// bypass holds generation keys whose bump failed, mapped to the time cached
	// pages under the old generation expire (zero means never).
	bypass sync.Map
}

// NewReviewService wires a service; c may be nil to disable caching and
// scoreMax <= 0 selects domain.DefaultScoreMax.
func NewReviewService(r domain.ReviewRepository, c domain.Cache, ttl time.Duration, scoreMax int32) *ReviewService {
	if scoreMax <= 0 {
		scoreMax = domain.DefaultScoreMax
	}
	return &ReviewService{repo: r, cache: c, cacheTTL: ttl, scoreMax: scoreMax, validate: newValidator()}
}

func (s *ReviewService) ScoreMax() int32 { return s.scoreMax }

func (s *ReviewService) AddReview(ctx context.Context, req AddReviewRequest) (AddReviewResult, error) {
	if err := s.validate.StructCtx(ctx, req); err != nil {
		return AddReviewResult{}, invalid(err)
	}
	if err := s.validate.Var(req.Score, fmt.Sprintf("gte=0,lte=%d", s.scoreMax)); err != nil {
		return AddReviewResult{}, domain.InvalidArgument("score must be between 0 and %d", s.scoreMax)
	}

	scope := domain.Scope{TenantID: req.TenantID, AppID: req.AppID}
	rv, err := s.repo.Create(ctx, domain.NewReview{
		Scope:   scope,
		UserID:  req.UserID,
		Score:   req.Score,
		Comment: req.Comment,
	})
	if err != nil {
		log.Error().Err(err).Str("tenant_id", scope.TenantID).Str("app_id", scope.AppID).Msg("add review failed")
		return AddReviewResult{}, fmt.Errorf("add review: %w", err)
	}
	s.invalidate(ctx, scope)

	return AddReviewResult{Review: rv, Success: true, Message: msgReviewAdded}, nil
}

func (s *ReviewService) GetReviews(ctx context.Context, req GetReviewsRequest) (GetReviewsResult, error) {
	if err := s.validate.StructCtx(ctx, req); err != nil {
		return GetReviewsResult{}, invalid(err)
	}
	q := domain.ListQuery{
		Scope:         domain.Scope{TenantID: req.TenantID, AppID: req.AppID},
		ModeratedOnly: req.IncludeModeratedOnly,
		Page:          req.Page,
		PageSize:      req.PageSize,
	}

	key, cacheable := s.pageKey(ctx, q)
	if cacheable {
		var cached domain.ReviewsPage
		if ok, err := s.cache.Get(ctx, key, &cached); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("cache read failed")
		} else if ok {
			return toResult(cached), nil
		}
	}

	pg, err := s.repo.List(ctx, q)
	if err != nil {
		log.Error().Err(err).Str("tenant_id", q.Scope.TenantID).Str("app_id", q.Scope.AppID).Msg("get reviews failed")
		return GetReviewsResult{}, fmt.Errorf("get reviews: %w", err)
	}

	if cacheable {
		if err := s.cache.Set(ctx, key, pg, int(s.cacheTTL.Seconds())); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
	}
	return toResult(pg), nil
}

func (s *ReviewService) ModerateComment(ctx context.Context, req ModerateCommentRequest) (ModerateResult, error) {
	if err := s.validate.StructCtx(ctx, req); err != nil {
		return ModerateResult{}, invalid(err)
	}
	id, err := uuid.Parse(req.ReviewID)
	if err != nil {
		return ModerateResult{}, domain.InvalidArgument("review_id must be a UUID: %v", err)
	}

	rv, err := s.repo.Moderate(ctx, req.TenantID, id, domain.Moderation{
		Status:      req.ModerationStatus,
		ModeratorID: req.ModeratorID,
		Note:        req.ModerationNote,
	})
	if err != nil {
		if domain.IsNotFound(err) {
			log.Debug().Str("tenant_id", req.TenantID).Str("review_id", req.ReviewID).Msg("moderation target not found")
		} else {
			log.Error().Err(err).Str("tenant_id", req.TenantID).Str("review_id", req.ReviewID).Msg("moderate comment failed")
		}
		return ModerateResult{}, fmt.Errorf("moderate comment: %w", err)
	}
	s.invalidate(ctx, domain.Scope{TenantID: rv.TenantID, AppID: rv.AppID})

	return ModerateResult{Success: true, Message: msgCommentModerated, UpdatedReview: rv}, nil
}

func toResult(pg domain.ReviewsPage) GetReviewsResult {
	items := pg.Items
	if items == nil {
		items = []domain.Review{}
	}
	return GetReviewsResult{Reviews: items, TotalCount: pg.TotalCount, AverageScore: pg.AverageScore}
}

// Cached pages are keyed by a per-scope generation; writes bump it so reads after a
// write never see a pre-write page.
func genKey(sc domain.Scope) string {
	return fmt.Sprintf("reviews:gen:%s:%s", url.PathEscape(sc.TenantID), url.PathEscape(sc.AppID))
}

func (s *ReviewService) pageKey(ctx context.Context, q domain.ListQuery) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	gk := genKey(q.Scope)
	if s.bypassed(gk) {
		return "", false
	}
	gen, err := s.cache.Counter(ctx, gk)
	if err != nil {
		log.Warn().Err(err).Msg("cache generation read failed")
		return "", false
	}
	return fmt.Sprintf("reviews:%s:%s:%d:%t:%d:%d",
		url.PathEscape(q.Scope.TenantID), url.PathEscape(q.Scope.AppID),
		gen, q.ModeratedOnly, q.Page, q.PageSize), true
}

func (s *ReviewService) invalidate(ctx context.Context, sc domain.Scope) {
	if s.cache == nil {
		return
	}
	gk := genKey(sc)
	if _, err := s.cache.Incr(ctx, gk); err != nil {
		log.Error().Err(err).Str("tenant_id", sc.TenantID).Str("app_id", sc.AppID).Msg("cache invalidation failed, bypassing cache for scope")
		var until time.Time
		if s.cacheTTL > 0 {
			until = time.Now().Add(s.cacheTTL)
		}
		s.bypass.Store(gk, until)
	}
}

// bypassed reports whether pages for the generation key may still be pre-write copies.
func (s *ReviewService) bypassed(gk string) bool {
	v, ok := s.bypass.Load(gk)
	if !ok {
		return false
	}
	until := v.(time.Time)
	if until.IsZero() || time.Now().Before(until) {
		return true
	}
	s.bypass.CompareAndDelete(gk, v)
	return false
}
