// Package storagetest is a behavioural suite every domain.ReviewRepository
// implementation runs from its own tests.
package storagetest

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"review_store/internal/domain"
)

// Run exercises repo. Each subtest works in its own tenant, so a shared database is fine.
func Run(t *testing.T, repo domain.ReviewRepository) {
	t.Helper()
	t.Run("CreateDefaults", func(t *testing.T) { testCreateDefaults(t, repo) })
	t.Run("ListPageAndAggregate", func(t *testing.T) { testListPageAndAggregate(t, repo) })
	t.Run("PaginationCoversAll", func(t *testing.T) { testPaginationCoversAll(t, repo) })
	t.Run("ModeratedOnlyFilter", func(t *testing.T) { testModeratedOnlyFilter(t, repo) })
	t.Run("TenantIsolation", func(t *testing.T) { testTenantIsolation(t, repo) })
	t.Run("ModerationOverwrites", func(t *testing.T) { testModerationOverwrites(t, repo) })
	t.Run("ModerateUnknownID", func(t *testing.T) { testModerateUnknownID(t, repo) })
	t.Run("EmptyAndOutOfRangePages", func(t *testing.T) { testEmptyAndOutOfRangePages(t, repo) })
}

func freshScope() domain.Scope {
	return domain.Scope{TenantID: "t-" + uuid.NewString(), AppID: "a1"}
}

func mustCreate(t *testing.T, repo domain.ReviewRepository, sc domain.Scope, user string, score int32, comment string) domain.Review {
	t.Helper()
	rv, err := repo.Create(context.Background(), domain.NewReview{Scope: sc, UserID: user, Score: score, Comment: comment})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return rv
}

func mustList(t *testing.T, repo domain.ReviewRepository, q domain.ListQuery) domain.ReviewsPage {
	t.Helper()
	pg, err := repo.List(context.Background(), q)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	return pg
}

func testCreateDefaults(t *testing.T, repo domain.ReviewRepository) {
	sc := freshScope()
	rv := mustCreate(t, repo, sc, "u1", 5, "great")

	if rv.ID == uuid.Nil {
		t.Fatalf("expected generated id")
	}
	if rv.TenantID != sc.TenantID || rv.AppID != "a1" || rv.UserID != "u1" || rv.Score != 5 || rv.Comment != "great" {
		t.Fatalf("unexpected review: %+v", rv)
	}
	if rv.IsModerated || rv.ModerationStatus != domain.StatusUnreviewed || rv.ModeratorID != "" || rv.ModerationNote != "" {
		t.Fatalf("new review should be unmoderated: %+v", rv)
	}
	if d := time.Since(rv.CreatedAt); d < -time.Minute || d > time.Minute {
		t.Fatalf("created_at not close to now: %v", rv.CreatedAt)
	}
}

func testListPageAndAggregate(t *testing.T, repo domain.ReviewRepository) {
	sc := freshScope()
	mustCreate(t, repo, sc, "u1", 1, "")
	second := mustCreate(t, repo, sc, "u2", 3, "")
	third := mustCreate(t, repo, sc, "u3", 5, "")

	pg := mustList(t, repo, domain.ListQuery{Scope: sc, Page: 0, PageSize: 2})
	if len(pg.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(pg.Items))
	}
	if pg.Items[0].ID != third.ID || pg.Items[1].ID != second.ID {
		t.Fatalf("expected the two most recent reviews first, got %v, %v", pg.Items[0].ID, pg.Items[1].ID)
	}
	if pg.TotalCount != 3 {
		t.Fatalf("total_count: want 3, got %d", pg.TotalCount)
	}
	if math.Abs(pg.AverageScore-3.0) > 1e-9 {
		t.Fatalf("average_score: want 3.0, got %v", pg.AverageScore)
	}
}

func testPaginationCoversAll(t *testing.T, repo domain.ReviewRepository) {
	sc := freshScope()
	const n = 7
	for i := 0; i < n; i++ {
		mustCreate(t, repo, sc, "u", int32(i%6), "")
	}

	seen := map[uuid.UUID]bool{}
	var all []domain.Review
	for page := uint32(0); ; page++ {
		pg := mustList(t, repo, domain.ListQuery{Scope: sc, Page: page, PageSize: 3})
		if pg.TotalCount != n {
			t.Fatalf("page %d total_count: want %d, got %d", page, n, pg.TotalCount)
		}
		if len(pg.Items) == 0 {
			break
		}
		all = append(all, pg.Items...)
	}
	if len(all) != n {
		t.Fatalf("pages yielded %d reviews, want %d", len(all), n)
	}
	for i, rv := range all {
		if seen[rv.ID] {
			t.Fatalf("review %v returned twice", rv.ID)
		}
		seen[rv.ID] = true
		if i > 0 && rv.CreatedAt.After(all[i-1].CreatedAt) {
			t.Fatalf("pages not ordered by created_at desc at index %d", i)
		}
	}
}

func testModeratedOnlyFilter(t *testing.T, repo domain.ReviewRepository) {
	ctx := context.Background()
	sc := freshScope()
	a := mustCreate(t, repo, sc, "u1", 2, "")
	mustCreate(t, repo, sc, "u2", 5, "")
	c := mustCreate(t, repo, sc, "u3", 4, "")

	for _, id := range []uuid.UUID{a.ID, c.ID} {
		if _, err := repo.Moderate(ctx, sc.TenantID, id, domain.Moderation{Status: domain.StatusApproved, ModeratorID: "mod"}); err != nil {
			t.Fatalf("Moderate: %v", err)
		}
	}

	pg := mustList(t, repo, domain.ListQuery{Scope: sc, ModeratedOnly: true, PageSize: 10})
	if len(pg.Items) != 2 || pg.TotalCount != 2 {
		t.Fatalf("moderated-only: want 2 items/total 2, got %d/%d", len(pg.Items), pg.TotalCount)
	}
	for _, rv := range pg.Items {
		if !rv.IsModerated {
			t.Fatalf("unmoderated review %v leaked into moderated-only listing", rv.ID)
		}
	}
	if math.Abs(pg.AverageScore-3.0) > 1e-9 {
		t.Fatalf("moderated-only average: want 3.0, got %v", pg.AverageScore)
	}

	all := mustList(t, repo, domain.ListQuery{Scope: sc, PageSize: 10})
	if all.TotalCount != 3 || len(all.Items) != 3 {
		t.Fatalf("unfiltered: want 3, got %d/%d", len(all.Items), all.TotalCount)
	}
}

func testTenantIsolation(t *testing.T, repo domain.ReviewRepository) {
	ctx := context.Background()
	t1 := freshScope()
	t2 := domain.Scope{TenantID: "other-" + uuid.NewString(), AppID: t1.AppID}
	rv := mustCreate(t, repo, t1, "u1", 4, "mine")

	pg := mustList(t, repo, domain.ListQuery{Scope: t2, PageSize: 10})
	if len(pg.Items) != 0 || pg.TotalCount != 0 || pg.AverageScore != 0 {
		t.Fatalf("tenant %s sees foreign reviews: %+v", t2.TenantID, pg)
	}

	_, err := repo.Moderate(ctx, t2.TenantID, rv.ID, domain.Moderation{Status: domain.StatusRejected, ModeratorID: "intruder"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("cross-tenant moderation: want ErrNotFound, got %v", err)
	}

	own := mustList(t, repo, domain.ListQuery{Scope: t1, PageSize: 10})
	if len(own.Items) != 1 || own.Items[0].IsModerated {
		t.Fatalf("cross-tenant moderation must leave the review untouched: %+v", own.Items)
	}
}

func testModerationOverwrites(t *testing.T, repo domain.ReviewRepository) {
	ctx := context.Background()
	sc := freshScope()
	rv := mustCreate(t, repo, sc, "u1", 3, "")

	first, err := repo.Moderate(ctx, sc.TenantID, rv.ID, domain.Moderation{Status: domain.StatusRejected, ModeratorID: "mod1", Note: "ok"})
	if err != nil {
		t.Fatalf("Moderate: %v", err)
	}
	if !first.IsModerated || first.ModerationStatus != domain.StatusRejected || first.ModeratorID != "mod1" || first.ModerationNote != "ok" {
		t.Fatalf("unexpected first moderation: %+v", first)
	}

	second, err := repo.Moderate(ctx, sc.TenantID, rv.ID, domain.Moderation{Status: domain.StatusFlagged, ModeratorID: "mod2"})
	if err != nil {
		t.Fatalf("Moderate again: %v", err)
	}
	if second.ModerationStatus != domain.StatusFlagged || second.ModeratorID != "mod2" || second.ModerationNote != "" {
		t.Fatalf("second moderation must overwrite every field: %+v", second)
	}

	// same values twice still resolves the row
	if _, err := repo.Moderate(ctx, sc.TenantID, rv.ID, domain.Moderation{Status: domain.StatusFlagged, ModeratorID: "mod2"}); err != nil {
		t.Fatalf("identical re-moderation: %v", err)
	}

	pg := mustList(t, repo, domain.ListQuery{Scope: sc, PageSize: 1})
	got := pg.Items[0]
	if got.ModerationStatus != domain.StatusFlagged || got.ModeratorID != "mod2" || got.ModerationNote != "" {
		t.Fatalf("listing shows stale moderation: %+v", got)
	}
	if got.Score != 3 || got.UserID != "u1" || !got.CreatedAt.Equal(rv.CreatedAt) {
		t.Fatalf("moderation changed immutable fields: %+v", got)
	}
}

func testModerateUnknownID(t *testing.T, repo domain.ReviewRepository) {
	sc := freshScope()
	_, err := repo.Moderate(context.Background(), sc.TenantID, uuid.New(), domain.Moderation{Status: 1})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func testEmptyAndOutOfRangePages(t *testing.T, repo domain.ReviewRepository) {
	sc := freshScope()

	empty := mustList(t, repo, domain.ListQuery{Scope: sc, PageSize: 10})
	if len(empty.Items) != 0 || empty.TotalCount != 0 || empty.AverageScore != 0 {
		t.Fatalf("empty scope: %+v", empty)
	}

	mustCreate(t, repo, sc, "u1", 2, "")
	mustCreate(t, repo, sc, "u2", 4, "")

	zero := mustList(t, repo, domain.ListQuery{Scope: sc, PageSize: 0})
	if len(zero.Items) != 0 || zero.TotalCount != 2 || zero.AverageScore != 3 {
		t.Fatalf("page_size=0: want no rows with full aggregates, got %+v", zero)
	}

	far := mustList(t, repo, domain.ListQuery{Scope: sc, Page: math.MaxUint32, PageSize: math.MaxUint32})
	if len(far.Items) != 0 || far.TotalCount != 2 {
		t.Fatalf("huge offset: want empty page, got %+v", far)
	}
}
