package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	httpserver "review_store/internal/adapters/http_server"
	"review_store/internal/app"
	"review_store/internal/domain"
	"review_store/internal/storage/memory"
)

type reviewOut struct {
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

type listOut struct {
	Reviews      []reviewOut `json:"reviews"`
	TotalCount   int64       `json:"total_count"`
	AverageScore float64     `json:"average_score"`
}

type problemOut struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

func newTestServer(repo domain.ReviewRepository) http.Handler {
	srv := httpserver.New(nil)
	srv.MountHandlers(&httpserver.Handlers{Svc: app.NewReviewService(repo, nil, 0, 0)})
	return srv.Mux()
}

func do(t *testing.T, h http.Handler, method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealthz(t *testing.T) {
	h := newTestServer(memory.New())
	rr := do(t, h, http.MethodGet, "/healthz", "", nil)
	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rr.Code, rr.Body.String())
	}
}

func TestAddReview_Created(t *testing.T) {
	h := newTestServer(memory.New())

	rr := do(t, h, http.MethodPost, "/v1/tenants/t1/apps/a1/reviews", `{"user_id":"u1","score":5,"comment":"great"}`, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: want 201, got %d (%s)", rr.Code, rr.Body.String())
	}
	out := decode[struct {
		Review  reviewOut `json:"review"`
		Success bool      `json:"success"`
		Message string    `json:"message"`
	}](t, rr)
	if !out.Success || out.Message != "Review added successfully" {
		t.Fatalf("envelope: %+v", out)
	}
	if _, err := uuid.Parse(out.Review.ID); err != nil {
		t.Fatalf("id not a uuid: %q", out.Review.ID)
	}
	if out.Review.TenantID != "t1" || out.Review.AppID != "a1" || out.Review.IsModerated || out.Review.ModerationStatus != 0 {
		t.Fatalf("review: %+v", out.Review)
	}
}

func TestAddReview_BadInput(t *testing.T) {
	h := newTestServer(memory.New())
	cases := []struct {
		name, body string
	}{
		{"score out of range", `{"user_id":"u1","score":9}`},
		{"missing user", `{"score":3}`},
		{"unknown field", `{"user_id":"u1","score":3,"rating":4}`},
		{"malformed json", `{"user_id":`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, "/v1/tenants/t1/apps/a1/reviews", tc.body, nil)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("want 400, got %d (%s)", rr.Code, rr.Body.String())
			}
			if ct := rr.Header().Get("Content-Type"); ct != "application/problem+json" {
				t.Fatalf("content type: %q", ct)
			}
		})
	}
}

func TestGetReviews_PaginationAndAggregates(t *testing.T) {
	h := newTestServer(memory.New())
	for _, s := range []string{"1", "3", "5"} {
		rr := do(t, h, http.MethodPost, "/v1/tenants/t1/apps/a1/reviews", `{"user_id":"u","score":`+s+`}`, nil)
		if rr.Code != http.StatusCreated {
			t.Fatalf("seed: %d", rr.Code)
		}
	}

	rr := do(t, h, http.MethodGet, "/v1/tenants/t1/apps/a1/reviews?page=0&page_size=2", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	out := decode[listOut](t, rr)
	if len(out.Reviews) != 2 || out.TotalCount != 3 || out.AverageScore != 3 {
		t.Fatalf("page 0: %+v", out)
	}
	if out.Reviews[0].Score != 5 || out.Reviews[1].Score != 3 {
		t.Fatalf("expected newest first, got %+v", out.Reviews)
	}

	// omitted page_size falls back to 20
	out = decode[listOut](t, do(t, h, http.MethodGet, "/v1/tenants/t1/apps/a1/reviews", "", nil))
	if len(out.Reviews) != 3 {
		t.Fatalf("default page size: got %d items", len(out.Reviews))
	}

	// other tenant sees nothing
	out = decode[listOut](t, do(t, h, http.MethodGet, "/v1/tenants/t2/apps/a1/reviews", "", nil))
	if out.Reviews == nil || len(out.Reviews) != 0 || out.TotalCount != 0 || out.AverageScore != 0 {
		t.Fatalf("tenant isolation: %+v", out)
	}
}

func TestGetReviews_BadQuery(t *testing.T) {
	h := newTestServer(memory.New())
	for _, q := range []string{"page=-1", "page_size=abc", "moderated_only=maybe", "page=4294967296"} {
		rr := do(t, h, http.MethodGet, "/v1/tenants/t1/apps/a1/reviews?"+q, "", nil)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: want 400, got %d", q, rr.Code)
		}
	}
}

func TestGetReviews_ETagNotModified(t *testing.T) {
	h := newTestServer(memory.New())
	do(t, h, http.MethodPost, "/v1/tenants/t1/apps/a1/reviews", `{"user_id":"u","score":4}`, nil)

	first := do(t, h, http.MethodGet, "/v1/tenants/t1/apps/a1/reviews", "", nil)
	etag := first.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("missing ETag")
	}
	second := do(t, h, http.MethodGet, "/v1/tenants/t1/apps/a1/reviews", "", map[string]string{"If-None-Match": etag})
	if second.Code != http.StatusNotModified {
		t.Fatalf("want 304, got %d", second.Code)
	}
}

func TestModerateComment_Flow(t *testing.T) {
	h := newTestServer(memory.New())
	created := decode[struct {
		Review reviewOut `json:"review"`
	}](t, do(t, h, http.MethodPost, "/v1/tenants/t1/apps/a1/reviews", `{"user_id":"u","score":2,"comment":"meh"}`, nil))

	path := "/v1/tenants/t1/reviews/" + created.Review.ID + "/moderation"
	rr := do(t, h, http.MethodPost, path, `{"moderation_status":2,"moderator_id":"mod1","moderation_note":"spam"}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d (%s)", rr.Code, rr.Body.String())
	}
	out := decode[struct {
		Success       bool      `json:"success"`
		Message       string    `json:"message"`
		UpdatedReview reviewOut `json:"updated_review"`
	}](t, rr)
	up := out.UpdatedReview
	if !out.Success || !up.IsModerated || up.ModerationStatus != 2 || up.ModeratorID != "mod1" || up.ModerationNote != "spam" {
		t.Fatalf("moderation result: %+v", out)
	}

	list := decode[listOut](t, do(t, h, http.MethodGet, "/v1/tenants/t1/apps/a1/reviews?moderated_only=true", "", nil))
	if list.TotalCount != 1 || list.Reviews[0].ID != created.Review.ID {
		t.Fatalf("moderated-only listing: %+v", list)
	}
}

func TestModerateComment_Errors(t *testing.T) {
	h := newTestServer(memory.New())

	rr := do(t, h, http.MethodPost, "/v1/tenants/t1/reviews/not-a-uuid/moderation", `{"moderation_status":1}`, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("malformed id: want 400, got %d", rr.Code)
	}

	rr = do(t, h, http.MethodPost, "/v1/tenants/t1/reviews/"+uuid.NewString()+"/moderation", `{"moderation_status":1}`, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown id: want 404, got %d", rr.Code)
	}
	if p := decode[problemOut](t, rr); p.Status != http.StatusNotFound {
		t.Fatalf("problem body: %+v", p)
	}
}

type brokenRepo struct{ domain.ReviewRepository }

func (brokenRepo) List(ctx context.Context, q domain.ListQuery) (domain.ReviewsPage, error) {
	return domain.ReviewsPage{}, domain.NewStorageError("list", errors.New("connection reset"))
}

func TestGetReviews_StorageFailureIs500(t *testing.T) {
	h := newTestServer(brokenRepo{memory.New()})
	rr := do(t, h, http.MethodGet, "/v1/tenants/t1/apps/a1/reviews", "", nil)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("want 500, got %d", rr.Code)
	}
	if p := decode[problemOut](t, rr); p.Status != http.StatusInternalServerError || !strings.Contains(p.Detail, "connection reset") {
		t.Fatalf("500 should carry the cause: %+v", p)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := httpserver.New([]string{"https://console.example.com"})
	srv.MountHandlers(&httpserver.Handlers{Svc: app.NewReviewService(memory.New(), nil, 0, 0)})

	rr := do(t, srv.Mux(), http.MethodOptions, "/v1/tenants/t1/apps/a1/reviews", "", map[string]string{
		"Origin":                        "https://console.example.com",
		"Access-Control-Request-Method": "POST",
	})
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://console.example.com" {
		t.Fatalf("allow-origin: %q", got)
	}
}
