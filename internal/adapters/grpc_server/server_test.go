package grpcserver_test

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	grpcserver "review_store/internal/adapters/grpc_server"
	"review_store/internal/app"
	"review_store/internal/storage/memory"
)

func newClient(t *testing.T) *grpcserver.Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpcserver.NewServer(app.NewReviewService(memory.New(), nil, 0, 0), zerolog.Nop())
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return grpcserver.NewClient(conn)
}

func ctx(t *testing.T) context.Context {
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}

func TestAddAndGetReviews(t *testing.T) {
	c := newClient(t)

	added, err := c.AddReview(ctx(t), &grpcserver.AddReviewRequest{TenantID: "t1", AppID: "a1", UserID: "u1", Score: 5, Comment: "great"})
	if err != nil {
		t.Fatalf("AddReview: %v", err)
	}
	if !added.Success || added.Review == nil || added.Review.IsModerated {
		t.Fatalf("AddReview response: %+v", added)
	}
	if _, err := uuid.Parse(added.Review.ID); err != nil {
		t.Fatalf("id: %v", err)
	}
	if _, err := time.Parse(time.RFC3339Nano, added.Review.CreatedAt); err != nil {
		t.Fatalf("created_at not RFC 3339: %q", added.Review.CreatedAt)
	}

	if _, err := c.AddReview(ctx(t), &grpcserver.AddReviewRequest{TenantID: "t1", AppID: "a1", UserID: "u2", Score: 1}); err != nil {
		t.Fatalf("AddReview: %v", err)
	}

	got, err := c.GetReviews(ctx(t), &grpcserver.GetReviewsRequest{TenantID: "t1", AppID: "a1", Page: 0, PageSize: 10})
	if err != nil {
		t.Fatalf("GetReviews: %v", err)
	}
	if len(got.Reviews) != 2 || got.TotalCount != 2 || got.AverageScore != 3 {
		t.Fatalf("GetReviews response: %+v", got)
	}
	if got.Reviews[1].ID != added.Review.ID {
		t.Fatalf("expected newest first")
	}
}

func TestModerateComment(t *testing.T) {
	c := newClient(t)
	added, err := c.AddReview(ctx(t), &grpcserver.AddReviewRequest{TenantID: "t1", AppID: "a1", UserID: "u1", Score: 4})
	if err != nil {
		t.Fatalf("AddReview: %v", err)
	}

	res, err := c.ModerateComment(ctx(t), &grpcserver.ModerateCommentRequest{
		TenantID: "t1", ReviewID: added.Review.ID, ModerationStatus: 1, ModeratorID: "mod", ModerationNote: "fine",
	})
	if err != nil {
		t.Fatalf("ModerateComment: %v", err)
	}
	up := res.UpdatedReview
	if !res.Success || up == nil || !up.IsModerated || up.ModerationStatus != 1 || up.ModeratorID != "mod" {
		t.Fatalf("ModerateComment response: %+v", res)
	}

	got, err := c.GetReviews(ctx(t), &grpcserver.GetReviewsRequest{TenantID: "t1", AppID: "a1", IncludeModeratedOnly: true, PageSize: 10})
	if err != nil {
		t.Fatalf("GetReviews: %v", err)
	}
	if got.TotalCount != 1 {
		t.Fatalf("moderated-only total: %d", got.TotalCount)
	}
}

func TestErrorCodes(t *testing.T) {
	c := newClient(t)

	_, err := c.AddReview(ctx(t), &grpcserver.AddReviewRequest{TenantID: "", AppID: "a1", UserID: "u", Score: 1})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("blank tenant: want InvalidArgument, got %v", err)
	}

	_, err = c.ModerateComment(ctx(t), &grpcserver.ModerateCommentRequest{TenantID: "t1", ReviewID: "nope", ModerationStatus: 1})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("malformed id: want InvalidArgument, got %v", err)
	}

	_, err = c.ModerateComment(ctx(t), &grpcserver.ModerateCommentRequest{TenantID: "t1", ReviewID: uuid.NewString(), ModerationStatus: 1})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("unknown id: want NotFound, got %v", err)
	}
}

func TestModerateComment_UppercaseID(t *testing.T) {
	c := newClient(t)
	added, err := c.AddReview(ctx(t), &grpcserver.AddReviewRequest{TenantID: "t1", AppID: "a1", UserID: "u1", Score: 2})
	if err != nil {
		t.Fatalf("AddReview: %v", err)
	}

	res, err := c.ModerateComment(ctx(t), &grpcserver.ModerateCommentRequest{
		TenantID: "t1", ReviewID: strings.ToUpper(added.Review.ID), ModerationStatus: 3,
	})
	if err != nil {
		t.Fatalf("ModerateComment: %v", err)
	}
	if res.UpdatedReview == nil || res.UpdatedReview.ID != added.Review.ID || res.UpdatedReview.ModerationStatus != 3 {
		t.Fatalf("ModerateComment response: %+v", res)
	}
}
