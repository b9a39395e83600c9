package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"review_store/internal/app"
	"review_store/internal/domain"
)

const serviceName = "reviews.ReviewService"

// ReviewServer is the server-side contract of reviews.ReviewService.
type ReviewServer interface {
	AddReview(context.Context, *AddReviewRequest) (*AddReviewResponse, error)
	GetReviews(context.Context, *GetReviewsRequest) (*GetReviewsResponse, error)
	ModerateComment(context.Context, *ModerateCommentRequest) (*ModerateCommentResponse, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*ReviewServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "AddReview", Handler: unary(func(s ReviewServer, ctx context.Context, in *AddReviewRequest) (any, error) {
			return s.AddReview(ctx, in)
		}, "AddReview")},
		{MethodName: "GetReviews", Handler: unary(func(s ReviewServer, ctx context.Context, in *GetReviewsRequest) (any, error) {
			return s.GetReviews(ctx, in)
		}, "GetReviews")},
		{MethodName: "ModerateComment", Handler: unary(func(s ReviewServer, ctx context.Context, in *ModerateCommentRequest) (any, error) {
			return s.ModerateComment(ctx, in)
		}, "ModerateComment")},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "reviews.proto",
}

// unary adapts a typed call into a grpc.MethodDesc handler, running the interceptor chain when present.
func unary[Req any](call func(ReviewServer, context.Context, *Req) (any, error), method string) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		s := srv.(ReviewServer)
		if interceptor == nil {
			return call(s, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/" + method}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(s, ctx, req.(*Req))
		})
	}
}

// RegisterReviewServer attaches srv to a grpc.Server.
func RegisterReviewServer(s grpc.ServiceRegistrar, srv ReviewServer) {
	s.RegisterService(&serviceDesc, srv)
}

// Service serves reviews.ReviewService from an app.ReviewService.
type Service struct{ svc *app.ReviewService }

var _ ReviewServer = (*Service)(nil)

func NewService(svc *app.ReviewService) *Service { return &Service{svc: svc} }

func (s *Service) AddReview(ctx context.Context, in *AddReviewRequest) (*AddReviewResponse, error) {
	res, err := s.svc.AddReview(ctx, app.AddReviewRequest{
		TenantID: in.TenantID,
		AppID:    in.AppID,
		UserID:   in.UserID,
		Score:    in.Score,
		Comment:  in.Comment,
	})
	if err != nil {
		return nil, toStatus(err, "Failed to add review")
	}
	return &AddReviewResponse{Review: toMessage(res.Review), Success: res.Success, Message: res.Message}, nil
}

func (s *Service) GetReviews(ctx context.Context, in *GetReviewsRequest) (*GetReviewsResponse, error) {
	res, err := s.svc.GetReviews(ctx, app.GetReviewsRequest{
		TenantID:             in.TenantID,
		AppID:                in.AppID,
		IncludeModeratedOnly: in.IncludeModeratedOnly,
		Page:                 in.Page,
		PageSize:             in.PageSize,
	})
	if err != nil {
		return nil, toStatus(err, "Failed to fetch reviews")
	}
	out := &GetReviewsResponse{
		Reviews:      make([]*Review, 0, len(res.Reviews)),
		TotalCount:   res.TotalCount,
		AverageScore: res.AverageScore,
	}
	for _, rv := range res.Reviews {
		out.Reviews = append(out.Reviews, toMessage(rv))
	}
	return out, nil
}

func (s *Service) ModerateComment(ctx context.Context, in *ModerateCommentRequest) (*ModerateCommentResponse, error) {
	res, err := s.svc.ModerateComment(ctx, app.ModerateCommentRequest{
		TenantID:         in.TenantID,
		ReviewID:         in.ReviewID,
		ModerationStatus: in.ModerationStatus,
		ModeratorID:      in.ModeratorID,
		ModerationNote:   in.ModerationNote,
	})
	if err != nil {
		return nil, toStatus(err, "Failed to moderate review")
	}
	return &ModerateCommentResponse{Success: res.Success, Message: res.Message, UpdatedReview: toMessage(res.UpdatedReview)}, nil
}

func toStatus(err error, what string) error {
	switch {
	case domain.IsInvalidArgument(err):
		return status.Error(codes.InvalidArgument, err.Error())
	case domain.IsNotFound(err):
		return status.Error(codes.NotFound, err.Error())
	default:
		return status.Errorf(codes.Internal, "%s: %v", what, err)
	}
}
