package grpcserver

import (
	"context"
	"path"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"review_store/internal/adapters/observability"
	"review_store/internal/app"
)

// NewServer returns a grpc.Server with reviews.ReviewService registered and the
// recovery, metrics and access-log interceptors installed.
func NewServer(svc *app.ReviewService, l zerolog.Logger, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(Recoverer(l), Metrics, Logger(l)))
	s := grpc.NewServer(opts...)
	RegisterReviewServer(s, NewService(svc))
	return s
}

func Recoverer(l zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if p := recover(); p != nil {
				l.Error().Interface("panic", p).Str("method", info.FullMethod).Msg("grpc handler panicked")
				err = status.Error(codes.Internal, "internal error")
			}
		}()
		return next(ctx, req)
	}
}

func Metrics(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := next(ctx, req)
	observability.ObserveRPC(path.Base(info.FullMethod), status.Code(err).String(), time.Since(start))
	return resp, err
}

func Logger(l zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		code := status.Code(err)

		ev := l.Info()
		switch code {
		case codes.OK:
		case codes.InvalidArgument, codes.NotFound:
			ev = l.Warn()
		default:
			ev = l.Error().Err(err)
		}
		ev.
			Str("method", info.FullMethod).
			Str("code", code.String()).
			Dur("duration", time.Since(start)).
			Msg("grpc_request")
		return resp, err
	}
}
