package grpcserver

import (
	"context"

	"google.golang.org/grpc"
)

// Client is a typed caller for reviews.ReviewService over the json codec.
type Client struct{ cc grpc.ClientConnInterface }

func NewClient(cc grpc.ClientConnInterface) *Client { return &Client{cc: cc} }

func (c *Client) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, "/"+serviceName+"/"+method, in, out, opts...)
}

func (c *Client) AddReview(ctx context.Context, in *AddReviewRequest, opts ...grpc.CallOption) (*AddReviewResponse, error) {
	out := new(AddReviewResponse)
	if err := c.invoke(ctx, "AddReview", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetReviews(ctx context.Context, in *GetReviewsRequest, opts ...grpc.CallOption) (*GetReviewsResponse, error) {
	out := new(GetReviewsResponse)
	if err := c.invoke(ctx, "GetReviews", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ModerateComment(ctx context.Context, in *ModerateCommentRequest, opts ...grpc.CallOption) (*ModerateCommentResponse, error) {
	out := new(ModerateCommentResponse)
	if err := c.invoke(ctx, "ModerateComment", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}
