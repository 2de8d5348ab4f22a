package framesource

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name of the frame source protocol.
const ServiceName = "holo.framesource.v1.FrameSourceService"

const (
	latestDepthImageMethod = "/" + ServiceName + "/LatestDepthImage"
	latestJPEGImageMethod  = "/" + ServiceName + "/LatestJPEGImage"
)

// FrameSourceServiceClient is the client API for the frame source service.
type FrameSourceServiceClient interface {
	// LatestDepthImage returns the current depth frame as little-endian uint16s.
	LatestDepthImage(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	// LatestJPEGImage returns the current color frame as a JPEG.
	LatestJPEGImage(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
}

type frameSourceServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewFrameSourceServiceClient returns a client stub over cc.
func NewFrameSourceServiceClient(cc grpc.ClientConnInterface) FrameSourceServiceClient {
	return &frameSourceServiceClient{cc}
}

func (c *frameSourceServiceClient) LatestDepthImage(
	ctx context.Context,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, latestDepthImageMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *frameSourceServiceClient) LatestJPEGImage(
	ctx context.Context,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, latestJPEGImageMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// FrameSourceServiceServer is the server API for the frame source service.
type FrameSourceServiceServer interface {
	LatestDepthImage(context.Context, *emptypb.Empty) (*wrapperspb.BytesValue, error)
	LatestJPEGImage(context.Context, *emptypb.Empty) (*wrapperspb.BytesValue, error)
}

// RegisterFrameSourceServiceServer registers srv on s.
func RegisterFrameSourceServiceServer(s grpc.ServiceRegistrar, srv FrameSourceServiceServer) {
	s.RegisterService(&FrameSourceServiceDesc, srv)
}

//nolint:revive
func latestDepthImageHandler(
	srv interface{},
	ctx context.Context,
	dec func(interface{}) error,
	interceptor grpc.UnaryServerInterceptor,
) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FrameSourceServiceServer).LatestDepthImage(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: latestDepthImageMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(FrameSourceServiceServer).LatestDepthImage(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

//nolint:revive
func latestJPEGImageHandler(
	srv interface{},
	ctx context.Context,
	dec func(interface{}) error,
	interceptor grpc.UnaryServerInterceptor,
) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FrameSourceServiceServer).LatestJPEGImage(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: latestJPEGImageMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(FrameSourceServiceServer).LatestJPEGImage(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// FrameSourceServiceDesc describes the frame source service for grpc.Server.RegisterService.
var FrameSourceServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FrameSourceServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "LatestDepthImage", Handler: latestDepthImageHandler},
		{MethodName: "LatestJPEGImage", Handler: latestJPEGImageHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "holo/framesource/v1/framesource.proto",
}
