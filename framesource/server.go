package framesource

import (
	"context"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"go.viam.com/holo/logging"
	"go.viam.com/holo/rimage"
)

// ErrNoFrame is returned by a source that has not produced a frame yet.
var ErrNoFrame = errors.New("no frame available yet")

// serviceServer implements the FrameSourceService from a Source.
type serviceServer struct {
	source Source
	logger logging.Logger
}

// NewRPCServiceServer constructs a frame source gRPC service server backed by source.
func NewRPCServiceServer(source Source, logger logging.Logger) FrameSourceServiceServer {
	return &serviceServer{source: source, logger: logger}
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, ErrNoFrame), errors.Is(err, ErrStreamUnreachable):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func (s *serviceServer) LatestDepthImage(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.BytesValue, error) {
	ctx, span := trace.StartSpan(ctx, "framesource::server::LatestDepthImage")
	defer span.End()
	samples, err := s.source.LatestDepthFrame(ctx)
	if err != nil {
		s.logger.Debugw("depth frame unavailable", "error", err)
		return nil, toStatus(err)
	}
	return wrapperspb.Bytes(rimage.EncodeRawDepth(samples)), nil
}

func (s *serviceServer) LatestJPEGImage(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.BytesValue, error) {
	ctx, span := trace.StartSpan(ctx, "framesource::server::LatestJPEGImage")
	defer span.End()
	data, err := s.source.LatestColorFrame(ctx)
	if err != nil {
		s.logger.Debugw("color frame unavailable", "error", err)
		return nil, toStatus(err)
	}
	return wrapperspb.Bytes(data), nil
}
