package framesource

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"go.uber.org/atomic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"

	"go.viam.com/holo/logging"
	"go.viam.com/holo/rimage"
)

// DefaultCallTimeout bounds a single frame request.
const DefaultCallTimeout = 2 * time.Second

// client implements Source over the frame source gRPC service.
type client struct {
	conn        *grpc.ClientConn
	client      FrameSourceServiceClient
	width       int
	height      int
	callTimeout time.Duration
	logger      logging.Logger

	depthSucceeded atomic.Bool
	colorSucceeded atomic.Bool
}

// NewClient connects lazily to the frame source at address. Connection problems surface on the first
// request as ErrStreamUnreachable.
func NewClient(address string, width, height int, callTimeout time.Duration, logger logging.Logger) (Source, error) {
	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid frame source address %q", address)
	}
	c := newClientFromConn(conn, width, height, callTimeout, logger)
	c.conn = conn
	return c, nil
}

// NewClientFromConn constructs a new Source from a connection passed in. The connection is not
// closed by Close.
func NewClientFromConn(conn grpc.ClientConnInterface, width, height int, callTimeout time.Duration, logger logging.Logger) Source {
	return newClientFromConn(conn, width, height, callTimeout, logger)
}

func newClientFromConn(conn grpc.ClientConnInterface, width, height int, callTimeout time.Duration, logger logging.Logger) *client {
	return &client{
		client:      NewFrameSourceServiceClient(conn),
		width:       width,
		height:      height,
		callTimeout: callTimeout,
		logger:      logger,
	}
}

func (c *client) withTimeout(ctx context.Context) (context.Context, func()) {
	if c.callTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.callTimeout)
}

func (c *client) LatestDepthFrame(ctx context.Context) ([]uint16, error) {
	ctx, span := trace.StartSpan(ctx, "framesource::client::LatestDepthImage")
	defer span.End()
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.client.LatestDepthImage(ctx, &emptypb.Empty{})
	if err != nil {
		return nil, classifyRPCError(err, c.depthSucceeded.Load())
	}
	c.depthSucceeded.Store(true)
	samples, err := rimage.DecodeRawDepth(resp.GetValue(), c.width, c.height)
	if err != nil {
		return nil, errors.Wrap(rimage.ErrDecodeFailure, err.Error())
	}
	return samples, nil
}

func (c *client) LatestColorFrame(ctx context.Context) ([]byte, error) {
	ctx, span := trace.StartSpan(ctx, "framesource::client::LatestJPEGImage")
	defer span.End()
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.client.LatestJPEGImage(ctx, &emptypb.Empty{})
	if err != nil {
		return nil, classifyRPCError(err, c.colorSucceeded.Load())
	}
	c.colorSucceeded.Store(true)
	return resp.GetValue(), nil
}

func (c *client) Close(ctx context.Context) error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
