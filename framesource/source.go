// Package framesource fetches the latest depth and color frames of a networked sensor and tracks
// the health of each stream.
package framesource

import (
	"context"

	"github.com/pkg/errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// ErrStreamUnreachable is returned when the sensor could not be reached. It is retried.
	ErrStreamUnreachable = errors.New("stream unreachable")
	// ErrStreamBroken is returned when an established stream failed. It is never retried.
	ErrStreamBroken = errors.New("stream broken")
)

// A Source returns the most recent frames of a sensor. There is no queue: each call returns
// whatever frame is current when it is served.
type Source interface {
	// LatestDepthFrame returns a row-major width*height frame of depths in millimeters.
	LatestDepthFrame(ctx context.Context) ([]uint16, error)
	// LatestColorFrame returns an encoded (JPEG) color frame.
	LatestColorFrame(ctx context.Context) ([]byte, error)
	Close(ctx context.Context) error
}

// classifyRPCError maps a transport error onto ErrStreamUnreachable or ErrStreamBroken. A call that
// never got through is unreachable, one that fails after an earlier success is broken.
func classifyRPCError(err error, everSucceeded bool) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStreamUnreachable) || errors.Is(err, ErrStreamBroken) {
		return err
	}
	switch status.Code(err) {
	case codes.Unavailable:
		if everSucceeded {
			return errors.Wrap(ErrStreamBroken, err.Error())
		}
		return errors.Wrap(ErrStreamUnreachable, err.Error())
	case codes.DeadlineExceeded:
		return errors.Wrap(ErrStreamUnreachable, err.Error())
	case codes.Canceled:
		return err
	default:
		return errors.Wrap(ErrStreamBroken, err.Error())
	}
}
