package framesource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"go.viam.com/holo/logging"
)

var (
	// RetryCeiling is the number of consecutive unreachable failures tolerated before a stream is
	// disabled. public for tests.
	RetryCeiling = 5
	// RetryDelay is the backoff unit: after n consecutive failures the next attempt waits n*RetryDelay.
	// public for tests.
	RetryDelay = 2 * time.Millisecond
)

// StateKind tags a StreamState.
type StateKind int

// The states a stream moves through. Disabled is terminal.
const (
	StateLive StateKind = iota
	StateBackoff
	StateDisabled
)

func (k StateKind) String() string {
	switch k {
	case StateLive:
		return "live"
	case StateBackoff:
		return "backoff"
	case StateDisabled:
		return "disabled"
	default:
		return fmt.Sprintf("StateKind(%d)", int(k))
	}
}

// StreamState is the health of one stream. Failures and NotBefore are set in StateBackoff, Reason in
// StateDisabled.
type StreamState struct {
	Kind      StateKind
	Failures  int
	NotBefore time.Time
	Reason    error
}

// Stream tracks one stream (depth or color) of a source and gates fetch attempts on its state.
type Stream struct {
	name   string
	clock  clock.Clock
	logger logging.Logger

	mu    sync.Mutex
	state StreamState
}

// NewStream returns a live stream.
func NewStream(name string, clk clock.Clock, logger logging.Logger) *Stream {
	if clk == nil {
		clk = clock.New()
	}
	return &Stream{name: name, clock: clk, logger: logger}
}

// Name returns the stream name.
func (s *Stream) Name() string {
	return s.name
}

// State returns a snapshot of the stream state.
func (s *Stream) State() StreamState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Disabled reports whether the stream has been given up on.
func (s *Stream) Disabled() bool {
	return s.State().Kind == StateDisabled
}

// Ready reports whether an attempt may be made now.
func (s *Stream) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state.Kind {
	case StateDisabled:
		return false
	case StateBackoff:
		return !s.clock.Now().Before(s.state.NotBefore)
	default:
		return true
	}
}

// Observe records the outcome of an attempt. A nil error resets the stream to live. Unreachable
// failures back off linearly until RetryCeiling is exceeded, a broken stream is disabled at once.
// Any other error is logged and leaves the state unchanged.
func (s *Stream) Observe(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Kind == StateDisabled {
		return
	}
	switch {
	case err == nil:
		if s.state.Kind == StateBackoff {
			s.logger.Infow("stream recovered", "stream", s.name, "failures", s.state.Failures)
		}
		s.state = StreamState{Kind: StateLive}
	case errors.Is(err, ErrStreamUnreachable):
		failures := s.state.Failures + 1
		if failures > RetryCeiling {
			s.disable(err)
			return
		}
		s.state = StreamState{
			Kind:      StateBackoff,
			Failures:  failures,
			NotBefore: s.clock.Now().Add(time.Duration(failures) * RetryDelay),
		}
		s.logger.Warnw("stream unreachable, will retry", "stream", s.name, "failures", failures, "error", err)
	case errors.Is(err, ErrStreamBroken):
		s.disable(err)
	default:
		s.logger.Warnw("stream attempt failed", "stream", s.name, "error", err)
	}
}

// Disable gives up on the stream without an attempt, for a stream that has no source to fetch from.
func (s *Stream) Disable(reason error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Kind != StateDisabled {
		s.disable(reason)
	}
}

func (s *Stream) disable(reason error) {
	s.state = StreamState{Kind: StateDisabled, Failures: s.state.Failures, Reason: reason}
	s.logger.Errorw("stream disabled", "stream", s.name, "error", reason)
}

// Fetch runs fetch if the stream is ready and records the outcome. ok is false when no attempt was
// made or the attempt failed.
func Fetch[T any](ctx context.Context, s *Stream, fetch func(ctx context.Context) (T, error)) (T, bool) {
	var zero T
	if !s.Ready() {
		return zero, false
	}
	v, err := fetch(ctx)
	s.Observe(err)
	if err != nil {
		return zero, false
	}
	return v, true
}
