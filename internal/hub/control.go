package hub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/muurk/platinum/internal/logging"
	"github.com/muurk/platinum/internal/protocol"
	"github.com/muurk/platinum/internal/transport"
)

// MoveState is a stage of the move-and-verify loop
type MoveState int

const (
	StateIdle MoveState = iota
	StateIssuing
	StateVerifying
	StateConverged
	StateFailed
)

func (s MoveState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateIssuing:
		return "issuing"
	case StateVerifying:
		return "verifying"
	case StateConverged:
		return "converged"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("MoveState(%d)", int(s))
	}
}

// MoveEvent is reported to an Observer on every state change
type MoveEvent struct {
	Shade       *Shade
	State       MoveState
	Attempt     int // 1-based; 0 before the first attempt
	MaxAttempts int
	Target      Level
	Position    int
	Err         error // set when the attempt's exchange or refresh failed
}

// Observer receives progress from SetLevel. It is called synchronously on
// the caller's goroutine and must not call back into the Hub.
type Observer func(MoveEvent)

// MoveResult summarises a SetLevel call
type MoveResult struct {
	Converged bool
	Attempts  int
	Responses []string
	Target    Level
	Position  int
}

// Response returns every controller reply joined in order
func (r *MoveResult) Response() string {
	return strings.Join(r.Responses, "")
}

type setLevelOptions struct {
	observer Observer
}

// SetLevelOption configures a single SetLevel call
type SetLevelOption func(*setLevelOptions)

// WithObserver reports progress of the move to fn
func WithObserver(fn Observer) SetLevelOption {
	return func(o *setLevelOptions) { o.observer = fn }
}

// SetLevel moves the shade to target ("up", "down", or "0"-"100") and
// verifies the result.
//
// Each attempt sends the move and its release, waits for the settle delay,
// then refreshes the hub. The loop stops as soon as the cached position
// satisfies target or after MaxAttempts rounds; a failed exchange uses up an
// attempt rather than aborting. An invalid target returns ErrInvalidTarget
// without contacting the controller. Cancellation is checked between
// attempts and returns the context error along with the partial result.
func (s *Shade) SetLevel(ctx context.Context, target string, opts ...SetLevelOption) (*MoveResult, error) {
	level, err := ParseLevel(target)
	if err != nil {
		return nil, err
	}

	var o setLevelOptions
	for _, opt := range opts {
		opt(&o)
	}

	h := s.hub
	result := &MoveResult{Target: level, Position: s.Position()}

	notify := func(state MoveState, err error) {
		if o.observer == nil {
			return
		}
		o.observer(MoveEvent{
			Shade:       s,
			State:       state,
			Attempt:     result.Attempts,
			MaxAttempts: h.maxAttempts,
			Target:      level,
			Position:    result.Position,
			Err:         err,
		})
	}

	notify(StateIdle, nil)

	for !level.Matches(result.Position) && result.Attempts < h.maxAttempts {
		if err := ctx.Err(); err != nil {
			notify(StateFailed, err)
			return result, err
		}
		result.Attempts++

		notify(StateIssuing, nil)
		replies, moveErr := s.move(ctx, level)
		result.Responses = append(result.Responses, replies...)

		if err := h.sleep(ctx, h.settleDelay); err != nil {
			notify(StateFailed, err)
			return result, err
		}

		notify(StateVerifying, moveErr)
		refreshErr := h.Refresh(ctx)
		result.Position = s.Position()

		logging.LogShadeMove(s.name, result.Attempts, level.Raw(), result.Position, level.Matches(result.Position))
		if attemptErr := errors.Join(moveErr, refreshErr); attemptErr != nil {
			logging.Warn("Move attempt incomplete",
				zap.String("shade", s.name),
				zap.Int("attempt", result.Attempts),
				zap.Bool("retryable", transport.IsRetryable(attemptErr)),
				zap.Error(attemptErr),
			)
		}
	}

	result.Converged = level.Matches(result.Position)
	if result.Converged {
		notify(StateConverged, nil)
	} else {
		notify(StateFailed, nil)
	}
	return result, nil
}

// move sends the position command followed by the release that commits it,
// holding the exchange lock across both so nothing is interleaved
func (s *Shade) move(ctx context.Context, level Level) ([]string, error) {
	req, err := protocol.BuildMove(s.id, level.Raw())
	if err != nil {
		return nil, err
	}

	h := s.hub
	h.ioMu.Lock()
	defer h.ioMu.Unlock()

	var replies []string
	reply, err := h.exchange(ctx, req)
	if err != nil {
		return replies, fmt.Errorf("move %q: %w", s.name, err)
	}
	replies = append(replies, reply)

	reply, err = h.exchange(ctx, protocol.ReleaseRequest())
	if err != nil {
		return replies, fmt.Errorf("release %q: %w", s.name, err)
	}
	replies = append(replies, reply)

	return replies, nil
}
