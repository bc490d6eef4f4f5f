package hub

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/muurk/platinum/internal/logging"
	"github.com/muurk/platinum/internal/protocol"
	"github.com/muurk/platinum/internal/transport"
)

func TestSetLevel_ConvergesFirstAttempt(t *testing.T) {
	fc := newFakeController()
	h, rec := newTestHub(t, fc, WithSettleDelay(7*time.Second))

	result, err := h.Shade("Bay Window").SetLevel(context.Background(), "50")
	if err != nil {
		t.Fatalf("SetLevel() error = %v", err)
	}

	if !result.Converged {
		t.Error("Converged = false, want true")
	}
	if result.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", result.Attempts)
	}
	if result.Position != 128 {
		t.Errorf("Position = %d, want 128", result.Position)
	}
	if result.Target.Raw() != 128 {
		t.Errorf("Target.Raw() = %d, want 128", result.Target.Raw())
	}
	if got := result.Response(); got != "doneact00-00-" {
		t.Errorf("Response() = %q, want %q", got, "doneact00-00-")
	}

	want := []protocol.Request{
		{Payload: "$pss03-04-128", Sentinel: "done"},
		{Payload: "$rls", Sentinel: "act00-00-"},
		{Payload: "$dat", Sentinel: "upd01-"},
	}
	if len(fc.requests) != len(want) {
		t.Fatalf("requests = %v, want %v", fc.requests, want)
	}
	for i := range want {
		if fc.requests[i] != want[i] {
			t.Errorf("requests[%d] = %v, want %v", i, fc.requests[i], want[i])
		}
	}

	if len(rec.delays) != 1 || rec.delays[0] != 7*time.Second {
		t.Errorf("settle delays = %v, want [7s]", rec.delays)
	}
}

func TestSetLevel_AlreadyAtTarget(t *testing.T) {
	fc := newFakeController()
	h, rec := newTestHub(t, fc)

	result, err := h.Shade("Bedroom Left").Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if !result.Converged || result.Attempts != 0 {
		t.Errorf("result = %+v, want converged with 0 attempts", result)
	}
	if n := len(fc.payloads()); n != 0 {
		t.Errorf("requests = %d, want 0", n)
	}
	if len(rec.delays) != 0 {
		t.Errorf("settle delays = %v, want none", rec.delays)
	}
}

func TestSetLevel_GivesUpAfterMaxAttempts(t *testing.T) {
	fc := newFakeController()
	fc.ignoreMoves = true
	h, rec := newTestHub(t, fc)

	result, err := h.Shade("Bay Window").SetLevel(context.Background(), "up")
	if err != nil {
		t.Fatalf("SetLevel() error = %v", err)
	}

	if result.Converged {
		t.Error("Converged = true, want false")
	}
	if result.Attempts != DefaultMaxAttempts {
		t.Errorf("Attempts = %d, want %d", result.Attempts, DefaultMaxAttempts)
	}
	if got := fc.count("$pss03-04-255"); got != 3 {
		t.Errorf("move requests = %d, want 3", got)
	}
	if got := fc.count(protocol.CmdRelease); got != 3 {
		t.Errorf("release requests = %d, want 3", got)
	}
	if got := fc.count(protocol.CmdSnapshot); got != 3 {
		t.Errorf("snapshot requests = %d, want 3", got)
	}
	if len(rec.delays) != 3 {
		t.Errorf("settle delays = %d, want 3", len(rec.delays))
	}
	if len(result.Responses) != 6 {
		t.Errorf("Responses = %d, want 6", len(result.Responses))
	}
}

func TestSetLevel_MaxAttemptsOption(t *testing.T) {
	fc := newFakeController()
	fc.ignoreMoves = true
	h, _ := newTestHub(t, fc, WithMaxAttempts(5))

	result, err := h.Shade("Bay Window").Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if result.Attempts != 5 {
		t.Errorf("Attempts = %d, want 5", result.Attempts)
	}
}

func TestSetLevel_MoveIsReleasedBeforeRefresh(t *testing.T) {
	fc := newFakeController()
	h, _ := newTestHub(t, fc)

	if _, err := h.Shade("Bedroom Left").Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	got := strings.Join(fc.payloads(), " ")
	if got != "$pss04-04-000 $rls $dat" {
		t.Errorf("requests = %q, want %q", got, "$pss04-04-000 $rls $dat")
	}
}

func TestSetLevel_FailedExchangeConsumesAttempt(t *testing.T) {
	fc := newFakeController()
	h, _ := newTestHub(t, fc)

	failures := 1
	fc.fail = func(req protocol.Request) error {
		if strings.HasPrefix(req.Payload, protocol.CmdMove) && failures > 0 {
			failures--
			return errors.New("connection reset by peer")
		}
		return nil
	}

	result, err := h.Shade("Bay Window").SetLevel(context.Background(), "30")
	if err != nil {
		t.Fatalf("SetLevel() error = %v", err)
	}
	if !result.Converged {
		t.Error("Converged = false, want true")
	}
	if result.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", result.Attempts)
	}
	if result.Position != 77 {
		t.Errorf("Position = %d, want 77", result.Position)
	}
	// the first move failed, so its release was never sent
	if got := fc.count(protocol.CmdRelease); got != 1 {
		t.Errorf("release requests = %d, want 1", got)
	}
}

func TestSetLevel_RefreshFailureConsumesAttempt(t *testing.T) {
	fc := newFakeController()
	h, _ := newTestHub(t, fc)

	fc.fail = func(req protocol.Request) error {
		if req.Payload == protocol.CmdSnapshot {
			return errors.New("i/o timeout")
		}
		return nil
	}

	result, err := h.Shade("Bay Window").SetLevel(context.Background(), "up")
	if err != nil {
		t.Fatalf("SetLevel() error = %v", err)
	}
	if result.Converged {
		t.Error("Converged = true without a successful refresh")
	}
	if result.Attempts != DefaultMaxAttempts {
		t.Errorf("Attempts = %d, want %d", result.Attempts, DefaultMaxAttempts)
	}
}

func TestSetLevel_LogsRetryableAttempt(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logging.SetLogger(zap.New(core))
	defer logging.SetLogger(zap.NewNop())

	fc := newFakeController()
	h, _ := newTestHub(t, fc)

	failures := 1
	fc.fail = func(req protocol.Request) error {
		if strings.HasPrefix(req.Payload, protocol.CmdMove) && failures > 0 {
			failures--
			return &transport.Error{Type: transport.ErrTypeTimeout, Message: "sentinel not received", Retryable: true}
		}
		return nil
	}

	if _, err := h.Shade("Bay Window").Open(context.Background()); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	entries := logs.FilterMessage("Move attempt incomplete").All()
	if len(entries) != 1 {
		t.Fatalf("incomplete attempts logged = %d, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["retryable"]; got != true {
		t.Errorf("retryable = %v, want true", got)
	}
}

func TestSetLevel_WithinTolerance(t *testing.T) {
	fc := newFakeController()
	fc.ignoreMoves = true
	fc.setPosition("03", 127)
	h, _ := newTestHub(t, fc)

	result, err := h.Shade("Bay Window").SetLevel(context.Background(), "50")
	if err != nil {
		t.Fatalf("SetLevel() error = %v", err)
	}
	if !result.Converged || result.Attempts != 0 {
		t.Errorf("result = %+v, want converged with 0 attempts", result)
	}
}

func TestSetLevel_InvalidTarget(t *testing.T) {
	fc := newFakeController()
	h, rec := newTestHub(t, fc)

	for _, target := range []string{"", "open", "-1", "101", "12.5"} {
		result, err := h.Shade("Bay Window").SetLevel(context.Background(), target)
		if !errors.Is(err, ErrInvalidTarget) {
			t.Errorf("SetLevel(%q) error = %v, want ErrInvalidTarget", target, err)
		}
		if result != nil {
			t.Errorf("SetLevel(%q) result = %+v, want nil", target, result)
		}
	}

	if n := len(fc.payloads()); n != 0 {
		t.Errorf("requests = %d, want 0", n)
	}
	if len(rec.delays) != 0 {
		t.Errorf("settle delays = %v, want none", rec.delays)
	}
}

func TestSetLevel_CancelledDuringSettle(t *testing.T) {
	fc := newFakeController()
	fc.ignoreMoves = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sleep := func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}
	h, _ := newTestHub(t, fc, WithSleep(sleep))

	result, err := h.Shade("Bay Window").SetLevel(ctx, "up")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("SetLevel() error = %v, want context.Canceled", err)
	}
	if result.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", result.Attempts)
	}
	if got := fc.count(protocol.CmdSnapshot); got != 0 {
		t.Errorf("snapshot requests after cancel = %d, want 0", got)
	}
}

func TestSetLevel_CancelledBeforeStart(t *testing.T) {
	fc := newFakeController()
	h, _ := newTestHub(t, fc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := h.Shade("Bay Window").SetLevel(ctx, "up")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("SetLevel() error = %v, want context.Canceled", err)
	}
	if result.Attempts != 0 {
		t.Errorf("Attempts = %d, want 0", result.Attempts)
	}
	if n := len(fc.payloads()); n != 0 {
		t.Errorf("requests = %d, want 0", n)
	}
}

func TestSetLevel_Observer(t *testing.T) {
	fc := newFakeController()
	h, _ := newTestHub(t, fc)

	var states []MoveState
	var attempts []int
	obs := func(ev MoveEvent) {
		states = append(states, ev.State)
		attempts = append(attempts, ev.Attempt)
		if ev.MaxAttempts != DefaultMaxAttempts {
			t.Errorf("MaxAttempts = %d, want %d", ev.MaxAttempts, DefaultMaxAttempts)
		}
	}

	if _, err := h.Shade("Bay Window").Open(context.Background(), WithObserver(obs)); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	wantStates := []MoveState{StateIdle, StateIssuing, StateVerifying, StateConverged}
	wantAttempts := []int{0, 1, 1, 1}
	if len(states) != len(wantStates) {
		t.Fatalf("states = %v, want %v", states, wantStates)
	}
	for i := range wantStates {
		if states[i] != wantStates[i] {
			t.Errorf("states[%d] = %v, want %v", i, states[i], wantStates[i])
		}
		if attempts[i] != wantAttempts[i] {
			t.Errorf("attempts[%d] = %d, want %d", i, attempts[i], wantAttempts[i])
		}
	}
}

func TestSetLevel_IsLevelAgreesWithConverged(t *testing.T) {
	fc := newFakeController()
	h, _ := newTestHub(t, fc)
	bay := h.Shade("Bay Window")

	for _, target := range []string{"up", "down", "0", "25", "50", "75", "100"} {
		result, err := bay.SetLevel(context.Background(), target)
		if err != nil {
			t.Fatalf("SetLevel(%q) error = %v", target, err)
		}
		if result.Converged != bay.IsLevel(target) {
			t.Errorf("SetLevel(%q): Converged = %v, IsLevel = %v", target, result.Converged, bay.IsLevel(target))
		}
	}
}

func TestMoveState_String(t *testing.T) {
	tests := map[MoveState]string{
		StateIdle:      "idle",
		StateIssuing:   "issuing",
		StateVerifying: "verifying",
		StateConverged: "converged",
		StateFailed:    "failed",
		MoveState(42):  "MoveState(42)",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("MoveState(%d).String() = %q, want %q", int(state), got, want)
		}
	}
}
