package hub

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/muurk/platinum/internal/protocol"
)

// fakeController answers requests the way a two-room controller would.
// Moves take effect on release unless ignoreMoves is set.
type fakeController struct {
	mu sync.Mutex

	// snapshot overrides the generated inventory when non-empty
	snapshot string

	positions   map[string]int
	pending     map[string]int
	ignoreMoves bool

	// fail, if set, is consulted before every request
	fail func(req protocol.Request) error

	requests []protocol.Request
}

func newFakeController() *fakeController {
	return &fakeController{
		positions: map[string]int{"03": 0, "04": 255},
		pending:   make(map[string]int),
	}
}

func (f *fakeController) Exchange(ctx context.Context, req protocol.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	if f.fail != nil {
		if err := f.fail(req); err != nil {
			return "", err
		}
	}

	switch {
	case req.Payload == protocol.CmdSnapshot:
		if f.snapshot != "" {
			return f.snapshot, nil
		}
		return f.inventory(), nil

	case strings.HasPrefix(req.Payload, protocol.CmdMove):
		id := req.Payload[4:6]
		raw, err := strconv.Atoi(req.Payload[10:13])
		if err != nil {
			return "", fmt.Errorf("bad move %q", req.Payload)
		}
		f.pending[id] = raw
		return protocol.SentinelDone, nil

	case req.Payload == protocol.CmdRelease:
		if !f.ignoreMoves {
			for id, raw := range f.pending {
				f.positions[id] = raw
			}
		}
		f.pending = make(map[string]int)
		return protocol.SentinelAction, nil

	case req.Payload == protocol.CmdPing:
		return protocol.SentinelAck, nil

	case strings.HasPrefix(req.Payload, protocol.CmdRunScene):
		return protocol.SentinelAction, nil
	}

	return "", fmt.Errorf("unexpected request %q", req.Payload)
}

func (f *fakeController) inventory() string {
	var b strings.Builder
	b.WriteString("01$cr00-Living Room\r\n")
	b.WriteString("01$cr01-Bedroom\r\n")
	b.WriteString("01$cm02-Morning\r\n")
	b.WriteString("01$cs03-00-04-Bay Window\r\n")
	b.WriteString("01$cs04-01-04-Bedroom Left\r\n")

	ids := make([]string, 0, len(f.positions))
	for id := range f.positions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(&b, "01$cp%s-04-%03d-\r\n", id, f.positions[id])
	}
	b.WriteString("01upd01-")
	return b.String()
}

func (f *fakeController) setPosition(id string, raw int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.positions[id] = raw
}

// payloads returns the request payloads seen so far
func (f *fakeController) payloads() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, len(f.requests))
	for i, r := range f.requests {
		out[i] = r.Payload
	}
	return out
}

func (f *fakeController) count(payloadPrefix string) int {
	n := 0
	for _, p := range f.payloads() {
		if strings.HasPrefix(p, payloadPrefix) {
			n++
		}
	}
	return n
}

func (f *fakeController) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = nil
}

// sleepRecorder records settle delays without waiting
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

// newTestHub builds a hub on fc and performs the initial refresh
func newTestHub(t *testing.T, fc *fakeController, opts ...Option) (*Hub, *sleepRecorder) {
	t.Helper()

	rec := &sleepRecorder{}
	opts = append([]Option{WithExchanger(fc), WithSleep(rec.sleep)}, opts...)
	h := New("192.0.2.10", opts...)
	if err := h.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	fc.reset()
	return h, rec
}
