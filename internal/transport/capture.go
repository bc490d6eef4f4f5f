package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/platinum/internal/logging"
	"github.com/muurk/platinum/internal/protocol"
)

// Capture is one recorded exchange, written as a JSON line
type Capture struct {
	Timestamp  time.Time `json:"timestamp"`
	Num        int       `json:"exchange_num"`
	Address    string    `json:"address,omitempty"`
	Request    string    `json:"request"`
	Sentinel   string    `json:"sentinel"`
	Reply      string    `json:"reply,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
}

// Recorder wraps an Exchanger and appends every exchange to w as JSON Lines.
// Captures can be replayed offline with ReadCaptures.
type Recorder struct {
	inner   Exchanger
	address string

	mu  sync.Mutex
	w   io.Writer
	num int
}

// Ensure Recorder implements Exchanger.
var _ Exchanger = (*Recorder)(nil)

// NewRecorder records exchanges made through inner to w
func NewRecorder(inner Exchanger, w io.Writer) *Recorder {
	r := &Recorder{inner: inner, w: w}
	if c, ok := inner.(*Client); ok {
		r.address = c.Address()
	}
	return r
}

// Exchange forwards req and records the outcome. A failure to write the
// capture is logged and does not affect the exchange result.
func (r *Recorder) Exchange(ctx context.Context, req protocol.Request) (string, error) {
	start := time.Now()
	reply, err := r.inner.Exchange(ctx, req)

	rec := Capture{
		Timestamp:  start,
		Address:    r.address,
		Request:    req.Payload,
		Sentinel:   req.Sentinel,
		Reply:      reply,
		DurationMS: time.Since(start).Milliseconds(),
	}
	if err != nil {
		rec.Error = err.Error()
	}
	r.write(rec)

	return reply, err
}

// Stats forwards to the wrapped exchanger's counters. It is zero when the
// wrapped exchanger keeps none.
func (r *Recorder) Stats() Stats {
	if s, ok := r.inner.(interface{ Stats() Stats }); ok {
		return s.Stats()
	}
	return Stats{}
}

func (r *Recorder) write(rec Capture) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.num++
	rec.Num = r.num

	data, err := json.Marshal(rec)
	if err != nil {
		logging.Error("Failed to marshal capture", zap.Error(err))
		return
	}
	if _, err := r.w.Write(append(data, '\n')); err != nil {
		logging.Error("Failed to write capture", zap.Error(err))
		return
	}
	logging.Debug("Exchange captured", zap.Int("exchange_num", rec.Num), zap.String("request", rec.Request))
}

// ReadCaptures decodes a JSON Lines capture. Blank lines are skipped.
func ReadCaptures(rd io.Reader) ([]Capture, error) {
	var out []Capture

	scanner := bufio.NewScanner(rd)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Bytes()
		if len(text) == 0 {
			continue
		}
		var c Capture
		if err := json.Unmarshal(text, &c); err != nil {
			return nil, fmt.Errorf("capture line %d: %w", line, err)
		}
		out = append(out, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read capture: %w", err)
	}
	return out, nil
}
