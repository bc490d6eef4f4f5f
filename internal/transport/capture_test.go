package transport

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/muurk/platinum/internal/protocol"
)

type scriptedExchanger struct {
	replies map[string]string
}

func (s scriptedExchanger) Exchange(ctx context.Context, req protocol.Request) (string, error) {
	reply, ok := s.replies[req.Payload]
	if !ok {
		return "", errors.New("no route to host")
	}
	return reply, nil
}

func TestRecorder_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	inner := scriptedExchanger{replies: map[string]string{
		"$dmy": "ack",
		"$dat": "01$cr00-Hall\r\n01upd01-",
	}}
	r := NewRecorder(inner, &buf)

	if _, err := r.Exchange(context.Background(), protocol.PingRequest()); err != nil {
		t.Fatalf("Exchange($dmy) error = %v", err)
	}
	if _, err := r.Exchange(context.Background(), protocol.SnapshotRequest()); err != nil {
		t.Fatalf("Exchange($dat) error = %v", err)
	}
	if _, err := r.Exchange(context.Background(), protocol.ReleaseRequest()); err == nil {
		t.Fatal("Exchange($rls) error = nil, want error")
	}

	if n := strings.Count(buf.String(), "\n"); n != 3 {
		t.Fatalf("capture lines = %d, want 3", n)
	}

	caps, err := ReadCaptures(&buf)
	if err != nil {
		t.Fatalf("ReadCaptures() error = %v", err)
	}
	if len(caps) != 3 {
		t.Fatalf("captures = %d, want 3", len(caps))
	}

	if caps[0].Num != 1 || caps[0].Request != "$dmy" || caps[0].Reply != "ack" {
		t.Errorf("caps[0] = %+v", caps[0])
	}
	if caps[1].Sentinel != "upd01-" || !strings.HasSuffix(caps[1].Reply, "upd01-") {
		t.Errorf("caps[1] = %+v", caps[1])
	}
	if caps[2].Num != 3 || caps[2].Error == "" || caps[2].Reply != "" {
		t.Errorf("caps[2] = %+v, want recorded error", caps[2])
	}
}

func TestRecorder_ClientAddress(t *testing.T) {
	var buf bytes.Buffer
	r := NewRecorder(NewClient("192.0.2.1", 0), &buf)
	if r.address != "192.0.2.1:522" {
		t.Errorf("address = %q, want 192.0.2.1:522", r.address)
	}
}

func TestRecorder_Stats(t *testing.T) {
	host, port := fakeController(t, func(conn net.Conn) {
		_, _ = conn.Write([]byte(testBanner))
		if expectRequest(t, conn, "$dmy") {
			_, _ = conn.Write([]byte("ack"))
		}
	})

	var buf bytes.Buffer
	r := NewRecorder(NewClient(host, port, WithTimeout(time.Second)), &buf)
	if _, err := r.Exchange(context.Background(), protocol.PingRequest()); err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if got := r.Stats().Exchanges; got != 1 {
		t.Errorf("Stats().Exchanges = %d, want 1", got)
	}

	scripted := NewRecorder(scriptedExchanger{}, &buf)
	if got := scripted.Stats(); got != (Stats{}) {
		t.Errorf("Stats() = %+v, want zero", got)
	}
}

func TestReadCaptures_Invalid(t *testing.T) {
	_, err := ReadCaptures(strings.NewReader("{\"request\":\"$dmy\"}\n\nnot json\n"))
	if err == nil || !strings.Contains(err.Error(), "line 3") {
		t.Errorf("ReadCaptures() error = %v, want line 3 error", err)
	}
}
