package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	"github.com/muurk/platinum/internal/logging"
	"github.com/muurk/platinum/internal/protocol"
)

// Dialer opens stream connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Exchanger performs one framed request/response round trip.
// The hub depends on this rather than on *Client so tests can script replies.
type Exchanger interface {
	Exchange(ctx context.Context, req protocol.Request) (string, error)
}

// Ensure Client implements Exchanger.
var _ Exchanger = (*Client)(nil)

// Stats holds operational counters for a Client
type Stats struct {
	Exchanges     uint64
	Failures      uint64
	BytesReceived uint64
	LastExchange  time.Time
}

// Client talks to one controller. Each Exchange opens its own connection,
// waits for the banner, sends the request, reads to the sentinel, and closes.
//
// A Client has no mutable connection state and is safe for concurrent use,
// but the controller serves one conversation at a time; the hub serialises
// exchanges.
type Client struct {
	// Host is the controller hostname or IP address
	Host string

	// Port is the controller TCP port (default: 522)
	Port int

	// Timeout bounds the dial and each read/write deadline (default: 10s)
	Timeout time.Duration

	// Dialer opens connections (default: &net.Dialer{})
	Dialer Dialer

	exchanges     atomic.Uint64
	failures      atomic.Uint64
	bytesReceived atomic.Uint64
	lastExchange  atomic.Int64
}

// Option configures a Client
type Option func(*Client)

// WithTimeout sets the dial and read/write timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.Timeout = timeout
		}
	}
}

// WithDialer replaces the dialer used to open connections
func WithDialer(d Dialer) Option {
	return func(c *Client) {
		if d != nil {
			c.Dialer = d
		}
	}
}

// NewClient creates a client for the controller at host:port.
// A port of 0 selects protocol.DefaultPort.
func NewClient(host string, port int, opts ...Option) *Client {
	if port == 0 {
		port = protocol.DefaultPort
	}

	c := &Client{
		Host:    host,
		Port:    port,
		Timeout: protocol.DefaultTimeout,
		Dialer:  &net.Dialer{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Address returns host:port
func (c *Client) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Stats returns a snapshot of the client's counters
func (c *Client) Stats() Stats {
	s := Stats{
		Exchanges:     c.exchanges.Load(),
		Failures:      c.failures.Load(),
		BytesReceived: c.bytesReceived.Load(),
	}
	if ts := c.lastExchange.Load(); ts != 0 {
		s.LastExchange = time.Unix(0, ts)
	}
	return s
}

// Dial opens a connection and consumes the controller banner.
// The caller owns the returned connection.
func (c *Client) Dial(ctx context.Context) (net.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	conn, err := c.Dialer.DialContext(dialCtx, "tcp", c.Address())
	if err != nil {
		return nil, newConnectionError("failed to connect to controller", err, c.Address())
	}

	if _, err := c.readUntil(ctx, conn, protocol.Banner); err != nil {
		_ = conn.Close()
		var te *Error
		if errors.As(err, &te) {
			return nil, &Error{
				Type:      ErrTypeConnection,
				Message:   "controller banner not received",
				Err:       err,
				Address:   c.Address(),
				Discarded: te.Discarded,
				Retryable: true,
			}
		}
		return nil, newConnectionError("controller banner not received", err, c.Address())
	}

	logging.Debug("Connected to controller", zap.String("addr", c.Address()))
	return conn, nil
}

// Exchange sends one request on a fresh connection and returns the reply,
// including the sentinel. The connection is closed on every exit path.
//
// If the deadline passes or the controller closes the stream before the
// sentinel arrives, the partial reply is discarded and an Error of type
// ErrTypeTimeout is returned.
func (c *Client) Exchange(ctx context.Context, req protocol.Request) (string, error) {
	exchangeID := uuid.NewString()
	start := time.Now()

	conn, err := c.Dial(ctx)
	if err != nil {
		c.record(0, err)
		logging.LogExchange(exchangeID, c.Address(), req.Payload, req.Sentinel, 0, time.Since(start), err)
		return "", err
	}
	defer func() { _ = conn.Close() }()

	return c.exchangeLogged(ctx, conn, req, exchangeID, start)
}

// ExchangeOn runs one request on a connection the caller already holds
// (opened with Dial). The connection is left open.
func (c *Client) ExchangeOn(ctx context.Context, conn net.Conn, req protocol.Request) (string, error) {
	return c.exchangeLogged(ctx, conn, req, uuid.NewString(), time.Now())
}

func (c *Client) exchangeLogged(ctx context.Context, conn net.Conn, req protocol.Request, exchangeID string, start time.Time) (string, error) {
	reply, err := c.exchangeOn(ctx, conn, req)

	c.record(len(reply), err)
	logging.LogExchange(exchangeID, c.Address(), req.Payload, req.Sentinel, len(reply), time.Since(start), err)
	return reply, err
}

func (c *Client) exchangeOn(ctx context.Context, conn net.Conn, req protocol.Request) (string, error) {
	payload, err := charmap.CodePage437.NewEncoder().String(req.Payload)
	if err != nil {
		return "", &Error{
			Type:    ErrTypeEncoding,
			Message: "request cannot be encoded",
			Err:     err,
			Address: c.Address(),
		}
	}

	if err := conn.SetWriteDeadline(c.deadline(ctx)); err != nil {
		return "", newConnectionError("set write deadline", err, c.Address())
	}
	if _, err := conn.Write([]byte(payload)); err != nil {
		return "", newConnectionError("failed to send request", err, c.Address())
	}

	reply, err := c.readUntil(ctx, conn, req.Sentinel)
	if err != nil {
		return "", err
	}
	// the banner line ending is still buffered on a fresh connection
	return strings.TrimLeft(reply, "\r\n"), nil
}

// IsAlive runs the liveness check over an open connection
func (c *Client) IsAlive(ctx context.Context, conn net.Conn) bool {
	_, err := c.ExchangeOn(ctx, conn, protocol.PingRequest())
	return err == nil
}

// readUntil reads one byte at a time until the accumulated bytes end with
// sentinel. Replies carry no length prefix, so anything buffered past the
// sentinel would belong to the next reply.
func (c *Client) readUntil(ctx context.Context, conn net.Conn, sentinel string) (string, error) {
	if err := conn.SetReadDeadline(c.deadline(ctx)); err != nil {
		return "", newConnectionError("set read deadline", err, c.Address())
	}

	// Unblock the read when the caller gives up
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	want := []byte(sentinel)
	var acc []byte
	buf := make([]byte, 1)

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			acc = append(acc, buf[0])
			if bytes.HasSuffix(acc, want) {
				logging.LogRawBytes("Controller reply", acc)
				return DecodeWire(acc)
			}
		}
		if err == nil {
			continue
		}

		logging.LogRawBytes("Discarded partial reply", acc)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", newTimeoutError("exchange cancelled", ctxErr, c.Address(), len(acc))
		}
		if errors.Is(err, io.EOF) {
			return "", newTimeoutError("connection closed before sentinel "+strconv.Quote(sentinel), nil, c.Address(), len(acc))
		}
		return "", newTimeoutError("sentinel "+strconv.Quote(sentinel)+" not received", err, c.Address(), len(acc))
	}
}

// deadline is now+Timeout, or the context deadline if that is sooner
func (c *Client) deadline(ctx context.Context) time.Time {
	d := time.Now().Add(c.Timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(d) {
		d = ctxDeadline
	}
	return d
}

func (c *Client) record(received int, err error) {
	c.exchanges.Add(1)
	c.bytesReceived.Add(uint64(received))
	c.lastExchange.Store(time.Now().UnixNano())
	if err != nil {
		c.failures.Add(1)
	}
}

// DecodeWire converts controller bytes (code page 437) to a UTF-8 string
func DecodeWire(raw []byte) (string, error) {
	out, err := charmap.CodePage437.NewDecoder().Bytes(raw)
	if err != nil {
		return "", &Error{Type: ErrTypeEncoding, Message: "reply cannot be decoded", Err: err}
	}
	return string(out), nil
}
