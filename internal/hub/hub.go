package hub

import (
	"context"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/platinum/internal/logging"
	"github.com/muurk/platinum/internal/protocol"
	"github.com/muurk/platinum/internal/transport"
)

const (
	// DefaultSettleDelay is how long to wait after a move before asking for
	// fresh positions; the controller reports stale values right after a move
	DefaultSettleDelay = 5 * time.Second

	// DefaultMaxAttempts bounds the move-and-verify loop
	DefaultMaxAttempts = 3
)

// SleepFunc pauses the control loop between a move and its verification.
// It must return early with ctx.Err() if ctx is cancelled.
type SleepFunc func(ctx context.Context, d time.Duration) error

// pinger is implemented by exchangers that can hold a connection open for
// a liveness check (*transport.Client does)
type pinger interface {
	Dial(ctx context.Context) (net.Conn, error)
	IsAlive(ctx context.Context, conn net.Conn) bool
}

// statsReporter is implemented by exchangers that keep exchange counters
type statsReporter interface {
	Stats() transport.Stats
}

// Hub is a Platinum controller and the rooms, scenes, and shades it reported.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Exchanges are serialised: the controller handles one conversation at a
//     time, and a move and its release are sent back to back.
//   - Registries only grow. A snapshot adds entities whose name is new and
//     updates positions by shade id; nothing is ever removed.
type Hub struct {
	address     string
	exchanger   transport.Exchanger
	settleDelay time.Duration
	maxAttempts int
	sleep       SleepFunc

	// ioMu serialises exchanges with the controller
	ioMu sync.Mutex

	// mu guards the registries and shade positions
	mu         sync.RWMutex
	rooms      map[string]*Room // by name
	roomsByID  map[string]*Room
	scenes     map[string]*Scene
	scenesByID map[string]*Scene
	shades     map[string]*Shade
	shadesByID map[string]*Shade
	lastUpdate time.Time
}

// config collects construction options before the Hub is built
type config struct {
	port        int
	timeout     time.Duration
	dialer      transport.Dialer
	exchanger   transport.Exchanger
	settleDelay time.Duration
	maxAttempts int
	sleep       SleepFunc
}

// Option configures a Hub
type Option func(*config)

// WithPort sets the controller TCP port (default: 522)
func WithPort(port int) Option {
	return func(c *config) { c.port = port }
}

// WithTimeout sets the per-exchange timeout (default: 10s)
func WithTimeout(timeout time.Duration) Option {
	return func(c *config) { c.timeout = timeout }
}

// WithDialer replaces the dialer used by the built-in transport client
func WithDialer(d transport.Dialer) Option {
	return func(c *config) { c.dialer = d }
}

// WithExchanger replaces the transport entirely. Port, timeout, and dialer
// options are ignored when this is set.
func WithExchanger(e transport.Exchanger) Option {
	return func(c *config) { c.exchanger = e }
}

// WithSettleDelay sets the pause between a move and its verification
func WithSettleDelay(d time.Duration) Option {
	return func(c *config) { c.settleDelay = d }
}

// WithMaxAttempts sets the number of move-and-verify rounds (default: 3)
func WithMaxAttempts(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithSleep replaces the settle-delay implementation, e.g. with a recorder in tests
func WithSleep(fn SleepFunc) Option {
	return func(c *config) {
		if fn != nil {
			c.sleep = fn
		}
	}
}

// New creates a Hub for the controller at address. No connection is made;
// call Refresh to load rooms, scenes, and shades.
func New(address string, opts ...Option) *Hub {
	cfg := config{
		port:        protocol.DefaultPort,
		timeout:     protocol.DefaultTimeout,
		settleDelay: DefaultSettleDelay,
		maxAttempts: DefaultMaxAttempts,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	exchanger := cfg.exchanger
	if exchanger == nil {
		exchanger = transport.NewClient(address, cfg.port,
			transport.WithTimeout(cfg.timeout),
			transport.WithDialer(cfg.dialer),
		)
	}

	return &Hub{
		address:     address,
		exchanger:   exchanger,
		settleDelay: cfg.settleDelay,
		maxAttempts: cfg.maxAttempts,
		sleep:       cfg.sleep,
		rooms:       make(map[string]*Room),
		roomsByID:   make(map[string]*Room),
		scenes:      make(map[string]*Scene),
		scenesByID:  make(map[string]*Scene),
		shades:      make(map[string]*Shade),
		shadesByID:  make(map[string]*Shade),
	}
}

// Connect creates a Hub and performs the initial Refresh
func Connect(ctx context.Context, address string, opts ...Option) (*Hub, error) {
	h := New(address, opts...)
	if err := h.Refresh(ctx); err != nil {
		return nil, err
	}
	return h, nil
}

// Address returns the controller address the Hub was created with
func (h *Hub) Address() string {
	return h.address
}

// LastUpdate returns the time of the last successful Refresh
func (h *Hub) LastUpdate() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastUpdate
}

// Refresh requests a snapshot and merges it into the registries.
//
// If the exchange fails or the reply holds no records, Refresh returns an
// error wrapping ErrNoData and leaves registries and positions untouched.
func (h *Hub) Refresh(ctx context.Context) error {
	h.ioMu.Lock()
	reply, err := h.exchange(ctx, protocol.SnapshotRequest())
	h.ioMu.Unlock()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNoData, err)
	}

	snap := protocol.ParseSnapshot(reply)
	if snap.Empty() {
		return fmt.Errorf("%w: snapshot had no records", ErrNoData)
	}

	added, updated := h.apply(snap)

	logging.Debug("Snapshot applied",
		zap.String("addr", h.address),
		zap.Int("added", added),
		zap.Int("positions_updated", updated),
		zap.Int("lines_skipped", snap.Skipped),
	)
	return nil
}

// apply merges a parsed snapshot. Entities are keyed by name; one whose name
// is already registered is left alone, so a shade renamed on the controller
// shows up as a second entry. Id lookups keep the first entity seen with an id.
func (h *Hub) apply(snap *protocol.Snapshot) (added, updated int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	fresh := make(map[string]bool)

	for _, r := range snap.Rooms {
		if _, ok := h.rooms[r.Name]; ok {
			continue
		}
		room := &Room{hub: h, id: r.ID, name: r.Name}
		h.rooms[r.Name] = room
		if _, ok := h.roomsByID[r.ID]; !ok {
			h.roomsByID[r.ID] = room
		}
		added++
	}

	for _, s := range snap.Scenes {
		if _, ok := h.scenes[s.Name]; ok {
			continue
		}
		scene := &Scene{hub: h, id: s.ID, name: s.Name}
		h.scenes[s.Name] = scene
		if _, ok := h.scenesByID[s.ID]; !ok {
			h.scenesByID[s.ID] = scene
		}
		added++
	}

	// a state line only applies to a shade known before it: registered by an
	// earlier snapshot or announced on an earlier line of this one
	announced := make(map[string]int, len(snap.Shades))
	for _, s := range snap.Shades {
		if _, ok := announced[s.ID]; !ok {
			announced[s.ID] = s.Seq
		}
		if _, ok := h.shades[s.Name]; ok {
			continue
		}
		shade := &Shade{hub: h, id: s.ID, name: s.Name, roomID: s.RoomID}
		h.shades[s.Name] = shade
		if _, ok := h.shadesByID[s.ID]; !ok {
			h.shadesByID[s.ID] = shade
			fresh[s.ID] = true
		}
		added++
	}

	for _, st := range snap.States {
		shade, ok := h.shadesByID[st.ShadeID]
		if !ok {
			continue
		}
		if fresh[st.ShadeID] && announced[st.ShadeID] > st.Seq {
			continue
		}
		shade.position = st.Position
		updated++
	}

	h.lastUpdate = time.Now()
	return added, updated
}

// Room returns the room with the given name, or nil
func (h *Hub) Room(name string) *Room {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[name]
}

// RoomByID returns the room with the given id, or nil
func (h *Hub) RoomByID(id string) *Room {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.roomsByID[id]
}

// Scene returns the scene with the given name, or nil
func (h *Hub) Scene(name string) *Scene {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.scenes[name]
}

// SceneByID returns the scene with the given id, or nil
func (h *Hub) SceneByID(id string) *Scene {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.scenesByID[id]
}

// Shade returns the shade with the given name, or nil
func (h *Hub) Shade(name string) *Shade {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.shades[name]
}

// ShadeByID returns the shade with the given id, or nil
func (h *Hub) ShadeByID(id string) *Shade {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.shadesByID[id]
}

// ShadesInRoom returns every shade assigned to roomID, ordered by id then name
func (h *Hub) ShadesInRoom(roomID string) []*Shade {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var shades []*Shade
	for _, s := range h.shades {
		if s.roomID == roomID {
			shades = append(shades, s)
		}
	}
	sortShades(shades)
	return shades
}

// Rooms returns all known rooms ordered by id then name
func (h *Hub) Rooms() []*Room {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rooms := make([]*Room, 0, len(h.rooms))
	for _, r := range h.rooms {
		rooms = append(rooms, r)
	}
	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].id != rooms[j].id {
			return rooms[i].id < rooms[j].id
		}
		return rooms[i].name < rooms[j].name
	})
	return rooms
}

// Scenes returns all known scenes ordered by id then name
func (h *Hub) Scenes() []*Scene {
	h.mu.RLock()
	defer h.mu.RUnlock()

	scenes := make([]*Scene, 0, len(h.scenes))
	for _, s := range h.scenes {
		scenes = append(scenes, s)
	}
	sort.Slice(scenes, func(i, j int) bool {
		if scenes[i].id != scenes[j].id {
			return scenes[i].id < scenes[j].id
		}
		return scenes[i].name < scenes[j].name
	})
	return scenes
}

// Shades returns all known shades ordered by id then name
func (h *Hub) Shades() []*Shade {
	h.mu.RLock()
	defer h.mu.RUnlock()

	shades := make([]*Shade, 0, len(h.shades))
	for _, s := range h.shades {
		shades = append(shades, s)
	}
	sortShades(shades)
	return shades
}

func sortShades(shades []*Shade) {
	sort.Slice(shades, func(i, j int) bool {
		if shades[i].id != shades[j].id {
			return shades[i].id < shades[j].id
		}
		return shades[i].name < shades[j].name
	})
}

// SendRaw performs one exchange: payload is written as-is and the reply is
// read up to and including sentinel.
func (h *Hub) SendRaw(ctx context.Context, payload, sentinel string) (string, error) {
	h.ioMu.Lock()
	defer h.ioMu.Unlock()
	return h.exchange(ctx, protocol.Request{Payload: payload, Sentinel: sentinel})
}

// exchange sends req. Callers hold h.ioMu.
func (h *Hub) exchange(ctx context.Context, req protocol.Request) (string, error) {
	return h.exchanger.Exchange(ctx, req)
}

// RunScene asks the controller to execute scene. The controller gives no
// feedback beyond its acknowledgement; positions change on the next Refresh.
func (h *Hub) RunScene(ctx context.Context, scene *Scene) (string, error) {
	req, err := protocol.BuildRunScene(scene.id)
	if err != nil {
		return "", err
	}

	h.ioMu.Lock()
	defer h.ioMu.Unlock()

	reply, err := h.exchange(ctx, req)
	if err != nil {
		return "", fmt.Errorf("run scene %q: %w", scene.name, err)
	}

	logging.Info("Scene executed",
		zap.String("addr", h.address),
		zap.String("scene", scene.name),
		zap.String("scene_id", scene.id),
	)
	return reply, nil
}

// Ping reports whether the controller answers a liveness check within the
// configured timeout
func (h *Hub) Ping(ctx context.Context) bool {
	h.ioMu.Lock()
	defer h.ioMu.Unlock()

	if p, ok := h.exchanger.(pinger); ok {
		conn, err := p.Dial(ctx)
		if err != nil {
			logging.Debug("Ping dial failed", zap.String("addr", h.address), zap.Error(err))
			return false
		}
		defer conn.Close()
		return p.IsAlive(ctx, conn)
	}

	_, err := h.exchange(ctx, protocol.PingRequest())
	return err == nil
}

// Stats returns the transport counters, or false if the exchanger keeps none
func (h *Hub) Stats() (transport.Stats, bool) {
	sr, ok := h.exchanger.(statsReporter)
	if !ok {
		return transport.Stats{}, false
	}
	return sr.Stats(), true
}

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
