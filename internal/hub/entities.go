package hub

import (
	"context"
	"fmt"
)

// Room is a room configured on the controller.
// Rooms are created by Refresh and never removed.
type Room struct {
	hub  *Hub
	id   string
	name string
}

// ID returns the controller's two-digit room id
func (r *Room) ID() string { return r.id }

// Name returns the room name
func (r *Room) Name() string { return r.name }

// Shades returns the shades assigned to this room, ordered by id
func (r *Room) Shades() []*Shade {
	return r.hub.ShadesInRoom(r.id)
}

func (r *Room) String() string {
	return fmt.Sprintf("Room{id=%s, name=%q}", r.id, r.name)
}

// Scene is a stored set of shade positions. Running it is fire-and-forget;
// the controller reports no scene state.
type Scene struct {
	hub  *Hub
	id   string
	name string
}

// ID returns the controller's two-digit scene id
func (s *Scene) ID() string { return s.id }

// Name returns the scene name
func (s *Scene) Name() string { return s.name }

// Run asks the controller to execute the scene and returns its reply
func (s *Scene) Run(ctx context.Context) (string, error) {
	return s.hub.RunScene(ctx, s)
}

func (s *Scene) String() string {
	return fmt.Sprintf("Scene{id=%s, name=%q}", s.id, s.name)
}

// Shade is a motorised window covering.
//
// Position is a cached copy of the controller's last report on the 0-255
// scale (0 closed, 255 open). Only Refresh writes it; a move command does
// not update it until the next snapshot confirms the new position.
type Shade struct {
	hub    *Hub
	id     string
	name   string
	roomID string

	position int // guarded by hub.mu
}

// ID returns the controller's two-digit shade id
func (s *Shade) ID() string { return s.id }

// Name returns the shade name
func (s *Shade) Name() string { return s.name }

// RoomID returns the id of the room the shade belongs to
func (s *Shade) RoomID() string { return s.roomID }

// Room returns the shade's room, or nil if the controller never announced it
func (s *Shade) Room() *Room {
	return s.hub.RoomByID(s.roomID)
}

// Position returns the cached raw position
func (s *Shade) Position() int {
	s.hub.mu.RLock()
	defer s.hub.mu.RUnlock()
	return s.position
}

// Percent returns the cached position as a rounded percentage
func (s *Shade) Percent() int {
	return (s.Position()*100 + 127) / 255
}

// IsUp reports whether the shade was fully open at the last refresh
func (s *Shade) IsUp() bool {
	return s.matches(Level{Kind: KindUp, raw: 255})
}

// IsDown reports whether the shade was fully closed at the last refresh
func (s *Shade) IsDown() bool {
	return s.matches(Level{Kind: KindDown, raw: 0})
}

// IsLevel reports whether the cached position satisfies target, using the
// same test the control loop uses to decide convergence. An invalid target
// is never satisfied.
func (s *Shade) IsLevel(target string) bool {
	level, err := ParseLevel(target)
	if err != nil {
		return false
	}
	return s.matches(level)
}

func (s *Shade) matches(level Level) bool {
	return level.Matches(s.Position())
}

// Open moves the shade fully up
func (s *Shade) Open(ctx context.Context, opts ...SetLevelOption) (*MoveResult, error) {
	return s.SetLevel(ctx, LevelUp, opts...)
}

// Close moves the shade fully down
func (s *Shade) Close(ctx context.Context, opts ...SetLevelOption) (*MoveResult, error) {
	return s.SetLevel(ctx, LevelDown, opts...)
}

func (s *Shade) String() string {
	return fmt.Sprintf("Shade{id=%s, name=%q, room=%s, position=%d}", s.id, s.name, s.roomID, s.Position())
}
