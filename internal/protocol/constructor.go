package protocol

import (
	"fmt"
	"time"
)

// Connection defaults for the controller
const (
	// DefaultPort is the TCP port the controller listens on
	DefaultPort = 522

	// DefaultTimeout bounds every connect, read, and write
	DefaultTimeout = 10 * time.Second

	// Banner is the literal the controller prints on connect before it accepts requests
	Banner = "Shade Controller"
)

// Command codes
const (
	CmdSnapshot = "$dat"
	CmdPing     = "$dmy"
	CmdMove     = "$pss"
	CmdRelease  = "$rls"
	CmdRunScene = "$inm"
)

// Response sentinels
const (
	SentinelSnapshot = "upd01-"
	SentinelAck      = "ack"
	SentinelDone     = "done"
	SentinelAction   = "act00-00-"
)

// Raw position bounds
const (
	RawMin = 0
	RawMax = 255

	// moveField is the fixed second field of a move command
	moveField = "04"

	// idLength is the width of room, scene, and shade ids on the wire
	idLength = 2
)

// Request is a single request/response exchange: the bytes to send and the
// literal that marks the end of the reply.
type Request struct {
	Payload  string
	Sentinel string
}

// String returns a debug representation of the request
func (r Request) String() string {
	return fmt.Sprintf("Request{payload=%q, sentinel=%q}", r.Payload, r.Sentinel)
}

// SnapshotRequest asks for the full room/scene/shade inventory and positions
func SnapshotRequest() Request {
	return Request{Payload: CmdSnapshot, Sentinel: SentinelSnapshot}
}

// PingRequest is the liveness check
func PingRequest() Request {
	return Request{Payload: CmdPing, Sentinel: SentinelAck}
}

// ReleaseRequest commits a preceding move
func ReleaseRequest() Request {
	return Request{Payload: CmdRelease, Sentinel: SentinelAction}
}

// BuildMove constructs the position command for a shade.
//
// Format: $pss{id}-04-{raw:03d}, e.g. "$pss03-04-128" for shade 03 at raw 128.
// The move must be followed by ReleaseRequest for the controller to act on it.
func BuildMove(shadeID string, raw int) (Request, error) {
	if err := validateID(shadeID); err != nil {
		return Request{}, fmt.Errorf("invalid shade id: %w", err)
	}
	if raw < RawMin || raw > RawMax {
		return Request{}, fmt.Errorf("raw value %d out of range [%d, %d]", raw, RawMin, RawMax)
	}

	return Request{
		Payload:  fmt.Sprintf("%s%s-%s-%03d", CmdMove, shadeID, moveField, raw),
		Sentinel: SentinelDone,
	}, nil
}

// BuildRunScene constructs the "invoke mode" command for a scene.
//
// Format: $inm{id}-, e.g. "$inm02-".
func BuildRunScene(sceneID string) (Request, error) {
	if err := validateID(sceneID); err != nil {
		return Request{}, fmt.Errorf("invalid scene id: %w", err)
	}

	return Request{
		Payload:  fmt.Sprintf("%s%s-", CmdRunScene, sceneID),
		Sentinel: SentinelAction,
	}, nil
}

func validateID(id string) error {
	if len(id) != idLength {
		return fmt.Errorf("id %q must be %d characters", id, idLength)
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return fmt.Errorf("id %q must be numeric", id)
		}
	}
	return nil
}
