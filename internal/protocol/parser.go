package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Record tags found at the start of each snapshot line (after the prefix)
const (
	TagRoom  = "$cr"
	TagScene = "$cm"
	TagShade = "$cs"
	TagState = "$cp"
)

const (
	// PrefixLength is the width of the sequence marker repeated on every snapshot line
	PrefixLength = 2

	// minRecordLength covers the tag plus a two-character id
	minRecordLength = len(TagRoom) + idLength

	fieldDelimiter = "-"
)

// RoomRecord is a room as announced by the controller
type RoomRecord struct {
	ID   string
	Name string
}

func (r RoomRecord) String() string {
	return fmt.Sprintf("Room{id=%s, name=%q}", r.ID, r.Name)
}

// SceneRecord is a stored scene as announced by the controller
type SceneRecord struct {
	ID   string
	Name string
}

func (s SceneRecord) String() string {
	return fmt.Sprintf("Scene{id=%s, name=%q}", s.ID, s.Name)
}

// ShadeRecord is a shade and the room it belongs to.
// Seq is the index of the record's line within the snapshot.
type ShadeRecord struct {
	ID     string
	Name   string
	RoomID string
	Seq    int
}

func (s ShadeRecord) String() string {
	return fmt.Sprintf("Shade{id=%s, name=%q, room=%s}", s.ID, s.Name, s.RoomID)
}

// StateRecord is a reported shade position on the raw 0-255 scale.
// Seq is the index of the record's line within the snapshot; a state line
// only applies to shades known before it.
type StateRecord struct {
	ShadeID  string
	Position int
	Seq      int
}

func (s StateRecord) String() string {
	return fmt.Sprintf("State{shade=%s, position=%d}", s.ShadeID, s.Position)
}

// Snapshot is the decoded form of a "$dat" response.
// Records keep the order in which they appeared on the wire.
type Snapshot struct {
	Prefix  string
	Rooms   []RoomRecord
	Scenes  []SceneRecord
	Shades  []ShadeRecord
	States  []StateRecord
	Skipped int // lines dropped for a wrong prefix, unknown tag, or bad fields
}

// Empty reports whether the snapshot carried no usable records
func (s *Snapshot) Empty() bool {
	return len(s.Rooms) == 0 && len(s.Scenes) == 0 && len(s.Shades) == 0 && len(s.States) == 0
}

// String returns a debug summary of the snapshot
func (s *Snapshot) String() string {
	return fmt.Sprintf("Snapshot{prefix=%q, rooms=%d, scenes=%d, shades=%d, states=%d, skipped=%d}",
		s.Prefix, len(s.Rooms), len(s.Scenes), len(s.Shades), len(s.States), s.Skipped)
}

// ParseSnapshot decodes a raw snapshot response. It never fails: lines that
// do not carry the prefix established by the first non-empty line, lines
// with an unknown tag, and records with malformed fields are counted in
// Skipped and otherwise ignored. A first line shorter than PrefixLength
// still sets the prefix.
func ParseSnapshot(raw string) *Snapshot {
	snap := &Snapshot{}

	lines := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '\n' || r == '\r'
	})

	havePrefix := false
	for seq, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if !havePrefix {
			snap.Prefix = line[:min(len(line), PrefixLength)]
			havePrefix = true
		} else if !strings.HasPrefix(line, snap.Prefix) {
			snap.Skipped++
			continue
		}

		if !snap.parseRecord(line[len(snap.Prefix):], seq) {
			snap.Skipped++
		}
	}

	return snap
}

// parseRecord dispatches one prefix-stripped line by tag.
// Returns false if the line was not recognised.
func (s *Snapshot) parseRecord(line string, seq int) bool {
	if len(line) < minRecordLength {
		return false
	}

	tag := line[:len(TagRoom)]
	id := line[len(TagRoom):minRecordLength]
	if validateID(id) != nil {
		return false
	}

	switch tag {
	case TagRoom:
		name := lastField(line)
		if name == "" {
			return false
		}
		s.Rooms = append(s.Rooms, RoomRecord{ID: id, Name: name})

	case TagScene:
		name := lastField(line)
		if name == "" {
			return false
		}
		s.Scenes = append(s.Scenes, SceneRecord{ID: id, Name: name})

	case TagShade:
		parts := strings.Split(line, fieldDelimiter)
		if len(parts) < 2 {
			return false
		}
		name := strings.TrimSpace(parts[len(parts)-1])
		if name == "" {
			return false
		}
		s.Shades = append(s.Shades, ShadeRecord{
			ID:     id,
			Name:   name,
			RoomID: strings.TrimSpace(parts[1]),
			Seq:    seq,
		})

	case TagState:
		position, ok := parsePosition(line)
		if !ok {
			return false
		}
		s.States = append(s.States, StateRecord{ShadeID: id, Position: position, Seq: seq})

	default:
		return false
	}

	return true
}

// lastField returns the trimmed text after the last delimiter
func lastField(line string) string {
	idx := strings.LastIndex(line, fieldDelimiter)
	return strings.TrimSpace(line[idx+1:])
}

// parsePosition reads the three digits that precede the final character of
// a state record, e.g. "128" from "$cp03-04-128-".
func parsePosition(line string) (int, bool) {
	// tag + id + at least one separator + three digits + trailing delimiter
	if len(line) < minRecordLength+5 {
		return 0, false
	}

	field := strings.TrimSpace(line[len(line)-4 : len(line)-1])
	value, err := strconv.Atoi(field)
	if err != nil || value < 0 {
		return 0, false
	}
	if value > RawMax {
		value = RawMax
	}
	return value, true
}
