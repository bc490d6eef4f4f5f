package hub

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/muurk/platinum/internal/protocol"
)

// Symbolic targets
const (
	LevelUp   = "up"
	LevelDown = "down"
)

// levelTolerance is the exclusive bound on |position - target| for a
// percentage target to count as reached
const levelTolerance = 2

// LevelKind distinguishes symbolic and percentage targets
type LevelKind int

const (
	KindUp LevelKind = iota
	KindDown
	KindPercent
)

// Level is a parsed shade target
type Level struct {
	Kind    LevelKind
	Percent int // 0-100, only meaningful for KindPercent
	raw     int
}

// ParseLevel parses "up", "down", or a whole percentage such as "50".
// Anything else, including signs, decimals, and values above 100, is
// ErrInvalidTarget.
func ParseLevel(s string) (Level, error) {
	switch s {
	case LevelUp:
		return Level{Kind: KindUp, Percent: 100, raw: protocol.RawMax}, nil
	case LevelDown:
		return Level{Kind: KindDown, Percent: 0, raw: protocol.RawMin}, nil
	}

	if s == "" || strings.TrimLeft(s, "0123456789") != "" {
		return Level{}, fmt.Errorf("%w: %q (use up, down, or 0-100)", ErrInvalidTarget, s)
	}
	percent, err := strconv.Atoi(s)
	if err != nil || percent > 100 {
		return Level{}, fmt.Errorf("%w: %q (use up, down, or 0-100)", ErrInvalidTarget, s)
	}

	return Level{Kind: KindPercent, Percent: percent, raw: PercentToRaw(percent)}, nil
}

// PercentToRaw converts a percentage to the controller's 0-255 scale,
// rounding half away from zero and clamping to [0, 255].
func PercentToRaw(percent int) int {
	raw := int(math.Round(float64(percent) * float64(protocol.RawMax) / 100))
	if raw < protocol.RawMin {
		return protocol.RawMin
	}
	if raw > protocol.RawMax {
		return protocol.RawMax
	}
	return raw
}

// Raw returns the 0-255 value sent in the move command
func (l Level) Raw() int {
	return l.raw
}

// Matches reports whether a cached position satisfies the target.
// Symbolic targets need an exact end stop; percentages allow ±1.
func (l Level) Matches(position int) bool {
	switch l.Kind {
	case KindUp:
		return position == protocol.RawMax
	case KindDown:
		return position == protocol.RawMin
	default:
		diff := position - l.raw
		if diff < 0 {
			diff = -diff
		}
		return diff < levelTolerance
	}
}

// String returns the target as the user would type it
func (l Level) String() string {
	switch l.Kind {
	case KindUp:
		return LevelUp
	case KindDown:
		return LevelDown
	default:
		return strconv.Itoa(l.Percent) + "%"
	}
}
