package hub

import (
	"errors"
	"math"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		kind    LevelKind
		raw     int
		percent int
	}{
		{"up", KindUp, 255, 100},
		{"down", KindDown, 0, 0},
		{"0", KindPercent, 0, 0},
		{"1", KindPercent, 3, 1},
		{"30", KindPercent, 77, 30},
		{"50", KindPercent, 128, 50},
		{"99", KindPercent, 252, 99},
		{"100", KindPercent, 255, 100},
		{"007", KindPercent, 18, 7},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := ParseLevel(tt.input)
			if err != nil {
				t.Fatalf("ParseLevel(%q) error = %v", tt.input, err)
			}
			if level.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", level.Kind, tt.kind)
			}
			if level.Raw() != tt.raw {
				t.Errorf("Raw() = %d, want %d", level.Raw(), tt.raw)
			}
			if level.Percent != tt.percent {
				t.Errorf("Percent = %d, want %d", level.Percent, tt.percent)
			}
		})
	}
}

func TestParseLevel_Invalid(t *testing.T) {
	inputs := []string{"", "UP", "Down", "-5", "+5", "50.5", "101", "256", "abc", " 50", "50%"}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := ParseLevel(input)
			if !errors.Is(err, ErrInvalidTarget) {
				t.Errorf("ParseLevel(%q) error = %v, want ErrInvalidTarget", input, err)
			}
		})
	}
}

func TestPercentToRaw(t *testing.T) {
	for p := 0; p <= 100; p++ {
		want := int(math.Round(float64(p) * 255 / 100))
		if got := PercentToRaw(p); got != want {
			t.Errorf("PercentToRaw(%d) = %d, want %d", p, got, want)
		}
		// integer form of the same rounding, halves go up
		if got, want := PercentToRaw(p), (p*255*2+100)/200; got != want {
			t.Errorf("PercentToRaw(%d) = %d, want %d", p, got, want)
		}
	}

	tests := []struct {
		percent int
		want    int
	}{
		{0, 0},
		{1, 3},
		{10, 26},
		{30, 77},
		{50, 128},
		{99, 252},
		{100, 255},
	}
	for _, tt := range tests {
		if got := PercentToRaw(tt.percent); got != tt.want {
			t.Errorf("PercentToRaw(%d) = %d, want %d", tt.percent, got, tt.want)
		}
	}
}

func TestLevel_Matches(t *testing.T) {
	tests := []struct {
		target   string
		position int
		want     bool
	}{
		{"up", 255, true},
		{"up", 254, false},
		{"down", 0, true},
		{"down", 1, false},
		{"50", 128, true},
		{"50", 127, true},
		{"50", 129, true},
		{"50", 126, false},
		{"50", 130, false},
		{"0", 1, true},
		{"100", 254, true},
	}

	for _, tt := range tests {
		level, err := ParseLevel(tt.target)
		if err != nil {
			t.Fatalf("ParseLevel(%q) error = %v", tt.target, err)
		}
		if got := level.Matches(tt.position); got != tt.want {
			t.Errorf("ParseLevel(%q).Matches(%d) = %v, want %v", tt.target, tt.position, got, tt.want)
		}
	}
}

func TestLevel_String(t *testing.T) {
	tests := map[string]string{
		"up":   "up",
		"down": "down",
		"42":   "42%",
	}
	for input, want := range tests {
		level, _ := ParseLevel(input)
		if got := level.String(); got != want {
			t.Errorf("ParseLevel(%q).String() = %q, want %q", input, got, want)
		}
	}
}
