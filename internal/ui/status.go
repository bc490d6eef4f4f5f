package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// RoomRow is a room in the status listing
type RoomRow struct {
	ID   string
	Name string
}

// SceneRow is a scene in the status listing
type SceneRow struct {
	ID   string
	Name string
}

// ShadeRow is a shade in the status listing. Position is on the raw
// 0-255 scale.
type ShadeRow struct {
	ID       string
	Name     string
	RoomID   string
	Position int
}

// Percent returns the position as a rounded percentage
func (s ShadeRow) Percent() int {
	return (s.Position*100 + 127) / 255
}

// StatusView is everything the status command shows
type StatusView struct {
	Hub     string
	Address string
	Updated time.Time
	Rooms   []RoomRow
	Scenes  []SceneRow
	Shades  []ShadeRow
}

// shadesIn returns the shades whose room is roomID
func (v StatusView) shadesIn(roomID string) []ShadeRow {
	var out []ShadeRow
	for _, s := range v.Shades {
		if s.RoomID == roomID {
			out = append(out, s)
		}
	}
	return out
}

// orphans returns shades whose room was never announced
func (v StatusView) orphans() []ShadeRow {
	known := make(map[string]bool, len(v.Rooms))
	for _, r := range v.Rooms {
		known[r.ID] = true
	}
	var out []ShadeRow
	for _, s := range v.Shades {
		if !known[s.RoomID] {
			out = append(out, s)
		}
	}
	return out
}

// positionMarker picks the open, closed, or partial marker
func positionMarker(position int) string {
	switch position {
	case 255:
		return StepCompleteStyle.Render(OpenMarker)
	case 0:
		return StepPendingStyle.Render(ClosedMarker)
	default:
		return StepRunningStyle.Render(PartialMarker)
	}
}

// RenderStatusDetailed renders shades grouped by room with a position bar
// for each, followed by the scene list
func RenderStatusDetailed(v StatusView, width int) string {
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	barWidth := width - 60
	if barWidth < 10 {
		barWidth = 10
	}
	if barWidth > 30 {
		barWidth = 30
	}
	bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth), progress.WithoutPercentage())

	var b strings.Builder
	header := NewHeader("Platinum Status", v.Address, statusParams(v)...).SetWidth(width)
	b.WriteString(header.Render())
	b.WriteString("\n\n")

	shadeLine := func(s ShadeRow) string {
		name := NameStyle.Render(fmt.Sprintf("%-24s", truncate(s.Name, 24)))
		return fmt.Sprintf("    %s %s %s  %s %s",
			positionMarker(s.Position),
			IDStyle.Render(s.ID),
			name,
			bar.ViewAs(float64(s.Position)/255),
			StepNoteStyle.Render(fmt.Sprintf("%3d%% (%d)", s.Percent(), s.Position)),
		)
	}

	for _, room := range v.Rooms {
		b.WriteString(SectionTitleStyle.Render(room.Name))
		b.WriteString(" " + IDStyle.Render(room.ID) + "\n")
		shades := v.shadesIn(room.ID)
		if len(shades) == 0 {
			b.WriteString(StepNoteStyle.Render("    no shades") + "\n")
		}
		for _, s := range shades {
			b.WriteString(shadeLine(s) + "\n")
		}
		b.WriteString("\n")
	}

	if orphans := v.orphans(); len(orphans) > 0 {
		b.WriteString(SectionTitleStyle.Render("Unassigned") + "\n")
		for _, s := range orphans {
			b.WriteString(shadeLine(s) + "\n")
		}
		b.WriteString("\n")
	}

	if len(v.Scenes) > 0 {
		b.WriteString(SectionTitleStyle.Render("Scenes") + "\n")
		for _, sc := range v.Scenes {
			b.WriteString(fmt.Sprintf("    %s %s\n", IDStyle.Render(sc.ID), NameStyle.Render(sc.Name)))
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// RenderStatusCompact renders one plain line per shade, suitable for scripts
func RenderStatusCompact(v StatusView) string {
	rooms := make(map[string]string, len(v.Rooms))
	for _, r := range v.Rooms {
		rooms[r.ID] = r.Name
	}

	lines := make([]string, 0, len(v.Shades))
	for _, s := range v.Shades {
		room := rooms[s.RoomID]
		if room == "" {
			room = "-"
		}
		lines = append(lines, fmt.Sprintf("%s\t%s\t%s\t%d\t%d%%", s.ID, s.Name, room, s.Position, s.Percent()))
	}
	return strings.Join(lines, "\n")
}

func statusParams(v StatusView) []Param {
	params := []Param{}
	if v.Hub != "" {
		params = append(params, Param{Key: "Hub", Value: v.Hub})
	}
	params = append(params,
		Param{Key: "Rooms", Value: fmt.Sprint(len(v.Rooms))},
		Param{Key: "Shades", Value: fmt.Sprint(len(v.Shades))},
		Param{Key: "Scenes", Value: fmt.Sprint(len(v.Scenes))},
	)
	if !v.Updated.IsZero() {
		params = append(params, Param{Key: "Updated", Value: v.Updated.Format(time.TimeOnly)})
	}
	return params
}

func truncate(s string, n int) string {
	if lipgloss.Width(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) > n-1 {
		r = r[:n-1]
	}
	return string(r) + "…"
}
