package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Param is one labelled value in a header or result box.
// Slices of Param keep the order the caller chose.
type Param struct {
	Key   string
	Value string
}

// Header is the banner printed before a command runs
type Header struct {
	Title   string  // e.g., "MOVE SHADE"
	Command string  // e.g., "platinum shade 'Bay Window' 50"
	Params  []Param // e.g., Hub, Target
	Width   int
}

// NewHeader creates a header sized to the terminal
func NewHeader(title, command string, params ...Param) *Header {
	return &Header{
		Title:   title,
		Command: command,
		Params:  params,
		Width:   GetTerminalWidth(),
	}
}

// SetWidth sets the width used for rendering
func (h *Header) SetWidth(width int) *Header {
	h.Width = width
	return h
}

// Render returns the styled header
func (h *Header) Render() string {
	width := h.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	top := lipgloss.JoinVertical(lipgloss.Left,
		HeaderTitleStyle.Render(strings.ToUpper(h.Title)),
		HeaderCommandStyle.Render(h.Command),
	)
	if len(h.Params) == 0 {
		return HeaderBorderStyle(width).Render(top)
	}

	dividerWidth := width - 6
	if dividerWidth < 10 {
		dividerWidth = 10
	}
	divider := RenderHorizontalDivider(dividerWidth, "─")

	keyWidth := 0
	for _, p := range h.Params {
		if len(p.Key) > keyWidth {
			keyWidth = len(p.Key)
		}
	}

	lines := make([]string, 0, len(h.Params))
	for _, p := range h.Params {
		key := HeaderParamKeyStyle.Render(p.Key + ":" + strings.Repeat(" ", keyWidth-len(p.Key)))
		lines = append(lines, key+" "+HeaderParamValueStyle.Render(p.Value))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, top, divider, strings.Join(lines, "\n"))
	return HeaderBorderStyle(width).Render(content)
}

// String implements fmt.Stringer
func (h *Header) String() string {
	return h.Render()
}
