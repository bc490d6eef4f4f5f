package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// StepStatus is the state of one step of a multi-step operation
type StepStatus int

const (
	StepPending StepStatus = iota
	StepRunning
	StepComplete
	StepFailed
	StepSkipped
)

// Step is a single line in a progress display
type Step struct {
	Number  int
	Name    string
	Status  StepStatus
	Message string // e.g., "position 128"
}

// StepCallback reports progress of a step. Names may be set on first report.
type StepCallback func(stepNumber int, name string, status StepStatus, message string)

// Progress is a step list with an optional bar. A move shows one step per
// attempt and a bar for the shade position.
type Progress struct {
	Steps []Step
	Total int
	Width int
	bar   progress.Model
}

// NewProgress creates a display with totalSteps pending steps
func NewProgress(totalSteps int) *Progress {
	steps := make([]Step, totalSteps)
	for i := range steps {
		steps[i] = Step{Number: i + 1, Status: StepPending}
	}

	p := &Progress{Steps: steps, Total: totalSteps}
	p.SetWidth(GetTerminalWidth())
	return p
}

// SetWidth sets the display width and resizes the bar to fit
func (p *Progress) SetWidth(width int) *Progress {
	p.Width = width

	barWidth := width - 20
	if barWidth < 20 {
		barWidth = 20
	}
	if barWidth > 50 {
		barWidth = 50
	}
	p.bar = progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(barWidth),
	)
	return p
}

// UpdateStep sets a step's status. Out-of-range steps are ignored.
func (p *Progress) UpdateStep(stepNumber int, name string, status StepStatus, message string) {
	if stepNumber < 1 || stepNumber > len(p.Steps) {
		return
	}
	step := &p.Steps[stepNumber-1]
	if name != "" {
		step.Name = name
	}
	step.Status = status
	step.Message = message
}

// Step returns step n (1-based)
func (p *Progress) Step(n int) (Step, bool) {
	if n < 1 || n > len(p.Steps) {
		return Step{}, false
	}
	return p.Steps[n-1], true
}

// Render returns the full step list
func (p *Progress) Render() string {
	lines := make([]string, 0, len(p.Steps))
	for _, step := range p.Steps {
		lines = append(lines, p.RenderStepLine(step))
	}
	return strings.Join(lines, "\n")
}

// RenderBar renders fraction (0.0-1.0) as a bar with a percentage label
func (p *Progress) RenderBar(fraction float64, label string) string {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	line := fmt.Sprintf("%s  %3.0f%%", p.bar.ViewAs(fraction), fraction*100)
	if label != "" {
		line += "  " + StepNoteStyle.Render(label)
	}
	return lipgloss.NewStyle().PaddingLeft(2).Render(line)
}

// RenderStepLine renders a single step
func (p *Progress) RenderStepLine(step Step) string {
	var marker string
	var style lipgloss.Style

	switch step.Status {
	case StepComplete:
		marker, style = StepMarkerComplete, StepCompleteStyle
	case StepRunning:
		marker, style = StepMarkerRunning, StepRunningStyle
	case StepFailed:
		marker, style = FailureMarker, ErrorTitleStyle
	case StepSkipped:
		marker, style = StepMarkerSkipped, StepPendingStyle
	default:
		marker, style = StepMarkerPending, StepPendingStyle
	}

	var b strings.Builder
	fmt.Fprintf(&b, "  [%d/%d] ", step.Number, p.Total)
	b.WriteString(style.Render(step.Name))

	padding := 45 - lipgloss.Width(step.Name)
	if padding < 1 {
		padding = 1
	}
	b.WriteString(strings.Repeat(" ", padding))
	b.WriteString(style.Render(marker))

	if step.Message != "" {
		b.WriteString("  ")
		b.WriteString(StepNoteStyle.Render("(" + step.Message + ")"))
	}
	return b.String()
}

// String implements fmt.Stringer
func (p *Progress) String() string {
	return p.Render()
}
