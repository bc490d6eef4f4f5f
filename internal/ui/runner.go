package ui

import (
	"fmt"
	"io"
	"os"
	"time"
)

// RunnerConfig describes a multi-step command
type RunnerConfig struct {
	Title      string  // e.g., "Move Shade"
	Command    string  // e.g., "platinum shade Kitchen 50"
	Params     []Param // shown in the header
	TotalSteps int
	Output     io.Writer // default: os.Stdout
}

// Operation does the work of a command, reporting each step through onStep.
// The returned details are shown in the result box. A non-empty warning turns
// the success box into a warning box.
type Operation func(onStep StepCallback) (details []Param, warning string, err error)

// Runner prints a header, streams step lines while the operation runs, and
// finishes with a result box
type Runner struct {
	config   RunnerConfig
	progress *Progress
	output   io.Writer
	width    int

	// Troubleshooting supplies tips for a failure box
	Troubleshooting func(err error) []string
}

// NewRunner creates a runner for config
func NewRunner(config RunnerConfig) *Runner {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	width := GetTerminalWidth()

	var p *Progress
	if config.TotalSteps > 0 {
		p = NewProgress(config.TotalSteps)
		p.SetWidth(width)
	}

	return &Runner{config: config, progress: p, output: config.Output, width: width}
}

// SetWidth overrides the terminal width
func (r *Runner) SetWidth(width int) *Runner {
	r.width = width
	if r.progress != nil {
		r.progress.SetWidth(width)
	}
	return r
}

// Progress returns the runner's step display, or nil for a single-step command
func (r *Runner) Progress() *Progress {
	return r.progress
}

// Run executes op with UI updates and returns its error
func (r *Runner) Run(op Operation) error {
	start := time.Now()

	header := NewHeader(r.config.Title, r.config.Command, r.config.Params...).SetWidth(r.width)
	_, _ = fmt.Fprintln(r.output, header.Render())
	_, _ = fmt.Fprintln(r.output)

	details, warning, err := op(r.onStep)
	details = append(details, Param{Key: "Duration", Value: time.Since(start).Round(time.Millisecond).String()})

	_, _ = fmt.Fprintln(r.output)

	var result *Result
	switch {
	case err != nil:
		var tips []string
		if r.Troubleshooting != nil {
			tips = r.Troubleshooting(err)
		}
		result = NewFailureResult(r.config.Title+" failed", err, tips)
	case warning != "":
		result = NewWarningResult(warning, details...)
	default:
		result = NewSuccessResult(r.config.Title+" complete", details...)
	}
	_, _ = fmt.Fprintln(r.output, result.SetWidth(r.width).Render())

	return err
}

// onStep records a step and prints its line. Running steps end in a carriage
// return so the final status overwrites them.
func (r *Runner) onStep(stepNumber int, name string, status StepStatus, message string) {
	if r.progress == nil {
		return
	}
	r.progress.UpdateStep(stepNumber, name, status, message)

	step, ok := r.progress.Step(stepNumber)
	if !ok {
		return
	}
	line := r.progress.RenderStepLine(step)
	if status == StepRunning {
		_, _ = fmt.Fprint(r.output, line+"\r")
		return
	}
	_, _ = fmt.Fprintln(r.output, line)
}
