// Package ui renders terminal output for the platinum CLI.
//
// Output follows a "run once and exit" pattern built on Lip Gloss and
// Bubble Tea: nothing here waits for keyboard input.
//
// Components:
//
//   - Header: command banner with ordered parameters
//   - Progress: step list (one step per move attempt) and position bar
//   - Result: success, warning, and failure boxes
//   - Runner: header, streamed steps, and result for one command
//   - Status: rooms, shades, and scenes in detailed or compact form
//
// Example:
//
//	runner := ui.NewRunner(ui.RunnerConfig{
//	    Title:      "Move Shade",
//	    Command:    "platinum shade Kitchen 50",
//	    Params:     []ui.Param{{Key: "Hub", Value: "192.168.1.50"}},
//	    TotalSteps: 3,
//	})
//	err := runner.Run(func(onStep ui.StepCallback) ([]ui.Param, string, error) {
//	    onStep(1, "Attempt 1", ui.StepRunning, "")
//	    // ...
//	    onStep(1, "Attempt 1", ui.StepComplete, "position 128")
//	    return nil, "", nil
//	})
//
// Logging is controlled separately through PLATINUM_LOG_LEVEL; when unset
// zap is silent and only this package writes to the terminal.
package ui
