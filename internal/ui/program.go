package ui

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
)

// RunOnceModel is a Bubble Tea model that renders once and exits
type RunOnceModel struct {
	content string
	width   int
	height  int
}

// NewRunOnceModel creates a model that will render content and exit
func NewRunOnceModel(content string) RunOnceModel {
	width, height := GetTerminalSize()
	return RunOnceModel{content: content, width: width, height: height}
}

// Init implements tea.Model
func (m RunOnceModel) Init() tea.Cmd {
	return tea.Quit
}

// Update implements tea.Model
func (m RunOnceModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if size, ok := msg.(tea.WindowSizeMsg); ok {
		m.width, m.height = clampWidth(size.Width), size.Height
	}
	return m, nil
}

// View implements tea.Model
func (m RunOnceModel) View() string {
	return m.content + "\n"
}

// RenderOnce renders content through Bubble Tea when w is a terminal and
// prints it directly otherwise
func RenderOnce(w io.Writer, content string) error {
	if !IsTerminal(w) {
		_, err := fmt.Fprintln(w, content)
		return err
	}

	p := tea.NewProgram(NewRunOnceModel(content), tea.WithOutput(w), tea.WithInput(nil))
	_, err := p.Run()
	return err
}

// Printer writes UI components to a writer
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a Printer for w (os.Stdout if nil)
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{out: w, width: GetTerminalWidth()}
}

func (p *Printer) println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// PrintHeader prints a command header box
func (p *Printer) PrintHeader(title, command string, params ...Param) {
	p.println(NewHeader(title, command, params...).SetWidth(p.width).Render())
	p.println("")
}

// PrintSuccess prints a success box
func (p *Printer) PrintSuccess(title string, details ...Param) {
	p.println(NewSuccessResult(title, details...).SetWidth(p.width).Render())
}

// PrintError prints a failure box with troubleshooting tips
func (p *Printer) PrintError(title string, err error, troubleshooting []string) {
	p.println(NewFailureResult(title, err, troubleshooting).SetWidth(p.width).Render())
}
