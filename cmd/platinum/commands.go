package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/platinum/internal/config"
	"github.com/muurk/platinum/internal/hub"
	"github.com/muurk/platinum/internal/logging"
	"github.com/muurk/platinum/internal/protocol"
	"github.com/muurk/platinum/internal/transport"
	"github.com/muurk/platinum/internal/ui"
)

// Global flags
var (
	configPath   string
	hubName      string
	hubAddress   string
	hubPort      int
	hubTimeout   time.Duration
	outputFormat string
	logLevel     string
	capturePath  string
)

var (
	// cfg is loaded once in setup
	cfg *config.Config

	// capture receives exchange records when --capture is set
	capture *os.File
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/platinum/config.yaml)")
	flags.StringVar(&hubName, "hub", "", "Hub name from the config file")
	flags.StringVar(&hubAddress, "address", "", "Bridge address (overrides --hub)")
	flags.IntVar(&hubPort, "port", protocol.DefaultPort, "Bridge TCP port")
	flags.DurationVar(&hubTimeout, "timeout", protocol.DefaultTimeout, "Per-exchange timeout")
	flags.StringVar(&outputFormat, "format", "detailed", "Output format (detailed, compact, json)")
	flags.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides "+logging.LogLevelEnvVar)
	flags.StringVar(&capturePath, "capture", "", "Append every exchange to this JSON Lines file")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(shadeCmd)
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(closeCmd)
	rootCmd.AddCommand(sceneCmd)
	rootCmd.AddCommand(pingCmd)
}

// setup loads the config file and starts logging
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}

	level := logLevel
	if level == "" && cfg.Preferences != nil && cfg.Preferences.LogLevel != "" {
		level = cfg.Preferences.LogLevel
	}
	if err := logging.Initialize(level); err != nil {
		return err
	}

	if capturePath != "" {
		capture, err = os.OpenFile(capturePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("open capture file: %w", err)
		}
	}
	return nil
}

// closeCapture closes the capture file, if one is open
func closeCapture() error {
	if capture == nil {
		return nil
	}
	err := capture.Close()
	capture = nil
	return err
}

// target is the resolved bridge to talk to
type target struct {
	Name    string
	Address string
	Port    int
	Timeout time.Duration
}

func (t target) String() string {
	if t.Name != "" {
		return fmt.Sprintf("%s (%s:%d)", t.Name, t.Address, t.Port)
	}
	return fmt.Sprintf("%s:%d", t.Address, t.Port)
}

// resolveTarget picks the bridge from --address, or --hub and the config
// file. Explicit --port and --timeout flags override the config.
func resolveTarget(cmd *cobra.Command) (target, error) {
	flags := cmd.Flags()

	if hubAddress != "" {
		return target{Address: hubAddress, Port: hubPort, Timeout: hubTimeout}, nil
	}

	if cfg == nil {
		cfg = config.NewConfig()
	}
	name, hc, err := cfg.ResolveHub(hubName)
	if errors.Is(err, config.ErrNoHub) {
		return target{}, fmt.Errorf("no bridge specified: use --address, or save one with 'platinum config add-hub'")
	}
	if err != nil {
		return target{}, err
	}

	t := target{Name: name, Address: hc.Address, Port: hc.EffectivePort(), Timeout: hc.EffectiveTimeout()}
	if flags.Changed("port") {
		t.Port = hubPort
	}
	if flags.Changed("timeout") {
		t.Timeout = hubTimeout
	}
	return t, nil
}

// hubOptions translates the target and preferences into hub options
func hubOptions(t target) []hub.Option {
	opts := []hub.Option{hub.WithPort(t.Port), hub.WithTimeout(t.Timeout)}
	if capture != nil {
		client := transport.NewClient(t.Address, t.Port, transport.WithTimeout(t.Timeout))
		opts = append(opts, hub.WithExchanger(transport.NewRecorder(client, capture)))
	}
	if cfg != nil && cfg.Preferences != nil {
		if d := cfg.Preferences.SettleDelay; d > 0 {
			opts = append(opts, hub.WithSettleDelay(d))
		}
		if n := cfg.Preferences.MaxAttempts; n > 0 {
			opts = append(opts, hub.WithMaxAttempts(n))
		}
	}
	return opts
}

func maxAttempts() int {
	if cfg != nil && cfg.Preferences != nil && cfg.Preferences.MaxAttempts > 0 {
		return cfg.Preferences.MaxAttempts
	}
	return hub.DefaultMaxAttempts
}

// connect resolves the target and loads its inventory
func connect(cmd *cobra.Command) (*hub.Hub, target, error) {
	t, err := resolveTarget(cmd)
	if err != nil {
		return nil, t, err
	}

	logging.Debug("Connecting to bridge", zap.String("target", t.String()))
	h, err := hub.Connect(cmd.Context(), t.Address, hubOptions(t)...)
	if err != nil {
		return nil, t, fmt.Errorf("connect to %s: %w", t, err)
	}
	return h, t, nil
}

// findShade looks a shade up by name, then by id
func findShade(h *hub.Hub, key string) (*hub.Shade, error) {
	if s := h.Shade(key); s != nil {
		return s, nil
	}
	if s := h.ShadeByID(key); s != nil {
		return s, nil
	}
	return nil, fmt.Errorf("shade %q: %w", key, hub.ErrNotFound)
}

// findScene looks a scene up by name, then by id
func findScene(h *hub.Hub, key string) (*hub.Scene, error) {
	if s := h.Scene(key); s != nil {
		return s, nil
	}
	if s := h.SceneByID(key); s != nil {
		return s, nil
	}
	return nil, fmt.Errorf("scene %q: %w", key, hub.ErrNotFound)
}

// troubleshoot returns tips for err
func troubleshoot(err error) []string {
	if tips := transport.GetTroubleshootingHint(err); len(tips) > 0 {
		return tips
	}
	if errors.Is(err, hub.ErrNotFound) {
		return []string{"Run 'platinum status' to list rooms, scenes, and shades", "Names are case sensitive; quote names with spaces"}
	}
	if errors.Is(err, hub.ErrNoData) {
		return []string{"The bridge answered but sent no inventory", "Wait a few seconds and retry"}
	}
	return nil
}

// --- status ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List rooms, shades, and scenes",
	Long: `Load the bridge inventory and show every room, shade, and scene with the
last reported shade positions.`,
	Example: `  # Detailed view of the default hub
  platinum status

  # Tab-separated lines for scripts
  platinum status --format compact

  # JSON
  platinum status --address 192.168.1.50 --format json`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	h, t, err := connect(cmd)
	if err != nil {
		return err
	}
	view := buildStatusView(h, t)
	out := cmd.OutOrStdout()

	switch outputFormat {
	case "compact":
		fmt.Fprintln(out, ui.RenderStatusCompact(view))
	case "json":
		data, err := json.MarshalIndent(statusJSON(view), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(out, string(data))
	case "detailed":
		return ui.RenderOnce(out, ui.RenderStatusDetailed(view, ui.GetTerminalWidth()))
	default:
		return fmt.Errorf("unknown format %q (use detailed, compact, or json)", outputFormat)
	}
	return nil
}

func buildStatusView(h *hub.Hub, t target) ui.StatusView {
	view := ui.StatusView{
		Hub:     t.Name,
		Address: fmt.Sprintf("%s:%d", t.Address, t.Port),
		Updated: h.LastUpdate(),
	}
	for _, r := range h.Rooms() {
		view.Rooms = append(view.Rooms, ui.RoomRow{ID: r.ID(), Name: r.Name()})
	}
	for _, s := range h.Scenes() {
		view.Scenes = append(view.Scenes, ui.SceneRow{ID: s.ID(), Name: s.Name()})
	}
	for _, s := range h.Shades() {
		view.Shades = append(view.Shades, ui.ShadeRow{ID: s.ID(), Name: s.Name(), RoomID: s.RoomID(), Position: s.Position()})
	}
	return view
}

type jsonShade struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	RoomID   string `json:"room_id"`
	Position int    `json:"position"`
	Percent  int    `json:"percent"`
}

type jsonEntity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type jsonStatus struct {
	Address string       `json:"address"`
	Updated time.Time    `json:"updated"`
	Rooms   []jsonEntity `json:"rooms"`
	Scenes  []jsonEntity `json:"scenes"`
	Shades  []jsonShade  `json:"shades"`
}

func statusJSON(v ui.StatusView) jsonStatus {
	s := jsonStatus{
		Address: v.Address,
		Updated: v.Updated,
		Rooms:   []jsonEntity{},
		Scenes:  []jsonEntity{},
		Shades:  []jsonShade{},
	}
	for _, r := range v.Rooms {
		s.Rooms = append(s.Rooms, jsonEntity{ID: r.ID, Name: r.Name})
	}
	for _, sc := range v.Scenes {
		s.Scenes = append(s.Scenes, jsonEntity{ID: sc.ID, Name: sc.Name})
	}
	for _, sh := range v.Shades {
		s.Shades = append(s.Shades, jsonShade{ID: sh.ID, Name: sh.Name, RoomID: sh.RoomID, Position: sh.Position, Percent: sh.Percent()})
	}
	return s
}

// --- shade, open, close ---

var shadeCmd = &cobra.Command{
	Use:   "shade <name|id> <up|down|0-100>",
	Short: "Move a shade and verify it arrived",
	Long: `Move a shade to "up", "down", or a whole percentage.

The move is repeated (up to 3 attempts by default) until the bridge reports
the shade at the target. Percentages accept a position within one step.`,
	Example: `  platinum shade "Bay Window" 50
  platinum shade 03 down`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMove(cmd, args[0], args[1])
	},
}

var openCmd = &cobra.Command{
	Use:   "open <name|id>",
	Short: "Raise a shade fully",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMove(cmd, args[0], hub.LevelUp)
	},
}

var closeCmd = &cobra.Command{
	Use:   "close <name|id>",
	Short: "Lower a shade fully",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMove(cmd, args[0], hub.LevelDown)
	},
}

func runMove(cmd *cobra.Command, shadeKey, targetArg string) error {
	level, err := hub.ParseLevel(targetArg)
	if err != nil {
		return err
	}

	t, err := resolveTarget(cmd)
	if err != nil {
		return err
	}

	runner := ui.NewRunner(ui.RunnerConfig{
		Title:   "Move Shade",
		Command: cmd.CommandPath() + " " + shadeKey,
		Params: []ui.Param{
			{Key: "Bridge", Value: t.String()},
			{Key: "Shade", Value: shadeKey},
			{Key: "Target", Value: fmt.Sprintf("%s (raw %d)", level, level.Raw())},
		},
		TotalSteps: maxAttempts(),
		Output:     cmd.OutOrStdout(),
	})
	runner.Troubleshooting = troubleshoot

	return runner.Run(func(onStep ui.StepCallback) ([]ui.Param, string, error) {
		h, err := hub.Connect(cmd.Context(), t.Address, hubOptions(t)...)
		if err != nil {
			return nil, "", err
		}
		shade, err := findShade(h, shadeKey)
		if err != nil {
			return nil, "", err
		}

		result, err := shade.SetLevel(cmd.Context(), targetArg, hub.WithObserver(moveObserver(onStep)))
		if stats, ok := h.Stats(); ok {
			logging.Debug("Transport counters",
				zap.Uint64("exchanges", stats.Exchanges),
				zap.Uint64("failures", stats.Failures),
				zap.Uint64("bytes_received", stats.BytesReceived),
			)
		}
		if err != nil {
			return nil, "", err
		}

		details := []ui.Param{
			{Key: "Shade", Value: fmt.Sprintf("%s (%s)", shade.Name(), shade.ID())},
			{Key: "Position", Value: fmt.Sprintf("%d (%d%%)", result.Position, shade.Percent())},
			{Key: "Attempts", Value: fmt.Sprint(result.Attempts)},
		}
		if !result.Converged {
			return details, fmt.Sprintf("%s did not reach %s", shade.Name(), result.Target), nil
		}
		return details, "", nil
	})
}

// moveObserver turns control loop events into one progress step per attempt
func moveObserver(onStep ui.StepCallback) hub.Observer {
	return func(ev hub.MoveEvent) {
		switch ev.State {
		case hub.StateIssuing:
			if ev.Attempt > 1 {
				onStep(ev.Attempt-1, "", ui.StepFailed, fmt.Sprintf("position %d", ev.Position))
			}
			name := fmt.Sprintf("Attempt %d: move to %s", ev.Attempt, ev.Target)
			onStep(ev.Attempt, name, ui.StepRunning, "sending")

		case hub.StateVerifying:
			msg := "verifying"
			if ev.Err != nil {
				msg = "exchange failed, verifying"
			}
			onStep(ev.Attempt, "", ui.StepRunning, msg)

		case hub.StateConverged:
			if ev.Attempt > 0 {
				onStep(ev.Attempt, "", ui.StepComplete, fmt.Sprintf("position %d", ev.Position))
			}
			for n := ev.Attempt + 1; n <= ev.MaxAttempts; n++ {
				onStep(n, fmt.Sprintf("Attempt %d", n), ui.StepSkipped, "not needed")
			}

		case hub.StateFailed:
			if ev.Attempt > 0 {
				msg := fmt.Sprintf("position %d", ev.Position)
				if ev.Err != nil {
					msg = ev.Err.Error()
				}
				onStep(ev.Attempt, "", ui.StepFailed, msg)
			}
		}
	}
}

// --- scene ---

var sceneCmd = &cobra.Command{
	Use:   "scene <name|id>",
	Short: "Run a stored scene",
	Long: `Ask the bridge to run a scene. The bridge acknowledges the request but
does not report when the shades have finished moving.`,
	Args: cobra.ExactArgs(1),
	RunE: runScene,
}

func runScene(cmd *cobra.Command, args []string) error {
	p := ui.NewPrinter(cmd.OutOrStdout())
	p.PrintHeader("Run Scene", cmd.CommandPath()+" "+args[0])

	h, t, err := connect(cmd)
	if err != nil {
		p.PrintError("Run scene failed", err, troubleshoot(err))
		return err
	}
	scene, err := findScene(h, args[0])
	if err != nil {
		p.PrintError("Run scene failed", err, troubleshoot(err))
		return err
	}

	if _, err := scene.Run(cmd.Context()); err != nil {
		p.PrintError("Run scene failed", err, troubleshoot(err))
		return err
	}

	p.PrintSuccess("Scene started",
		ui.Param{Key: "Bridge", Value: t.String()},
		ui.Param{Key: "Scene", Value: fmt.Sprintf("%s (%s)", scene.Name(), scene.ID())},
	)
	return nil
}

// --- ping ---

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the bridge answers",
	Args:  cobra.NoArgs,
	RunE:  runPing,
}

func runPing(cmd *cobra.Command, args []string) error {
	t, err := resolveTarget(cmd)
	if err != nil {
		return err
	}

	p := ui.NewPrinter(cmd.OutOrStdout())
	h := hub.New(t.Address, hubOptions(t)...)

	start := time.Now()
	ctx, cancel := context.WithTimeout(cmd.Context(), t.Timeout)
	defer cancel()

	if !h.Ping(ctx) {
		err := fmt.Errorf("%s did not answer within %v", t, t.Timeout)
		p.PrintError("Bridge unreachable", err, []string{
			"Check the bridge is powered and on the network",
			"Verify the address and port (default 522)",
		})
		return err
	}

	details := []ui.Param{
		{Key: "Bridge", Value: t.String()},
		{Key: "Round trip", Value: time.Since(start).Round(time.Millisecond).String()},
	}
	if stats, ok := h.Stats(); ok {
		details = append(details, ui.Param{Key: "Exchanges", Value: fmt.Sprintf("%d (%d failed)", stats.Exchanges, stats.Failures)})
	}
	p.PrintSuccess("Bridge is alive", details...)
	return nil
}
