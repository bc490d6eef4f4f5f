package config

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/muurk/platinum/internal/protocol"
)

// CurrentVersion is the only config file version this build understands
const CurrentVersion = 1

var (
	// ErrHubNotFound is returned when a named hub is not in the config
	ErrHubNotFound = errors.New("config: hub not found")

	// ErrNoHub is returned when no hub was named and no default is set
	ErrNoHub = errors.New("config: no hub specified and no default_hub set")
)

// Config is the user configuration file.
// It holds connection settings only; shade state is never persisted.
type Config struct {
	Version     int                   `yaml:"version"`
	DefaultHub  string                `yaml:"default_hub,omitempty"`
	Hubs        map[string]*HubConfig `yaml:"hubs,omitempty"` // Keyed by a user-chosen name
	Preferences *Preferences          `yaml:"preferences,omitempty"`
}

// HubConfig is how to reach one controller
type HubConfig struct {
	Address string        `yaml:"address"`
	Port    int           `yaml:"port,omitempty"`    // 0 means 522
	Timeout time.Duration `yaml:"timeout,omitempty"` // 0 means 10s
}

// Preferences tune the move-and-verify loop and logging.
// Zero values mean "use the built-in default".
type Preferences struct {
	SettleDelay time.Duration `yaml:"settle_delay,omitempty"`
	MaxAttempts int           `yaml:"max_attempts,omitempty"`
	LogLevel    string        `yaml:"log_level,omitempty"`
}

// NewConfig creates an empty config with default values
func NewConfig() *Config {
	return &Config{
		Version:     CurrentVersion,
		Hubs:        make(map[string]*HubConfig),
		Preferences: &Preferences{},
	}
}

// EffectivePort returns the configured port or the protocol default
func (h *HubConfig) EffectivePort() int {
	if h.Port == 0 {
		return protocol.DefaultPort
	}
	return h.Port
}

// EffectiveTimeout returns the configured timeout or the protocol default
func (h *HubConfig) EffectiveTimeout() time.Duration {
	if h.Timeout == 0 {
		return protocol.DefaultTimeout
	}
	return h.Timeout
}

// Validate checks a hub entry
func (h *HubConfig) Validate() error {
	if h.Address == "" {
		return fmt.Errorf("address is required")
	}
	if h.Port < 0 || h.Port > 65535 {
		return fmt.Errorf("port %d out of range (1-65535)", h.Port)
	}
	if h.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %v", h.Timeout)
	}
	return nil
}

// Validate checks the whole config
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("unsupported config version: %d (expected %d)", c.Version, CurrentVersion)
	}

	for _, name := range c.HubNames() {
		if err := c.Hubs[name].Validate(); err != nil {
			return fmt.Errorf("hub %q: %w", name, err)
		}
	}

	if c.DefaultHub != "" {
		if _, ok := c.Hubs[c.DefaultHub]; !ok {
			return fmt.Errorf("default_hub %q: %w", c.DefaultHub, ErrHubNotFound)
		}
	}

	if p := c.Preferences; p != nil {
		if p.SettleDelay < 0 {
			return fmt.Errorf("settle_delay must not be negative, got %v", p.SettleDelay)
		}
		if p.MaxAttempts < 0 {
			return fmt.Errorf("max_attempts must not be negative, got %d", p.MaxAttempts)
		}
	}

	return nil
}

// HubNames returns the configured hub names in sorted order
func (c *Config) HubNames() []string {
	names := make([]string, 0, len(c.Hubs))
	for name := range c.Hubs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveHub returns the hub called name, or the default hub if name is
// empty. A config with exactly one hub uses it when no default is set.
func (c *Config) ResolveHub(name string) (string, *HubConfig, error) {
	if name == "" {
		name = c.DefaultHub
	}
	if name == "" && len(c.Hubs) == 1 {
		name = c.HubNames()[0]
	}
	if name == "" {
		return "", nil, ErrNoHub
	}

	hub, ok := c.Hubs[name]
	if !ok {
		return "", nil, fmt.Errorf("%w: %q", ErrHubNotFound, name)
	}
	return name, hub, nil
}

// SetHub adds or replaces a hub entry. The first hub added becomes the default.
func (c *Config) SetHub(name string, hub *HubConfig) error {
	if name == "" {
		return fmt.Errorf("hub name is required")
	}
	if err := hub.Validate(); err != nil {
		return fmt.Errorf("hub %q: %w", name, err)
	}

	if c.Hubs == nil {
		c.Hubs = make(map[string]*HubConfig)
	}
	c.Hubs[name] = hub
	if c.DefaultHub == "" {
		c.DefaultHub = name
	}
	return nil
}
