package robot

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/go-franka/pkg/network"
	"github.com/teslashibe/go-franka/pkg/realtime"
)

// DefaultCycleBudget is the time callbacks may take per 1 kHz cycle.
const DefaultCycleBudget = time.Millisecond

// Config holds session configuration.
type Config struct {
	// Realtime decides whether a denied priority elevation aborts control.
	Realtime realtime.Config `yaml:"realtime" json:"realtime"`

	// Network configures the connection channel.
	Network network.Config `yaml:"network" json:"network"`

	// CycleBudget is the callback time after which an overrun is reported.
	// Zero disables overrun detection.
	CycleBudget time.Duration `yaml:"cycle_budget" json:"cycle_budget"`

	// Scheduler elevates control loops. Defaults to the OS scheduler.
	Scheduler realtime.Scheduler `yaml:"-" json:"-"`

	// Metrics is optional.
	Metrics *Metrics `yaml:"-" json:"-"`

	// Logger defaults to the "robot" component logger.
	Logger *slog.Logger `yaml:"-" json:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Realtime:    realtime.Enforce,
		Network:     network.DefaultConfig(),
		CycleBudget: DefaultCycleBudget,
		Scheduler:   realtime.NewOSScheduler(),
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Realtime != realtime.Enforce && c.Realtime != realtime.Ignore {
		return fmt.Errorf("unknown realtime config %s", c.Realtime)
	}
	if c.CycleBudget < 0 {
		return fmt.Errorf("cycle_budget must not be negative, got %s", c.CycleBudget)
	}
	if err := c.Network.Validate(); err != nil {
		return fmt.Errorf("network: %w", err)
	}
	return nil
}
