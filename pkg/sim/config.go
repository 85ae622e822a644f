// Package sim provides a simulated robot controller speaking the go-franka protocol.
//
// The simulator serves one session per WebSocket connection on /robot. After
// the handshake it sends a robot state every cycle and waits up to one period
// for the matching command, so a client that keeps up runs in lock step while
// a read-only client simply observes. Faults, disconnects and malformed
// payloads can be scheduled by cycle number for tests and demos.
package sim

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/go-franka/pkg/protocol"
)

// Config holds simulator configuration.
type Config struct {
	// Version is the server version reported in the handshake.
	Version uint16 `yaml:"version" json:"version"`

	// RejectVersion answers every handshake with incompatible_version.
	RejectVersion bool `yaml:"reject_version" json:"reject_version"`

	// DropOnConnect closes the connection before replying to the handshake.
	DropOnConnect bool `yaml:"drop_on_connect" json:"drop_on_connect"`

	// Period is the cycle period.
	Period time.Duration `yaml:"period" json:"period"`

	// FaultAtCycle makes state number FaultAtCycle (1-based) and every later
	// state report a reflex. 0 disables.
	FaultAtCycle uint64 `yaml:"fault_at_cycle" json:"fault_at_cycle"`

	// FaultErrors are the error names reported with a reflex.
	FaultErrors []string `yaml:"fault_errors" json:"fault_errors"`

	// DisconnectAfter closes the session after that many states. 0 disables.
	DisconnectAfter uint64 `yaml:"disconnect_after" json:"disconnect_after"`

	// MalformedAt replaces state number MalformedAt with garbage. 0 disables.
	MalformedAt uint64 `yaml:"malformed_at" json:"malformed_at"`

	// InitialQ is the joint configuration at session start.
	InitialQ [protocol.NumJoints]float64 `yaml:"initial_q" json:"initial_q"`

	// Logger defaults to the "sim" component logger.
	Logger *slog.Logger `yaml:"-" json:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Version:     protocol.Version,
		Period:      time.Millisecond,
		FaultErrors: []string{"cartesian_reflex"},
		// Franka "ready" pose.
		InitialQ: [protocol.NumJoints]float64{0, -0.785, 0, -2.356, 0, 1.571, 0.785},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Period <= 0 {
		return fmt.Errorf("period must be positive, got %s", c.Period)
	}
	if c.FaultAtCycle > 0 && len(c.FaultErrors) == 0 {
		return fmt.Errorf("fault_errors is required when fault_at_cycle is set")
	}
	return nil
}
