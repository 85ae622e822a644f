package network

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/go-franka/pkg/protocol"
)

// Default endpoint of the controller.
const (
	DefaultPort = 1337
	DefaultPath = "/robot"
)

// Config holds connection channel configuration.
type Config struct {
	// HandshakeTimeout bounds dialing plus the connect exchange.
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" json:"handshake_timeout"`

	// ReceiveTimeout bounds the wait for one robot state.
	ReceiveTimeout time.Duration `yaml:"receive_timeout" json:"receive_timeout"`

	// SendTimeout bounds writing one command.
	SendTimeout time.Duration `yaml:"send_timeout" json:"send_timeout"`

	// SupportedVersions lists the server versions this client accepts.
	SupportedVersions []uint16 `yaml:"supported_versions" json:"supported_versions"`

	// Logger defaults to the "network" component logger.
	Logger *slog.Logger `yaml:"-" json:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout:  5 * time.Second,
		ReceiveTimeout:    time.Second,
		SendTimeout:       time.Second,
		SupportedVersions: []uint16{protocol.Version},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.HandshakeTimeout <= 0 {
		return fmt.Errorf("handshake_timeout must be positive, got %s", c.HandshakeTimeout)
	}
	if c.ReceiveTimeout <= 0 {
		return fmt.Errorf("receive_timeout must be positive, got %s", c.ReceiveTimeout)
	}
	if c.SendTimeout <= 0 {
		return fmt.Errorf("send_timeout must be positive, got %s", c.SendTimeout)
	}
	if len(c.SupportedVersions) == 0 {
		return fmt.Errorf("supported_versions must not be empty")
	}
	return nil
}

func (c *Config) supports(version uint16) bool {
	for _, v := range c.SupportedVersions {
		if v == version {
			return true
		}
	}
	return false
}
