// Package config loads settings for the franka commands from a .env file,
// environment variables and an optional YAML file.
//
// Precedence, lowest first: defaults, the FRANKA_CONFIG file, environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-franka/pkg/hub"
	"github.com/teslashibe/go-franka/pkg/realtime"
	"github.com/teslashibe/go-franka/pkg/robot"
)

// Environment variables.
const (
	EnvAddress       = "FRANKA_ADDRESS"
	EnvRealtime      = "FRANKA_REALTIME"
	EnvPriority      = "FRANKA_PRIORITY"
	EnvCycleBudget   = "FRANKA_CYCLE_BUDGET"
	EnvMonitorListen = "FRANKA_MONITOR_LISTEN"
	EnvConfigFile    = "FRANKA_CONFIG"
	EnvLogLevel      = "LOG_LEVEL"
)

// Config is everything a command needs.
type Config struct {
	// Address of the controller: host, host:port or ws:// URL.
	Address string `yaml:"address"`

	// Priority is the SCHED_FIFO priority of control loops.
	Priority int `yaml:"priority"`

	LogLevel string `yaml:"log_level"`

	Robot   robot.Config `yaml:"robot"`
	Monitor Monitor      `yaml:"monitor"`
}

// Monitor configures franka-monitor.
type Monitor struct {
	Listen string     `yaml:"listen"`
	Hub    hub.Config `yaml:"hub"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Address:  "localhost",
		Priority: realtime.DefaultPriority,
		LogLevel: "info",
		Robot:    robot.DefaultConfig(),
		Monitor: Monitor{
			Listen: ":8080",
			Hub:    hub.DefaultConfig(),
		},
	}
}

// Load reads .env files (default ".env", missing files are fine), the YAML
// file named by FRANKA_CONFIG, and environment overrides.
func Load(envFiles ...string) (*Config, error) {
	_ = godotenv.Load(envFiles...)

	cfg := Default()
	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	cfg.Robot.Scheduler = realtime.OSScheduler{Priority: cfg.Priority}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile decodes a YAML file over cfg. Keys absent from the file keep
// their current values.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv(EnvAddress); ok && v != "" {
		cfg.Address = v
	}
	if v, ok := os.LookupEnv(EnvRealtime); ok && v != "" {
		rt, err := realtime.ParseConfig(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRealtime, err)
		}
		cfg.Robot.Realtime = rt
	}
	if v, ok := os.LookupEnv(EnvPriority); ok && v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPriority, err)
		}
		cfg.Priority = p
	}
	if v, ok := os.LookupEnv(EnvCycleBudget); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvCycleBudget, err)
		}
		cfg.Robot.CycleBudget = d
	}
	if v, ok := os.LookupEnv(EnvMonitorListen); ok && v != "" {
		cfg.Monitor.Listen = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok && v != "" {
		cfg.LogLevel = v
	}
	return nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("address is required (set %s)", EnvAddress)
	}
	if c.Priority < realtime.MinPriority || c.Priority > realtime.MaxPriority {
		return fmt.Errorf("priority must be in [%d, %d], got %d",
			realtime.MinPriority, realtime.MaxPriority, c.Priority)
	}
	if err := c.Robot.Validate(); err != nil {
		return fmt.Errorf("robot: %w", err)
	}
	return nil
}
