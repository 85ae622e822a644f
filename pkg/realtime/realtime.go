// Package realtime elevates the scheduling class of the goroutine running a
// control loop and restores it afterwards.
//
// A Guard is acquired right before the first cycle and released with defer,
// so the previous scheduling is restored on every exit path:
//
//	g, err := realtime.Acquire(realtime.Enforce, realtime.NewOSScheduler(), logger)
//	if err != nil {
//		return err // no cycle has run yet
//	}
//	defer g.Release()
package realtime

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	errs "github.com/teslashibe/go-franka/pkg/errors"
)

// Config selects what happens when elevation is denied.
type Config int

const (
	// Enforce fails with a realtime error if elevation is not possible.
	Enforce Config = iota
	// Ignore proceeds at default scheduling if elevation fails.
	Ignore
)

// String returns the string representation of Config
func (c Config) String() string {
	switch c {
	case Enforce:
		return "enforce"
	case Ignore:
		return "ignore"
	default:
		return fmt.Sprintf("Config(%d)", int(c))
	}
}

// ParseConfig parses "enforce" or "ignore".
func ParseConfig(s string) (Config, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "enforce", "":
		return Enforce, nil
	case "ignore":
		return Ignore, nil
	default:
		return Enforce, fmt.Errorf("realtime config must be 'enforce' or 'ignore', got '%s'", s)
	}
}

// UnmarshalText lets Config be read from YAML and environment values.
func (c *Config) UnmarshalText(text []byte) error {
	v, err := ParseConfig(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (c Config) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// ErrUnsupported is returned by schedulers on platforms without realtime scheduling.
var ErrUnsupported = errors.New("realtime: scheduling class not supported on this platform")

// Scheduler switches the calling goroutine to a bounded-latency scheduling
// class. The returned restore func undoes it and must be called from the
// same goroutine.
type Scheduler interface {
	Elevate() (restore func() error, err error)
}

// Guard holds an elevation until Release.
type Guard struct {
	restore  func() error
	elevated bool
	logger   *slog.Logger
	once     sync.Once
}

// Acquire elevates the calling goroutine with sched.
// Under Enforce a denied elevation is returned as a realtime error. Under
// Ignore it is logged and a non-elevated Guard is returned.
func Acquire(cfg Config, sched Scheduler, logger *slog.Logger) (*Guard, error) {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Guard{logger: logger}

	if sched == nil {
		if cfg == Enforce {
			return nil, errs.New(errs.KindRealtime, "set realtime priority", ErrUnsupported)
		}
		logger.Warn("no realtime scheduler configured, running at default priority")
		return g, nil
	}

	restore, err := sched.Elevate()
	if err != nil {
		if cfg == Enforce {
			return nil, errs.New(errs.KindRealtime, "set realtime priority", err)
		}
		logger.Warn("realtime priority unavailable, running at default priority", "error", err)
		return g, nil
	}

	g.restore = restore
	g.elevated = true
	return g, nil
}

// Elevated reports whether the goroutine actually runs with elevated priority.
func (g *Guard) Elevated() bool {
	return g.elevated
}

// Release restores the previous scheduling. It is safe to call more than once.
func (g *Guard) Release() {
	g.once.Do(func() {
		if g.restore == nil {
			return
		}
		if err := g.restore(); err != nil {
			g.logger.Warn("failed to restore scheduling", "error", err)
		}
	})
}
