// franka-sim serves a simulated robot controller for development and tests.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	flog "github.com/teslashibe/go-franka/internal/log"
	"github.com/teslashibe/go-franka/pkg/sim"
)

func main() {
	cfg := sim.DefaultConfig()

	listen := flag.String("listen", ":1337", "Address to serve the controller endpoint on")
	version := flag.Uint("version", uint(cfg.Version), "Protocol version to announce")
	reject := flag.Bool("reject", false, "Reject every connect request as incompatible")
	flag.DurationVar(&cfg.Period, "period", cfg.Period, "Cycle period")
	flag.Uint64Var(&cfg.FaultAtCycle, "fault-at", 0, "Report a reflex from this cycle on (0 = never)")
	flag.Uint64Var(&cfg.DisconnectAfter, "disconnect-after", 0, "Drop sessions after this many states (0 = never)")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	flog.Init(*logLevel)
	cfg.Version = uint16(*version)
	cfg.RejectVersion = *reject
	cfg.Logger = flog.Component("sim")

	srv, err := sim.New(cfg)
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()
		if err := srv.Shutdown(); err != nil {
			cfg.Logger.Warn("shutdown", "error", err)
		}
	}()

	cfg.Logger.Info("simulator listening", "addr", *listen, "period", cfg.Period, "version", cfg.Version)
	start := time.Now()
	if err := srv.Listen(*listen); err != nil {
		log.Fatalf("❌ Server error: %v", err)
	}
	stats := srv.GetStats()
	cfg.Logger.Info("simulator stopped",
		"uptime", time.Since(start).Round(time.Second),
		"sessions", stats.Sessions,
		"states_sent", stats.StatesSent,
		"commands_received", stats.CommandsReceived)
}
