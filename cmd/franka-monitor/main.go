// franka-monitor streams robot states to WebSocket clients and exposes loop
// metrics. It only reads; the robot is never commanded.
//
// Endpoints:
//
//	GET /ws/state    robot_state messages, one per cycle
//	GET /ws/status   session summary on change
//	GET /ws/events   mode changes and faults
//	GET /api/state   latest state as JSON
//	GET /api/status  session summary
//	GET /api/events  recent events
//	GET /metrics     Prometheus metrics
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/teslashibe/go-franka/internal/config"
	flog "github.com/teslashibe/go-franka/internal/log"
	"github.com/teslashibe/go-franka/pkg/robot"
	"github.com/teslashibe/go-franka/pkg/web"
)

func main() {
	address := flag.String("address", "", "Controller address (overrides FRANKA_ADDRESS)")
	listen := flag.String("listen", "", "HTTP listen address (overrides FRANKA_MONITOR_LISTEN)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}
	if *address != "" {
		cfg.Address = *address
	}
	if *listen != "" {
		cfg.Monitor.Listen = *listen
	}
	flog.Init(cfg.LogLevel)
	logger := flog.Component("monitor")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := robot.NewMetrics(reg)
	if err != nil {
		log.Fatalf("❌ Metrics: %v", err)
	}
	cfg.Robot.Metrics = metrics
	cfg.Robot.Logger = flog.Component("robot")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	r, err := robot.Connect(ctx, cfg.Address, cfg.Robot)
	if err != nil {
		log.Fatalf("❌ Connect failed: %v", err)
	}
	defer r.Close()

	srv := web.NewServer(web.Config{
		Gatherer: reg,
		Hub:      cfg.Monitor.Hub,
		Logger:   flog.Component("web"),
	})
	srv.Run(ctx)
	srv.SessionStarted(r.ServerVersion())

	// No reconnect: when the session ends the monitor keeps serving what it saw.
	go func() {
		err := r.Read(ctx, srv.Observe)
		if ctx.Err() != nil {
			return
		}
		logger.Error("read loop stopped", "error", err)
		srv.SessionEnded(err)
	}()

	go func() {
		<-ctx.Done()
		if err := srv.Shutdown(); err != nil {
			logger.Warn("shutdown", "error", err)
		}
	}()

	logger.Info("monitoring", "robot", cfg.Address, "server_version", r.ServerVersion())
	if err := srv.Listen(cfg.Monitor.Listen); err != nil {
		log.Fatalf("❌ Server error: %v", err)
	}
}
