// franka-read prints robot states as JSON lines without commanding the robot.
package main

import (
	"bufio"
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"

	"github.com/teslashibe/go-franka/internal/config"
	flog "github.com/teslashibe/go-franka/internal/log"
	"github.com/teslashibe/go-franka/pkg/robot"
)

func main() {
	address := flag.String("address", "", "Controller address (overrides FRANKA_ADDRESS)")
	count := flag.Int("n", 1, "Number of states to print (0 = until interrupted)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}
	if *address != "" {
		cfg.Address = *address
	}
	// Logs go to stderr so stdout stays JSON.
	flog.InitWriter(os.Stderr, cfg.LogLevel)
	cfg.Robot.Logger = flog.Component("robot")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	r, err := robot.Connect(ctx, cfg.Address, cfg.Robot)
	if err != nil {
		log.Fatalf("❌ Connect failed: %v", err)
	}
	defer r.Close()

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	enc := json.NewEncoder(out)

	printed := 0
	err = r.Read(ctx, func(s *robot.RobotState) bool {
		if err := enc.Encode(s); err != nil {
			flog.Error("encode state", "error", err)
			return false
		}
		printed++
		return *count == 0 || printed < *count
	})
	if err != nil && ctx.Err() == nil {
		out.Flush()
		log.Fatalf("❌ Read failed: %v", err)
	}
}
