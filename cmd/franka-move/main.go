// franka-move runs a short joint velocity motion: the last four joints swing
// out and back with a smooth velocity profile.
//
// WARNING: the robot moves. Keep the user stop at hand.
package main

import (
	"context"
	"flag"
	"log"
	"math"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-franka/internal/config"
	flog "github.com/teslashibe/go-franka/internal/log"
	errs "github.com/teslashibe/go-franka/pkg/errors"
	"github.com/teslashibe/go-franka/pkg/robot"
)

func main() {
	address := flag.String("address", "", "Controller address (overrides FRANKA_ADDRESS)")
	omegaMax := flag.Float64("omega", 1.0, "Peak joint velocity (rad/s)")
	period := flag.Duration("half-period", time.Second, "Duration of one swing")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}
	if *address != "" {
		cfg.Address = *address
	}
	flog.Init(cfg.LogLevel)
	logger := flog.Component("move")
	cfg.Robot.Logger = flog.Component("robot")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	r, err := robot.Connect(ctx, cfg.Address, cfg.Robot)
	if err != nil {
		log.Fatalf("❌ Connect failed: %v", err)
	}
	defer r.Close()

	gen := newSwing(*omegaMax, period.Seconds())
	err = r.ControlJointVelocities(ctx, gen.next, nil)
	switch {
	case err == nil:
		logger.Info("motion finished", "duration", time.Duration(gen.elapsed*float64(time.Second)))
	case errs.IsControl(err):
		log.Fatalf("❌ Robot stopped the motion: %v", err)
	case errs.IsRealtime(err):
		log.Fatalf("❌ %v (run as root, grant CAP_SYS_NICE, or set FRANKA_REALTIME=ignore)", err)
	default:
		log.Fatalf("❌ Motion failed: %v", err)
	}
}

// swing produces a raised cosine velocity profile over two half periods,
// first outwards then back.
type swing struct {
	omegaMax float64
	timeMax  float64

	elapsed float64
	lastMs  uint64
	started bool
}

func newSwing(omegaMax, timeMax float64) *swing {
	return &swing{omegaMax: omegaMax, timeMax: timeMax}
}

func (g *swing) next(s *robot.RobotState) robot.JointVelocities {
	// Controller time that stalls or goes backwards adds nothing.
	if g.started && s.TimeMs > g.lastMs {
		g.elapsed += float64(s.TimeMs-g.lastMs) / 1000
	}
	g.started = true
	g.lastMs = s.TimeMs

	direction := 1.0
	if math.Mod(g.elapsed, 2*g.timeMax) >= g.timeMax {
		direction = -1
	}
	omega := direction * g.omegaMax / 2 * (1 - math.Cos(2*math.Pi/g.timeMax*g.elapsed))

	v := robot.JointVelocities{}
	for i := 3; i < len(v.DQ); i++ {
		v.DQ[i] = omega
	}
	if g.elapsed >= 2*g.timeMax {
		v.DQ = [7]float64{}
		v.MotionFinished = true
	}
	return v
}
