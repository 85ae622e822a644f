package robot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/teslashibe/go-franka/internal/log"
	errs "github.com/teslashibe/go-franka/pkg/errors"
	"github.com/teslashibe/go-franka/pkg/network"
	"github.com/teslashibe/go-franka/pkg/realtime"
)

// Robot is a session with one robot controller.
// Loops may be started from any goroutine, but only one runs at a time.
type Robot struct {
	ch      Channel
	cfg     Config
	logger  *slog.Logger
	version uint16

	active atomic.Bool
	closed atomic.Bool
	state  atomic.Int32
}

// Connect opens a channel to the controller at address and negotiates the
// protocol version.
func Connect(ctx context.Context, address string, cfg Config) (*Robot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid robot config: %w", err)
	}
	netCfg := cfg.Network
	if netCfg.Logger == nil && cfg.Logger != nil {
		netCfg.Logger = cfg.Logger.With("component", "network")
	}
	ch, err := network.Open(ctx, address, netCfg)
	if err != nil {
		return nil, err
	}
	return New(ch, cfg), nil
}

// New wraps an already negotiated channel. The Robot takes ownership of ch.
func New(ch Channel, cfg Config) *Robot {
	r := &Robot{
		ch:      ch,
		cfg:     cfg,
		logger:  log.Or(cfg.Logger, "robot"),
		version: ch.ServerVersion(),
	}
	r.logger.Info("session ready", "server_version", r.version)
	return r
}

// ServerVersion returns the protocol version negotiated at connect.
func (r *Robot) ServerVersion() uint16 {
	return r.version
}

// LoopState returns the state of the current or last loop.
func (r *Robot) LoopState() LoopState {
	return LoopState(r.state.Load())
}

func (r *Robot) setState(s LoopState) {
	r.state.Store(int32(s))
}

// Close releases the channel. It is idempotent and never fails.
func (r *Robot) Close() {
	if r.closed.CompareAndSwap(false, true) {
		r.ch.Close()
	}
}

// begin claims the session for one loop.
func (r *Robot) begin() error {
	if r.closed.Load() {
		return errs.ErrClosed
	}
	if !r.active.CompareAndSwap(false, true) {
		return errs.ErrLoopActive
	}
	if r.ch.Broken() {
		r.active.Store(false)
		return errs.Network("start loop", errors.New("channel lost in a previous loop"))
	}
	return nil
}

func (r *Robot) end() {
	r.active.Store(false)
}

// Control runs pure torque control until the callback sets MotionFinished,
// the robot faults, the channel fails, or ctx is done.
func (r *Robot) Control(ctx context.Context, torques TorqueFunc) error {
	if torques == nil {
		return errors.New("franka: torque callback is required")
	}
	return r.control(ctx, nil, torques)
}

// ControlJointValues runs a joint position generator, with optional torques.
func (r *Robot) ControlJointValues(ctx context.Context, motion JointValuesFunc, torques TorqueFunc) error {
	if motion == nil {
		return errors.New("franka: motion callback is required")
	}
	return r.control(ctx, jointValuesGenerator(motion), torques)
}

// ControlJointVelocities runs a joint velocity generator, with optional torques.
func (r *Robot) ControlJointVelocities(ctx context.Context, motion JointVelocitiesFunc, torques TorqueFunc) error {
	if motion == nil {
		return errors.New("franka: motion callback is required")
	}
	return r.control(ctx, jointVelocitiesGenerator(motion), torques)
}

// ControlCartesianPose runs a Cartesian pose generator, with optional torques.
func (r *Robot) ControlCartesianPose(ctx context.Context, motion CartesianPoseFunc, torques TorqueFunc) error {
	if motion == nil {
		return errors.New("franka: motion callback is required")
	}
	return r.control(ctx, cartesianPoseGenerator(motion), torques)
}

// ControlCartesianVelocities runs a Cartesian velocity generator, with optional torques.
func (r *Robot) ControlCartesianVelocities(ctx context.Context, motion CartesianVelocitiesFunc, torques TorqueFunc) error {
	if motion == nil {
		return errors.New("franka: motion callback is required")
	}
	return r.control(ctx, cartesianVelocitiesGenerator(motion), torques)
}

// control elevates the calling goroutine and runs the loop on it. The
// previous scheduling is restored on every return path.
func (r *Robot) control(ctx context.Context, motion motionGenerator, torques TorqueFunc) error {
	if err := r.begin(); err != nil {
		return err
	}
	defer r.end()

	loop := &controlLoop{
		x:        newExchange(r.ch),
		motion:   motion,
		torques:  torques,
		name:     loopName(motion, torques),
		budget:   r.cfg.CycleBudget,
		metrics:  r.cfg.Metrics,
		setState: r.setState,
	}
	loop.logger = r.logger.With("loop", loop.name)

	guard, err := realtime.Acquire(r.cfg.Realtime, r.cfg.Scheduler, loop.logger)
	if err != nil {
		r.setState(StateIdle)
		r.cfg.Metrics.exit(loop.name, exitRealtime)
		return err
	}
	defer guard.Release()

	loop.logger.Debug("control loop started", "realtime", guard.Elevated())
	return loop.run(ctx)
}

// Read receives states until fn returns false or ctx is done. It never
// sends commands and runs at default priority.
func (r *Robot) Read(ctx context.Context, fn func(*RobotState) bool) error {
	if fn == nil {
		return errors.New("franka: read callback is required")
	}
	if err := r.begin(); err != nil {
		return err
	}
	defer r.end()

	const loop = "read"
	x := newExchange(r.ch)
	r.setState(StateStreaming)
	for {
		if err := ctx.Err(); err != nil {
			r.setState(StateIdle)
			r.cfg.Metrics.exit(loop, exitCanceled)
			return fmt.Errorf("read loop stopped: %w", err)
		}

		state, err := x.receive()
		if err != nil {
			r.setState(StateNetworkLost)
			r.cfg.Metrics.exit(loop, exitReason(err))
			r.logger.Error("read loop aborted", "error", err)
			return err
		}
		x.skip()
		r.cfg.Metrics.cycle(loop)

		if !fn(state) {
			r.setState(StateIdle)
			r.cfg.Metrics.exit(loop, exitStopped)
			return nil
		}
	}
}

// ReadOnce receives exactly one state.
func (r *Robot) ReadOnce(ctx context.Context) (*RobotState, error) {
	var out *RobotState
	err := r.Read(ctx, func(s *RobotState) bool {
		out = s
		return false
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
