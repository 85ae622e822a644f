package robot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	errs "github.com/teslashibe/go-franka/pkg/errors"
	"github.com/teslashibe/go-franka/pkg/protocol"
)

// Exit reasons reported in franka_loop_exits_total.
const (
	exitFinished = "finished"
	exitFault    = "fault"
	exitCanceled = "canceled"
	exitNetwork  = "network"
	exitProtocol = "protocol"
	exitRealtime = "realtime"
	exitStopped  = "stopped"
)

// overrunLogGap rate limits budget overrun warnings.
const overrunLogGap = time.Second

// controlLoop runs one control session: receive a state, fill in a command
// from the callbacks, send it, until the motion finishes or something fails.
// Either motion or torques may be nil, not both.
type controlLoop struct {
	x       *exchange
	motion  motionGenerator
	torques TorqueFunc

	name     string
	budget   time.Duration
	logger   *slog.Logger
	metrics  *Metrics
	setState func(LoopState)

	// Stats
	cycles         uint64
	overruns       uint64
	lastOverrunLog time.Time
}

// loopName returns the metrics label of a control session.
func loopName(motion motionGenerator, torques TorqueFunc) string {
	switch {
	case motion == nil:
		return "torque"
	case torques == nil:
		return string(motion.kind())
	default:
		return string(motion.kind()) + "+torque"
	}
}

// run executes cycles until a terminal condition. It returns nil only when
// a callback signalled the end of the motion and that command was sent.
func (l *controlLoop) run(ctx context.Context) error {
	l.setState(StateStreaming)
	for {
		state, err := l.x.receive()
		if err != nil {
			return l.lost(err)
		}

		if state.HasFault() {
			return l.fault(state)
		}

		if err := ctx.Err(); err != nil {
			return l.cancel(state, err)
		}

		cmd, finished := l.produce(state)
		if finished {
			l.setState(StateFinishing)
		}
		if err := l.x.send(cmd); err != nil {
			return l.lost(err)
		}
		l.cycles++
		l.metrics.cycle(l.name)

		if finished {
			l.logger.Info("motion finished", "cycles", l.cycles, "overruns", l.overruns)
			l.metrics.exit(l.name, exitFinished)
			l.setState(StateIdle)
			return nil
		}
	}
}

// produce invokes the callbacks for one state. Both callbacks see the same
// state and their outputs travel in one command.
func (l *controlLoop) produce(state *RobotState) (*protocol.RobotCommand, bool) {
	cmd := &protocol.RobotCommand{}

	start := time.Now()
	if l.motion != nil {
		m, done := l.motion.produce(state)
		cmd.Motion = &m
		cmd.MotionFinished = done
	}
	if l.torques != nil {
		t := l.torques(state)
		c := t.ControllerCommand()
		cmd.Control = &c
		if t.MotionFinished {
			cmd.MotionFinished = true
		}
	}
	l.observe(state, time.Since(start))

	return cmd, cmd.MotionFinished
}

// observe accounts callback time against the budget. Overruns are never
// fatal; the log is rate limited to one line per second.
func (l *controlLoop) observe(state *RobotState, elapsed time.Duration) {
	overrun := l.budget > 0 && elapsed > l.budget
	l.metrics.callback(elapsed, overrun)
	if !overrun {
		return
	}
	l.overruns++
	if l.lastOverrunLog.IsZero() || time.Since(l.lastOverrunLog) > overrunLogGap {
		l.logger.Warn("callback exceeded cycle budget",
			"message_id", state.MessageID,
			"elapsed", elapsed,
			"budget", l.budget,
			"total_overruns", l.overruns)
		l.lastOverrunLog = time.Now()
	}
}

// stopCommand ends the motion from state: position generators hold the
// measured pose, velocity generators and torques command zero.
func (l *controlLoop) stopCommand(state *RobotState) *protocol.RobotCommand {
	cmd := &protocol.RobotCommand{MotionFinished: true}
	if l.motion != nil {
		m := l.motion.hold(state)
		cmd.Motion = &m
	}
	if l.torques != nil {
		cmd.Control = &protocol.ControllerCommand{}
	}
	return cmd
}

// fault answers a faulted state with one stop command and reports the
// remote errors.
func (l *controlLoop) fault(state *RobotState) error {
	remote := describeFault(state)
	l.logger.Warn("robot reported a fault, stopping", "message_id", state.MessageID, "fault", remote)

	if err := l.x.send(l.stopCommand(state)); err != nil {
		l.setState(StateNetworkLost)
		l.metrics.exit(l.name, exitNetwork)
		return errs.Newf(errs.KindNetwork, "send stop command", "%w (after fault: %s)", err, remote)
	}

	l.setState(StateFaulted)
	l.metrics.exit(l.name, exitFault)
	return errs.Newf(errs.KindControl, "control loop", "motion aborted by %s", remote)
}

// cancel answers the current state with a stop command and returns the
// context's error.
func (l *controlLoop) cancel(state *RobotState, cause error) error {
	if err := l.x.send(l.stopCommand(state)); err != nil {
		return l.lost(err)
	}
	l.logger.Info("control loop canceled", "cycles", l.cycles)
	l.metrics.exit(l.name, exitCanceled)
	l.setState(StateIdle)
	return fmt.Errorf("control loop stopped: %w", cause)
}

// lost records a fatal transport failure. The channel is not reused.
func (l *controlLoop) lost(err error) error {
	l.setState(StateNetworkLost)
	l.metrics.exit(l.name, exitReason(err))
	l.logger.Error("control loop aborted", "cycles", l.cycles, "error", err)
	return err
}

func exitReason(err error) string {
	if errs.IsProtocol(err) {
		return exitProtocol
	}
	return exitNetwork
}

func describeFault(state *RobotState) string {
	if len(state.Errors) == 0 {
		return fmt.Sprintf("robot mode %s", state.RobotMode)
	}
	return fmt.Sprintf("robot mode %s: %s", state.RobotMode, strings.Join(state.Errors, ", "))
}
