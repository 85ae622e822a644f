package sim

import (
	"time"

	"github.com/teslashibe/go-franka/pkg/protocol"
)

// identity is a 4x4 identity transform, column-major.
var identity = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

// arm is the simulated robot. It follows commands perfectly: joint targets are
// reached within one cycle and velocities are integrated over the period.
type arm struct {
	start time.Time
	q     [protocol.NumJoints]float64
	qd    [protocol.NumJoints]float64
	dq    [protocol.NumJoints]float64
	tau   [protocol.NumJoints]float64
	ee    [16]float64
	eed   [16]float64
	mode  protocol.RobotMode
}

func newState(cfg Config) *arm {
	return &arm{
		start: time.Now(),
		q:     cfg.InitialQ,
		qd:    cfg.InitialQ,
		ee:    identity,
		eed:   identity,
		mode:  protocol.ModeIdle,
	}
}

func (a *arm) snapshot(cycle uint64) *protocol.RobotState {
	return &protocol.RobotState{
		MessageID: cycle,
		TimeMs:    uint64(time.Since(a.start).Milliseconds()),
		RobotMode: a.mode,
		Q:         a.q,
		QD:        a.qd,
		DQ:        a.dq,
		TauJ:      a.tau,
		OTEE:      a.ee,
		OTEEd:     a.eed,
	}
}

func (a *arm) apply(cmd *protocol.RobotCommand, period time.Duration) {
	if cmd.Control != nil {
		a.tau = cmd.Control.TauJ
	}

	a.mode = protocol.ModeMove
	if m := cmd.Motion; m != nil {
		a.move(m, period)
	}

	if cmd.MotionFinished {
		a.mode = protocol.ModeIdle
		a.dq = [protocol.NumJoints]float64{}
	}
}

func (a *arm) move(m *protocol.MotionCommand, period time.Duration) {
	dt := period.Seconds()
	switch m.Kind {
	case protocol.MotionJointValues:
		for i := range a.q {
			a.dq[i] = (m.Q[i] - a.q[i]) / dt
		}
		a.q, a.qd = m.Q, m.Q
	case protocol.MotionJointVelocities:
		a.dq = m.DQ
		for i := range a.q {
			a.q[i] += m.DQ[i] * dt
		}
		a.qd = a.q
	case protocol.MotionCartesianPose:
		a.ee, a.eed = m.OTEE, m.OTEE
	case protocol.MotionCartesianVelocities:
		// Translation only; rotation rates are ignored by the simulator.
		for i := 0; i < 3; i++ {
			a.ee[12+i] += m.OdPEE[i] * dt
		}
		a.eed = a.ee
	}
}
