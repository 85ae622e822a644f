package protocol

import "fmt"

// NumJoints is the number of arm joints.
const NumJoints = 7

// RobotMode is the controller's operating mode.
type RobotMode string

const (
	ModeOther                  RobotMode = "other"
	ModeIdle                   RobotMode = "idle"
	ModeMove                   RobotMode = "move"
	ModeGuiding                RobotMode = "guiding"
	ModeReflex                 RobotMode = "reflex"
	ModeUserStopped            RobotMode = "user_stopped"
	ModeAutomaticErrorRecovery RobotMode = "automatic_error_recovery"
)

// Valid reports whether m is a known robot mode.
func (m RobotMode) Valid() bool {
	switch m {
	case ModeOther, ModeIdle, ModeMove, ModeGuiding, ModeReflex, ModeUserStopped, ModeAutomaticErrorRecovery:
		return true
	}
	return false
}

// RobotState is the snapshot sent by the controller once per cycle.
// Transformation matrices are 4x4, column-major.
type RobotState struct {
	MessageID uint64    `json:"message_id"` // Strictly increasing per session
	TimeMs    uint64    `json:"time_ms"`    // Controller time
	RobotMode RobotMode `json:"robot_mode"`

	Q    [NumJoints]float64 `json:"q"`     // Measured joint positions (rad)
	QD   [NumJoints]float64 `json:"q_d"`   // Desired joint positions (rad)
	DQ   [NumJoints]float64 `json:"dq"`    // Measured joint velocities (rad/s)
	TauJ [NumJoints]float64 `json:"tau_J"` // Measured joint torques (Nm)

	OTEE  [16]float64 `json:"O_T_EE"`   // Measured end effector pose in base frame
	OTEEd [16]float64 `json:"O_T_EE_d"` // Desired end effector pose in base frame

	// Errors lists the active controller errors by name.
	Errors []string `json:"errors,omitempty"`
}

// HasFault reports whether the controller flagged a reflex or error.
func (s *RobotState) HasFault() bool {
	return s.RobotMode == ModeReflex || len(s.Errors) > 0
}

// stateWire mirrors RobotState with slices, so truncated arrays are
// detected instead of zero filled.
type stateWire struct {
	MessageID *uint64   `json:"message_id"`
	TimeMs    uint64    `json:"time_ms"`
	RobotMode RobotMode `json:"robot_mode"`

	Q    []float64 `json:"q"`
	QD   []float64 `json:"q_d"`
	DQ   []float64 `json:"dq"`
	TauJ []float64 `json:"tau_J"`

	OTEE  []float64 `json:"O_T_EE"`
	OTEEd []float64 `json:"O_T_EE_d"`

	Errors []string `json:"errors"`
}

func (w *stateWire) state() (*RobotState, error) {
	if w.MessageID == nil {
		return nil, fmt.Errorf("robot state has no message_id")
	}
	if !w.RobotMode.Valid() {
		return nil, fmt.Errorf("unknown robot mode %q", w.RobotMode)
	}
	s := &RobotState{
		MessageID: *w.MessageID,
		TimeMs:    w.TimeMs,
		RobotMode: w.RobotMode,
		Errors:    w.Errors,
	}
	joints := []struct {
		name string
		src  []float64
		dst  *[NumJoints]float64
	}{
		{"q", w.Q, &s.Q},
		{"q_d", w.QD, &s.QD},
		{"dq", w.DQ, &s.DQ},
		{"tau_J", w.TauJ, &s.TauJ},
	}
	for _, f := range joints {
		if len(f.src) != NumJoints {
			return nil, fmt.Errorf("%s has %d values, want %d", f.name, len(f.src), NumJoints)
		}
		copy(f.dst[:], f.src)
	}
	poses := []struct {
		name string
		src  []float64
		dst  *[16]float64
	}{
		{"O_T_EE", w.OTEE, &s.OTEE},
		{"O_T_EE_d", w.OTEEd, &s.OTEEd},
	}
	for _, f := range poses {
		if len(f.src) != 16 {
			return nil, fmt.Errorf("%s has %d values, want 16", f.name, len(f.src))
		}
		copy(f.dst[:], f.src)
	}
	return s, nil
}
