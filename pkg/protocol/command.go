package protocol

// MotionKind identifies the motion generator driving a control session.
type MotionKind string

const (
	MotionJointValues         MotionKind = "joint_values"
	MotionJointVelocities     MotionKind = "joint_velocities"
	MotionCartesianPose       MotionKind = "cartesian_pose"
	MotionCartesianVelocities MotionKind = "cartesian_velocities"
)

// Valid reports whether k is a known motion kind.
func (k MotionKind) Valid() bool {
	switch k {
	case MotionJointValues, MotionJointVelocities, MotionCartesianPose, MotionCartesianVelocities:
		return true
	}
	return false
}

// =============================================================================
// Command values produced by control callbacks
// =============================================================================

// Torques are desired joint torques (Nm), gravity compensated by the controller.
type Torques struct {
	TauJ           [NumJoints]float64
	MotionFinished bool
}

// JointValues are desired joint positions (rad).
type JointValues struct {
	Q              [NumJoints]float64
	MotionFinished bool
}

// JointVelocities are desired joint velocities (rad/s).
type JointVelocities struct {
	DQ             [NumJoints]float64
	MotionFinished bool
}

// CartesianPose is the desired end effector pose, 4x4 column-major.
type CartesianPose struct {
	OTEE           [16]float64
	MotionFinished bool
}

// CartesianVelocities is the desired end effector twist (vx, vy, vz, wx, wy, wz).
type CartesianVelocities struct {
	OdPEE          [6]float64
	MotionFinished bool
}

// MotionCommand returns the wire form of j.
func (j JointValues) MotionCommand() MotionCommand {
	return MotionCommand{Kind: MotionJointValues, Q: j.Q}
}

// MotionCommand returns the wire form of v.
func (v JointVelocities) MotionCommand() MotionCommand {
	return MotionCommand{Kind: MotionJointVelocities, DQ: v.DQ}
}

// MotionCommand returns the wire form of p.
func (p CartesianPose) MotionCommand() MotionCommand {
	return MotionCommand{Kind: MotionCartesianPose, OTEE: p.OTEE}
}

// MotionCommand returns the wire form of v.
func (v CartesianVelocities) MotionCommand() MotionCommand {
	return MotionCommand{Kind: MotionCartesianVelocities, OdPEE: v.OdPEE}
}

// ControllerCommand returns the wire form of t.
func (t Torques) ControllerCommand() ControllerCommand {
	return ControllerCommand{TauJ: t.TauJ}
}

// =============================================================================
// Wire command
// =============================================================================

// MotionCommand is the motion generator part of a cycle's command.
// Only the field matching Kind is meaningful.
type MotionCommand struct {
	Kind  MotionKind         `json:"kind"`
	Q     [NumJoints]float64 `json:"q_c"`
	DQ    [NumJoints]float64 `json:"dq_c"`
	OTEE  [16]float64        `json:"O_T_EE_c"`
	OdPEE [6]float64         `json:"O_dP_EE_c"`
}

// ControllerCommand is the torque control part of a cycle's command.
type ControllerCommand struct {
	TauJ [NumJoints]float64 `json:"tau_J_d"`
}

// RobotCommand answers exactly one RobotState.
// Motion is nil under pure torque control, Control is nil without a torque callback.
type RobotCommand struct {
	MessageID      uint64             `json:"message_id"` // Echoes the answered state
	Motion         *MotionCommand     `json:"motion,omitempty"`
	Control        *ControllerCommand `json:"control,omitempty"`
	MotionFinished bool               `json:"motion_finished"` // Last command of the motion
}
