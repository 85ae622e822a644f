package robot

import (
	"fmt"

	"github.com/teslashibe/go-franka/pkg/protocol"
)

// State and command values, re-exported so callers rarely import protocol.
type (
	RobotState          = protocol.RobotState
	Torques             = protocol.Torques
	JointValues         = protocol.JointValues
	JointVelocities     = protocol.JointVelocities
	CartesianPose       = protocol.CartesianPose
	CartesianVelocities = protocol.CartesianVelocities
)

// Callbacks invoked once per cycle with the freshly received state.
// They run on the loop goroutine and must return within the cycle budget.
type (
	TorqueFunc              func(*RobotState) Torques
	JointValuesFunc         func(*RobotState) JointValues
	JointVelocitiesFunc     func(*RobotState) JointVelocities
	CartesianPoseFunc       func(*RobotState) CartesianPose
	CartesianVelocitiesFunc func(*RobotState) CartesianVelocities
)

// LoopState is the lifecycle state of a session's loop.
type LoopState int32

const (
	StateIdle LoopState = iota
	StateStreaming
	StateFinishing
	StateFaulted
	StateNetworkLost
)

// String returns the string representation of LoopState
func (s LoopState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateFinishing:
		return "finishing"
	case StateFaulted:
		return "faulted"
	case StateNetworkLost:
		return "network_lost"
	default:
		return fmt.Sprintf("LoopState(%d)", int32(s))
	}
}
