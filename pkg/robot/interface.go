// Package robot drives a Franka-style manipulator over a Connection Channel.
//
// A Robot owns one channel and runs at most one loop at a time. Control loops
// answer every received state with exactly one command produced by the
// caller's callbacks; the read loop only observes.
//
// This package follows the Interface Segregation Principle (ISP) by defining
// small, focused interfaces that can be composed as needed. Consumers should
// depend only on the interfaces they actually use.
package robot

import (
	"context"

	"github.com/teslashibe/go-franka/pkg/protocol"
)

// Channel is the transport a session drives. *network.Channel implements it.
type Channel interface {
	ReceiveState() (*protocol.RobotState, error)
	SendCommand(cmd *protocol.RobotCommand) error
	ServerVersion() uint16
	Broken() bool
	Close()
}

// StateReader observes the robot without commanding it.
// Use this minimal interface for monitors and loggers.
type StateReader interface {
	Read(ctx context.Context, fn func(*RobotState) bool) error
	ReadOnce(ctx context.Context) (*RobotState, error)
}

// TorqueController runs pure torque control.
type TorqueController interface {
	Control(ctx context.Context, torques TorqueFunc) error
}

// MotionController runs a motion generator, optionally with a torque callback.
type MotionController interface {
	ControlJointValues(ctx context.Context, motion JointValuesFunc, torques TorqueFunc) error
	ControlJointVelocities(ctx context.Context, motion JointVelocitiesFunc, torques TorqueFunc) error
	ControlCartesianPose(ctx context.Context, motion CartesianPoseFunc, torques TorqueFunc) error
	ControlCartesianVelocities(ctx context.Context, motion CartesianVelocitiesFunc, torques TorqueFunc) error
}

// Session is the composite interface for full robot control.
type Session interface {
	StateReader
	TorqueController
	MotionController
	ServerVersion() uint16
	Close()
}

// Ensure Robot implements Session
var _ Session = (*Robot)(nil)
