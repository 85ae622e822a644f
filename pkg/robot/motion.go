package robot

import "github.com/teslashibe/go-franka/pkg/protocol"

// motionGenerator adapts one motion callback family to the engine.
// hold builds the command that stops the motion from the given state.
type motionGenerator interface {
	kind() protocol.MotionKind
	produce(s *RobotState) (protocol.MotionCommand, bool)
	hold(s *RobotState) protocol.MotionCommand
}

type jointValuesGenerator JointValuesFunc

func (jointValuesGenerator) kind() protocol.MotionKind { return protocol.MotionJointValues }

func (f jointValuesGenerator) produce(s *RobotState) (protocol.MotionCommand, bool) {
	v := f(s)
	return v.MotionCommand(), v.MotionFinished
}

func (jointValuesGenerator) hold(s *RobotState) protocol.MotionCommand {
	return JointValues{Q: s.Q}.MotionCommand()
}

type jointVelocitiesGenerator JointVelocitiesFunc

func (jointVelocitiesGenerator) kind() protocol.MotionKind { return protocol.MotionJointVelocities }

func (f jointVelocitiesGenerator) produce(s *RobotState) (protocol.MotionCommand, bool) {
	v := f(s)
	return v.MotionCommand(), v.MotionFinished
}

func (jointVelocitiesGenerator) hold(*RobotState) protocol.MotionCommand {
	return JointVelocities{}.MotionCommand()
}

type cartesianPoseGenerator CartesianPoseFunc

func (cartesianPoseGenerator) kind() protocol.MotionKind { return protocol.MotionCartesianPose }

func (f cartesianPoseGenerator) produce(s *RobotState) (protocol.MotionCommand, bool) {
	v := f(s)
	return v.MotionCommand(), v.MotionFinished
}

func (cartesianPoseGenerator) hold(s *RobotState) protocol.MotionCommand {
	return CartesianPose{OTEE: s.OTEE}.MotionCommand()
}

type cartesianVelocitiesGenerator CartesianVelocitiesFunc

func (cartesianVelocitiesGenerator) kind() protocol.MotionKind {
	return protocol.MotionCartesianVelocities
}

func (f cartesianVelocitiesGenerator) produce(s *RobotState) (protocol.MotionCommand, bool) {
	v := f(s)
	return v.MotionCommand(), v.MotionFinished
}

func (cartesianVelocitiesGenerator) hold(*RobotState) protocol.MotionCommand {
	return CartesianVelocities{}.MotionCommand()
}
