package robot

import (
	"fmt"

	errs "github.com/teslashibe/go-franka/pkg/errors"
	"github.com/teslashibe/go-franka/pkg/protocol"
)

// cyclePhase tracks where an exchange is within one cycle.
type cyclePhase int

const (
	phaseAwaitState cyclePhase = iota
	phaseHaveState
	phaseHaveCommand
	phaseSent
)

// exchange enforces the per-cycle ordering on top of a Channel: one state
// received, then exactly one command answering it. Timing is left to the
// remote side; a blocking receive paces the loop.
type exchange struct {
	ch    Channel
	phase cyclePhase
	state *protocol.RobotState
}

func newExchange(ch Channel) *exchange {
	return &exchange{ch: ch}
}

// receive waits for the next state.
func (x *exchange) receive() (*protocol.RobotState, error) {
	const op = "receive state"
	if x.phase != phaseAwaitState && x.phase != phaseSent {
		return nil, errs.Protocol(op, fmt.Errorf("state %d not answered yet", x.state.MessageID))
	}
	state, err := x.ch.ReceiveState()
	if err != nil {
		return nil, classify(op, err)
	}
	x.state = state
	x.phase = phaseHaveState
	return state, nil
}

// send answers the current state with cmd. The command's message id is
// overwritten with the state's.
func (x *exchange) send(cmd *protocol.RobotCommand) error {
	const op = "send command"
	if x.phase != phaseHaveState {
		return errs.Protocol(op, fmt.Errorf("no state to answer"))
	}
	cmd.MessageID = x.state.MessageID
	x.phase = phaseHaveCommand
	if err := x.ch.SendCommand(cmd); err != nil {
		return classify(op, err)
	}
	x.phase = phaseSent
	return nil
}

// skip drops the current state without answering it. Only the read loop
// does this.
func (x *exchange) skip() {
	x.state = nil
	x.phase = phaseAwaitState
}

// classify tags errors from foreign Channel implementations as network
// failures. Errors that already carry a kind pass through.
func classify(op string, err error) error {
	if errs.KindOf(err) != errs.KindUnknown {
		return err
	}
	return errs.Network(op, err)
}
