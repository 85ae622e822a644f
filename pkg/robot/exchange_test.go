package robot

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/teslashibe/go-franka/pkg/errors"
	"github.com/teslashibe/go-franka/pkg/protocol"
)

func TestExchange_EchoesMessageID(t *testing.T) {
	ch := newFakeChannel(script(2)...)
	x := newExchange(ch)

	s, err := x.receive()
	require.NoError(t, err)
	require.NoError(t, x.send(&protocol.RobotCommand{MessageID: 99}))

	assert.Equal(t, s.MessageID, ch.commands()[0].MessageID)
}

func TestExchange_RejectsOutOfOrder(t *testing.T) {
	ch := newFakeChannel(script(3)...)
	x := newExchange(ch)

	assert.True(t, errs.IsProtocol(x.send(&protocol.RobotCommand{})), "send before receive")

	_, err := x.receive()
	require.NoError(t, err)
	_, err = x.receive()
	assert.True(t, errs.IsProtocol(err), "receive with unanswered state")

	require.NoError(t, x.send(&protocol.RobotCommand{}))
	assert.True(t, errs.IsProtocol(x.send(&protocol.RobotCommand{})), "two commands for one state")
	assert.Equal(t, 1, ch.receives())
}

func TestExchange_Skip(t *testing.T) {
	ch := newFakeChannel(script(2)...)
	x := newExchange(ch)

	_, err := x.receive()
	require.NoError(t, err)
	x.skip()
	_, err = x.receive()
	assert.NoError(t, err)
}

// plainChannel fails with errors that carry no kind.
type plainChannel struct{ fakeChannel }

func (*plainChannel) ReceiveState() (*protocol.RobotState, error) {
	return nil, errors.New("connection reset by peer")
}

func TestExchange_ClassifiesForeignErrors(t *testing.T) {
	x := newExchange(&plainChannel{})

	_, err := x.receive()
	assert.Equal(t, errs.KindNetwork, errs.KindOf(err))

	perr := errs.Protocol("receive state", errors.New("bad json"))
	assert.Equal(t, perr, classify("receive state", perr))
}
