// Package errors classifies the failures of a robot session.
//
// Every fallible boundary (connect, receive, send, realtime elevation, model
// library loading) returns an *Error tagged with a Kind. Callers match on the
// kind instead of on concrete types:
//
//	switch errs.KindOf(err) {
//	case errs.KindControl:
//		// robot reflex, safe to reconnect and retry
//	case errs.KindNetwork:
//		// channel is gone, open a new session
//	}
//
// or with the standard library:
//
//	if errors.Is(err, errs.ErrNetwork) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Kind identifies the class of a failure.
type Kind int

const (
	// KindUnknown is returned by KindOf for errors not produced by this module.
	KindUnknown Kind = iota
	// KindNetwork means the channel is unreachable, lost or timed out.
	KindNetwork
	// KindProtocol means a received payload was malformed or unexpected.
	KindProtocol
	// KindIncompatibleVersion means the server version is not supported.
	KindIncompatibleVersion
	// KindControl means the remote controller reported a fault or reflex.
	KindControl
	// KindRealtime means realtime scheduling was required but unavailable.
	KindRealtime
	// KindModelLibrary means the model library could not be loaded or queried.
	KindModelLibrary
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindProtocol:
		return "protocol"
	case KindIncompatibleVersion:
		return "incompatible version"
	case KindControl:
		return "control"
	case KindRealtime:
		return "realtime"
	case KindModelLibrary:
		return "model library"
	default:
		return "unknown"
	}
}

// Sentinels matched by errors.Is against any *Error of the same kind.
var (
	ErrNetwork             = errors.New("franka: network error")
	ErrProtocol            = errors.New("franka: protocol error")
	ErrIncompatibleVersion = errors.New("franka: incompatible version")
	ErrControl             = errors.New("franka: control error")
	ErrRealtime            = errors.New("franka: realtime error")
	ErrModelLibrary        = errors.New("franka: model library error")
)

// Programming errors. These are not part of the failure taxonomy: they mean
// the session was used in a way it does not allow.
var (
	// ErrLoopActive is returned when a control or read loop is started while
	// another loop is running on the same session.
	ErrLoopActive = errors.New("franka: a control or read loop is already active")

	// ErrClosed is returned when a loop is started on a closed session.
	ErrClosed = errors.New("franka: session closed")
)

func (k Kind) sentinel() error {
	switch k {
	case KindNetwork:
		return ErrNetwork
	case KindProtocol:
		return ErrProtocol
	case KindIncompatibleVersion:
		return ErrIncompatibleVersion
	case KindControl:
		return ErrControl
	case KindRealtime:
		return ErrRealtime
	case KindModelLibrary:
		return ErrModelLibrary
	default:
		return nil
	}
}

// Error is a classified failure.
type Error struct {
	// Kind is the failure class.
	Kind Kind

	// Op names the operation that failed, e.g. "receive state".
	Op string

	// Err is the underlying cause. May be nil.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("franka: %s: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("franka: %s: %s: %v", e.Kind, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel of e's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// New returns an *Error of the given kind wrapping err.
func New(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf returns an *Error of the given kind with a formatted cause.
func Newf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Network wraps err as a network failure.
func Network(op string, err error) error { return New(KindNetwork, op, err) }

// Protocol wraps err as a protocol failure.
func Protocol(op string, err error) error { return New(KindProtocol, op, err) }

// IsNetwork reports whether err is a network failure.
func IsNetwork(err error) bool { return errors.Is(err, ErrNetwork) }

// IsProtocol reports whether err is a protocol failure.
func IsProtocol(err error) bool { return errors.Is(err, ErrProtocol) }

// IsControl reports whether err is a remote control failure.
func IsControl(err error) bool { return errors.Is(err, ErrControl) }

// IsRealtime reports whether err is a realtime scheduling failure.
func IsRealtime(err error) bool { return errors.Is(err, ErrRealtime) }
