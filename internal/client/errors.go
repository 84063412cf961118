package client

import "errors"

var (
	ErrClientClosed = errors.New("client: closed")
	ErrNotConnected = errors.New("client: not connected")
)

// ConnectError reports a dial or passcode write that failed before the server could
// answer.
type ConnectError struct {
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return "unable to connect to " + e.Addr + ": " + e.Err.Error()
}

func (e *ConnectError) Unwrap() error { return e.Err }
