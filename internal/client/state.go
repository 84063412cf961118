package client

import "fmt"

type State int32

const (
	Disconnected State = iota
	Connecting
	AwaitingConfirmation
	Connected
	Closed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case AwaitingConfirmation:
		return "awaiting_confirmation"
	case Connected:
		return "connected"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}
