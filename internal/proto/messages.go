package proto

// Kind classifies a single wire line. Everything that is not one of the reserved
// sentinel texts is an ordinary payload line (None).
type Kind int

const (
	None Kind = iota
	ConnectionConfirmed
	ConnectionClosed
	ServerClosed
	EndMessage
)

// Reserved line texts. A payload line equal to one of these is read as the sentinel;
// the protocol has no escaping.
const (
	textConnectionConfirmed = "CONNECTION CONFIRMED"
	textConnectionClosed    = "CONNECTION CLOSED"
	textServerClosed        = "SERVER CLOSED"
	textEndMessage          = "MESSAGE COMPLETE"
)

// String returns the wire text of k. None has no wire text.
func (k Kind) String() string {
	switch k {
	case ConnectionConfirmed:
		return textConnectionConfirmed
	case ConnectionClosed:
		return textConnectionClosed
	case ServerClosed:
		return textServerClosed
	case EndMessage:
		return textEndMessage
	default:
		return ""
	}
}

// Name is a log-friendly identifier, distinct from the wire text.
func (k Kind) Name() string {
	switch k {
	case ConnectionConfirmed:
		return "connection_confirmed"
	case ConnectionClosed:
		return "connection_closed"
	case ServerClosed:
		return "server_closed"
	case EndMessage:
		return "end_message"
	default:
		return "none"
	}
}

// IsClosure reports whether k announces that the peer is going away.
func (k Kind) IsClosure() bool { return k == ConnectionClosed || k == ServerClosed }

// Classify maps a line to its Kind by exact text comparison.
func Classify(line string) Kind {
	switch line {
	case textConnectionConfirmed:
		return ConnectionConfirmed
	case textConnectionClosed:
		return ConnectionClosed
	case textServerClosed:
		return ServerClosed
	case textEndMessage:
		return EndMessage
	default:
		return None
	}
}
