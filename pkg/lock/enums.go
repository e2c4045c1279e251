package lock

// State is the connection state of a Lock.
type State int

const (
	// StateDisconnected means there is no GATT connection.
	StateDisconnected State = iota

	// StateConnected means the GATT connection is up without a session.
	StateConnected

	// StateSecure means session keys are established but the access token
	// has not been accepted yet.
	StateSecure

	// StateAuthorized means commands may be sent.
	StateAuthorized
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnected:
		return "Connected"
	case StateSecure:
		return "Secure"
	case StateAuthorized:
		return "Authorized"
	default:
		return "Unknown"
	}
}
