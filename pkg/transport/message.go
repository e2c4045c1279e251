package transport

// Event is a complete inbound unit produced by the Reassembler.
type Event struct {
	Kind EventKind
	// Data holds the payload with the header byte removed.
	Data []byte
}

// NotificationHandler is called for each notification on a subscribed
// characteristic. Implementations should return quickly; the caller's read
// loop is blocked while the handler runs.
type NotificationHandler func(packet []byte)
