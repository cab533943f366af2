package chathub

// Client is the interface for one live connection. It abstracts the
// underlying transport so the hub can manage real WebSocket connections and
// test doubles uniformly.
type Client interface {
	// GetUserID returns the authenticated user bound to the connection.
	GetUserID() uint
	// GetSocketID returns the unique id of this connection. One user may
	// hold several sockets at once.
	GetSocketID() string

	// GetSendChannel returns the channel the hub writes outbound frames
	// to. Frames are fully encoded envelopes.
	GetSendChannel() chan<- []byte

	// Run starts the connection's read and write pumps.
	Run()
	// Close releases the connection's resources. Called by the hub after
	// unregistering; must be safe to call once.
	Close()
}
