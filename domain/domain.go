package domain

// Pointer identifies the input device behind a cursor sample.
type Pointer string

const (
	PointerMouse Pointer = "mouse"
	PointerTouch Pointer = "touch"
)

// Cursor is the last known state of one connection's cursor. X and Y
// are nil when the cursor is not currently positioned, either because
// no sample has arrived yet or because the client reported a
// positionless sample such as a touch end.
type Cursor struct {
	ID         string   `json:"id"`
	X          *float64 `json:"x,omitempty"`
	Y          *float64 `json:"y,omitempty"`
	Pointer    Pointer  `json:"pointer,omitempty"`
	Pathname   string   `json:"pathname,omitempty"`
	Color      string   `json:"color"`
	Hue        int      `json:"hue"`
	LastUpdate int64    `json:"lastUpdate"`
}

// Positioned reports whether both coordinates are present.
func (c Cursor) Positioned() bool { return c.X != nil && c.Y != nil }

// CursorPayload is the partial state a client sends per sample. Every
// field is optional; a payload with no coordinates means the cursor
// should disappear from other clients' screens.
type CursorPayload struct {
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
	Pointer  Pointer  `json:"pointer,omitempty"`
	Pathname string   `json:"pathname,omitempty"`
}

// TextLabel is one floating text snippet in the typing demo. IDs are
// client-generated and treated as opaque; the server only guarantees
// upsert-by-id semantics.
type TextLabel struct {
	ID        string  `json:"id"`
	UserID    string  `json:"userId"`
	Text      string  `json:"text"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Timestamp int64   `json:"timestamp"`
}

// LabelPayload is a client's upsert request for a label. An empty
// Text deletes the label instead.
type LabelPayload struct {
	ID        string  `json:"id"`
	Text      string  `json:"text"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Timestamp int64   `json:"timestamp"`
}

// Connection is one open client connection, as seen by room logic.
type Connection interface {
	ID() string
	Room() string
	Send(data []byte) error
	Close() error
}

// Broadcaster fans messages out to the connections of a room.
type Broadcaster interface {
	Register(conn Connection)
	Unregister(conn Connection)
	// Broadcast delivers to every room member except the sender.
	Broadcast(sender Connection, data []byte)
	// BroadcastAll delivers to every current member of the room.
	BroadcastAll(room string, data []byte)
	Stats() (rooms, clients int)
}

// SessionHandler receives connection lifecycle events from the
// transport. The transport guarantees that calls for one connection
// arrive in order; calls for different connections may interleave.
type SessionHandler interface {
	OnConnect(conn Connection)
	OnMessage(conn Connection, data []byte)
	OnClose(conn Connection)
}
