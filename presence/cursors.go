// Package presence holds the per-room state machines behind the
// cursor-sharing and typing demos. Each handler owns its registries
// outright; the hub only sees opaque encoded bytes.
package presence

import (
	"log/slog"
	"sync"
	"time"

	"cursor-presence-server/domain"
	"cursor-presence-server/protocol"
)

// DefaultMinInterval is the minimum gap between accepted writes from
// one connection. Samples arriving faster are dropped, not queued;
// clients resend on the next animation frame so position converges
// regardless of drops.
const DefaultMinInterval = 50 * time.Millisecond

type cursorRoom struct {
	cursors map[string]domain.Cursor
	mu      sync.Mutex
}

// CursorHandler tracks every room's cursor registry and turns
// connection events into sync, update and remove broadcasts.
type CursorHandler struct {
	broadcaster domain.Broadcaster
	minInterval time.Duration
	palette     []paletteEntry

	rooms map[string]*cursorRoom
	mu    sync.RWMutex
}

func NewCursorHandler(b domain.Broadcaster, minInterval time.Duration) *CursorHandler {
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}
	return &CursorHandler{
		broadcaster: b,
		minInterval: minInterval,
		palette:     defaultPalette,
		rooms:       make(map[string]*cursorRoom),
	}
}

// OnConnect assigns the connection its stable color, records an
// unpositioned registry entry, and sends the new client a snapshot of
// every other positioned cursor in the room.
func (h *CursorHandler) OnConnect(conn domain.Connection) {
	r := h.roomOrCreate(conn.Room())
	entry := colorFor(conn.ID(), h.palette)

	r.mu.Lock()
	r.cursors[conn.ID()] = domain.Cursor{
		ID:    conn.ID(),
		Color: entry.Color,
		Hue:   entry.Hue,
	}
	snapshot := make(map[string]domain.Cursor)
	for id, cur := range r.cursors {
		if id == conn.ID() || !cur.Positioned() {
			continue
		}
		snapshot[id] = cur
	}
	r.mu.Unlock()

	data, err := protocol.Encode(protocol.Sync{Cursors: snapshot})
	if err != nil {
		slog.Error("encode sync", "room", conn.Room(), "error", err)
		return
	}
	if err := conn.Send(data); err != nil {
		slog.Warn("send sync", "room", conn.Room(), "clientId", conn.ID(), "error", err)
	}
}

// OnMessage merges an inbound sample into the connection's registry
// entry, subject to the write throttle, and fans the result out to the
// rest of the room. Malformed payloads and samples from unknown
// connections are dropped without side effects.
func (h *CursorHandler) OnMessage(conn domain.Connection, data []byte) {
	payload, err := protocol.DecodeCursorPayload(data)
	if err != nil {
		slog.Warn("invalid cursor payload", "clientId", conn.ID(), "error", err)
		return
	}

	r, ok := h.room(conn.Room())
	if !ok {
		return
	}

	r.mu.Lock()
	cur, ok := r.cursors[conn.ID()]
	if !ok {
		// Late packet for a connection already cleaned up.
		r.mu.Unlock()
		return
	}

	now := time.Now().UnixMilli()
	if now-cur.LastUpdate <= h.minInterval.Milliseconds() {
		r.mu.Unlock()
		return
	}

	next := domain.Cursor{
		ID:         cur.ID,
		X:          payload.X,
		Y:          payload.Y,
		Pointer:    payload.Pointer,
		Pathname:   cur.Pathname,
		Color:      cur.Color,
		Hue:        cur.Hue,
		LastUpdate: now,
	}
	if payload.Pathname != "" {
		next.Pathname = payload.Pathname
	}
	r.cursors[conn.ID()] = next
	r.mu.Unlock()

	var msg protocol.Message
	if next.Positioned() {
		msg = protocol.Update{Cursor: next}
	} else {
		// Positionless sample: the cursor disappears from peers'
		// screens but the registry entry stays until disconnect.
		msg = protocol.Remove{ID: conn.ID()}
	}
	out, err := protocol.Encode(msg)
	if err != nil {
		slog.Error("encode broadcast", "clientId", conn.ID(), "error", err)
		return
	}
	h.broadcaster.Broadcast(conn, out)
}

// OnClose drops the registry entry and tells everyone still in the
// room that the cursor is gone. A close for an unknown connection is
// a no-op.
func (h *CursorHandler) OnClose(conn domain.Connection) {
	r, ok := h.room(conn.Room())
	if !ok {
		return
	}

	r.mu.Lock()
	_, existed := r.cursors[conn.ID()]
	delete(r.cursors, conn.ID())
	empty := len(r.cursors) == 0
	r.mu.Unlock()

	if !existed {
		return
	}
	if empty {
		h.dropRoom(conn.Room())
	}

	out, err := protocol.Encode(protocol.Remove{ID: conn.ID()})
	if err != nil {
		slog.Error("encode remove", "clientId", conn.ID(), "error", err)
		return
	}
	h.broadcaster.BroadcastAll(conn.Room(), out)
}

func (h *CursorHandler) room(name string) (*cursorRoom, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.rooms[name]
	return r, ok
}

func (h *CursorHandler) roomOrCreate(name string) *cursorRoom {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[name]
	if !ok {
		r = &cursorRoom{cursors: make(map[string]domain.Cursor)}
		h.rooms[name] = r
	}
	return r
}

func (h *CursorHandler) dropRoom(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms, name)
}
