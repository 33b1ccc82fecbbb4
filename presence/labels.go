package presence

import (
	"log/slog"
	"strings"
	"sync"

	"cursor-presence-server/domain"
	"cursor-presence-server/protocol"
)

type labelRoom struct {
	labels map[string]domain.TextLabel
	mu     sync.Mutex
}

// LabelHandler tracks per-room text labels for the typing demo.
// Labels upsert by client-generated id; an empty text deletes.
type LabelHandler struct {
	broadcaster domain.Broadcaster

	rooms map[string]*labelRoom
	mu    sync.RWMutex
}

func NewLabelHandler(b domain.Broadcaster) *LabelHandler {
	return &LabelHandler{
		broadcaster: b,
		rooms:       make(map[string]*labelRoom),
	}
}

// OnConnect sends the new client the room's current labels.
func (h *LabelHandler) OnConnect(conn domain.Connection) {
	r := h.roomOrCreate(conn.Room())

	r.mu.Lock()
	snapshot := make(map[string]domain.TextLabel, len(r.labels))
	for id, l := range r.labels {
		snapshot[id] = l
	}
	r.mu.Unlock()

	data, err := protocol.Encode(protocol.LabelSync{Labels: snapshot})
	if err != nil {
		slog.Error("encode labelSync", "room", conn.Room(), "error", err)
		return
	}
	if err := conn.Send(data); err != nil {
		slog.Warn("send labelSync", "room", conn.Room(), "clientId", conn.ID(), "error", err)
	}
}

// OnMessage upserts or deletes one label and notifies the sender's
// peers. Upserts are idempotent by label id.
func (h *LabelHandler) OnMessage(conn domain.Connection, data []byte) {
	payload, err := protocol.DecodeLabelPayload(data)
	if err != nil {
		slog.Warn("invalid label payload", "clientId", conn.ID(), "error", err)
		return
	}
	if payload.ID == "" {
		slog.Warn("label payload without id", "clientId", conn.ID())
		return
	}

	// Create on demand: empty label rooms are dropped eagerly, so a
	// connected client may post into a room that no longer exists.
	r := h.roomOrCreate(conn.Room())

	if strings.TrimSpace(payload.Text) == "" {
		r.mu.Lock()
		_, existed := r.labels[payload.ID]
		delete(r.labels, payload.ID)
		r.mu.Unlock()

		if !existed {
			return
		}
		h.broadcast(conn, protocol.LabelRemove{ID: payload.ID})
		return
	}

	label := domain.TextLabel{
		ID:        payload.ID,
		UserID:    conn.ID(),
		Text:      payload.Text,
		X:         payload.X,
		Y:         payload.Y,
		Timestamp: payload.Timestamp,
	}

	r.mu.Lock()
	r.labels[payload.ID] = label
	r.mu.Unlock()

	h.broadcast(conn, protocol.LabelUpsert{Label: label})
}

// OnClose deletes every label owned by the leaving connection and
// tells the remaining clients to drop them.
func (h *LabelHandler) OnClose(conn domain.Connection) {
	r, ok := h.room(conn.Room())
	if !ok {
		return
	}

	r.mu.Lock()
	var removed []string
	for id, l := range r.labels {
		if l.UserID == conn.ID() {
			delete(r.labels, id)
			removed = append(removed, id)
		}
	}
	empty := len(r.labels) == 0
	r.mu.Unlock()

	if empty {
		h.dropRoom(conn.Room())
	}

	for _, id := range removed {
		out, err := protocol.Encode(protocol.LabelRemove{ID: id})
		if err != nil {
			slog.Error("encode labelRemove", "labelId", id, "error", err)
			continue
		}
		h.broadcaster.BroadcastAll(conn.Room(), out)
	}
}

func (h *LabelHandler) broadcast(sender domain.Connection, msg protocol.Message) {
	out, err := protocol.Encode(msg)
	if err != nil {
		slog.Error("encode label broadcast", "clientId", sender.ID(), "error", err)
		return
	}
	h.broadcaster.Broadcast(sender, out)
}

func (h *LabelHandler) room(name string) (*labelRoom, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.rooms[name]
	return r, ok
}

func (h *LabelHandler) roomOrCreate(name string) *labelRoom {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[name]
	if !ok {
		r = &labelRoom{labels: make(map[string]domain.TextLabel)}
		h.rooms[name] = r
	}
	return r
}

func (h *LabelHandler) dropRoom(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms, name)
}
