// Package protocol defines the JSON wire format exchanged between the
// server and its clients. Server messages form a closed set of kinds;
// both Encode and Decode switch exhaustively over them so a new kind
// cannot be added without handling it at the codec boundary.
package protocol

import (
	"encoding/json"
	"fmt"

	"cursor-presence-server/domain"
)

// Wire message kinds.
const (
	TypeSync        = "sync"
	TypeUpdate      = "update"
	TypeRemove      = "remove"
	TypeLabelSync   = "labelSync"
	TypeLabel       = "label"
	TypeLabelRemove = "labelRemove"
)

// Message is a server-to-client wire message.
type Message interface {
	Kind() string
}

// Sync is the full cursor snapshot sent once to a new connection. It
// never contains the recipient's own cursor, and only positioned ones.
type Sync struct {
	Cursors map[string]domain.Cursor
}

// Update carries one connection's merged cursor state to its peers.
type Update struct {
	Cursor domain.Cursor
}

// Remove tells peers a cursor should disappear. It is sent both for
// positionless samples (cursor hidden, connection still open) and on
// disconnect.
type Remove struct {
	ID string
}

// LabelSync is the full label snapshot sent once to a new connection.
type LabelSync struct {
	Labels map[string]domain.TextLabel
}

// LabelUpsert carries one created or edited label to peers.
type LabelUpsert struct {
	Label domain.TextLabel
}

// LabelRemove tells peers a label was deleted.
type LabelRemove struct {
	ID string
}

func (Sync) Kind() string        { return TypeSync }
func (Update) Kind() string      { return TypeUpdate }
func (Remove) Kind() string      { return TypeRemove }
func (LabelSync) Kind() string   { return TypeLabelSync }
func (LabelUpsert) Kind() string { return TypeLabel }
func (LabelRemove) Kind() string { return TypeLabelRemove }

type syncEnvelope struct {
	Type    string                   `json:"type"`
	Cursors map[string]domain.Cursor `json:"cursors"`
}

// updateEnvelope flattens the cursor fields into the top level, so the
// wire shape is {type:"update", id, x, y, ...}.
type updateEnvelope struct {
	Type string `json:"type"`
	domain.Cursor
}

type removeEnvelope struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type labelSyncEnvelope struct {
	Type   string                      `json:"type"`
	Labels map[string]domain.TextLabel `json:"labels"`
}

type labelEnvelope struct {
	Type  string           `json:"type"`
	Label domain.TextLabel `json:"label"`
}

// Encode serializes a server message for the wire.
func Encode(m Message) ([]byte, error) {
	switch msg := m.(type) {
	case Sync:
		return json.Marshal(syncEnvelope{Type: TypeSync, Cursors: msg.Cursors})
	case Update:
		return json.Marshal(updateEnvelope{Type: TypeUpdate, Cursor: msg.Cursor})
	case Remove:
		return json.Marshal(removeEnvelope{Type: TypeRemove, ID: msg.ID})
	case LabelSync:
		return json.Marshal(labelSyncEnvelope{Type: TypeLabelSync, Labels: msg.Labels})
	case LabelUpsert:
		return json.Marshal(labelEnvelope{Type: TypeLabel, Label: msg.Label})
	case LabelRemove:
		return json.Marshal(removeEnvelope{Type: TypeLabelRemove, ID: msg.ID})
	default:
		return nil, fmt.Errorf("encode: unknown message type %T", m)
	}
}

// Decode parses a server message back into its concrete kind. The
// server itself only encodes; Decode exists for client adapters and
// round-trip verification.
func Decode(data []byte) (Message, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	switch head.Type {
	case TypeSync:
		var env syncEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("decode sync: %w", err)
		}
		return Sync{Cursors: env.Cursors}, nil
	case TypeUpdate:
		var env updateEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("decode update: %w", err)
		}
		return Update{Cursor: env.Cursor}, nil
	case TypeRemove:
		var env removeEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("decode remove: %w", err)
		}
		return Remove{ID: env.ID}, nil
	case TypeLabelSync:
		var env labelSyncEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("decode labelSync: %w", err)
		}
		return LabelSync{Labels: env.Labels}, nil
	case TypeLabel:
		var env labelEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("decode label: %w", err)
		}
		return LabelUpsert{Label: env.Label}, nil
	case TypeLabelRemove:
		var env removeEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("decode labelRemove: %w", err)
		}
		return LabelRemove{ID: env.ID}, nil
	default:
		return nil, fmt.Errorf("decode: unknown message type %q", head.Type)
	}
}

// DecodeCursorPayload parses a client cursor sample.
func DecodeCursorPayload(data []byte) (domain.CursorPayload, error) {
	var p domain.CursorPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.CursorPayload{}, fmt.Errorf("decode cursor payload: %w", err)
	}
	return p, nil
}

// DecodeLabelPayload parses a client label upsert.
func DecodeLabelPayload(data []byte) (domain.LabelPayload, error) {
	var p domain.LabelPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.LabelPayload{}, fmt.Errorf("decode label payload: %w", err)
	}
	return p, nil
}
