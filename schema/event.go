// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"bytes"
	"encoding/json"

	"github.com/warden-foundation/warden/lib/codec"
	"github.com/warden-foundation/warden/lib/ref"
)

// Event is a Matrix room event as delivered by /sync or /messages.
// StateKey is a pointer: nil for timeline-only events (messages,
// reactions), non-nil — possibly pointing at "" — for state events.
type Event struct {
	ID             ref.EventID     `json:"event_id"`
	Type           ref.EventType   `json:"type"`
	Sender         ref.UserID      `json:"sender"`
	RoomID         ref.RoomID      `json:"room_id,omitempty"`
	StateKey       *string         `json:"state_key,omitempty"`
	OriginServerTS int64           `json:"origin_server_ts,omitempty"`
	Content        json.RawMessage `json:"content"`
	Unsigned       *Unsigned       `json:"unsigned,omitempty"`
}

// AsStateEvent converts the event to a StateEvent if it carries a
// state key. Returns false for timeline-only events.
func (e *Event) AsStateEvent() (*StateEvent, bool) {
	if e.StateKey == nil {
		return nil, false
	}
	return &StateEvent{
		ID:             e.ID,
		Type:           e.Type,
		Sender:         e.Sender,
		RoomID:         e.RoomID,
		StateKey:       *e.StateKey,
		OriginServerTS: e.OriginServerTS,
		Content:        e.Content,
		Unsigned:       e.Unsigned,
	}, true
}

// StateEvent is a Matrix state event. Exactly one state event exists
// per (type, state_key) pair in a room's current state; a newer event
// with the same pair replaces the older one.
type StateEvent struct {
	ID             ref.EventID     `json:"event_id"`
	Type           ref.EventType   `json:"type"`
	Sender         ref.UserID      `json:"sender"`
	RoomID         ref.RoomID      `json:"room_id,omitempty"`
	StateKey       string          `json:"state_key"`
	OriginServerTS int64           `json:"origin_server_ts,omitempty"`
	Content        json.RawMessage `json:"content"`
	Unsigned       *Unsigned       `json:"unsigned,omitempty"`
}

// Unsigned holds optional server-attached metadata. RedactedBecause is
// present when the event has been redacted; its fields are plain
// strings because redaction metadata from remote servers is not
// trustworthy enough to fail an entire event decode over.
type Unsigned struct {
	Age             int64           `json:"age,omitempty"`
	RedactedBecause *RedactionEvent `json:"redacted_because,omitempty"`
}

// RedactionEvent is the m.room.redaction event recorded in
// unsigned.redacted_because of a redacted event.
type RedactionEvent struct {
	ID      string          `json:"event_id,omitempty"`
	Sender  string          `json:"sender,omitempty"`
	Content json.RawMessage `json:"content,omitempty"`
}

// ContentIsEmpty reports whether the event content is absent, JSON
// null, or an empty object. Redactions strip an event's content down
// to `{}`, so an empty content on a state event means "this state was
// removed".
func (e *StateEvent) ContentIsEmpty() bool {
	trimmed := bytes.TrimSpace(e.Content)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return true
	}
	if !bytes.HasPrefix(trimmed, []byte("{")) {
		return false
	}
	var content map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &content); err != nil {
		return false
	}
	return len(content) == 0
}

// ContentDigest returns the structural fingerprint of the event
// content. Two state events carry the same state exactly when their
// digests are equal. Undecodable content digests as an empty document
// so that comparison still terminates deterministically.
func (e *StateEvent) ContentDigest() codec.Digest {
	digest, err := codec.JSONDigest(e.Content)
	if err != nil {
		digest, _ = codec.JSONDigest(nil)
	}
	return digest
}

// RedactionSender returns the user who redacted this event, when that
// is determinable from unsigned.redacted_because. Returns false when
// the event was not redacted or the redaction metadata is malformed.
func (e *StateEvent) RedactionSender() (ref.UserID, bool) {
	if e.Unsigned == nil || e.Unsigned.RedactedBecause == nil {
		return ref.UserID{}, false
	}
	sender, err := ref.ParseUserID(e.Unsigned.RedactedBecause.Sender)
	if err != nil {
		return ref.UserID{}, false
	}
	return sender, true
}
