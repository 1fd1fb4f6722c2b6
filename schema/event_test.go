// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"encoding/json"
	"testing"

	"github.com/warden-foundation/warden/lib/ref"
)

func TestStateEventContentIsEmpty(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content json.RawMessage
		want    bool
	}{
		{"nil", nil, true},
		{"null", json.RawMessage(`null`), true},
		{"empty object", json.RawMessage(`{}`), true},
		{"whitespace object", json.RawMessage(` { } `), true},
		{"populated", json.RawMessage(`{"entity": "@x:example.com"}`), false},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			event := StateEvent{Content: test.content}
			if got := event.ContentIsEmpty(); got != test.want {
				t.Errorf("ContentIsEmpty() = %v, want %v", got, test.want)
			}
		})
	}
}

func TestStateEventContentDigest(t *testing.T) {
	t.Parallel()

	a := StateEvent{Content: json.RawMessage(`{"entity": "@x:example.com", "recommendation": "m.ban"}`)}
	b := StateEvent{Content: json.RawMessage(`{"recommendation": "m.ban", "entity": "@x:example.com"}`)}
	if a.ContentDigest() != b.ContentDigest() {
		t.Error("key order changed the content digest")
	}

	c := StateEvent{Content: json.RawMessage(`{"entity": "@y:example.com", "recommendation": "m.ban"}`)}
	if a.ContentDigest() == c.ContentDigest() {
		t.Error("different content produced the same digest")
	}

	empty := StateEvent{Content: json.RawMessage(`{}`)}
	null := StateEvent{Content: json.RawMessage(`null`)}
	if empty.ContentDigest() == null.ContentDigest() {
		t.Error("empty object and null should digest differently")
	}
}

func TestStateEventRedactionSender(t *testing.T) {
	t.Parallel()

	event := StateEvent{
		Unsigned: &Unsigned{
			RedactedBecause: &RedactionEvent{
				ID:     "$redaction:example.com",
				Sender: "@mod:example.com",
			},
		},
	}
	sender, ok := event.RedactionSender()
	if !ok {
		t.Fatal("redaction sender not found")
	}
	if want := ref.MustParseUserID("@mod:example.com"); sender != want {
		t.Errorf("sender = %s, want %s", sender, want)
	}

	plain := StateEvent{}
	if _, ok := plain.RedactionSender(); ok {
		t.Error("unredacted event reported a redaction sender")
	}

	malformed := StateEvent{
		Unsigned: &Unsigned{
			RedactedBecause: &RedactionEvent{Sender: "not-a-user-id"},
		},
	}
	if _, ok := malformed.RedactionSender(); ok {
		t.Error("malformed redaction sender parsed")
	}
}

func TestEventAsStateEvent(t *testing.T) {
	t.Parallel()

	key := ""
	event := Event{
		ID:       ref.MustParseEventID("$e:example.com"),
		RoomID:   ref.MustParseRoomID("!room:example.com"),
		Type:     MatrixEventTypePowerLevels,
		StateKey: &key,
		Content:  json.RawMessage(`{"users_default": 0}`),
	}
	state, ok := event.AsStateEvent()
	if !ok {
		t.Fatal("event with state key not recognized as state event")
	}
	if state.StateKey != "" {
		t.Errorf("state key = %q", state.StateKey)
	}

	timeline := Event{Type: "m.room.message"}
	if _, ok := timeline.AsStateEvent(); ok {
		t.Error("timeline event recognized as state event")
	}
}
