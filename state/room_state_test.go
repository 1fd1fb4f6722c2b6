// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package state

import (
	"encoding/json"
	"testing"

	"github.com/warden-foundation/warden/lib/ref"
	"github.com/warden-foundation/warden/lib/testutil"
	"github.com/warden-foundation/warden/schema"
)

func testRoomID(t *testing.T) ref.RoomID {
	t.Helper()
	return ref.MustParseRoomID("!" + testutil.UniqueID("room") + ":example.com")
}

func stateEvent(t *testing.T, eventType ref.EventType, stateKey, sender, content string) *schema.StateEvent {
	t.Helper()
	return &schema.StateEvent{
		ID:       ref.MustParseEventID("$" + testutil.UniqueID("event") + ":example.com"),
		Type:     eventType,
		Sender:   ref.MustParseUserID(sender),
		StateKey: stateKey,
		Content:  json.RawMessage(content),
	}
}

func redactedStateEvent(t *testing.T, eventType ref.EventType, stateKey, sender, redactor string) *schema.StateEvent {
	t.Helper()
	event := stateEvent(t, eventType, stateKey, sender, `{}`)
	event.Unsigned = &schema.Unsigned{
		RedactedBecause: &schema.RedactionEvent{
			ID:     "$" + testutil.UniqueID("redaction") + ":example.com",
			Sender: redactor,
		},
	}
	return event
}

func TestCalculateStateChange(t *testing.T) {
	t.Parallel()

	existing := stateEvent(t, schema.MatrixEventTypeServerACL, "", "@mod:example.com", `{"deny": ["evil.example"]}`)

	tests := []struct {
		name       string
		incoming   *schema.StateEvent
		existing   *schema.StateEvent
		wantChange ChangeType
		wantOK     bool
	}{
		{
			name:       "new state",
			incoming:   stateEvent(t, schema.MatrixEventTypeServerACL, "", "@mod:example.com", `{"deny": []}`),
			wantChange: ChangeAdded,
			wantOK:     true,
		},
		{
			name:       "modified state",
			incoming:   stateEvent(t, schema.MatrixEventTypeServerACL, "", "@mod:example.com", `{"deny": ["worse.example"]}`),
			existing:   existing,
			wantChange: ChangeModified,
			wantOK:     true,
		},
		{
			name:     "identical content",
			incoming: stateEvent(t, schema.MatrixEventTypeServerACL, "", "@other:example.com", `{"deny": ["evil.example"]}`),
			existing: existing,
			wantOK:   false,
		},
		{
			name:       "redacted over existing",
			incoming:   stateEvent(t, schema.MatrixEventTypeServerACL, "", "@mod:example.com", `{}`),
			existing:   existing,
			wantChange: ChangeRemoved,
			wantOK:     true,
		},
		{
			name:       "empty content with no existing",
			incoming:   stateEvent(t, schema.MatrixEventTypeServerACL, "", "@mod:example.com", `{}`),
			wantChange: ChangeRemoved,
			wantOK:     true,
		},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			change, ok := CalculateStateChange(test.incoming, test.existing)
			if ok != test.wantOK {
				t.Fatalf("ok = %v, want %v", ok, test.wantOK)
			}
			if ok && change != test.wantChange {
				t.Errorf("change = %q, want %q", change, test.wantChange)
			}
		})
	}
}

func TestRoomStateRevisionDiffAndApply(t *testing.T) {
	t.Parallel()

	room := testRoomID(t)
	revision := NewBlankRoomStateRevision(room)

	acl := stateEvent(t, schema.MatrixEventTypeServerACL, "", "@mod:example.com", `{"deny": ["evil.example"]}`)
	member := stateEvent(t, schema.MatrixEventTypeMember, "@user:example.com", "@user:example.com", `{"membership": "join"}`)

	revised, changes := revision.ReviseFromState([]*schema.StateEvent{acl, member})
	if len(changes) != 2 {
		t.Fatalf("changes = %d, want 2", len(changes))
	}
	for _, change := range changes {
		if change.ChangeType != ChangeAdded {
			t.Errorf("change type = %q, want %q", change.ChangeType, ChangeAdded)
		}
	}
	if got := revised.GetStateEvent(schema.MatrixEventTypeServerACL, ""); got != acl {
		t.Error("ACL slot does not hold the applied event")
	}
	if !revised.HasEvent(acl.ID) {
		t.Error("revision does not report the applied event ID")
	}
	if revised.ID() == revision.ID() {
		t.Error("revision transition did not mint a fresh ID")
	}

	// The prior revision must be untouched.
	if revision.GetStateEvent(schema.MatrixEventTypeServerACL, "") != nil {
		t.Error("prior revision was mutated")
	}
}

func TestRoomStateRevisionIdempotence(t *testing.T) {
	t.Parallel()

	room := testRoomID(t)
	batch := []*schema.StateEvent{
		stateEvent(t, schema.MatrixEventTypeServerACL, "", "@mod:example.com", `{"deny": ["evil.example"]}`),
		stateEvent(t, schema.MatrixEventTypeMember, "@user:example.com", "@user:example.com", `{"membership": "join"}`),
	}

	once, _ := NewBlankRoomStateRevision(room).ReviseFromState(batch)
	if again := once.ChangesFromState(batch); len(again) != 0 {
		t.Fatalf("reapplying an identical batch produced %d changes, want 0", len(again))
	}
	twice, _ := once.ReviseFromState(batch)
	if twice.ID() != once.ID() {
		t.Error("no-op batch produced a new revision")
	}
}

func TestRoomStateRevisionRedactionAttribution(t *testing.T) {
	t.Parallel()

	room := testRoomID(t)
	original := stateEvent(t, schema.MatrixEventTypeServerACL, "", "@author:example.com", `{"deny": ["evil.example"]}`)
	revision, _ := NewBlankRoomStateRevision(room).ReviseFromState([]*schema.StateEvent{original})

	redacted := redactedStateEvent(t, schema.MatrixEventTypeServerACL, "", "@author:example.com", "@mod:example.com")
	changes := revision.ChangesFromState([]*schema.StateEvent{redacted})
	if len(changes) != 1 {
		t.Fatalf("changes = %d, want 1", len(changes))
	}
	change := changes[0]
	if change.ChangeType != ChangeRemoved {
		t.Fatalf("change type = %q, want %q", change.ChangeType, ChangeRemoved)
	}
	if want := ref.MustParseUserID("@mod:example.com"); change.Sender != want {
		t.Errorf("removal attributed to %s, want %s", change.Sender, want)
	}
	if change.PreviousState != original {
		t.Error("removal does not carry the previous state event")
	}
}
