// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package client

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

func memberEvent(t *testing.T, target ref.UserID, membership string) *schema.Event {
	t.Helper()
	stateKey := target.String()
	return &schema.Event{
		ID:       ref.MustParseEventID("$" + testutil.UniqueID("member") + ":example.com"),
		Type:     schema.MatrixEventTypeMember,
		Sender:   target,
		StateKey: &stateKey,
		Content:  json.RawMessage(`{"membership": "` + membership + `"}`),
	}
}

func TestPreemptiveJoinClosure(t *testing.T) {
	t.Parallel()

	user := ref.MustParseUserID("@warden:example.com")
	room := testRoomID(t)
	rooms := NewClientRooms(user, nil)

	rooms.PreemptTimelineJoin(room)
	if !rooms.IsPreemptivelyJoined(room) {
		t.Fatal("room not preemptively joined after preempt")
	}
	if rooms.IsJoined(room) {
		t.Fatal("preemptive join reported as confirmed")
	}

	// The confirming event promotes the entry.
	rooms.HandleTimelineEvent(room, memberEvent(t, user, "join"))
	if !rooms.IsJoined(room) {
		t.Fatal("confirming join event did not promote the preemptive entry")
	}
	if rooms.IsPreemptivelyJoined(room) {
		t.Error("promoted entry still counted as preemptive")
	}
}

func TestPreemptiveJoinFailure(t *testing.T) {
	t.Parallel()

	user := ref.MustParseUserID("@warden:example.com")
	room := testRoomID(t)
	rooms := NewClientRooms(user, nil)

	var failures []ref.RoomID
	rooms.OnRevision(func(next JoinedRoomsRevision, changes []JoinedRoomsChange, _ JoinedRoomsRevision) {
		for _, change := range changes {
			failures = append(failures, change.FailedPreemptiveJoins...)
		}
	})

	rooms.PreemptTimelineJoin(room)
	// The join never happened; a leave for the user arrives instead.
	rooms.HandleTimelineEvent(room, memberEvent(t, user, "leave"))
	if rooms.IsPreemptivelyJoined(room) || rooms.IsJoined(room) {
		t.Error("failed preemptive join still counts the room as occupied")
	}
	if len(failures) != 1 || failures[0] != room {
		t.Errorf("failed preemptive joins = %v, want [%s]", failures, room)
	}
}

func TestClientRoomsIgnoresOtherUsers(t *testing.T) {
	t.Parallel()

	user := ref.MustParseUserID("@warden:example.com")
	other := ref.MustParseUserID("@other:example.com")
	room := testRoomID(t)
	rooms := NewClientRooms(user, nil)

	rooms.HandleTimelineEvent(room, memberEvent(t, other, "join"))
	if rooms.IsJoined(room) {
		t.Error("another user's join affected this tracker")
	}
}

func TestClientRoomsPart(t *testing.T) {
	t.Parallel()

	user := ref.MustParseUserID("@warden:example.com")
	room := testRoomID(t)
	rooms := NewClientRooms(user, []ref.RoomID{room})

	if !rooms.IsJoined(room) {
		t.Fatal("seeded room not joined")
	}
	rooms.HandleTimelineEvent(room, memberEvent(t, user, "ban"))
	if rooms.IsJoined(room) {
		t.Error("banned room still counted as joined")
	}
}
