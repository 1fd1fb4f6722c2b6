// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"testing"

	"github.com/warden-foundation/warden/lib/ref"
)

func TestClientsInRoomMapConsistency(t *testing.T) {
	t.Parallel()

	user := ref.MustParseUserID("@warden:example.com")
	roomA := testRoomID(t)
	roomB := testRoomID(t)

	m := NewClientsInRoomMap()
	m.AddClientRooms(NewClientRooms(user, []ref.RoomID{roomA}))

	assertConsistent := func(room ref.RoomID) {
		t.Helper()
		indexed := false
		for _, u := range m.GetManagedUsersInRoom(room) {
			if u == user {
				indexed = true
			}
		}
		occupied := m.IsClientInRoom(user, room) || m.IsClientPreemptivelyInRoom(user, room)
		if indexed != occupied {
			t.Errorf("index says %v, occupancy says %v for %s", indexed, occupied, room)
		}
	}

	assertConsistent(roomA)
	assertConsistent(roomB)

	m.PreemptTimelineJoin(user, roomB)
	if !m.IsClientPreemptivelyInRoom(user, roomB) {
		t.Fatal("preemptive join not visible through the map")
	}
	assertConsistent(roomB)

	m.HandleTimelineEvent(roomB, memberEvent(t, user, "join"))
	if !m.IsClientInRoom(user, roomB) {
		t.Fatal("confirming join not visible through the map")
	}
	assertConsistent(roomB)

	m.HandleTimelineEvent(roomA, memberEvent(t, user, "leave"))
	if m.IsClientInRoom(user, roomA) {
		t.Fatal("left room still reported joined")
	}
	assertConsistent(roomA)

	m.RemoveClientRooms(user)
	if got := m.GetManagedUsersInRoom(roomB); len(got) != 0 {
		t.Errorf("removed user still indexed: %v", got)
	}
}

func TestClientsInRoomMapRoutesFreshJoin(t *testing.T) {
	t.Parallel()

	user := ref.MustParseUserID("@warden:example.com")
	room := testRoomID(t)

	m := NewClientsInRoomMap()
	m.AddClientRooms(NewClientRooms(user, nil))

	// The user is not indexed in the room, but their own member event
	// must still reach their tracker.
	m.HandleTimelineEvent(room, memberEvent(t, user, "join"))
	if !m.IsClientInRoom(user, room) {
		t.Error("fresh join was not routed to the target user's tracker")
	}
}

func TestClientsInRoomMapPreemptUnknownUserPanics(t *testing.T) {
	t.Parallel()

	m := NewClientsInRoomMap()
	defer func() {
		if recover() == nil {
			t.Error("preempting for an unregistered user did not panic")
		}
	}()
	m.PreemptTimelineJoin(ref.MustParseUserID("@ghost:example.com"), testRoomID(t))
}
