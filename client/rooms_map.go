// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"fmt"
	"sync"

	"github.com/warden-foundation/warden/lib/ref"
	"github.com/warden-foundation/warden/schema"
	"github.com/warden-foundation/warden/state"
)

// ClientsInRoomMap indexes which managed users occupy which rooms and
// routes timeline events to the ClientRooms of everyone in the
// event's room. The per-room index is maintained incrementally from
// each ClientRooms' revision stream, never recomputed from scratch.
type ClientsInRoomMap struct {
	mu           sync.RWMutex
	clientRooms  map[ref.UserID]registration
	userIDByRoom map[ref.RoomID]map[ref.UserID]struct{}
}

type registration struct {
	rooms  *ClientRooms
	handle *state.ListenerHandle
}

// NewClientsInRoomMap returns an empty map.
func NewClientsInRoomMap() *ClientsInRoomMap {
	return &ClientsInRoomMap{
		clientRooms:  map[ref.UserID]registration{},
		userIDByRoom: map[ref.RoomID]map[ref.UserID]struct{}{},
	}
}

// AddClientRooms registers a managed user's tracker. The index picks
// up the tracker's current occupancy and follows its revisions until
// removal. Registering the same user twice is a programmer error.
func (m *ClientsInRoomMap) AddClientRooms(rooms *ClientRooms) {
	userID := rooms.UserID()
	m.mu.Lock()
	if _, ok := m.clientRooms[userID]; ok {
		m.mu.Unlock()
		panic(fmt.Sprintf("client: %s is already registered", userID))
	}
	handle := rooms.OnRevision(func(next JoinedRoomsRevision, changes []JoinedRoomsChange, _ JoinedRoomsRevision) {
		m.applyRevision(userID, next, changes)
	})
	m.clientRooms[userID] = registration{rooms: rooms, handle: handle}
	revision := rooms.CurrentRevision()
	for _, room := range revision.JoinedRooms() {
		m.indexLocked(room, userID)
	}
	for _, room := range revision.PreemptivelyJoinedRooms() {
		m.indexLocked(room, userID)
	}
	m.mu.Unlock()
}

// RemoveClientRooms deregisters a managed user. Unknown users are
// ignored.
func (m *ClientsInRoomMap) RemoveClientRooms(userID ref.UserID) {
	m.mu.Lock()
	reg, ok := m.clientRooms[userID]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.clientRooms, userID)
	for room, users := range m.userIDByRoom {
		delete(users, userID)
		if len(users) == 0 {
			delete(m.userIDByRoom, room)
		}
	}
	m.mu.Unlock()
	reg.rooms.OffRevision(reg.handle)
}

// IsClientInRoom reports confirmed membership for a managed user.
// False for unregistered users.
func (m *ClientsInRoomMap) IsClientInRoom(userID ref.UserID, room ref.RoomID) bool {
	m.mu.RLock()
	reg, ok := m.clientRooms[userID]
	m.mu.RUnlock()
	return ok && reg.rooms.IsJoined(room)
}

// IsClientPreemptivelyInRoom reports a provisional join for a managed
// user. False for unregistered users.
func (m *ClientsInRoomMap) IsClientPreemptivelyInRoom(userID ref.UserID, room ref.RoomID) bool {
	m.mu.RLock()
	reg, ok := m.clientRooms[userID]
	m.mu.RUnlock()
	return ok && reg.rooms.IsPreemptivelyJoined(room)
}

// GetManagedUsersInRoom returns the managed users occupying a room
// (confirmed or preemptive), in no particular order.
func (m *ClientsInRoomMap) GetManagedUsersInRoom(room ref.RoomID) []ref.UserID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	users := make([]ref.UserID, 0, len(m.userIDByRoom[room]))
	for userID := range m.userIDByRoom[room] {
		users = append(users, userID)
	}
	return users
}

// PreemptTimelineJoin records a provisional join for a managed user.
// Preempting for an unregistered user is a programmer error.
func (m *ClientsInRoomMap) PreemptTimelineJoin(userID ref.UserID, room ref.RoomID) {
	m.mu.RLock()
	reg, ok := m.clientRooms[userID]
	m.mu.RUnlock()
	if !ok {
		panic(fmt.Sprintf("client: preempting a join for unregistered user %s", userID))
	}
	reg.rooms.PreemptTimelineJoin(room)
}

// HandleTimelineEvent routes a timeline event to the ClientRooms of
// every managed user occupying the event's room. For m.room.member
// events, the event additionally reaches its target user's tracker
// even when the index has not seen that user in the room yet, so a
// fresh join is never missed; a user already in the routed set is not
// delivered to twice.
func (m *ClientsInRoomMap) HandleTimelineEvent(room ref.RoomID, event *schema.Event) {
	m.mu.RLock()
	routed := make([]registration, 0, len(m.userIDByRoom[room]))
	delivered := map[ref.UserID]struct{}{}
	for userID := range m.userIDByRoom[room] {
		if reg, ok := m.clientRooms[userID]; ok {
			routed = append(routed, reg)
			delivered[userID] = struct{}{}
		}
	}
	if event.Type == schema.MatrixEventTypeMember && event.StateKey != nil {
		if target, err := ref.ParseUserID(*event.StateKey); err == nil {
			if _, already := delivered[target]; !already {
				if reg, ok := m.clientRooms[target]; ok {
					routed = append(routed, reg)
				}
			}
		}
	}
	m.mu.RUnlock()

	for _, reg := range routed {
		reg.rooms.HandleTimelineEvent(room, event)
	}
}

// applyRevision maintains the invariant that a user appears in
// userIDByRoom[room] exactly when their current revision counts the
// room as occupied.
func (m *ClientsInRoomMap) applyRevision(userID ref.UserID, next JoinedRoomsRevision, changes []JoinedRoomsChange) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, change := range changes {
		for _, room := range change.Joined {
			m.indexLocked(room, userID)
		}
		for _, room := range change.PreemptivelyJoined {
			m.indexLocked(room, userID)
		}
		for _, room := range change.Parted {
			m.unindexLocked(room, userID, next)
		}
		for _, room := range change.FailedPreemptiveJoins {
			m.unindexLocked(room, userID, next)
		}
	}
}

func (m *ClientsInRoomMap) indexLocked(room ref.RoomID, userID ref.UserID) {
	users, ok := m.userIDByRoom[room]
	if !ok {
		users = map[ref.UserID]struct{}{}
		m.userIDByRoom[room] = users
	}
	users[userID] = struct{}{}
}

func (m *ClientsInRoomMap) unindexLocked(room ref.RoomID, userID ref.UserID, next JoinedRoomsRevision) {
	// A parted confirmed join can coexist with a fresh preemptive
	// entry; only drop the index entry when the revision no longer
	// counts the room as occupied at all.
	if next.Occupies(room) {
		return
	}
	users, ok := m.userIDByRoom[room]
	if !ok {
		return
	}
	delete(users, userID)
	if len(users) == 0 {
		delete(m.userIDByRoom, room)
	}
}
