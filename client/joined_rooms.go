// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"maps"

	"github.com/warden-foundation/warden/lib/ref"
	"github.com/warden-foundation/warden/state"
)

// JoinedRoomsRevision is an immutable snapshot of one managed user's
// room occupancy: rooms they are confirmed joined to and rooms they
// are preemptively counted in while a join is in flight.
type JoinedRoomsRevision struct {
	id         state.RevisionID
	joined     map[ref.RoomID]struct{}
	preemptive map[ref.RoomID]struct{}
}

// JoinedRoomsChange describes one revision transition: the rooms
// entering each set and the rooms leaving.
type JoinedRoomsChange struct {
	Joined                []ref.RoomID
	PreemptivelyJoined    []ref.RoomID
	Parted                []ref.RoomID
	FailedPreemptiveJoins []ref.RoomID
}

// NewBlankJoinedRoomsRevision returns the initial, empty occupancy
// revision.
func NewBlankJoinedRoomsRevision() JoinedRoomsRevision {
	return JoinedRoomsRevision{
		id:         state.NextRevisionID(),
		joined:     map[ref.RoomID]struct{}{},
		preemptive: map[ref.RoomID]struct{}{},
	}
}

// ID returns the revision's opaque version token.
func (r JoinedRoomsRevision) ID() state.RevisionID { return r.id }

// IsJoined reports confirmed membership in a room.
func (r JoinedRoomsRevision) IsJoined(room ref.RoomID) bool {
	_, ok := r.joined[room]
	return ok
}

// IsPreemptivelyJoined reports a provisional, unconfirmed join.
func (r JoinedRoomsRevision) IsPreemptivelyJoined(room ref.RoomID) bool {
	_, ok := r.preemptive[room]
	return ok
}

// Occupies reports whether the room counts as occupied: confirmed or
// preemptive.
func (r JoinedRoomsRevision) Occupies(room ref.RoomID) bool {
	return r.IsJoined(room) || r.IsPreemptivelyJoined(room)
}

// JoinedRooms returns the confirmed rooms, in no particular order.
func (r JoinedRoomsRevision) JoinedRooms() []ref.RoomID {
	rooms := make([]ref.RoomID, 0, len(r.joined))
	for room := range r.joined {
		rooms = append(rooms, room)
	}
	return rooms
}

// PreemptivelyJoinedRooms returns the provisional rooms, in no
// particular order.
func (r JoinedRoomsRevision) PreemptivelyJoinedRooms() []ref.RoomID {
	rooms := make([]ref.RoomID, 0, len(r.preemptive))
	for room := range r.preemptive {
		rooms = append(rooms, room)
	}
	return rooms
}

// reviseFromChange applies one change, producing a new revision.
func (r JoinedRoomsRevision) reviseFromChange(change JoinedRoomsChange) JoinedRoomsRevision {
	joined := maps.Clone(r.joined)
	preemptive := maps.Clone(r.preemptive)
	for _, room := range change.PreemptivelyJoined {
		preemptive[room] = struct{}{}
	}
	for _, room := range change.Joined {
		joined[room] = struct{}{}
		delete(preemptive, room)
	}
	for _, room := range change.Parted {
		delete(joined, room)
	}
	for _, room := range change.FailedPreemptiveJoins {
		delete(preemptive, room)
	}
	return JoinedRoomsRevision{
		id:         state.NextRevisionID(),
		joined:     joined,
		preemptive: preemptive,
	}
}

func (c JoinedRoomsChange) isEmpty() bool {
	return len(c.Joined) == 0 && len(c.PreemptivelyJoined) == 0 &&
		len(c.Parted) == 0 && len(c.FailedPreemptiveJoins) == 0
}
