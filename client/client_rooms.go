// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"log/slog"

	"github.com/warden-foundation/warden/lib/ref"
	"github.com/warden-foundation/warden/schema"
	"github.com/warden-foundation/warden/state"
)

// ClientRooms tracks room occupancy for one managed user and emits a
// revision whenever it changes. One instance exists per managed user,
// owned by the client-management subsystem; ClientsInRoomMap holds a
// non-owning registration.
type ClientRooms struct {
	*state.Issuer[JoinedRoomsRevision, JoinedRoomsChange]

	userID ref.UserID
}

// NewClientRooms creates a tracker for one managed user, seeded with
// the rooms the user is already known to be joined to (the
// /joined_rooms response at startup).
func NewClientRooms(userID ref.UserID, joinedRooms []ref.RoomID) *ClientRooms {
	revision := NewBlankJoinedRoomsRevision().reviseFromChange(JoinedRoomsChange{Joined: joinedRooms})
	return &ClientRooms{
		Issuer: state.NewIssuer[JoinedRoomsRevision, JoinedRoomsChange](revision),
		userID: userID,
	}
}

// UserID returns the managed user this tracker follows.
func (c *ClientRooms) UserID() ref.UserID { return c.userID }

// IsJoined reports confirmed membership in a room.
func (c *ClientRooms) IsJoined(room ref.RoomID) bool {
	return c.CurrentRevision().IsJoined(room)
}

// IsPreemptivelyJoined reports a provisional, unconfirmed join.
func (c *ClientRooms) IsPreemptivelyJoined(room ref.RoomID) bool {
	return c.CurrentRevision().IsPreemptivelyJoined(room)
}

// PreemptTimelineJoin records a room as preemptively joined before
// the join request is confirmed, closing the window in which the
// user would otherwise look absent. The confirming member event later
// promotes the entry; a failed join retires it.
func (c *ClientRooms) PreemptTimelineJoin(room ref.RoomID) {
	if c.CurrentRevision().Occupies(room) {
		return
	}
	c.apply(JoinedRoomsChange{PreemptivelyJoined: []ref.RoomID{room}})
}

// HandleTimelineEvent reconciles occupancy against a timeline event.
// Only m.room.member events for this tracker's user have any effect.
func (c *ClientRooms) HandleTimelineEvent(room ref.RoomID, event *schema.Event) {
	if event.Type != schema.MatrixEventTypeMember {
		return
	}
	if event.StateKey == nil || *event.StateKey != c.userID.String() {
		return
	}
	content, err := schema.DecodeMemberContent(event.Content)
	if err != nil {
		slog.Warn("undecodable member event for managed user",
			"user_id", c.userID, "room_id", room, "event_id", event.ID, "error", err)
		return
	}
	revision := c.CurrentRevision()
	switch content.Membership {
	case schema.MembershipJoin:
		if revision.IsJoined(room) {
			return
		}
		c.apply(JoinedRoomsChange{Joined: []ref.RoomID{room}})
	case schema.MembershipLeave, schema.MembershipBan, schema.MembershipNone:
		switch {
		case revision.IsPreemptivelyJoined(room):
			// The join this entry anticipated did not go through.
			c.apply(JoinedRoomsChange{FailedPreemptiveJoins: []ref.RoomID{room}})
		case revision.IsJoined(room):
			c.apply(JoinedRoomsChange{Parted: []ref.RoomID{room}})
		}
	}
}

func (c *ClientRooms) apply(change JoinedRoomsChange) {
	if change.isEmpty() {
		return
	}
	next := c.CurrentRevision().reviseFromChange(change)
	c.Advance(next, []JoinedRoomsChange{change})
}
