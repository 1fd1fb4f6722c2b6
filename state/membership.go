// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package state

import (
	"log/slog"
	"maps"

	"github.com/warden-foundation/warden/lib/ref"
	"github.com/warden-foundation/warden/schema"
)

// MembershipChange is one membership transition observed in a room.
type MembershipChange struct {
	UserID  ref.UserID
	EventID ref.EventID
	RoomID  ref.RoomID
	Sender  ref.UserID

	Membership         schema.Membership
	PreviousMembership schema.Membership
	ChangeType         schema.MembershipChangeType

	Content schema.MemberContent
}

// RoomMembershipRevision is an immutable snapshot of a room's
// membership, derived from m.room.member state events.
type RoomMembershipRevision struct {
	room   ref.RoomID
	id     RevisionID
	byUser map[ref.UserID]MembershipChange
}

// NewBlankRoomMembershipRevision returns the initial, empty
// membership revision for a room.
func NewBlankRoomMembershipRevision(room ref.RoomID) RoomMembershipRevision {
	return RoomMembershipRevision{
		room:   room,
		id:     NextRevisionID(),
		byUser: map[ref.UserID]MembershipChange{},
	}
}

// Room returns the room this revision describes.
func (r RoomMembershipRevision) Room() ref.RoomID { return r.room }

// ID returns the revision's opaque version token.
func (r RoomMembershipRevision) ID() RevisionID { return r.id }

// MembershipForUser returns the user's current membership.
// MembershipNone for users with no member event in the room.
func (r RoomMembershipRevision) MembershipForUser(userID ref.UserID) schema.Membership {
	return r.byUser[userID].Membership
}

// Members returns the last recorded membership change for every user
// with a member event in the room, in no particular order.
func (r RoomMembershipRevision) Members() []MembershipChange {
	members := make([]MembershipChange, 0, len(r.byUser))
	for _, member := range r.byUser {
		members = append(members, member)
	}
	return members
}

// MembersOfMembership returns the users whose current membership is
// one of the given states, in no particular order.
func (r RoomMembershipRevision) MembersOfMembership(memberships ...schema.Membership) []ref.UserID {
	var users []ref.UserID
	for userID, member := range r.byUser {
		for _, membership := range memberships {
			if member.Membership == membership {
				users = append(users, userID)
				break
			}
		}
	}
	return users
}

// JoinedUsers returns the users currently joined to the room, in no
// particular order.
func (r RoomMembershipRevision) JoinedUsers() []ref.UserID {
	var joined []ref.UserID
	for userID, member := range r.byUser {
		if member.Membership == schema.MembershipJoin {
			joined = append(joined, userID)
		}
	}
	return joined
}

// ChangesFromMembership diffs a batch of m.room.member events against
// the revision. Non-member events and member events whose state key
// is not a valid user ID are skipped. Events that do not change the
// user's membership produce no entry.
func (r RoomMembershipRevision) ChangesFromMembership(events []*schema.StateEvent) []MembershipChange {
	var changes []MembershipChange
	for _, event := range events {
		if event.Type != schema.MatrixEventTypeMember {
			continue
		}
		userID, err := ref.ParseUserID(event.StateKey)
		if err != nil {
			slog.Warn("member event with invalid state key skipped",
				"room_id", r.room, "event_id", event.ID, "state_key", event.StateKey)
			continue
		}
		content, err := schema.DecodeMemberContent(event.Content)
		if err != nil {
			slog.Warn("undecodable member event skipped",
				"room_id", r.room, "event_id", event.ID, "error", err)
			continue
		}
		previous := r.byUser[userID].Membership
		changeType := schema.ClassifyMembershipChange(previous, content.Membership, event.Sender == userID)
		if changeType == schema.MembershipChangeNone {
			continue
		}
		changes = append(changes, MembershipChange{
			UserID:             userID,
			EventID:            event.ID,
			RoomID:             r.room,
			Sender:             event.Sender,
			Membership:         content.Membership,
			PreviousMembership: previous,
			ChangeType:         changeType,
			Content:            content,
		})
	}
	return changes
}

// ReviseFromChanges applies membership changes in order, producing a
// new revision with a fresh ID.
func (r RoomMembershipRevision) ReviseFromChanges(changes []MembershipChange) RoomMembershipRevision {
	byUser := maps.Clone(r.byUser)
	for _, change := range changes {
		byUser[change.UserID] = change
	}
	return RoomMembershipRevision{
		room:   r.room,
		id:     NextRevisionID(),
		byUser: byUser,
	}
}

// ReviseFromMembership diffs and applies in one step.
func (r RoomMembershipRevision) ReviseFromMembership(events []*schema.StateEvent) (RoomMembershipRevision, []MembershipChange) {
	changes := r.ChangesFromMembership(events)
	if len(changes) == 0 {
		return r, nil
	}
	return r.ReviseFromChanges(changes), changes
}
