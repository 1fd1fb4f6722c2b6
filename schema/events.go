// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import "github.com/warden-foundation/warden/lib/ref"

// Standard Matrix state event types the moderation engine tracks.
const (
	// MatrixEventTypeMember is the room membership state event. The
	// state_key is the target user's Matrix user ID.
	MatrixEventTypeMember ref.EventType = "m.room.member"

	// MatrixEventTypePowerLevels controls who may send which state
	// events in a room. State key is always "".
	MatrixEventTypePowerLevels ref.EventType = "m.room.power_levels"

	// MatrixEventTypeServerACL restricts which servers may participate
	// in a room. State key is always "".
	MatrixEventTypeServerACL ref.EventType = "m.room.server_acl"
)

// Canonical policy rule event types (MSC2313). The state_key is an
// arbitrary identifier chosen by the rule author; by convention it
// encodes the entity, but nothing may rely on that.
const (
	MatrixEventTypePolicyRuleUser   ref.EventType = "m.policy.rule.user"
	MatrixEventTypePolicyRuleRoom   ref.EventType = "m.policy.rule.room"
	MatrixEventTypePolicyRuleServer ref.EventType = "m.policy.rule.server"
)

// Deprecated policy rule event type aliases. Old policy lists still
// contain these; they decode to the same rule kinds but lose conflicts
// against canonical-type events (see IsPolicyTypeObsolete).
const (
	EventTypeRoomRuleUser   ref.EventType = "m.room.rule.user"
	EventTypeRoomRuleRoom   ref.EventType = "m.room.rule.room"
	EventTypeRoomRuleServer ref.EventType = "m.room.rule.server"

	EventTypeMjolnirRuleUser   ref.EventType = "org.matrix.mjolnir.rule.user"
	EventTypeMjolnirRuleRoom   ref.EventType = "org.matrix.mjolnir.rule.room"
	EventTypeMjolnirRuleServer ref.EventType = "org.matrix.mjolnir.rule.server"
)

// Account data event types for persisted moderation configuration.
// The mjolnir-compatible names keep existing deployments readable by
// both tools.
const (
	// AccountDataProtectedRooms stores the list of rooms the
	// moderation tool protects.
	AccountDataProtectedRooms ref.EventType = "org.matrix.mjolnir.protected_rooms"

	// AccountDataWatchedLists stores the list of policy rooms the
	// moderation tool watches for rules.
	AccountDataWatchedLists ref.EventType = "org.matrix.mjolnir.watched_lists"
)

// ProtectedRoomsAccountData is the content of the protected-rooms
// account data event.
type ProtectedRoomsAccountData struct {
	Rooms []ref.RoomID `json:"rooms"`
}

// WatchedListsAccountData is the content of the watched-lists account
// data event.
type WatchedListsAccountData struct {
	References []ref.RoomID `json:"references"`
}
