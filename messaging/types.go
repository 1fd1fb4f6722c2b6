// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"github.com/warden-foundation/warden/lib/ref"
	"github.com/warden-foundation/warden/schema"
)

// LoginRequest is the m.login.password request body.
type LoginRequest struct {
	Type                     string `json:"type"`
	User                     string `json:"user"`
	Password                 string `json:"password"`
	InitialDeviceDisplayName string `json:"initial_device_display_name,omitempty"`
}

// AuthResponse is returned by Login.
type AuthResponse struct {
	UserID      ref.UserID `json:"user_id"`
	AccessToken string     `json:"access_token"`
	DeviceID    string     `json:"device_id"`
}

// WhoAmIResponse is returned by the whoami endpoint.
type WhoAmIResponse struct {
	UserID   ref.UserID `json:"user_id"`
	DeviceID string     `json:"device_id,omitempty"`
}

// SendEventResponse is returned when sending events.
type SendEventResponse struct {
	EventID ref.EventID `json:"event_id"`
}

// JoinedRoomsResponse is returned by the joined_rooms endpoint.
type JoinedRoomsResponse struct {
	JoinedRooms []ref.RoomID `json:"joined_rooms"`
}

// SyncOptions configures a /sync request.
type SyncOptions struct {
	// Since is the pagination token from a previous sync (empty for initial sync).
	Since string
	// SetTimeout controls whether to send the timeout parameter.
	SetTimeout bool
	// Timeout is the long-poll timeout in milliseconds.
	Timeout int
	// Filter is either a server-side filter ID or inline filter JSON.
	Filter string
}

// SyncResponse is the portion of the /sync response the moderation
// engine consumes.
type SyncResponse struct {
	NextBatch string    `json:"next_batch"`
	Rooms     SyncRooms `json:"rooms"`
}

// SyncRooms groups per-room sync data by membership.
type SyncRooms struct {
	Join   map[ref.RoomID]JoinedRoomSync  `json:"join,omitempty"`
	Invite map[ref.RoomID]InvitedRoomSync `json:"invite,omitempty"`
	Leave  map[ref.RoomID]LeftRoomSync    `json:"leave,omitempty"`
}

// JoinedRoomSync holds the state delta and timeline for one joined room.
type JoinedRoomSync struct {
	State    EventBatch `json:"state"`
	Timeline Timeline   `json:"timeline"`
}

// InvitedRoomSync holds the stripped state for a pending invite.
type InvitedRoomSync struct {
	InviteState EventBatch `json:"invite_state"`
}

// LeftRoomSync holds the final events for a room the user left.
type LeftRoomSync struct {
	State    EventBatch `json:"state"`
	Timeline Timeline   `json:"timeline"`
}

// EventBatch is a list of events in a sync response section.
type EventBatch struct {
	Events []schema.Event `json:"events"`
}

// Timeline is the timeline section of a joined room's sync data.
type Timeline struct {
	Events    []schema.Event `json:"events"`
	Limited   bool           `json:"limited,omitempty"`
	PrevBatch string         `json:"prev_batch,omitempty"`
}
