// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package protection

import (
	"context"
	"fmt"

	"github.com/warden-foundation/warden/lib/ref"
	"github.com/warden-foundation/warden/schema"
)

// ConsequenceProvider executes the effects protections request.
// Implementations talk to the homeserver; tests substitute a fake to
// assert on requested consequences without performing them.
type ConsequenceProvider interface {
	// BanUserInRoom bans the target from the room.
	BanUserInRoom(ctx context.Context, room ref.RoomID, target ref.UserID, reason string) error

	// UnbanUserInRoom lifts a ban on the target in the room.
	UnbanUserInRoom(ctx context.Context, room ref.RoomID, target ref.UserID) error

	// SetRoomServerACL overwrites the room's m.room.server_acl state.
	SetRoomServerACL(ctx context.Context, room ref.RoomID, acl schema.ServerACLContent) error
}

// ModerationSession is the slice of the Matrix client-server API the
// session-backed provider needs. Implemented by
// messaging.DirectSession.
type ModerationSession interface {
	BanUser(ctx context.Context, roomID ref.RoomID, userID ref.UserID, reason string) error
	UnbanUser(ctx context.Context, roomID ref.RoomID, userID ref.UserID) error
	SendStateEvent(ctx context.Context, roomID ref.RoomID, eventType ref.EventType, stateKey string, content any) (ref.EventID, error)
}

// SessionConsequences executes consequences through a Matrix session.
type SessionConsequences struct {
	session ModerationSession
}

// NewSessionConsequences returns a provider acting through the given
// session.
func NewSessionConsequences(session ModerationSession) *SessionConsequences {
	return &SessionConsequences{session: session}
}

func (c *SessionConsequences) BanUserInRoom(ctx context.Context, room ref.RoomID, target ref.UserID, reason string) error {
	if err := c.session.BanUser(ctx, room, target, reason); err != nil {
		return fmt.Errorf("protection: banning %s in %s: %w", target, room, err)
	}
	return nil
}

func (c *SessionConsequences) UnbanUserInRoom(ctx context.Context, room ref.RoomID, target ref.UserID) error {
	if err := c.session.UnbanUser(ctx, room, target); err != nil {
		return fmt.Errorf("protection: unbanning %s in %s: %w", target, room, err)
	}
	return nil
}

func (c *SessionConsequences) SetRoomServerACL(ctx context.Context, room ref.RoomID, acl schema.ServerACLContent) error {
	if _, err := c.session.SendStateEvent(ctx, room, schema.MatrixEventTypeServerACL, "", acl); err != nil {
		return fmt.Errorf("protection: setting server ACL in %s: %w", room, err)
	}
	return nil
}
