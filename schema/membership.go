// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"encoding/json"
	"fmt"
)

// Membership is a Matrix membership state value.
type Membership string

const (
	MembershipJoin   Membership = "join"
	MembershipInvite Membership = "invite"
	MembershipKnock  Membership = "knock"
	MembershipLeave  Membership = "leave"
	MembershipBan    Membership = "ban"

	// MembershipNone is the implicit membership of a user with no
	// member event in the room.
	MembershipNone Membership = ""
)

// MemberContent is the decoded content of an m.room.member event.
type MemberContent struct {
	Membership  Membership `json:"membership"`
	Reason      string     `json:"reason,omitempty"`
	DisplayName string     `json:"displayname,omitempty"`
	AvatarURL   string     `json:"avatar_url,omitempty"`
}

// DecodeMemberContent decodes m.room.member content. Redacted member
// events have empty content; those decode to MembershipNone rather
// than failing.
func DecodeMemberContent(raw json.RawMessage) (MemberContent, error) {
	if len(raw) == 0 {
		return MemberContent{}, nil
	}
	var content MemberContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return MemberContent{}, fmt.Errorf("schema: decoding member content: %w", err)
	}
	return content, nil
}

// MembershipChangeType classifies a transition between two membership
// states, taking the sender into account to distinguish voluntary
// transitions from moderated ones.
type MembershipChangeType string

const (
	MembershipChangeJoined             MembershipChangeType = "joined"
	MembershipChangeRejoined           MembershipChangeType = "rejoined"
	MembershipChangeLeft               MembershipChangeType = "left"
	MembershipChangeKicked             MembershipChangeType = "kicked"
	MembershipChangeBanned             MembershipChangeType = "banned"
	MembershipChangeUnbanned           MembershipChangeType = "unbanned"
	MembershipChangeInvited            MembershipChangeType = "invited"
	MembershipChangeKnocked            MembershipChangeType = "knocked"
	MembershipChangeInvitationRejected MembershipChangeType = "invitation-rejected"
	MembershipChangeInvitationRevoked  MembershipChangeType = "invitation-revoked"
	MembershipChangeNone               MembershipChangeType = "no-change"
)

// ClassifyMembershipChange derives the change type from the previous
// membership, the next membership, and whether the member event was
// sent by the affected user themselves.
func ClassifyMembershipChange(previous, next Membership, ownEvent bool) MembershipChangeType {
	if previous == next {
		return MembershipChangeNone
	}
	switch next {
	case MembershipJoin:
		if previous == MembershipLeave {
			return MembershipChangeRejoined
		}
		return MembershipChangeJoined
	case MembershipInvite:
		return MembershipChangeInvited
	case MembershipKnock:
		return MembershipChangeKnocked
	case MembershipBan:
		return MembershipChangeBanned
	case MembershipLeave, MembershipNone:
		switch {
		case previous == MembershipBan:
			return MembershipChangeUnbanned
		case previous == MembershipInvite && ownEvent:
			return MembershipChangeInvitationRejected
		case previous == MembershipInvite:
			return MembershipChangeInvitationRevoked
		case ownEvent:
			return MembershipChangeLeft
		default:
			return MembershipChangeKicked
		}
	default:
		return MembershipChangeNone
	}
}
