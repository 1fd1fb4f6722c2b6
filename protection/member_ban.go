// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package protection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/warden-foundation/warden/lib/ref"
	"github.com/warden-foundation/warden/policy"
	"github.com/warden-foundation/warden/schema"
	"github.com/warden-foundation/warden/state"
)

// MemberBanSynchronisationName identifies the member-ban protection
// in a registry.
const MemberBanSynchronisationName = "member-ban-synchronisation"

// MemberBanSynchronisation enforces watched user-ban policies against
// room membership. A member joining (or being invited) while a
// matching ban policy exists is banned; a new ban policy is applied
// to the existing membership of every protected room; a retired
// policy unbans the members it had banned.
type MemberBanSynchronisation struct {
	rooms        RoomsView
	consequences ConsequenceProvider
	logger       *slog.Logger
}

// NewMemberBanSynchronisation constructs the protection.
func NewMemberBanSynchronisation(deps Dependencies) *MemberBanSynchronisation {
	return &MemberBanSynchronisation{
		rooms:        deps.Rooms,
		consequences: deps.Consequences,
		logger:       deps.logger(),
	}
}

func (p *MemberBanSynchronisation) Description() Description {
	return Description{
		Name:            MemberBanSynchronisationName,
		StateEventTypes: []ref.EventType{schema.MatrixEventTypeMember},
		PolicyKinds:     []schema.PolicyRuleType{schema.PolicyRuleUser},
	}
}

// HandleStateChange matches changed members against the watched
// user-ban policies and bans anyone present with a matching rule.
func (p *MemberBanSynchronisation) HandleStateChange(ctx context.Context, revision state.RoomStateRevision, changes []state.StateChange) error {
	policies := p.rooms.WatchedPolicies()
	var errs []error
	for _, change := range changes {
		if change.Event.Type != schema.MatrixEventTypeMember || change.ChangeType == state.ChangeRemoved {
			continue
		}
		userID, err := ref.ParseUserID(change.Event.StateKey)
		if err != nil {
			p.logger.Warn("skipping member event with invalid state key",
				"room_id", revision.Room(), "event_id", change.Event.ID, "error", err)
			continue
		}
		content, err := schema.DecodeMemberContent(change.Event.Content)
		if err != nil {
			p.logger.Warn("skipping undecodable member event",
				"room_id", revision.Room(), "event_id", change.Event.ID, "error", err)
			continue
		}
		if !isPresent(content.Membership) {
			continue
		}
		rule := policies.FindRuleMatchingEntity(userID.String(), schema.PolicyRuleUser, schema.RecommendationBan)
		if rule == nil {
			continue
		}
		p.logger.Info("banning member matching policy",
			"room_id", revision.Room(), "user_id", userID, "policy_room", rule.SourceEvent.RoomID)
		if err := p.consequences.BanUserInRoom(ctx, revision.Room(), userID, rule.Reason); err != nil {
			errs = append(errs, fmt.Errorf("protection: applying user policy to %s in %s: %w", userID, revision.Room(), err))
		}
	}
	return errors.Join(errs...)
}

// HandlePolicyChange applies added or modified user-ban rules to the
// whole membership of every protected room, and lifts bans matching
// removed rules.
func (p *MemberBanSynchronisation) HandlePolicyChange(ctx context.Context, revision policy.ListRevision, changes []policy.ListChange) error {
	var errs []error
	for _, change := range changes {
		rule := change.Rule
		if rule == nil || rule.Kind != schema.PolicyRuleUser || rule.Recommendation != schema.RecommendationBan {
			continue
		}
		switch change.ChangeType {
		case state.ChangeAdded, state.ChangeModified:
			errs = append(errs, p.applyRule(ctx, rule)...)
		case state.ChangeRemoved:
			errs = append(errs, p.retireRule(ctx, rule)...)
		}
	}
	return errors.Join(errs...)
}

func (p *MemberBanSynchronisation) applyRule(ctx context.Context, rule *policy.Rule) []error {
	var errs []error
	for _, room := range p.rooms.ProtectedRooms() {
		membership, ok := p.rooms.MembershipRevision(room)
		if !ok {
			continue
		}
		present := membership.MembersOfMembership(schema.MembershipJoin, schema.MembershipInvite, schema.MembershipKnock)
		for _, userID := range present {
			if !rule.MatchesEntity(userID.String()) {
				continue
			}
			p.logger.Info("banning member matching policy",
				"room_id", room, "user_id", userID, "policy_room", rule.SourceEvent.RoomID)
			if err := p.consequences.BanUserInRoom(ctx, room, userID, rule.Reason); err != nil {
				errs = append(errs, fmt.Errorf("protection: applying user policy to %s in %s: %w", userID, room, err))
			}
		}
	}
	return errs
}

func (p *MemberBanSynchronisation) retireRule(ctx context.Context, rule *policy.Rule) []error {
	var errs []error
	for _, room := range p.rooms.ProtectedRooms() {
		membership, ok := p.rooms.MembershipRevision(room)
		if !ok {
			continue
		}
		for _, userID := range membership.MembersOfMembership(schema.MembershipBan) {
			if !rule.MatchesEntity(userID.String()) {
				continue
			}
			p.logger.Info("unbanning member after policy removal",
				"room_id", room, "user_id", userID)
			if err := p.consequences.UnbanUserInRoom(ctx, room, userID); err != nil {
				errs = append(errs, fmt.Errorf("protection: retiring user policy for %s in %s: %w", userID, room, err))
			}
		}
	}
	return errs
}

// isPresent reports whether the membership gives the user a foothold
// in the room worth acting on.
func isPresent(membership schema.Membership) bool {
	switch membership {
	case schema.MembershipJoin, schema.MembershipInvite, schema.MembershipKnock:
		return true
	}
	return false
}
