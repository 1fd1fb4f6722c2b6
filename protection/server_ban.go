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

// ServerBanSynchronisationName identifies the server-ban protection
// in a registry.
const ServerBanSynchronisationName = "server-ban-synchronisation"

// ServerBanSynchronisation keeps each protected room's server ACL in
// line with the watched server-ban policies. An ACL state change in a
// protected room triggers a comparison against the compiled ACL; a
// server-policy change recompiles the ACL and pushes it to every
// protected room whose current ACL differs.
type ServerBanSynchronisation struct {
	rooms        RoomsView
	consequences ConsequenceProvider
	ownServer    ref.ServerName
	logger       *slog.Logger
}

// NewServerBanSynchronisation constructs the protection.
func NewServerBanSynchronisation(deps Dependencies) *ServerBanSynchronisation {
	return &ServerBanSynchronisation{
		rooms:        deps.Rooms,
		consequences: deps.Consequences,
		ownServer:    deps.OwnServer,
		logger:       deps.logger(),
	}
}

func (p *ServerBanSynchronisation) Description() Description {
	return Description{
		Name:            ServerBanSynchronisationName,
		StateEventTypes: []ref.EventType{schema.MatrixEventTypeServerACL},
		PolicyKinds:     []schema.PolicyRuleType{schema.PolicyRuleServer},
	}
}

// HandleStateChange reacts to an ACL edit in a protected room: if the
// room's new ACL differs from the one the watched policies imply, the
// compiled ACL is pushed back. State events are keyed uniquely by
// type and state key, so a batch can carry at most one ACL change;
// more than one means the revision engine produced an impossible
// batch.
func (p *ServerBanSynchronisation) HandleStateChange(ctx context.Context, revision state.RoomStateRevision, changes []state.StateChange) error {
	var aclChange *state.StateChange
	for i := range changes {
		if changes[i].Event.Type != schema.MatrixEventTypeServerACL {
			continue
		}
		if aclChange != nil {
			panic(fmt.Sprintf("protection: %d m.room.server_acl changes in one revision batch for %s", countACLChanges(changes), revision.Room()))
		}
		aclChange = &changes[i]
	}
	if aclChange == nil {
		return nil
	}

	current, err := schema.DecodeServerACLContent(aclChange.Event.Content)
	if err != nil {
		p.logger.Warn("ignoring undecodable server ACL",
			"room_id", revision.Room(), "event_id", aclChange.Event.ID, "error", err)
		current = schema.ServerACLContent{}
	}
	desired := CompileServerACL(p.ownServer, p.rooms.WatchedPolicies())
	if desired.Equal(current) {
		return nil
	}
	p.logger.Info("restoring server ACL", "room_id", revision.Room())
	if err := p.consequences.SetRoomServerACL(ctx, revision.Room(), desired); err != nil {
		return fmt.Errorf("protection: synchronising server ACL in %s: %w", revision.Room(), err)
	}
	return nil
}

// HandlePolicyChange recompiles the ACL when server rules change and
// applies it to every protected room that is out of line. Rooms whose
// stored ACL already matches are left alone.
func (p *ServerBanSynchronisation) HandlePolicyChange(ctx context.Context, revision policy.ListRevision, changes []policy.ListChange) error {
	relevant := false
	for _, change := range changes {
		if change.Rule != nil && change.Rule.Kind == schema.PolicyRuleServer {
			relevant = true
			break
		}
	}
	if !relevant {
		return nil
	}

	desired := CompileServerACL(p.ownServer, revision)
	var errs []error
	for _, room := range p.rooms.ProtectedRooms() {
		current := p.currentACL(room)
		if desired.Equal(current) {
			continue
		}
		p.logger.Info("updating server ACL", "room_id", room, "deny_count", len(desired.Deny))
		if err := p.consequences.SetRoomServerACL(ctx, room, desired); err != nil {
			errs = append(errs, fmt.Errorf("protection: updating server ACL in %s: %w", room, err))
		}
	}
	return errors.Join(errs...)
}

func (p *ServerBanSynchronisation) currentACL(room ref.RoomID) schema.ServerACLContent {
	stateRevision, ok := p.rooms.StateRevision(room)
	if !ok {
		return schema.ServerACLContent{}
	}
	event := stateRevision.GetStateEvent(schema.MatrixEventTypeServerACL, "")
	if event == nil {
		return schema.ServerACLContent{}
	}
	content, err := schema.DecodeServerACLContent(event.Content)
	if err != nil {
		p.logger.Warn("ignoring undecodable server ACL",
			"room_id", room, "event_id", event.ID, "error", err)
		return schema.ServerACLContent{}
	}
	return content
}

func countACLChanges(changes []state.StateChange) int {
	n := 0
	for _, change := range changes {
		if change.Event.Type == schema.MatrixEventTypeServerACL {
			n++
		}
	}
	return n
}
