// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"log/slog"

	"github.com/warden-foundation/warden/lib/ref"
	"github.com/warden-foundation/warden/schema"
	"github.com/warden-foundation/warden/state"
)

// RoomRevisionIssuer derives a policy revision stream for one policy
// room from that room's state revision stream. Power-level changes
// update the cached power levels without an emission; rule changes
// emit.
type RoomRevisionIssuer struct {
	*state.Issuer[RoomRevision, RuleChange]

	room   ref.RoomID
	source *state.RoomStateRevisionIssuer
	handle *state.ListenerHandle
}

// NewRoomRevisionIssuer creates a policy issuer fed by the given state
// issuer, seeded from its current revision.
func NewRoomRevisionIssuer(source *state.RoomStateRevisionIssuer) *RoomRevisionIssuer {
	room := source.Room()
	seed := NewBlankRoomRevision(room)
	stateRevision := source.CurrentRevision()
	if event := stateRevision.GetStateEvent(schema.MatrixEventTypePowerLevels, ""); event != nil {
		if powerLevels, err := schema.DecodePowerLevels(event.Content); err == nil {
			seed = seed.ReviseFromPowerLevels(powerLevels)
		}
	}
	seed, _ = seed.ReviseFromState(stateRevision.AllState())
	issuer := &RoomRevisionIssuer{
		Issuer: state.NewIssuer[RoomRevision, RuleChange](seed),
		room:   room,
		source: source,
	}
	issuer.handle = source.OnRevision(issuer.handleStateRevision)
	return issuer
}

func (i *RoomRevisionIssuer) handleStateRevision(_ state.RoomStateRevision, changes []state.StateChange, _ state.RoomStateRevision) {
	current := i.CurrentRevision()
	var policyEvents []*schema.StateEvent
	for _, change := range changes {
		if change.Event.Type == schema.MatrixEventTypePowerLevels && change.Event.StateKey == "" {
			powerLevels, err := schema.DecodePowerLevels(change.Event.Content)
			if err != nil {
				slog.Warn("undecodable power levels in policy room",
					"room_id", i.room, "event_id", change.Event.ID, "error", err)
				continue
			}
			current = current.ReviseFromPowerLevels(powerLevels)
			continue
		}
		if schema.NormalizePolicyRuleType(change.Event.Type) != schema.PolicyRuleUnknown {
			policyEvents = append(policyEvents, change.Event)
		}
	}
	next, ruleChanges := current.ReviseFromState(policyEvents)
	if len(ruleChanges) == 0 {
		if current.ID() != i.CurrentRevision().ID() {
			i.Replace(current)
		}
		return
	}
	i.Advance(next, ruleChanges)
}

// Room returns the policy room this issuer tracks.
func (i *RoomRevisionIssuer) Room() ref.RoomID { return i.room }

// Detach unsubscribes from the source state issuer and drops all
// listeners.
func (i *RoomRevisionIssuer) Detach() {
	i.source.OffRevision(i.handle)
	i.UnregisterListeners()
}
