// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"fmt"
	"log/slog"
	"maps"

	"github.com/warden-foundation/warden/lib/ref"
	"github.com/warden-foundation/warden/schema"
	"github.com/warden-foundation/warden/state"
)

// RuleSlot identifies one rule position in a policy room. Matrix keys
// state uniquely per (type, state_key); folding the deprecated type
// aliases into the rule kind means a legacy event and a canonical
// event for the same kind and state key compete for one slot.
type RuleSlot struct {
	Kind     schema.PolicyRuleType
	StateKey string
}

// RuleChange is one semantic delta in a policy room's rule set.
type RuleChange struct {
	ChangeType state.ChangeType

	// Event is the state event that caused the change.
	Event *schema.StateEvent

	// PreviousState is the source event of the rule previously in the
	// slot. Present iff ChangeType is modified or removed.
	PreviousState *schema.StateEvent

	// Rule is the rule after the change for added/modified, or the
	// rule that was in force for removed (the removing event itself
	// may carry no parseable content, e.g. a redaction).
	Rule *Rule

	// Sender is the user responsible. Redaction-driven removals
	// credit the redacting user when determinable.
	Sender ref.UserID
}

// RoomRevision is an immutable snapshot of one policy room's rule set.
// All mutation produces a new revision; listeners holding an old one
// observe a consistent past snapshot.
type RoomRevision struct {
	room        ref.RoomID
	id          state.RevisionID
	bySlot      map[RuleSlot]*Rule
	byEvent     map[ref.EventID]*Rule
	powerLevels *schema.PowerLevels
}

// NewBlankRoomRevision returns the initial, empty revision for a
// policy room.
func NewBlankRoomRevision(room ref.RoomID) RoomRevision {
	return RoomRevision{
		room:    room,
		id:      state.NextRevisionID(),
		bySlot:  map[RuleSlot]*Rule{},
		byEvent: map[ref.EventID]*Rule{},
	}
}

// Room returns the policy room this revision describes.
func (r RoomRevision) Room() ref.RoomID { return r.room }

// ID returns the revision's opaque version token.
func (r RoomRevision) ID() state.RevisionID { return r.id }

// IsBlank reports whether the revision records no rules. Used to
// detect a never-populated list.
func (r RoomRevision) IsBlank() bool { return len(r.bySlot) == 0 }

// GetPolicyRule returns the rule in a slot, or nil.
func (r RoomRevision) GetPolicyRule(kind schema.PolicyRuleType, stateKey string) *Rule {
	return r.bySlot[RuleSlot{Kind: kind, StateKey: stateKey}]
}

// HasEvent reports whether the revision incorporates the rule event
// with the given ID.
func (r RoomRevision) HasEvent(eventID ref.EventID) bool {
	_, ok := r.byEvent[eventID]
	return ok
}

// AllRules returns every rule in the revision, in no particular order.
func (r RoomRevision) AllRules() []*Rule {
	rules := make([]*Rule, 0, len(r.bySlot))
	for _, rule := range r.bySlot {
		rules = append(rules, rule)
	}
	return rules
}

// AllRulesOfType returns every rule of one kind, optionally filtered
// by recommendation ("" matches any).
func (r RoomRevision) AllRulesOfType(kind schema.PolicyRuleType, recommendation schema.Recommendation) []*Rule {
	var rules []*Rule
	for slot, rule := range r.bySlot {
		if slot.Kind != kind {
			continue
		}
		if recommendation != "" && rule.Recommendation != recommendation {
			continue
		}
		rules = append(rules, rule)
	}
	return rules
}

// AllRulesMatchingEntity returns every rule whose pattern matches the
// entity. When kind is empty it is inferred from the entity's sigil.
// A non-empty recommendation restricts matches further.
func (r RoomRevision) AllRulesMatchingEntity(entity string, kind schema.PolicyRuleType, recommendation schema.Recommendation) []*Rule {
	if kind == schema.PolicyRuleUnknown {
		kind = KindForEntity(entity)
	}
	var rules []*Rule
	for _, rule := range r.AllRulesOfType(kind, recommendation) {
		if rule.MatchesEntity(entity) {
			rules = append(rules, rule)
		}
	}
	return rules
}

// FindRuleMatchingEntity returns some rule matching the entity for a
// kind and recommendation, or nil. No priority order is guaranteed
// beyond "a match exists".
func (r RoomRevision) FindRuleMatchingEntity(entity string, kind schema.PolicyRuleType, recommendation schema.Recommendation) *Rule {
	if kind == schema.PolicyRuleUnknown {
		kind = KindForEntity(entity)
	}
	for _, rule := range r.AllRulesOfType(kind, recommendation) {
		if rule.MatchesEntity(entity) {
			return rule
		}
	}
	return nil
}

// IsAbleToEdit reports whether the user's power level permits sending
// rule events of the given kind in this room. Falls back to Matrix
// spec defaults when no power levels have been observed.
func (r RoomRevision) IsAbleToEdit(userID ref.UserID, kind schema.PolicyRuleType) bool {
	powerLevels := r.powerLevels
	if powerLevels == nil {
		powerLevels = &schema.PowerLevels{}
	}
	return powerLevels.CanUserEditState(userID, kind.EventType())
}

// ChangesFromState diffs a batch of state events against the revision.
// Non-policy events are skipped. Deprecated-alias events that would
// displace a canonical-type rule are logged and ignored: canonical
// types win regardless of timestamp, so a stale legacy edit can never
// resurrect or retire state rewritten under the canonical type.
func (r RoomRevision) ChangesFromState(events []*schema.StateEvent) []RuleChange {
	var changes []RuleChange
	for _, event := range events {
		kind := schema.NormalizePolicyRuleType(event.Type)
		if kind == schema.PolicyRuleUnknown {
			continue
		}
		existing := r.bySlot[RuleSlot{Kind: kind, StateKey: event.StateKey}]
		if existing != nil && schema.IsPolicyTypeObsolete(kind, existing.SourceEvent.Type, event.Type) {
			slog.Warn("ignoring obsolete policy event type",
				"room_id", r.room, "event_id", event.ID,
				"event_type", event.Type, "existing_type", existing.SourceEvent.Type)
			continue
		}
		var existingEvent *schema.StateEvent
		if existing != nil {
			existingEvent = existing.SourceEvent
		}
		changeType, ok := state.CalculateStateChange(event, existingEvent)
		if !ok {
			continue
		}
		change := RuleChange{ChangeType: changeType, Event: event}
		switch changeType {
		case state.ChangeRemoved:
			if existing == nil {
				// Removing a rule never observed is a no-op.
				continue
			}
			change.PreviousState = existingEvent
			change.Rule = existing
			change.Sender = event.Sender
			if redactor, ok := event.RedactionSender(); ok {
				change.Sender = redactor
			}
		default:
			if !schema.HasPolicyRuleEntity(event.Content) {
				// Non-empty rule content without an entity means the
				// decode step upstream broke its contract.
				panic(fmt.Sprintf("policy: event %s has non-empty rule content without an entity", event.ID))
			}
			rule, err := NewRule(kind, event)
			if err != nil {
				slog.Warn("skipping undecodable policy rule",
					"room_id", r.room, "event_id", event.ID, "error", err)
				continue
			}
			change.Rule = rule
			change.Sender = event.Sender
			if changeType == state.ChangeModified {
				change.PreviousState = existingEvent
			}
		}
		changes = append(changes, change)
	}
	return changes
}

// ReviseFromChanges applies a change list in order, producing a new
// revision with a fresh ID. Added and modified changes overwrite the
// slot and the event index; removed changes delete both entries.
// Cached power levels carry over unchanged.
func (r RoomRevision) ReviseFromChanges(changes []RuleChange) RoomRevision {
	bySlot := maps.Clone(r.bySlot)
	byEvent := maps.Clone(r.byEvent)
	for _, change := range changes {
		slot := RuleSlot{Kind: change.Rule.Kind, StateKey: change.Rule.StateKey()}
		if previous, ok := bySlot[slot]; ok {
			delete(byEvent, previous.SourceEvent.ID)
		}
		switch change.ChangeType {
		case state.ChangeRemoved:
			delete(bySlot, slot)
		default:
			bySlot[slot] = change.Rule
			byEvent[change.Rule.SourceEvent.ID] = change.Rule
		}
	}
	return RoomRevision{
		room:        r.room,
		id:          state.NextRevisionID(),
		bySlot:      bySlot,
		byEvent:     byEvent,
		powerLevels: r.powerLevels,
	}
}

// ReviseFromState diffs and applies in one step. Equivalent to
// ReviseFromChanges(ChangesFromState(events)).
func (r RoomRevision) ReviseFromState(events []*schema.StateEvent) (RoomRevision, []RuleChange) {
	changes := r.ChangesFromState(events)
	if len(changes) == 0 {
		return r, nil
	}
	return r.ReviseFromChanges(changes), changes
}

// ReviseFromPowerLevels produces a new revision caching the room's
// power levels. The rule set carries over unchanged.
func (r RoomRevision) ReviseFromPowerLevels(powerLevels schema.PowerLevels) RoomRevision {
	return RoomRevision{
		room:        r.room,
		id:          state.NextRevisionID(),
		bySlot:      r.bySlot,
		byEvent:     r.byEvent,
		powerLevels: &powerLevels,
	}
}
