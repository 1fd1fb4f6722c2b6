// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package state

import (
	"maps"

	"github.com/warden-foundation/warden/lib/ref"
	"github.com/warden-foundation/warden/schema"
)

// StateKey identifies one state slot in a room. Matrix guarantees at
// most one current event per slot.
type StateKey struct {
	Type ref.EventType
	Key  string
}

// RoomStateRevision is an immutable snapshot of a room's full state.
// Applying a batch of events produces a new revision; the receiver is
// never mutated.
type RoomStateRevision struct {
	room    ref.RoomID
	id      RevisionID
	bySlot  map[StateKey]*schema.StateEvent
	byEvent map[ref.EventID]*schema.StateEvent
}

// NewBlankRoomStateRevision returns the initial, empty revision for a
// room.
func NewBlankRoomStateRevision(room ref.RoomID) RoomStateRevision {
	return RoomStateRevision{
		room:    room,
		id:      NextRevisionID(),
		bySlot:  map[StateKey]*schema.StateEvent{},
		byEvent: map[ref.EventID]*schema.StateEvent{},
	}
}

// Room returns the room this revision describes.
func (r RoomStateRevision) Room() ref.RoomID { return r.room }

// ID returns the revision's opaque version token.
func (r RoomStateRevision) ID() RevisionID { return r.id }

// GetStateEvent returns the current event in a state slot, or nil.
func (r RoomStateRevision) GetStateEvent(eventType ref.EventType, stateKey string) *schema.StateEvent {
	return r.bySlot[StateKey{Type: eventType, Key: stateKey}]
}

// GetStateEventsOfType returns all current events of one type, in no
// particular order.
func (r RoomStateRevision) GetStateEventsOfType(eventType ref.EventType) []*schema.StateEvent {
	var events []*schema.StateEvent
	for slot, event := range r.bySlot {
		if slot.Type == eventType {
			events = append(events, event)
		}
	}
	return events
}

// AllState returns every current state event, in no particular order.
func (r RoomStateRevision) AllState() []*schema.StateEvent {
	events := make([]*schema.StateEvent, 0, len(r.bySlot))
	for _, event := range r.bySlot {
		events = append(events, event)
	}
	return events
}

// HasEvent reports whether the revision incorporates the event with
// the given ID.
func (r RoomStateRevision) HasEvent(eventID ref.EventID) bool {
	_, ok := r.byEvent[eventID]
	return ok
}

// ChangesFromState diffs a batch of incoming state events against the
// revision. Events that change nothing produce no entry. The result
// order follows the input order.
func (r RoomStateRevision) ChangesFromState(events []*schema.StateEvent) []StateChange {
	var changes []StateChange
	for _, event := range events {
		existing := r.GetStateEvent(event.Type, event.StateKey)
		changeType, ok := CalculateStateChange(event, existing)
		if !ok {
			continue
		}
		change := StateChange{
			ChangeType: changeType,
			Event:      event,
			Sender:     changeSender(changeType, event),
		}
		if changeType == ChangeModified || changeType == ChangeRemoved {
			change.PreviousState = existing
		}
		changes = append(changes, change)
	}
	return changes
}

// ReviseFromChanges applies a change list in order, producing a new
// revision with a fresh ID. Every change replaces its slot with the
// causing event; a removal still leaves the (content-stripped) event
// in the slot, matching how redacted state remains part of a Matrix
// room's current state.
func (r RoomStateRevision) ReviseFromChanges(changes []StateChange) RoomStateRevision {
	bySlot := maps.Clone(r.bySlot)
	byEvent := maps.Clone(r.byEvent)
	for _, change := range changes {
		if change.PreviousState != nil {
			delete(byEvent, change.PreviousState.ID)
		}
		bySlot[StateKey{Type: change.Event.Type, Key: change.Event.StateKey}] = change.Event
		byEvent[change.Event.ID] = change.Event
	}
	return RoomStateRevision{
		room:    r.room,
		id:      NextRevisionID(),
		bySlot:  bySlot,
		byEvent: byEvent,
	}
}

// ReviseFromState diffs and applies in one step. Equivalent to
// ReviseFromChanges(ChangesFromState(events)).
func (r RoomStateRevision) ReviseFromState(events []*schema.StateEvent) (RoomStateRevision, []StateChange) {
	changes := r.ChangesFromState(events)
	if len(changes) == 0 {
		return r, nil
	}
	return r.ReviseFromChanges(changes), changes
}
