// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"maps"
	"sync"

	"github.com/warden-foundation/warden/lib/ref"
	"github.com/warden-foundation/warden/schema"
	"github.com/warden-foundation/warden/state"
)

// ListChange is a rule change attributed to the policy room it came
// from, as emitted by the aggregated list issuer.
type ListChange struct {
	RuleChange
	PolicyRoom ref.RoomID
}

// ListRevision is an immutable snapshot over every watched policy
// room. Queries return matches from the union of all watched lists.
type ListRevision struct {
	id    state.RevisionID
	rooms map[ref.RoomID]RoomRevision
}

// NewBlankListRevision returns the initial, empty aggregate revision.
func NewBlankListRevision() ListRevision {
	return ListRevision{
		id:    state.NextRevisionID(),
		rooms: map[ref.RoomID]RoomRevision{},
	}
}

// ID returns the revision's opaque version token.
func (r ListRevision) ID() state.RevisionID { return r.id }

// References returns the watched policy rooms, in no particular order.
func (r ListRevision) References() []ref.RoomID {
	references := make([]ref.RoomID, 0, len(r.rooms))
	for room := range r.rooms {
		references = append(references, room)
	}
	return references
}

// RevisionForRoom returns the revision of one watched policy room.
func (r ListRevision) RevisionForRoom(room ref.RoomID) (RoomRevision, bool) {
	revision, ok := r.rooms[room]
	return revision, ok
}

// AllRules returns every rule across all watched lists, in no
// particular order.
func (r ListRevision) AllRules() []*Rule {
	var rules []*Rule
	for _, revision := range r.rooms {
		rules = append(rules, revision.AllRules()...)
	}
	return rules
}

// AllRulesOfType returns every rule of one kind across all watched
// lists, optionally filtered by recommendation.
func (r ListRevision) AllRulesOfType(kind schema.PolicyRuleType, recommendation schema.Recommendation) []*Rule {
	var rules []*Rule
	for _, revision := range r.rooms {
		rules = append(rules, revision.AllRulesOfType(kind, recommendation)...)
	}
	return rules
}

// FindRuleMatchingEntity returns some rule matching the entity across
// all watched lists, or nil.
func (r ListRevision) FindRuleMatchingEntity(entity string, kind schema.PolicyRuleType, recommendation schema.Recommendation) *Rule {
	for _, revision := range r.rooms {
		if rule := revision.FindRuleMatchingEntity(entity, kind, recommendation); rule != nil {
			return rule
		}
	}
	return nil
}

func (r ListRevision) withRoom(room ref.RoomID, revision RoomRevision) ListRevision {
	rooms := maps.Clone(r.rooms)
	rooms[room] = revision
	return ListRevision{id: state.NextRevisionID(), rooms: rooms}
}

func (r ListRevision) withoutRoom(room ref.RoomID) ListRevision {
	rooms := maps.Clone(r.rooms)
	delete(rooms, room)
	return ListRevision{id: state.NextRevisionID(), rooms: rooms}
}

// ListIssuer aggregates several policy room issuers into one revision
// stream. Watching a list immediately propagates its current rules as
// added changes, so consumers apply already-existing policies; rule
// changes in any watched room propagate directly.
type ListIssuer struct {
	*state.Issuer[ListRevision, ListChange]

	mu      sync.Mutex
	watched map[ref.RoomID]watchedList
}

type watchedList struct {
	issuer *RoomRevisionIssuer
	handle *state.ListenerHandle
}

// NewListIssuer returns an aggregate issuer watching nothing.
func NewListIssuer() *ListIssuer {
	return &ListIssuer{
		Issuer:  state.NewIssuer[ListRevision, ListChange](NewBlankListRevision()),
		watched: map[ref.RoomID]watchedList{},
	}
}

// WatchList adds a policy room to the aggregate. Watching an already
// watched room is a no-op. The room's current rules are emitted as
// added changes.
func (l *ListIssuer) WatchList(issuer *RoomRevisionIssuer) {
	room := issuer.Room()
	l.mu.Lock()
	if _, ok := l.watched[room]; ok {
		l.mu.Unlock()
		return
	}
	handle := issuer.OnRevision(func(next RoomRevision, changes []RuleChange, _ RoomRevision) {
		l.propagate(room, next, changes)
	})
	l.watched[room] = watchedList{issuer: issuer, handle: handle}
	l.mu.Unlock()

	revision := issuer.CurrentRevision()
	var changes []RuleChange
	for _, rule := range revision.AllRules() {
		changes = append(changes, RuleChange{
			ChangeType: state.ChangeAdded,
			Event:      rule.SourceEvent,
			Rule:       rule,
			Sender:     rule.SourceEvent.Sender,
		})
	}
	l.propagate(room, revision, changes)
}

// UnwatchList removes a policy room from the aggregate. The room's
// rules are emitted as removed changes so consumers can retire
// consequences derived from them.
func (l *ListIssuer) UnwatchList(room ref.RoomID) {
	l.mu.Lock()
	watched, ok := l.watched[room]
	if !ok {
		l.mu.Unlock()
		return
	}
	delete(l.watched, room)
	l.mu.Unlock()
	watched.issuer.OffRevision(watched.handle)

	current := l.CurrentRevision()
	revision, ok := current.RevisionForRoom(room)
	if !ok {
		return
	}
	var changes []ListChange
	for _, rule := range revision.AllRules() {
		changes = append(changes, ListChange{
			PolicyRoom: room,
			RuleChange: RuleChange{
				ChangeType: state.ChangeRemoved,
				Event:      rule.SourceEvent,
				Rule:       rule,
				Sender:     rule.SourceEvent.Sender,
			},
		})
	}
	next := current.withoutRoom(room)
	if len(changes) == 0 {
		l.Replace(next)
		return
	}
	l.Advance(next, changes)
}

func (l *ListIssuer) propagate(room ref.RoomID, revision RoomRevision, changes []RuleChange) {
	next := l.CurrentRevision().withRoom(room, revision)
	if len(changes) == 0 {
		l.Replace(next)
		return
	}
	listChanges := make([]ListChange, 0, len(changes))
	for _, change := range changes {
		listChanges = append(listChanges, ListChange{PolicyRoom: room, RuleChange: change})
	}
	l.Advance(next, listChanges)
}
