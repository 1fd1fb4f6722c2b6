// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package state

import (
	"context"
	"fmt"
	"sync"

	"github.com/warden-foundation/warden/lib/ref"
	"github.com/warden-foundation/warden/schema"
)

// RoomStateFetcher fetches the full current state of a room. Implemented
// by the messaging session; issuers fall back to it when an incoming
// event cannot be reconciled incrementally.
type RoomStateFetcher interface {
	RoomState(ctx context.Context, roomID ref.RoomID) ([]*schema.StateEvent, error)
}

// RoomStateRevisionIssuer tracks the full state of one room and emits
// a revision whenever a state batch changes it.
type RoomStateRevisionIssuer struct {
	*Issuer[RoomStateRevision, StateChange]

	room    ref.RoomID
	fetcher RoomStateFetcher

	// refetchMu keeps two concurrent UpdateForEvent calls from both
	// refetching the room state.
	refetchMu sync.Mutex
}

// NewRoomStateRevisionIssuer creates an issuer seeded with the given
// state batch. The seed produces the initial revision without an
// emission; there are no listeners yet.
func NewRoomStateRevisionIssuer(room ref.RoomID, fetcher RoomStateFetcher, initialState []*schema.StateEvent) *RoomStateRevisionIssuer {
	revision, _ := NewBlankRoomStateRevision(room).ReviseFromState(initialState)
	return &RoomStateRevisionIssuer{
		Issuer:  NewIssuer[RoomStateRevision, StateChange](revision),
		room:    room,
		fetcher: fetcher,
	}
}

// Room returns the room this issuer tracks.
func (i *RoomStateRevisionIssuer) Room() ref.RoomID { return i.room }

// UpdateForState applies a batch of state events. No emission occurs
// when the batch changes nothing.
func (i *RoomStateRevisionIssuer) UpdateForState(events []*schema.StateEvent) {
	current := i.CurrentRevision()
	next, changes := current.ReviseFromState(events)
	if len(changes) == 0 {
		return
	}
	i.Advance(next, changes)
}

// UpdateForEvent reconciles a single timeline state event. Events the
// revision already incorporates are ignored. An unknown event forces a
// full state refetch, because a single timeline event gives no
// guarantee that intermediate state was observed.
func (i *RoomStateRevisionIssuer) UpdateForEvent(ctx context.Context, event *schema.StateEvent) error {
	if i.CurrentRevision().HasEvent(event.ID) {
		return nil
	}
	i.refetchMu.Lock()
	defer i.refetchMu.Unlock()
	if i.CurrentRevision().HasEvent(event.ID) {
		return nil
	}
	stateEvents, err := i.fetcher.RoomState(ctx, i.room)
	if err != nil {
		return fmt.Errorf("refetching state for %s: %w", i.room, err)
	}
	i.UpdateForState(stateEvents)
	return nil
}

// RoomMembershipRevisionIssuer derives a membership revision stream
// from a room's state revision stream. It subscribes to the state
// issuer at construction and re-emits only when member events change
// someone's membership.
type RoomMembershipRevisionIssuer struct {
	*Issuer[RoomMembershipRevision, MembershipChange]

	room   ref.RoomID
	source *RoomStateRevisionIssuer
	handle *ListenerHandle
}

// NewRoomMembershipRevisionIssuer creates a membership issuer fed by
// the given state issuer, seeded from its current revision.
func NewRoomMembershipRevisionIssuer(source *RoomStateRevisionIssuer) *RoomMembershipRevisionIssuer {
	room := source.Room()
	seed, _ := NewBlankRoomMembershipRevision(room).
		ReviseFromMembership(source.CurrentRevision().GetStateEventsOfType(schema.MatrixEventTypeMember))
	issuer := &RoomMembershipRevisionIssuer{
		Issuer: NewIssuer[RoomMembershipRevision, MembershipChange](seed),
		room:   room,
		source: source,
	}
	issuer.handle = source.OnRevision(issuer.handleStateRevision)
	return issuer
}

func (i *RoomMembershipRevisionIssuer) handleStateRevision(_ RoomStateRevision, changes []StateChange, _ RoomStateRevision) {
	var memberEvents []*schema.StateEvent
	for _, change := range changes {
		if change.Event.Type == schema.MatrixEventTypeMember {
			memberEvents = append(memberEvents, change.Event)
		}
	}
	if len(memberEvents) == 0 {
		return
	}
	current := i.CurrentRevision()
	next, membershipChanges := current.ReviseFromMembership(memberEvents)
	if len(membershipChanges) == 0 {
		return
	}
	i.Advance(next, membershipChanges)
}

// Room returns the room this issuer tracks.
func (i *RoomMembershipRevisionIssuer) Room() ref.RoomID { return i.room }

// Detach unsubscribes from the source state issuer and drops all
// listeners.
func (i *RoomMembershipRevisionIssuer) Detach() {
	i.source.OffRevision(i.handle)
	i.UnregisterListeners()
}
