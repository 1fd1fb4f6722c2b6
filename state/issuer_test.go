// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package state

import (
	"context"
	"testing"

	"github.com/warden-foundation/warden/lib/ref"
	"github.com/warden-foundation/warden/schema"
)

type stubFetcher struct {
	state   []*schema.StateEvent
	fetches int
}

func (f *stubFetcher) RoomState(ctx context.Context, roomID ref.RoomID) ([]*schema.StateEvent, error) {
	f.fetches++
	return f.state, nil
}

func TestRoomStateRevisionIssuerEmission(t *testing.T) {
	t.Parallel()

	room := testRoomID(t)
	issuer := NewRoomStateRevisionIssuer(room, &stubFetcher{}, nil)

	var emissions int
	issuer.OnRevision(func(next RoomStateRevision, changes []StateChange, previous RoomStateRevision) {
		emissions++
		if len(changes) == 0 {
			t.Error("emission with zero changes")
		}
		// Swap happens before the emission.
		if issuer.CurrentRevision().ID() != next.ID() {
			t.Error("listener does not observe the new revision as current")
		}
		if previous.ID() == next.ID() {
			t.Error("previous and next revision share an ID")
		}
	})

	acl := stateEvent(t, schema.MatrixEventTypeServerACL, "", "@mod:example.com", `{"deny": ["evil.example"]}`)
	issuer.UpdateForState([]*schema.StateEvent{acl})
	if emissions != 1 {
		t.Fatalf("emissions = %d, want 1", emissions)
	}

	// A redundant batch must not emit.
	issuer.UpdateForState([]*schema.StateEvent{acl})
	if emissions != 1 {
		t.Fatalf("emissions after redundant batch = %d, want 1", emissions)
	}
}

func TestIssuerListenerLifecycle(t *testing.T) {
	t.Parallel()

	room := testRoomID(t)
	issuer := NewRoomStateRevisionIssuer(room, &stubFetcher{}, nil)

	var first, second int
	handle := issuer.OnRevision(func(RoomStateRevision, []StateChange, RoomStateRevision) { first++ })
	issuer.OnRevision(func(RoomStateRevision, []StateChange, RoomStateRevision) { second++ })

	issuer.UpdateForState([]*schema.StateEvent{
		stateEvent(t, schema.MatrixEventTypeServerACL, "", "@mod:example.com", `{"deny": ["a.example"]}`),
	})
	if first != 1 || second != 1 {
		t.Fatalf("first = %d, second = %d, want 1,1", first, second)
	}

	issuer.OffRevision(handle)
	issuer.UpdateForState([]*schema.StateEvent{
		stateEvent(t, schema.MatrixEventTypeServerACL, "", "@mod:example.com", `{"deny": ["b.example"]}`),
	})
	if first != 1 {
		t.Errorf("deregistered listener still invoked, first = %d", first)
	}
	if second != 2 {
		t.Errorf("second = %d, want 2", second)
	}

	issuer.UnregisterListeners()
	issuer.UpdateForState([]*schema.StateEvent{
		stateEvent(t, schema.MatrixEventTypeServerACL, "", "@mod:example.com", `{"deny": ["c.example"]}`),
	})
	if second != 2 {
		t.Errorf("listener survived UnregisterListeners, second = %d", second)
	}
}

func TestUpdateForEventRefetches(t *testing.T) {
	t.Parallel()

	room := testRoomID(t)
	acl := stateEvent(t, schema.MatrixEventTypeServerACL, "", "@mod:example.com", `{"deny": ["evil.example"]}`)
	fetcher := &stubFetcher{state: []*schema.StateEvent{acl}}
	issuer := NewRoomStateRevisionIssuer(room, fetcher, nil)

	if err := issuer.UpdateForEvent(context.Background(), acl); err != nil {
		t.Fatalf("UpdateForEvent: %v", err)
	}
	if fetcher.fetches != 1 {
		t.Fatalf("fetches = %d, want 1", fetcher.fetches)
	}
	if !issuer.CurrentRevision().HasEvent(acl.ID) {
		t.Error("revision missing the refetched event")
	}

	// Known events are ignored without a refetch.
	if err := issuer.UpdateForEvent(context.Background(), acl); err != nil {
		t.Fatalf("UpdateForEvent: %v", err)
	}
	if fetcher.fetches != 1 {
		t.Errorf("fetches after known event = %d, want 1", fetcher.fetches)
	}
}

func TestRoomMembershipRevisionIssuer(t *testing.T) {
	t.Parallel()

	room := testRoomID(t)
	alice := ref.MustParseUserID("@alice:example.com")
	join := stateEvent(t, schema.MatrixEventTypeMember, alice.String(), alice.String(), `{"membership": "join"}`)

	stateIssuer := NewRoomStateRevisionIssuer(room, &stubFetcher{}, []*schema.StateEvent{join})
	membershipIssuer := NewRoomMembershipRevisionIssuer(stateIssuer)

	// The seed picks up membership present at construction.
	if got := membershipIssuer.CurrentRevision().MembershipForUser(alice); got != schema.MembershipJoin {
		t.Fatalf("seeded membership = %q, want join", got)
	}

	var changeTypes []schema.MembershipChangeType
	membershipIssuer.OnRevision(func(next RoomMembershipRevision, changes []MembershipChange, previous RoomMembershipRevision) {
		for _, change := range changes {
			changeTypes = append(changeTypes, change.ChangeType)
		}
	})

	mod := ref.MustParseUserID("@mod:example.com")
	stateIssuer.UpdateForState([]*schema.StateEvent{
		stateEvent(t, schema.MatrixEventTypeMember, alice.String(), mod.String(), `{"membership": "ban"}`),
	})
	if len(changeTypes) != 1 || changeTypes[0] != schema.MembershipChangeBanned {
		t.Fatalf("change types = %v, want [banned]", changeTypes)
	}

	// Non-member state changes do not reach membership listeners.
	stateIssuer.UpdateForState([]*schema.StateEvent{
		stateEvent(t, schema.MatrixEventTypeServerACL, "", mod.String(), `{"deny": []}`),
	})
	if len(changeTypes) != 1 {
		t.Errorf("membership emissions after ACL change = %d, want 1", len(changeTypes))
	}

	membershipIssuer.Detach()
	stateIssuer.UpdateForState([]*schema.StateEvent{
		stateEvent(t, schema.MatrixEventTypeMember, alice.String(), alice.String(), `{"membership": "leave"}`),
	})
	if len(changeTypes) != 1 {
		t.Errorf("detached issuer still emitted, changes = %v", changeTypes)
	}
}
