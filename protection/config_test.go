// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package protection

import (
	"context"
	"errors"
	"testing"

	"github.com/warden-foundation/warden/lib/ref"
	"github.com/warden-foundation/warden/schema"
)

// fakeStore is an in-memory accountdata.Store with a failure switch.
type fakeStore[T any] struct {
	value T
	ok    bool
	fail  error
	saves int
}

func (s *fakeStore[T]) Load(ctx context.Context) (T, bool, error) {
	return s.value, s.ok, nil
}

func (s *fakeStore[T]) Save(ctx context.Context, value T) error {
	if s.fail != nil {
		return s.fail
	}
	s.value = value
	s.ok = true
	s.saves++
	return nil
}

func TestProtectedRoomsConfigAddRemove(t *testing.T) {
	t.Parallel()

	store := &fakeStore[schema.ProtectedRoomsAccountData]{}
	config, err := LoadProtectedRoomsConfig(context.Background(), store)
	if err != nil {
		t.Fatalf("LoadProtectedRoomsConfig: %v", err)
	}

	room := testRoomID(t)
	var added, removed []ref.RoomID
	config.OnRoomAdded(func(r ref.RoomID) { added = append(added, r) })
	config.OnRoomRemoved(func(r ref.RoomID) { removed = append(removed, r) })

	if err := config.AddRoom(context.Background(), room); err != nil {
		t.Fatalf("AddRoom: %v", err)
	}
	if len(config.Rooms()) != 1 || config.Rooms()[0] != room {
		t.Errorf("Rooms() = %v, want [%s]", config.Rooms(), room)
	}
	if len(store.value.Rooms) != 1 {
		t.Errorf("persisted rooms = %v, want one", store.value.Rooms)
	}
	if len(added) != 1 || added[0] != room {
		t.Errorf("added notifications = %v, want [%s]", added, room)
	}

	// Duplicate add is a no-op, with no extra write or notification.
	if err := config.AddRoom(context.Background(), room); err != nil {
		t.Fatalf("duplicate AddRoom: %v", err)
	}
	if store.saves != 1 || len(added) != 1 {
		t.Errorf("duplicate add wrote (saves=%d) or notified (%v)", store.saves, added)
	}

	if err := config.RemoveRoom(context.Background(), room); err != nil {
		t.Fatalf("RemoveRoom: %v", err)
	}
	if len(config.Rooms()) != 0 || len(store.value.Rooms) != 0 {
		t.Errorf("rooms after removal: memory=%v persisted=%v", config.Rooms(), store.value.Rooms)
	}
	if len(removed) != 1 || removed[0] != room {
		t.Errorf("removed notifications = %v, want [%s]", removed, room)
	}
}

func TestProtectedRoomsConfigFailedWriteLeavesMemoryUnchanged(t *testing.T) {
	t.Parallel()

	store := &fakeStore[schema.ProtectedRoomsAccountData]{fail: errors.New("store down")}
	config, err := LoadProtectedRoomsConfig(context.Background(), store)
	if err != nil {
		t.Fatalf("LoadProtectedRoomsConfig: %v", err)
	}

	notified := false
	config.OnRoomAdded(func(ref.RoomID) { notified = true })

	room := testRoomID(t)
	if err := config.AddRoom(context.Background(), room); err == nil {
		t.Fatal("AddRoom with failing store did not fail")
	}
	if len(config.Rooms()) != 0 {
		t.Errorf("Rooms() = %v after failed write, want empty", config.Rooms())
	}
	if notified {
		t.Error("notification fired for a failed write")
	}

	// Recovery: the same add succeeds once the store does.
	store.fail = nil
	if err := config.AddRoom(context.Background(), room); err != nil {
		t.Fatalf("AddRoom after recovery: %v", err)
	}
	if !notified {
		t.Error("notification missing after successful write")
	}
}

func TestPolicyListConfig(t *testing.T) {
	t.Parallel()

	existing := testRoomID(t)
	store := &fakeStore[schema.WatchedListsAccountData]{
		value: schema.WatchedListsAccountData{References: []ref.RoomID{existing}},
		ok:    true,
	}
	config, err := LoadPolicyListConfig(context.Background(), store)
	if err != nil {
		t.Fatalf("LoadPolicyListConfig: %v", err)
	}
	if len(config.References()) != 1 || config.References()[0] != existing {
		t.Fatalf("References() = %v, want the persisted list", config.References())
	}

	var watched, unwatched []ref.RoomID
	config.OnListWatched(func(r ref.RoomID) { watched = append(watched, r) })
	config.OnListUnwatched(func(r ref.RoomID) { unwatched = append(unwatched, r) })

	room := testRoomID(t)
	if err := config.WatchList(context.Background(), room); err != nil {
		t.Fatalf("WatchList: %v", err)
	}
	if len(config.References()) != 2 {
		t.Errorf("References() = %v, want two", config.References())
	}
	if len(watched) != 1 || watched[0] != room {
		t.Errorf("watched notifications = %v", watched)
	}

	if err := config.UnwatchList(context.Background(), existing); err != nil {
		t.Fatalf("UnwatchList: %v", err)
	}
	if len(unwatched) != 1 || unwatched[0] != existing {
		t.Errorf("unwatched notifications = %v", unwatched)
	}
	if len(store.value.References) != 1 || store.value.References[0] != room {
		t.Errorf("persisted references = %v, want [%s]", store.value.References, room)
	}
}
