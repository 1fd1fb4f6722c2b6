// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package protection

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/warden-foundation/warden/accountdata"
	"github.com/warden-foundation/warden/lib/ref"
	"github.com/warden-foundation/warden/schema"
)

// ProtectedRoomsConfig is the persisted set of rooms under
// protection. Structural mutation serializes behind a mutex held
// across the persisted read-modify-write, so concurrent writers
// cannot interleave; a failed write leaves both the persisted
// document and the in-memory set unchanged. Change notifications fire
// only after the write succeeds.
type ProtectedRoomsConfig struct {
	store accountdata.Store[schema.ProtectedRoomsAccountData]

	mu      sync.Mutex
	rooms   []ref.RoomID
	added   []func(ref.RoomID)
	removed []func(ref.RoomID)
}

// LoadProtectedRoomsConfig reads the persisted room set. A document
// that has never been written yields an empty config.
func LoadProtectedRoomsConfig(ctx context.Context, store accountdata.Store[schema.ProtectedRoomsAccountData]) (*ProtectedRoomsConfig, error) {
	doc, _, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("protection: loading protected rooms: %w", err)
	}
	return &ProtectedRoomsConfig{store: store, rooms: doc.Rooms}, nil
}

// Rooms returns the current protected rooms.
func (c *ProtectedRoomsConfig) Rooms() []ref.RoomID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.rooms)
}

// OnRoomAdded registers a callback for successful additions.
func (c *ProtectedRoomsConfig) OnRoomAdded(fn func(ref.RoomID)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.added = append(c.added, fn)
}

// OnRoomRemoved registers a callback for successful removals.
func (c *ProtectedRoomsConfig) OnRoomRemoved(fn func(ref.RoomID)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removed = append(c.removed, fn)
}

// AddRoom persists the room into the protected set. Adding a room
// already in the set is a no-op.
func (c *ProtectedRoomsConfig) AddRoom(ctx context.Context, room ref.RoomID) error {
	c.mu.Lock()
	if slices.Contains(c.rooms, room) {
		c.mu.Unlock()
		return nil
	}
	next := append(slices.Clone(c.rooms), room)
	if err := c.store.Save(ctx, schema.ProtectedRoomsAccountData{Rooms: next}); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("protection: persisting protected rooms after adding %s: %w", room, err)
	}
	c.rooms = next
	callbacks := slices.Clone(c.added)
	c.mu.Unlock()

	for _, fn := range callbacks {
		fn(room)
	}
	return nil
}

// RemoveRoom persists the room out of the protected set. Removing a
// room not in the set is a no-op.
func (c *ProtectedRoomsConfig) RemoveRoom(ctx context.Context, room ref.RoomID) error {
	c.mu.Lock()
	index := slices.Index(c.rooms, room)
	if index < 0 {
		c.mu.Unlock()
		return nil
	}
	next := slices.Delete(slices.Clone(c.rooms), index, index+1)
	if err := c.store.Save(ctx, schema.ProtectedRoomsAccountData{Rooms: next}); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("protection: persisting protected rooms after removing %s: %w", room, err)
	}
	c.rooms = next
	callbacks := slices.Clone(c.removed)
	c.mu.Unlock()

	for _, fn := range callbacks {
		fn(room)
	}
	return nil
}

// PolicyListConfig is the persisted set of watched policy rooms, with
// the same mutation discipline as ProtectedRoomsConfig.
type PolicyListConfig struct {
	store accountdata.Store[schema.WatchedListsAccountData]

	mu        sync.Mutex
	refs      []ref.RoomID
	watched   []func(ref.RoomID)
	unwatched []func(ref.RoomID)
}

// LoadPolicyListConfig reads the persisted watched-list set.
func LoadPolicyListConfig(ctx context.Context, store accountdata.Store[schema.WatchedListsAccountData]) (*PolicyListConfig, error) {
	doc, _, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("protection: loading watched lists: %w", err)
	}
	return &PolicyListConfig{store: store, refs: doc.References}, nil
}

// References returns the watched policy rooms.
func (c *PolicyListConfig) References() []ref.RoomID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.refs)
}

// OnListWatched registers a callback for successful additions.
func (c *PolicyListConfig) OnListWatched(fn func(ref.RoomID)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watched = append(c.watched, fn)
}

// OnListUnwatched registers a callback for successful removals.
func (c *PolicyListConfig) OnListUnwatched(fn func(ref.RoomID)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unwatched = append(c.unwatched, fn)
}

// WatchList persists the policy room into the watched set.
func (c *PolicyListConfig) WatchList(ctx context.Context, room ref.RoomID) error {
	c.mu.Lock()
	if slices.Contains(c.refs, room) {
		c.mu.Unlock()
		return nil
	}
	next := append(slices.Clone(c.refs), room)
	if err := c.store.Save(ctx, schema.WatchedListsAccountData{References: next}); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("protection: persisting watched lists after adding %s: %w", room, err)
	}
	c.refs = next
	callbacks := slices.Clone(c.watched)
	c.mu.Unlock()

	for _, fn := range callbacks {
		fn(room)
	}
	return nil
}

// UnwatchList persists the policy room out of the watched set.
func (c *PolicyListConfig) UnwatchList(ctx context.Context, room ref.RoomID) error {
	c.mu.Lock()
	index := slices.Index(c.refs, room)
	if index < 0 {
		c.mu.Unlock()
		return nil
	}
	next := slices.Delete(slices.Clone(c.refs), index, index+1)
	if err := c.store.Save(ctx, schema.WatchedListsAccountData{References: next}); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("protection: persisting watched lists after removing %s: %w", room, err)
	}
	c.refs = next
	callbacks := slices.Clone(c.unwatched)
	c.mu.Unlock()

	for _, fn := range callbacks {
		fn(room)
	}
	return nil
}
