// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package protection

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/warden-foundation/warden/client"
	"github.com/warden-foundation/warden/lib/ref"
	"github.com/warden-foundation/warden/policy"
	"github.com/warden-foundation/warden/schema"
	"github.com/warden-foundation/warden/state"
)

// SetConfig configures a ProtectedRoomsSet.
type SetConfig struct {
	// Fetcher resolves full room state, both for seeding issuers and
	// for reconciling unknown timeline events.
	Fetcher state.RoomStateFetcher

	// Consequences executes the effects protections request.
	Consequences ConsequenceProvider

	// OwnServer is the homeserver the bot account lives on.
	OwnServer ref.ServerName

	// Clients, when set, receives timeline events for preemptive-join
	// tracking of managed users.
	Clients *client.ClientsInRoomMap

	// Logger may be nil for a discard logger.
	Logger *slog.Logger
}

type protectedRoom struct {
	state      *state.RoomStateRevisionIssuer
	membership *state.RoomMembershipRevisionIssuer
	handle     *state.ListenerHandle
}

type policyRoom struct {
	state  *state.RoomStateRevisionIssuer
	policy *policy.RoomRevisionIssuer
}

// ProtectedRoomsSet owns the revision issuers for every protected
// room and watched policy room, and dispatches their emissions to the
// enabled protections. It implements messaging.SyncHandler so a sync
// feed can drive it directly, and RoomsView so protections can read
// current revisions.
type ProtectedRoomsSet struct {
	fetcher      state.RoomStateFetcher
	consequences ConsequenceProvider
	ownServer    ref.ServerName
	clients      *client.ClientsInRoomMap
	policies     *policy.ListIssuer
	logger       *slog.Logger

	mu          sync.RWMutex
	protections []Protection
	rooms       map[ref.RoomID]*protectedRoom
	policyRooms map[ref.RoomID]*policyRoom
}

// NewProtectedRoomsSet constructs an empty set. Fetcher and
// Consequences are required.
func NewProtectedRoomsSet(cfg SetConfig) *ProtectedRoomsSet {
	if cfg.Fetcher == nil || cfg.Consequences == nil {
		panic("protection: NewProtectedRoomsSet requires a fetcher and a consequence provider")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &ProtectedRoomsSet{
		fetcher:      cfg.Fetcher,
		consequences: cfg.Consequences,
		ownServer:    cfg.OwnServer,
		clients:      cfg.Clients,
		policies:     policy.NewListIssuer(),
		logger:       logger,
		rooms:        map[ref.RoomID]*protectedRoom{},
		policyRooms:  map[ref.RoomID]*policyRoom{},
	}
	s.policies.OnRevision(func(next policy.ListRevision, changes []policy.ListChange, _ policy.ListRevision) {
		s.dispatchPolicyChange(next, changes)
	})
	return s
}

// Dependencies returns the dependency bundle for constructing
// protections against this set.
func (s *ProtectedRoomsSet) Dependencies() Dependencies {
	return Dependencies{
		Rooms:        s,
		Consequences: s.consequences,
		OwnServer:    s.ownServer,
		Logger:       s.logger,
	}
}

// AddProtection enables a protection for all future revisions.
func (s *ProtectedRoomsSet) AddProtection(p Protection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.protections = append(s.protections, p)
}

// EnableProtection constructs the named protection from the registry
// and enables it.
func (s *ProtectedRoomsSet) EnableProtection(registry *Registry, name string) error {
	p, err := registry.New(name, s.Dependencies())
	if err != nil {
		return err
	}
	s.AddProtection(p)
	return nil
}

// ProtectRoom fetches the room's state and brings it under
// protection. Protecting an already protected room is a no-op.
func (s *ProtectedRoomsSet) ProtectRoom(ctx context.Context, room ref.RoomID) error {
	s.mu.RLock()
	_, exists := s.rooms[room]
	s.mu.RUnlock()
	if exists {
		return nil
	}

	initial, err := s.fetcher.RoomState(ctx, room)
	if err != nil {
		return fmt.Errorf("protection: fetching state to protect %s: %w", room, err)
	}
	issuer := state.NewRoomStateRevisionIssuer(room, s.fetcher, initial)
	membership := state.NewRoomMembershipRevisionIssuer(issuer)
	handle := issuer.OnRevision(func(next state.RoomStateRevision, changes []state.StateChange, _ state.RoomStateRevision) {
		s.dispatchStateChange(next, changes)
	})

	s.mu.Lock()
	if _, exists := s.rooms[room]; exists {
		s.mu.Unlock()
		issuer.OffRevision(handle)
		membership.Detach()
		return nil
	}
	s.rooms[room] = &protectedRoom{state: issuer, membership: membership, handle: handle}
	s.mu.Unlock()

	s.logger.Info("protecting room", "room_id", room, "state_events", len(initial))
	return nil
}

// UnprotectRoom releases the room's issuers. Unprotecting an unknown
// room is a no-op.
func (s *ProtectedRoomsSet) UnprotectRoom(room ref.RoomID) {
	s.mu.Lock()
	tracked, ok := s.rooms[room]
	if ok {
		delete(s.rooms, room)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	tracked.state.OffRevision(tracked.handle)
	tracked.membership.Detach()
	s.logger.Info("unprotecting room", "room_id", room)
}

// WatchPolicyRoom fetches the policy room's state and adds it to the
// aggregated watched lists. The room's existing rules propagate to
// protections as added changes.
func (s *ProtectedRoomsSet) WatchPolicyRoom(ctx context.Context, room ref.RoomID) error {
	s.mu.RLock()
	_, exists := s.policyRooms[room]
	s.mu.RUnlock()
	if exists {
		return nil
	}

	initial, err := s.fetcher.RoomState(ctx, room)
	if err != nil {
		return fmt.Errorf("protection: fetching state to watch policy room %s: %w", room, err)
	}
	issuer := state.NewRoomStateRevisionIssuer(room, s.fetcher, initial)
	policyIssuer := policy.NewRoomRevisionIssuer(issuer)

	s.mu.Lock()
	if _, exists := s.policyRooms[room]; exists {
		s.mu.Unlock()
		policyIssuer.Detach()
		return nil
	}
	s.policyRooms[room] = &policyRoom{state: issuer, policy: policyIssuer}
	s.mu.Unlock()

	s.logger.Info("watching policy room", "room_id", room)
	s.policies.WatchList(policyIssuer)
	return nil
}

// UnwatchPolicyRoom removes the policy room from the aggregate; its
// rules propagate to protections as removed changes.
func (s *ProtectedRoomsSet) UnwatchPolicyRoom(room ref.RoomID) {
	s.mu.Lock()
	tracked, ok := s.policyRooms[room]
	if ok {
		delete(s.policyRooms, room)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	s.logger.Info("unwatching policy room", "room_id", room)
	s.policies.UnwatchList(room)
	tracked.policy.Detach()
}

// ProtectedRooms implements RoomsView.
func (s *ProtectedRoomsSet) ProtectedRooms() []ref.RoomID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rooms := make([]ref.RoomID, 0, len(s.rooms))
	for room := range s.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

// StateRevision implements RoomsView.
func (s *ProtectedRoomsSet) StateRevision(room ref.RoomID) (state.RoomStateRevision, bool) {
	s.mu.RLock()
	tracked, ok := s.rooms[room]
	s.mu.RUnlock()
	if !ok {
		return state.RoomStateRevision{}, false
	}
	return tracked.state.CurrentRevision(), true
}

// MembershipRevision implements RoomsView.
func (s *ProtectedRoomsSet) MembershipRevision(room ref.RoomID) (state.RoomMembershipRevision, bool) {
	s.mu.RLock()
	tracked, ok := s.rooms[room]
	s.mu.RUnlock()
	if !ok {
		return state.RoomMembershipRevision{}, false
	}
	return tracked.membership.CurrentRevision(), true
}

// WatchedPolicies implements RoomsView.
func (s *ProtectedRoomsSet) WatchedPolicies() policy.ListRevision {
	return s.policies.CurrentRevision()
}

// Policies exposes the aggregated policy issuer for consumers beyond
// the built-in protections.
func (s *ProtectedRoomsSet) Policies() *policy.ListIssuer {
	return s.policies
}

// HandleRoomSync implements messaging.SyncHandler. State batches feed
// the room's issuer directly; timeline state events reconcile through
// the issuer, which refetches when it sees an event it cannot place.
// Rooms that are neither protected nor watched are ignored.
func (s *ProtectedRoomsSet) HandleRoomSync(ctx context.Context, roomID ref.RoomID, stateEvents []*schema.StateEvent, timeline []schema.Event) error {
	if s.clients != nil {
		for i := range timeline {
			s.clients.HandleTimelineEvent(roomID, &timeline[i])
		}
	}

	issuer := s.stateIssuerFor(roomID)
	if issuer == nil {
		return nil
	}
	if len(stateEvents) > 0 {
		issuer.UpdateForState(stateEvents)
	}
	for i := range timeline {
		stateEvent, ok := timeline[i].AsStateEvent()
		if !ok {
			continue
		}
		if err := issuer.UpdateForEvent(ctx, stateEvent); err != nil {
			return fmt.Errorf("protection: reconciling timeline event %s in %s: %w", stateEvent.ID, roomID, err)
		}
	}
	return nil
}

func (s *ProtectedRoomsSet) stateIssuerFor(room ref.RoomID) *state.RoomStateRevisionIssuer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if tracked, ok := s.rooms[room]; ok {
		return tracked.state
	}
	if tracked, ok := s.policyRooms[room]; ok {
		return tracked.state
	}
	return nil
}

// dispatchStateChange invokes HandleStateChange on every protection
// whose declared state event types intersect the batch. A failing
// protection is logged and does not stop the rest.
func (s *ProtectedRoomsSet) dispatchStateChange(revision state.RoomStateRevision, changes []state.StateChange) {
	changed := map[ref.EventType]bool{}
	for _, change := range changes {
		changed[change.Event.Type] = true
	}

	s.mu.RLock()
	protections := make([]Protection, len(s.protections))
	copy(protections, s.protections)
	s.mu.RUnlock()

	for _, p := range protections {
		description := p.Description()
		if !intersectsEventTypes(description.StateEventTypes, changed) {
			continue
		}
		if err := p.HandleStateChange(context.Background(), revision, changes); err != nil {
			s.logger.Error("protection failed on state change",
				"protection", description.Name, "room_id", revision.Room(), "error", err)
		}
	}
}

// dispatchPolicyChange invokes HandlePolicyChange on every protection
// whose declared policy kinds intersect the batch.
func (s *ProtectedRoomsSet) dispatchPolicyChange(revision policy.ListRevision, changes []policy.ListChange) {
	changed := map[schema.PolicyRuleType]bool{}
	for _, change := range changes {
		if change.Rule != nil {
			changed[change.Rule.Kind] = true
		}
	}

	s.mu.RLock()
	protections := make([]Protection, len(s.protections))
	copy(protections, s.protections)
	s.mu.RUnlock()

	for _, p := range protections {
		description := p.Description()
		if !intersectsPolicyKinds(description.PolicyKinds, changed) {
			continue
		}
		if err := p.HandlePolicyChange(context.Background(), revision, changes); err != nil {
			s.logger.Error("protection failed on policy change",
				"protection", description.Name, "error", err)
		}
	}
}

func intersectsEventTypes(declared []ref.EventType, changed map[ref.EventType]bool) bool {
	for _, eventType := range declared {
		if changed[eventType] {
			return true
		}
	}
	return false
}

func intersectsPolicyKinds(declared []schema.PolicyRuleType, changed map[schema.PolicyRuleType]bool) bool {
	for _, kind := range declared {
		if changed[kind] {
			return true
		}
	}
	return false
}
