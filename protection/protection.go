// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package protection

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/warden-foundation/warden/lib/ref"
	"github.com/warden-foundation/warden/policy"
	"github.com/warden-foundation/warden/schema"
	"github.com/warden-foundation/warden/state"
)

// Description declares what a protection reacts to. The dispatcher
// only invokes a protection when a revision batch touches one of its
// declared state event types or policy rule kinds.
type Description struct {
	Name string

	// StateEventTypes are the protected-room state event types the
	// protection wants HandleStateChange invocations for.
	StateEventTypes []ref.EventType

	// PolicyKinds are the policy rule kinds the protection wants
	// HandlePolicyChange invocations for.
	PolicyKinds []schema.PolicyRuleType
}

// RoomsView is the read-only view of the protected-rooms set handed
// to protections. Revisions returned from it are immutable snapshots.
type RoomsView interface {
	ProtectedRooms() []ref.RoomID
	StateRevision(room ref.RoomID) (state.RoomStateRevision, bool)
	MembershipRevision(room ref.RoomID) (state.RoomMembershipRevision, bool)
	WatchedPolicies() policy.ListRevision
}

// Protection detects conditions in room-state and policy revisions
// and requests consequences. Both handlers may legitimately find
// nothing relevant in a batch and must return nil in that case.
type Protection interface {
	Description() Description
	HandleStateChange(ctx context.Context, revision state.RoomStateRevision, changes []state.StateChange) error
	HandlePolicyChange(ctx context.Context, revision policy.ListRevision, changes []policy.ListChange) error
}

// Dependencies are the collaborators a protection is constructed
// with.
type Dependencies struct {
	Rooms        RoomsView
	Consequences ConsequenceProvider

	// OwnServer is the homeserver the bot account lives on. Server
	// ACL compilation must never deny it.
	OwnServer ref.ServerName

	// Logger may be nil, in which case protections discard logs.
	Logger *slog.Logger
}

func (d Dependencies) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return d.Logger
}

// Factory constructs a protection from its dependencies.
type Factory func(deps Dependencies) (Protection, error)

// Registry maps protection names to factories. It is an explicit
// object rather than a process-wide table so tests and callers
// control exactly which protections exist.
type Registry struct {
	names     []string
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register adds a factory under a name. Registering a duplicate or
// empty name is a programmer error.
func (r *Registry) Register(name string, factory Factory) {
	if name == "" || factory == nil {
		panic("protection: Register requires a name and a factory")
	}
	if _, ok := r.factories[name]; ok {
		panic("protection: duplicate protection name " + name)
	}
	r.names = append(r.names, name)
	r.factories[name] = factory
}

// Names lists the registered protection names in registration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.names)
}

// New constructs the named protection.
func (r *Registry) New(name string, deps Dependencies) (Protection, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("protection: unknown protection %q", name)
	}
	p, err := factory(deps)
	if err != nil {
		return nil, fmt.Errorf("protection: constructing %q: %w", name, err)
	}
	return p, nil
}

// StandardRegistry returns a registry with the built-in protections.
func StandardRegistry() *Registry {
	r := NewRegistry()
	r.Register(MemberBanSynchronisationName, func(deps Dependencies) (Protection, error) {
		return NewMemberBanSynchronisation(deps), nil
	})
	r.Register(ServerBanSynchronisationName, func(deps Dependencies) (Protection, error) {
		return NewServerBanSynchronisation(deps), nil
	})
	return r
}
