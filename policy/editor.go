// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/warden-foundation/warden/lib/ref"
	"github.com/warden-foundation/warden/schema"
)

// StateEventSender sends state events into a room. Implemented by the
// messaging session.
type StateEventSender interface {
	SendStateEvent(ctx context.Context, roomID ref.RoomID, eventType ref.EventType, stateKey string, content any) (ref.EventID, error)
}

// RoomEditor authors policy rules in one policy room. Rules are
// created under the canonical event types; retiring a rule sends
// blank content into its slot.
type RoomEditor struct {
	room   ref.RoomID
	sender StateEventSender
}

// NewRoomEditor returns an editor for the given policy room.
func NewRoomEditor(room ref.RoomID, sender StateEventSender) *RoomEditor {
	return &RoomEditor{room: room, sender: sender}
}

// Room returns the policy room this editor writes to.
func (e *RoomEditor) Room() ref.RoomID { return e.room }

// CreatePolicy publishes a rule for an entity. The state key is a
// random identifier: deriving it from the entity would leak the
// entity into the (unredactable) state key.
func (e *RoomEditor) CreatePolicy(ctx context.Context, kind schema.PolicyRuleType, recommendation schema.Recommendation, entity, reason string) (ref.EventID, error) {
	stateKey, err := randomStateKey()
	if err != nil {
		return ref.EventID{}, err
	}
	content := schema.PolicyRuleContent{
		Entity:         entity,
		Recommendation: string(recommendation),
		Reason:         reason,
	}
	eventID, err := e.sender.SendStateEvent(ctx, e.room, kind.EventType(), stateKey, content)
	if err != nil {
		return ref.EventID{}, fmt.Errorf("creating %s policy for %q in %s: %w", kind, entity, e.room, err)
	}
	return eventID, nil
}

// BanEntity publishes a ban rule for an entity, inferring the rule
// kind from the entity's sigil.
func (e *RoomEditor) BanEntity(ctx context.Context, entity, reason string) (ref.EventID, error) {
	return e.CreatePolicy(ctx, KindForEntity(entity), schema.RecommendationBan, entity, reason)
}

// RemovePolicy retires a rule by sending blank content into its slot.
// The rule must come from this editor's room.
func (e *RoomEditor) RemovePolicy(ctx context.Context, rule *Rule) error {
	if rule.SourceEvent.RoomID != e.room && !rule.SourceEvent.RoomID.IsZero() {
		return fmt.Errorf("rule %s belongs to %s, not %s", rule.SourceEvent.ID, rule.SourceEvent.RoomID, e.room)
	}
	_, err := e.sender.SendStateEvent(ctx, e.room, rule.SourceEvent.Type, rule.StateKey(), map[string]any{})
	if err != nil {
		return fmt.Errorf("removing policy %s from %s: %w", rule.SourceEvent.ID, e.room, err)
	}
	return nil
}

func randomStateKey() (string, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("generating policy state key: %w", err)
	}
	return hex.EncodeToString(buf[:]), nil
}
