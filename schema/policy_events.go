// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"encoding/json"
	"fmt"

	"github.com/warden-foundation/warden/lib/ref"
)

// PolicyRuleType identifies the kind of entity a policy rule governs.
// The values are the canonical Matrix event types, so a PolicyRuleType
// doubles as the event type a freshly authored rule of that kind uses.
type PolicyRuleType ref.EventType

const (
	PolicyRuleUser   PolicyRuleType = PolicyRuleType(MatrixEventTypePolicyRuleUser)
	PolicyRuleRoom   PolicyRuleType = PolicyRuleType(MatrixEventTypePolicyRuleRoom)
	PolicyRuleServer PolicyRuleType = PolicyRuleType(MatrixEventTypePolicyRuleServer)

	// PolicyRuleUnknown marks event types that are not policy rules.
	PolicyRuleUnknown PolicyRuleType = ""
)

// EventType returns the canonical Matrix event type for the rule kind.
func (t PolicyRuleType) EventType() ref.EventType { return ref.EventType(t) }

// String returns the canonical event type string.
func (t PolicyRuleType) String() string { return string(t) }

// PolicyRuleTypes lists the three rule kinds. The slice is shared;
// callers must not mutate it.
var PolicyRuleTypes = []PolicyRuleType{PolicyRuleUser, PolicyRuleRoom, PolicyRuleServer}

// AllPolicyRuleEventTypes lists every event type — canonical and
// deprecated — that decodes to a policy rule. Used to build /sync and
// state filters. The slice is shared; callers must not mutate it.
var AllPolicyRuleEventTypes = []ref.EventType{
	MatrixEventTypePolicyRuleUser, MatrixEventTypePolicyRuleRoom, MatrixEventTypePolicyRuleServer,
	EventTypeRoomRuleUser, EventTypeRoomRuleRoom, EventTypeRoomRuleServer,
	EventTypeMjolnirRuleUser, EventTypeMjolnirRuleRoom, EventTypeMjolnirRuleServer,
}

// NormalizePolicyRuleType folds canonical and deprecated policy event
// types into a rule kind. Returns PolicyRuleUnknown for anything that
// is not a policy rule event type.
func NormalizePolicyRuleType(eventType ref.EventType) PolicyRuleType {
	switch eventType {
	case MatrixEventTypePolicyRuleUser, EventTypeRoomRuleUser, EventTypeMjolnirRuleUser:
		return PolicyRuleUser
	case MatrixEventTypePolicyRuleRoom, EventTypeRoomRuleRoom, EventTypeMjolnirRuleRoom:
		return PolicyRuleRoom
	case MatrixEventTypePolicyRuleServer, EventTypeRoomRuleServer, EventTypeMjolnirRuleServer:
		return PolicyRuleServer
	default:
		return PolicyRuleUnknown
	}
}

// IsPolicyTypeObsolete reports whether a candidate event type is a
// deprecated alias losing a conflict against an existing canonical
// event of the same rule kind. Canonical types always win over legacy
// aliases regardless of timestamp: a stale legacy rule edit must never
// resurrect or delete state that was rewritten under the canonical
// type.
func IsPolicyTypeObsolete(kind PolicyRuleType, existingType, candidateType ref.EventType) bool {
	return existingType == kind.EventType() && candidateType != kind.EventType()
}

// Recommendation expresses what a policy rule asks consumers to do
// about the matched entity.
type Recommendation string

const (
	// RecommendationBan asks consumers to exclude the entity: ban the
	// user, reject the room, deny the server.
	RecommendationBan Recommendation = "m.ban"
)

// NormalizeRecommendation folds deprecated recommendation spellings
// into their canonical form. Unrecognized values pass through
// unchanged so that rules with future recommendations still compare
// equal to each other.
func NormalizeRecommendation(raw string) Recommendation {
	switch raw {
	case "m.ban", "org.matrix.mjolnir.ban":
		return RecommendationBan
	default:
		return Recommendation(raw)
	}
}

// PolicyRuleContent is the decoded content of a policy rule event.
type PolicyRuleContent struct {
	Entity         string `json:"entity"`
	Recommendation string `json:"recommendation"`
	Reason         string `json:"reason,omitempty"`
}

// DecodePolicyRuleContent decodes and validates policy rule content.
// The entity and recommendation fields are required; everything else
// is optional.
func DecodePolicyRuleContent(raw json.RawMessage) (PolicyRuleContent, error) {
	var content PolicyRuleContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return PolicyRuleContent{}, fmt.Errorf("schema: decoding policy rule content: %w", err)
	}
	if content.Entity == "" {
		return PolicyRuleContent{}, fmt.Errorf("schema: policy rule content missing entity")
	}
	if content.Recommendation == "" {
		return PolicyRuleContent{}, fmt.Errorf("schema: policy rule content missing recommendation")
	}
	return content, nil
}

// HasPolicyRuleEntity reports whether the raw content carries an
// entity field. The diff engine uses this to distinguish "rule
// removed" (no entity, e.g. a redaction) from "decoding contract
// violated" after the removal check has already passed.
func HasPolicyRuleEntity(raw json.RawMessage) bool {
	var content map[string]json.RawMessage
	if err := json.Unmarshal(raw, &content); err != nil {
		return false
	}
	_, ok := content["entity"]
	return ok
}
