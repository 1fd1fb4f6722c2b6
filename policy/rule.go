// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"fmt"
	"strings"

	"github.com/warden-foundation/warden/schema"
)

// Rule is one policy rule backed by a state event in a policy room.
// Immutable once constructed. Two rules occupy the same slot iff they
// share (Kind, state_key); they are the same stored artifact iff they
// share the source event ID.
type Rule struct {
	Kind           schema.PolicyRuleType
	Entity         string
	Recommendation schema.Recommendation
	Reason         string

	// SourceEvent is the state event the rule was parsed from.
	SourceEvent *schema.StateEvent

	glob *schema.Glob
}

// NewRule parses a policy rule from a state event of the given kind.
func NewRule(kind schema.PolicyRuleType, event *schema.StateEvent) (*Rule, error) {
	content, err := schema.DecodePolicyRuleContent(event.Content)
	if err != nil {
		return nil, err
	}
	glob, err := schema.CompileGlob(content.Entity)
	if err != nil {
		return nil, fmt.Errorf("policy: rule %s has an uncompilable entity pattern: %w", event.ID, err)
	}
	return &Rule{
		Kind:           kind,
		Entity:         content.Entity,
		Recommendation: schema.NormalizeRecommendation(content.Recommendation),
		Reason:         content.Reason,
		SourceEvent:    event,
		glob:           glob,
	}, nil
}

// StateKey returns the slot identifier of the rule's source event.
func (r *Rule) StateKey() string { return r.SourceEvent.StateKey }

// MatchesEntity reports whether the rule's entity pattern matches the
// given entity.
func (r *Rule) MatchesEntity(entity string) bool {
	return r.glob.Match(entity)
}

// IsGlob reports whether the rule's entity pattern contains wildcards.
func (r *Rule) IsGlob() bool { return !r.glob.IsLiteral() }

// KindForEntity infers a rule kind from an entity's sigil: rooms start
// with '#' or '!', users with '@', anything else is a server name.
func KindForEntity(entity string) schema.PolicyRuleType {
	switch {
	case strings.HasPrefix(entity, "#"), strings.HasPrefix(entity, "!"):
		return schema.PolicyRuleRoom
	case strings.HasPrefix(entity, "@"):
		return schema.PolicyRuleUser
	default:
		return schema.PolicyRuleServer
	}
}
