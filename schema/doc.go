// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package schema defines typed Matrix event content for the moderation
// domain and the decode boundary that turns raw JSON into it.
//
// The revision engine never inspects raw JSON itself. Every event
// enters the system as a [StateEvent] envelope (validated identifiers,
// raw content); the typed content — [MemberContent], [PolicyRuleContent],
// [ServerACLContent], [PowerLevels] — is decoded exactly once, at the
// point where a component needs it. Decode failures are recoverable:
// a malformed event is skipped or treated as absent, never a crash.
//
// Policy rule event types come in a canonical form (m.policy.rule.*)
// and two generations of deprecated aliases kept alive by old
// moderation bots. [NormalizePolicyRuleType] folds all three spellings
// into one rule kind; [IsPolicyTypeObsolete] implements the precedence
// rule that a canonical-type event is never overridden by a legacy
// alias, regardless of which arrived later.
package schema
