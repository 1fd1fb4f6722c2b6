// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package policy models Matrix policy lists: rooms whose state events
// encode moderation rules (MSC2313). It derives immutable, versioned
// revisions of a policy room's rule set from its state events,
// applying rule precedence (canonical event types beat deprecated
// aliases) and redaction semantics, and publishes revisions through
// issuers. A direct-propagation issuer aggregates several watched
// policy rooms into one revision stream for consumers that act on the
// union of all watched lists.
package policy
