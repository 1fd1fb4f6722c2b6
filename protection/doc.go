// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package protection runs moderation protections over a set of
// protected rooms.
//
// A Protection watches revisions of protected-room state and of the
// aggregated watched policy lists, and requests effects through a
// ConsequenceProvider. Protections never mutate room state directly,
// which keeps detection and enforcement separately testable.
//
// The ProtectedRoomsSet wires protected rooms and watched policy
// rooms to their revision issuers and dispatches each revision to
// every protection that declared an interest in the changed event
// types or policy rule kinds. A failing protection is logged and does
// not stop the remaining protections in the same cycle.
package protection
