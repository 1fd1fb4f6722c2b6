// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package state turns incoming Matrix state events into immutable,
// versioned revisions plus an ordered list of semantic changes, and
// publishes those revisions to listeners through revision issuers.
//
// A revision is a snapshot of derived facts about one room: its full
// state map, or its membership. Revisions never mutate; applying a
// batch of events produces a new revision object with a fresh
// revision ID, so a listener holding an old revision observes a
// consistent past snapshot.
//
// Issuers serialize updates. For a single issuer, state batches are
// applied and emitted strictly in order, and the new revision is
// swapped in before listeners run, so a listener calling back into
// the issuer sees the new revision as current. A batch that yields
// zero changes emits nothing.
package state
