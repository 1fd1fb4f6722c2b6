// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package state

import (
	"sync/atomic"

	"github.com/warden-foundation/warden/lib/ref"
	"github.com/warden-foundation/warden/schema"
)

// RevisionID is an opaque, strictly increasing token minted on every
// revision transition. Equal IDs imply identical content. IDs order
// revisions of a single room only; they carry no meaning across
// rooms.
type RevisionID uint64

var revisionCounter atomic.Uint64

// NextRevisionID mints a fresh revision ID. Safe for concurrent use.
func NextRevisionID() RevisionID {
	return RevisionID(revisionCounter.Add(1))
}

// ChangeType classifies a semantic delta between two revisions.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeRemoved  ChangeType = "removed"
)

// CalculateStateChange compares an incoming state event against the
// existing event in the same (type, state_key) slot. The second
// return is false when the incoming event changes nothing, in which
// case the event must be skipped. existing is nil when the slot is
// empty.
//
// Content comparison is structural: two JSON documents that differ
// only in key order compare equal. Empty content ({} or null, the
// shape a redaction leaves behind) means the slot's value has been
// removed.
func CalculateStateChange(incoming, existing *schema.StateEvent) (ChangeType, bool) {
	if existing != nil && incoming.ContentDigest() == existing.ContentDigest() {
		return "", false
	}
	switch {
	case incoming.ContentIsEmpty():
		return ChangeRemoved, true
	case existing != nil && !existing.ContentIsEmpty():
		return ChangeModified, true
	default:
		return ChangeAdded, true
	}
}

// StateChange is one semantic delta produced by diffing a batch of
// state events against a revision.
type StateChange struct {
	ChangeType ChangeType

	// Event is the state event that caused the change. For a removal
	// this is the removing event (possibly a redacted shell with
	// empty content).
	Event *schema.StateEvent

	// PreviousState is the event the slot held before the change.
	// Present iff ChangeType is ChangeModified or ChangeRemoved.
	PreviousState *schema.StateEvent

	// Sender is the user responsible for the change. For a removal
	// caused by redaction this is the redacting user when the
	// redaction metadata names one, otherwise the event's sender.
	Sender ref.UserID
}

// changeSender attributes a change to a user. Redaction-driven
// removals credit the redacting user.
func changeSender(changeType ChangeType, event *schema.StateEvent) ref.UserID {
	if changeType == ChangeRemoved {
		if redactor, ok := event.RedactionSender(); ok {
			return redactor
		}
	}
	return event.Sender
}
