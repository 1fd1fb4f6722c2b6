// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package accountdata persists Warden's moderation configuration: the
// protected-room list and the watched policy lists. Two backends
// exist with one contract — homeserver account data (the
// mjolnir-compatible event types, readable by other moderation tools
// on the same account) and a local SQLite database for deployments
// that keep configuration off the homeserver.
package accountdata

import "context"

// Store persists one configuration document. Load reports ok=false
// when the document has never been written; that is not an error.
// A failed Save must leave the persisted document unchanged.
type Store[T any] interface {
	Load(ctx context.Context) (value T, ok bool, err error)
	Save(ctx context.Context, value T) error
}
