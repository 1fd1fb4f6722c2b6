// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package accountdata

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/warden-foundation/warden/lib/ref"
	"github.com/warden-foundation/warden/messaging"
)

// AccountDataSession is the slice of the Matrix client-server API the
// Matrix-backed store needs. Implemented by messaging.DirectSession.
type AccountDataSession interface {
	GetAccountData(ctx context.Context, eventType ref.EventType) (json.RawMessage, error)
	PutAccountData(ctx context.Context, eventType ref.EventType, content any) error
}

// MatrixStore persists a configuration document as a global account
// data event on the homeserver. Using the mjolnir-compatible event
// types keeps the configuration readable by other moderation tools
// sharing the account.
type MatrixStore[T any] struct {
	session   AccountDataSession
	eventType ref.EventType
}

// NewMatrixStore creates a store writing to the given account data
// event type.
func NewMatrixStore[T any](session AccountDataSession, eventType ref.EventType) *MatrixStore[T] {
	return &MatrixStore[T]{session: session, eventType: eventType}
}

// Load fetches and decodes the account data event. A M_NOT_FOUND
// response means the document has never been written.
func (s *MatrixStore[T]) Load(ctx context.Context) (T, bool, error) {
	var value T
	raw, err := s.session.GetAccountData(ctx, s.eventType)
	if err != nil {
		if messaging.IsNotFound(err) {
			return value, false, nil
		}
		return value, false, fmt.Errorf("accountdata: loading %s: %w", s.eventType, err)
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return value, false, fmt.Errorf("accountdata: decoding %s: %w", s.eventType, err)
	}
	return value, true, nil
}

// Save writes the document to the account data event.
func (s *MatrixStore[T]) Save(ctx context.Context, value T) error {
	if err := s.session.PutAccountData(ctx, s.eventType, value); err != nil {
		return fmt.Errorf("accountdata: saving %s: %w", s.eventType, err)
	}
	return nil
}
