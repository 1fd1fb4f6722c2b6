// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/warden-foundation/warden/lib/ref"
	"github.com/warden-foundation/warden/schema"
)

// maxSyncRetries is the number of consecutive /sync failures allowed
// before the feed gives up. Each retry uses a 1-second server-side
// timeout so the HTTP round-trip itself provides backoff.
const maxSyncRetries = 5

// longPollTimeout is the server-side long-poll hold time in
// milliseconds for normal /sync calls. 30 seconds matches the Matrix
// client-server spec recommendation.
const longPollTimeout = 30000

// retryTimeout is the server-side timeout in milliseconds used after
// a /sync error. Short so the retry completes quickly and the next
// attempt can proceed.
const retryTimeout = 1000

// SyncHandler receives the state delta and timeline events for one
// room from one /sync response. State events precede timeline events,
// matching the delivery order from the Matrix server.
type SyncHandler interface {
	HandleRoomSync(ctx context.Context, roomID ref.RoomID, stateEvents []*schema.StateEvent, timeline []schema.Event) error
}

// buildSyncFilter constructs the inline JSON filter for /sync,
// restricting timeline events to the given types. Presence and
// account data are always suppressed; the feed only carries room
// events. An empty type list means all timeline types.
func buildSyncFilter(timelineTypes []ref.EventType) string {
	roomFilter := map[string]any{}
	if len(timelineTypes) > 0 {
		types := make([]string, 0, len(timelineTypes))
		for _, eventType := range timelineTypes {
			types = append(types, eventType.String())
		}
		roomFilter["timeline"] = map[string]any{"types": types}
		roomFilter["state"] = map[string]any{"types": types}
	}
	top := map[string]any{
		"room":         roomFilter,
		"presence":     map[string]any{"types": []string{}},
		"account_data": map[string]any{"types": []string{}},
	}
	data, _ := json.Marshal(top)
	return string(data)
}

// SyncFeed drives a Matrix /sync long-poll loop and delivers each
// joined room's events to a handler. The feed owns its stream
// position; a handler error is logged and does not advance past
// retries — the events of later rooms in the same response are still
// delivered.
//
// SyncFeed is not safe for concurrent use; run one feed per session.
type SyncFeed struct {
	session   *DirectSession
	handler   SyncHandler
	filter    string
	nextBatch string
	logger    *slog.Logger
}

// NewSyncFeed creates a feed delivering to the handler. timelineTypes
// restricts the event types carried; nil means everything.
func NewSyncFeed(session *DirectSession, handler SyncHandler, timelineTypes []ref.EventType, logger *slog.Logger) *SyncFeed {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncFeed{
		session: session,
		handler: handler,
		filter:  buildSyncFilter(timelineTypes),
		logger:  logger,
	}
}

// Checkpoint performs an immediate /sync (timeout=0) to obtain the
// current next_batch token without blocking. Events before the
// checkpoint are never delivered. Call once before Run.
func (f *SyncFeed) Checkpoint(ctx context.Context) error {
	response, err := f.session.Sync(ctx, SyncOptions{
		SetTimeout: true,
		Timeout:    0,
		Filter:     f.filter,
	})
	if err != nil {
		return fmt.Errorf("messaging: initial sync checkpoint: %w", err)
	}
	f.nextBatch = response.NextBatch
	return nil
}

// Run long-polls /sync until the context is cancelled or the server
// fails too many times in a row. Transient errors retry with a short
// server-side timeout; the connection pool is reset on error so the
// next attempt opens a fresh socket.
func (f *SyncFeed) Run(ctx context.Context) error {
	var syncRetries int
	for {
		syncTimeout := longPollTimeout
		if syncRetries > 0 {
			syncTimeout = retryTimeout
		}
		response, err := f.session.Sync(ctx, SyncOptions{
			Since:      f.nextBatch,
			SetTimeout: true,
			Timeout:    syncTimeout,
			Filter:     f.filter,
		})
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("messaging: sync feed stopped: %w", ctx.Err())
			}
			syncRetries++
			f.session.CloseIdleConnections()
			if syncRetries > maxSyncRetries {
				return fmt.Errorf("messaging: sync failed %d consecutive times: %w", syncRetries, err)
			}
			f.logger.Debug("sync feed error, retrying",
				"attempt", syncRetries,
				"max_attempts", maxSyncRetries,
				"error", err,
			)
			continue
		}
		syncRetries = 0
		f.nextBatch = response.NextBatch

		for roomID, joined := range response.Rooms.Join {
			stateEvents := make([]*schema.StateEvent, 0, len(joined.State.Events))
			for index := range joined.State.Events {
				if stateEvent, ok := joined.State.Events[index].AsStateEvent(); ok {
					stateEvent.RoomID = roomID
					stateEvents = append(stateEvents, stateEvent)
				}
			}
			if err := f.handler.HandleRoomSync(ctx, roomID, stateEvents, joined.Timeline.Events); err != nil {
				f.logger.Error("sync handler failed for room",
					"room_id", roomID,
					"error", err,
				)
			}
		}
	}
}

// SyncPosition returns the current sync stream position token.
func (f *SyncFeed) SyncPosition() string {
	return f.nextBatch
}
