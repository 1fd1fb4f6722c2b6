// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/warden-foundation/warden/lib/ref"
	"github.com/warden-foundation/warden/schema"
)

// DirectSession is an authenticated Matrix session. It wraps a Client
// with an access token for making authenticated API calls. Sessions
// are lightweight and safe to create in large numbers.
type DirectSession struct {
	client      *Client
	accessToken string
	userID      ref.UserID
	deviceID    string
}

// UserID returns the fully-qualified Matrix user ID.
func (s *DirectSession) UserID() ref.UserID {
	return s.userID
}

// DeviceID returns the device ID for this session.
func (s *DirectSession) DeviceID() string {
	return s.deviceID
}

// CloseIdleConnections closes idle HTTP connections in the underlying
// transport's connection pool. Call this after a sync error to force
// the next request to establish a fresh TCP connection.
func (s *DirectSession) CloseIdleConnections() {
	s.client.CloseIdleConnections()
}

// WhoAmI validates the access token and returns the user ID. Useful
// for checking whether a stored token is still valid.
func (s *DirectSession) WhoAmI(ctx context.Context) (ref.UserID, error) {
	body, err := s.client.doRequest(ctx, http.MethodGet, "/_matrix/client/v3/account/whoami", s.accessToken, nil)
	if err != nil {
		return ref.UserID{}, fmt.Errorf("messaging: whoami failed: %w", err)
	}

	var response WhoAmIResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return ref.UserID{}, fmt.Errorf("messaging: failed to parse whoami response: %w", err)
	}
	return response.UserID, nil
}

// JoinRoom joins a room by ID. Returns the room ID.
func (s *DirectSession) JoinRoom(ctx context.Context, roomID ref.RoomID) (ref.RoomID, error) {
	path := "/_matrix/client/v3/join/" + url.PathEscape(roomID.String())
	body, err := s.client.doRequest(ctx, http.MethodPost, path, s.accessToken, struct{}{})
	if err != nil {
		return ref.RoomID{}, fmt.Errorf("messaging: join room %s failed: %w", roomID, err)
	}

	var response struct {
		RoomID ref.RoomID `json:"room_id"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return ref.RoomID{}, fmt.Errorf("messaging: failed to parse join response: %w", err)
	}
	return response.RoomID, nil
}

// LeaveRoom leaves a room by ID.
func (s *DirectSession) LeaveRoom(ctx context.Context, roomID ref.RoomID) error {
	path := fmt.Sprintf("/_matrix/client/v3/rooms/%s/leave", url.PathEscape(roomID.String()))
	if _, err := s.client.doRequest(ctx, http.MethodPost, path, s.accessToken, struct{}{}); err != nil {
		return fmt.Errorf("messaging: leave room %q failed: %w", roomID, err)
	}
	return nil
}

// JoinedRooms returns the list of room IDs the user has joined.
func (s *DirectSession) JoinedRooms(ctx context.Context) ([]ref.RoomID, error) {
	body, err := s.client.doRequest(ctx, http.MethodGet, "/_matrix/client/v3/joined_rooms", s.accessToken, nil)
	if err != nil {
		return nil, fmt.Errorf("messaging: joined rooms failed: %w", err)
	}

	var response JoinedRoomsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("messaging: failed to parse joined rooms response: %w", err)
	}
	return response.JoinedRooms, nil
}

// RoomState fetches all current state events from a room.
func (s *DirectSession) RoomState(ctx context.Context, roomID ref.RoomID) ([]*schema.StateEvent, error) {
	path := fmt.Sprintf("/_matrix/client/v3/rooms/%s/state", url.PathEscape(roomID.String()))

	body, err := s.client.doRequest(ctx, http.MethodGet, path, s.accessToken, nil)
	if err != nil {
		return nil, fmt.Errorf("messaging: get room state for %q failed: %w", roomID, err)
	}

	var events []*schema.StateEvent
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("messaging: failed to parse room state response: %w", err)
	}
	return events, nil
}

// GetStateEvent fetches a specific state event's content from a room.
// Returns the raw JSON content — the caller is responsible for
// unmarshaling into the appropriate type (e.g., schema.PowerLevels).
//
// If the state event does not exist, returns a *MatrixError with code
// M_NOT_FOUND.
func (s *DirectSession) GetStateEvent(ctx context.Context, roomID ref.RoomID, eventType ref.EventType, stateKey string) (json.RawMessage, error) {
	path := fmt.Sprintf("/_matrix/client/v3/rooms/%s/state/%s/%s",
		url.PathEscape(roomID.String()),
		url.PathEscape(eventType.String()),
		url.PathEscape(stateKey),
	)

	body, err := s.client.doRequest(ctx, http.MethodGet, path, s.accessToken, nil)
	if err != nil {
		return nil, fmt.Errorf("messaging: get state event %s/%s in %q failed: %w", eventType, stateKey, roomID, err)
	}
	return json.RawMessage(body), nil
}

// SendStateEvent sends a state event to a room. State events use PUT
// with the event type and state key in the path. Returns the event ID.
func (s *DirectSession) SendStateEvent(ctx context.Context, roomID ref.RoomID, eventType ref.EventType, stateKey string, content any) (ref.EventID, error) {
	path := fmt.Sprintf("/_matrix/client/v3/rooms/%s/state/%s/%s",
		url.PathEscape(roomID.String()),
		url.PathEscape(eventType.String()),
		url.PathEscape(stateKey),
	)

	body, err := s.client.doRequest(ctx, http.MethodPut, path, s.accessToken, content)
	if err != nil {
		return ref.EventID{}, fmt.Errorf("messaging: send state event to %q failed: %w", roomID, err)
	}

	var response SendEventResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return ref.EventID{}, fmt.Errorf("messaging: failed to parse send state response: %w", err)
	}
	return response.EventID, nil
}

// BanUser bans a user from a room with an optional reason.
func (s *DirectSession) BanUser(ctx context.Context, roomID ref.RoomID, userID ref.UserID, reason string) error {
	path := fmt.Sprintf("/_matrix/client/v3/rooms/%s/ban", url.PathEscape(roomID.String()))
	request := map[string]any{"user_id": userID.String()}
	if reason != "" {
		request["reason"] = reason
	}
	if _, err := s.client.doRequest(ctx, http.MethodPost, path, s.accessToken, request); err != nil {
		return fmt.Errorf("messaging: ban %s from %q failed: %w", userID, roomID, err)
	}
	return nil
}

// UnbanUser lifts a ban on a user in a room.
func (s *DirectSession) UnbanUser(ctx context.Context, roomID ref.RoomID, userID ref.UserID) error {
	path := fmt.Sprintf("/_matrix/client/v3/rooms/%s/unban", url.PathEscape(roomID.String()))
	request := map[string]any{"user_id": userID.String()}
	if _, err := s.client.doRequest(ctx, http.MethodPost, path, s.accessToken, request); err != nil {
		return fmt.Errorf("messaging: unban %s in %q failed: %w", userID, roomID, err)
	}
	return nil
}

// KickUser removes a user from a room with an optional reason.
func (s *DirectSession) KickUser(ctx context.Context, roomID ref.RoomID, userID ref.UserID, reason string) error {
	path := fmt.Sprintf("/_matrix/client/v3/rooms/%s/kick", url.PathEscape(roomID.String()))
	request := map[string]any{"user_id": userID.String()}
	if reason != "" {
		request["reason"] = reason
	}
	if _, err := s.client.doRequest(ctx, http.MethodPost, path, s.accessToken, request); err != nil {
		return fmt.Errorf("messaging: kick %s from %q failed: %w", userID, roomID, err)
	}
	return nil
}

// GetAccountData fetches a global account data event for this session's
// user. Returns a *MatrixError with code M_NOT_FOUND when the event has
// never been written.
func (s *DirectSession) GetAccountData(ctx context.Context, eventType ref.EventType) (json.RawMessage, error) {
	path := fmt.Sprintf("/_matrix/client/v3/user/%s/account_data/%s",
		url.PathEscape(s.userID.String()),
		url.PathEscape(eventType.String()),
	)
	body, err := s.client.doRequest(ctx, http.MethodGet, path, s.accessToken, nil)
	if err != nil {
		return nil, fmt.Errorf("messaging: get account data %s failed: %w", eventType, err)
	}
	return json.RawMessage(body), nil
}

// PutAccountData writes a global account data event for this session's
// user.
func (s *DirectSession) PutAccountData(ctx context.Context, eventType ref.EventType, content any) error {
	path := fmt.Sprintf("/_matrix/client/v3/user/%s/account_data/%s",
		url.PathEscape(s.userID.String()),
		url.PathEscape(eventType.String()),
	)
	if _, err := s.client.doRequest(ctx, http.MethodPut, path, s.accessToken, content); err != nil {
		return fmt.Errorf("messaging: put account data %s failed: %w", eventType, err)
	}
	return nil
}

// Sync performs one /sync request. The since token travels as a query
// parameter, so Sync is stateless — callers own their stream position.
func (s *DirectSession) Sync(ctx context.Context, options SyncOptions) (*SyncResponse, error) {
	query := url.Values{}
	if options.Since != "" {
		query.Set("since", options.Since)
	}
	if options.SetTimeout {
		query.Set("timeout", strconv.Itoa(options.Timeout))
	}
	if options.Filter != "" {
		query.Set("filter", options.Filter)
	}

	body, err := s.client.doRequest(ctx, http.MethodGet, "/_matrix/client/v3/sync", s.accessToken, nil, query)
	if err != nil {
		return nil, fmt.Errorf("messaging: sync failed: %w", err)
	}

	var response SyncResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("messaging: failed to parse sync response: %w", err)
	}
	return &response, nil
}
