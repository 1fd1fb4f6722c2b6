// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"encoding/json"
	"fmt"

	"github.com/warden-foundation/warden/lib/ref"
)

// PowerLevels is a typed representation of the Matrix m.room.power_levels
// state event content.
//
// Pointer-to-int fields distinguish "not set" (nil, omitted from JSON) from
// "explicitly set to 0" (pointer to 0). This preserves server defaults for
// fields the caller doesn't touch.
type PowerLevels struct {
	Users         map[string]int `json:"users,omitempty"`
	UsersDefault  *int           `json:"users_default,omitempty"`
	Events        map[string]int `json:"events,omitempty"`
	EventsDefault *int           `json:"events_default,omitempty"`
	StateDefault  *int           `json:"state_default,omitempty"`
	Invite        *int           `json:"invite,omitempty"`
	Ban           *int           `json:"ban,omitempty"`
	Kick          *int           `json:"kick,omitempty"`
	Redact        *int           `json:"redact,omitempty"`
	Notifications map[string]int `json:"notifications,omitempty"`
}

// DecodePowerLevels decodes m.room.power_levels content. Empty content
// (a redacted event) decodes to the zero value, where every level
// falls back to its Matrix spec default.
func DecodePowerLevels(raw json.RawMessage) (PowerLevels, error) {
	if len(raw) == 0 {
		return PowerLevels{}, nil
	}
	var powerLevels PowerLevels
	if err := json.Unmarshal(raw, &powerLevels); err != nil {
		return PowerLevels{}, fmt.Errorf("schema: decoding power levels: %w", err)
	}
	return powerLevels, nil
}

// UserLevel returns the power level for a user. An explicit entry in
// the Users map wins, then UsersDefault, then the Matrix spec default
// of 0.
func (powerLevels *PowerLevels) UserLevel(userID ref.UserID) int {
	if powerLevels.Users != nil {
		if level, ok := powerLevels.Users[userID.String()]; ok {
			return level
		}
	}
	if powerLevels.UsersDefault != nil {
		return *powerLevels.UsersDefault
	}
	return 0
}

// RequiredLevelForState returns the power level required to send a
// state event of the given type: an explicit entry in the Events map,
// else StateDefault, else the Matrix spec default of 50.
func (powerLevels *PowerLevels) RequiredLevelForState(eventType ref.EventType) int {
	if powerLevels.Events != nil {
		if level, ok := powerLevels.Events[string(eventType)]; ok {
			return level
		}
	}
	if powerLevels.StateDefault != nil {
		return *powerLevels.StateDefault
	}
	return 50
}

// CanUserEditState reports whether the user's power level meets the
// requirement for sending a state event of the given type.
func (powerLevels *PowerLevels) CanUserEditState(userID ref.UserID, eventType ref.EventType) bool {
	return powerLevels.UserLevel(userID) >= powerLevels.RequiredLevelForState(eventType)
}

// SetUserLevel sets the power level for a Matrix user ID. Initializes
// the Users map if nil.
func (powerLevels *PowerLevels) SetUserLevel(userID ref.UserID, level int) {
	if powerLevels.Users == nil {
		powerLevels.Users = make(map[string]int)
	}
	powerLevels.Users[userID.String()] = level
}
