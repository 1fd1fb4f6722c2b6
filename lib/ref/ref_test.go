// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"encoding/json"
	"testing"
)

func TestParseUserID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{name: "valid", raw: "@alice:example.com"},
		{name: "valid with port", raw: "@alice:example.com:8448"},
		{name: "remote spammer", raw: "@spam:evil.example.org"},
		{name: "empty", raw: "", wantErr: true},
		{name: "missing sigil", raw: "alice:example.com", wantErr: true},
		{name: "wrong sigil", raw: "#alice:example.com", wantErr: true},
		{name: "missing server", raw: "@alice", wantErr: true},
		{name: "empty localpart", raw: "@:example.com", wantErr: true},
		{name: "empty server", raw: "@alice:", wantErr: true},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			parsed, err := ParseUserID(test.raw)
			if test.wantErr {
				if err == nil {
					t.Fatalf("ParseUserID(%q) succeeded, want error", test.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseUserID(%q): %v", test.raw, err)
			}
			if parsed.String() != test.raw {
				t.Errorf("String() = %q, want %q", parsed.String(), test.raw)
			}
		})
	}
}

func TestUserIDParts(t *testing.T) {
	t.Parallel()

	user := MustParseUserID("@alice:example.com")
	if got := user.Localpart(); got != "alice" {
		t.Errorf("Localpart() = %q, want %q", got, "alice")
	}
	if got := user.Server().String(); got != "example.com" {
		t.Errorf("Server() = %q, want %q", got, "example.com")
	}
}

func TestParseRoomID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{name: "valid", raw: "!abc123:example.com"},
		{name: "empty", raw: "", wantErr: true},
		{name: "missing sigil", raw: "abc123:example.com", wantErr: true},
		{name: "missing server", raw: "!abc123", wantErr: true},
		{name: "empty local part", raw: "!:example.com", wantErr: true},
		{name: "empty server", raw: "!abc123:", wantErr: true},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			parsed, err := ParseRoomID(test.raw)
			if test.wantErr {
				if err == nil {
					t.Fatalf("ParseRoomID(%q) succeeded, want error", test.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRoomID(%q): %v", test.raw, err)
			}
			if parsed.String() != test.raw {
				t.Errorf("String() = %q, want %q", parsed.String(), test.raw)
			}
		})
	}
}

func TestParseEventID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{name: "room v4 format", raw: "$KpzrF1Def9rGwW4sGvEJTg8W9XNX0zaA"},
		{name: "legacy format", raw: "$1234:example.com"},
		{name: "empty", raw: "", wantErr: true},
		{name: "missing sigil", raw: "abc123", wantErr: true},
		{name: "bare sigil", raw: "$", wantErr: true},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseEventID(test.raw)
			if test.wantErr != (err != nil) {
				t.Fatalf("ParseEventID(%q) error = %v, wantErr %v", test.raw, err, test.wantErr)
			}
		})
	}
}

func TestRoomIDAsJSONMapKey(t *testing.T) {
	t.Parallel()

	// /sync responses key joined rooms by room ID; decoding must
	// validate through UnmarshalText.
	var decoded map[RoomID]int
	if err := json.Unmarshal([]byte(`{"!abc:example.com": 1}`), &decoded); err != nil {
		t.Fatalf("unmarshal map keyed by room ID: %v", err)
	}
	if decoded[MustParseRoomID("!abc:example.com")] != 1 {
		t.Errorf("decoded map missing expected key: %v", decoded)
	}

	if err := json.Unmarshal([]byte(`{"not-a-room-id": 1}`), &decoded); err == nil {
		t.Error("unmarshal with invalid room ID key succeeded, want error")
	}
}

func TestZeroValues(t *testing.T) {
	t.Parallel()

	if !(UserID{}).IsZero() || !(RoomID{}).IsZero() || !(EventID{}).IsZero() || !(ServerName{}).IsZero() {
		t.Error("zero values must report IsZero")
	}
	if (MustParseUserID("@a:b")).IsZero() {
		t.Error("parsed user ID must not report IsZero")
	}
}
