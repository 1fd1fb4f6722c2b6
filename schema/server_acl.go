// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"encoding/json"
	"fmt"
	"slices"
)

// ServerACLContent is the decoded content of an m.room.server_acl
// event.
type ServerACLContent struct {
	Allow           []string `json:"allow,omitempty"`
	Deny            []string `json:"deny,omitempty"`
	AllowIPLiterals bool     `json:"allow_ip_literals"`
}

// DecodeServerACLContent decodes m.room.server_acl content.
func DecodeServerACLContent(raw json.RawMessage) (ServerACLContent, error) {
	if len(raw) == 0 {
		return ServerACLContent{}, nil
	}
	var content ServerACLContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return ServerACLContent{}, fmt.Errorf("schema: decoding server ACL content: %w", err)
	}
	return content, nil
}

// Equal reports whether two ACLs describe the same policy, comparing
// allow and deny as sets.
func (a ServerACLContent) Equal(b ServerACLContent) bool {
	if a.AllowIPLiterals != b.AllowIPLiterals {
		return false
	}
	return sameStringSet(a.Allow, b.Allow) && sameStringSet(a.Deny, b.Deny)
}

func sameStringSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := slices.Clone(a)
	bs := slices.Clone(b)
	slices.Sort(as)
	slices.Sort(bs)
	return slices.Equal(as, bs)
}

// AllowsServer reports whether the ACL permits the named server: the
// server must match at least one allow glob and no deny glob. An
// absent allow list permits every server.
func (a ServerACLContent) AllowsServer(server string) bool {
	for _, pattern := range a.Deny {
		if glob, err := CompileGlob(pattern); err == nil && glob.Match(server) {
			return false
		}
	}
	if a.Allow == nil {
		return true
	}
	for _, pattern := range a.Allow {
		if glob, err := CompileGlob(pattern); err == nil && glob.Match(server) {
			return true
		}
	}
	return false
}
