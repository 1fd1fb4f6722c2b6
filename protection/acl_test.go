// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package protection

import (
	"slices"
	"testing"

	"github.com/warden-foundation/warden/lib/ref"
	"github.com/warden-foundation/warden/schema"
)

func TestCompileServerACL(t *testing.T) {
	t.Parallel()

	policyRoom := testRoomID(t)
	policies := watchedPolicies(t, policyRoom,
		banRuleEvent(t, schema.MatrixEventTypePolicyRuleServer, "rule-evil", "evil.example.com"),
		banRuleEvent(t, schema.MatrixEventTypePolicyRuleServer, "rule-glob", "*.badhost.example"),
		banRuleEvent(t, schema.MatrixEventTypePolicyRuleServer, "rule-dup", "evil.example.com"),
	)

	acl := CompileServerACL(ref.MustParseServerName("example.com"), policies)
	if !slices.Equal(acl.Allow, []string{"*"}) {
		t.Errorf("Allow = %v, want [*]", acl.Allow)
	}
	if acl.AllowIPLiterals {
		t.Error("AllowIPLiterals = true, want false")
	}
	want := []string{"*.badhost.example", "evil.example.com"}
	if !slices.Equal(acl.Deny, want) {
		t.Errorf("Deny = %v, want %v", acl.Deny, want)
	}
}

func TestCompileServerACLNeverDeniesOwnServer(t *testing.T) {
	t.Parallel()

	policyRoom := testRoomID(t)
	policies := watchedPolicies(t, policyRoom,
		banRuleEvent(t, schema.MatrixEventTypePolicyRuleServer, "rule-self", "example.com"),
		banRuleEvent(t, schema.MatrixEventTypePolicyRuleServer, "rule-glob", "example.*"),
		banRuleEvent(t, schema.MatrixEventTypePolicyRuleServer, "rule-other", "other.example"),
	)

	acl := CompileServerACL(ref.MustParseServerName("example.com"), policies)
	if !slices.Equal(acl.Deny, []string{"other.example"}) {
		t.Errorf("Deny = %v, want only other.example", acl.Deny)
	}
}

func TestCompileServerACLEmptyPolicies(t *testing.T) {
	t.Parallel()

	acl := CompileServerACL(ref.MustParseServerName("example.com"), watchedPolicies(t, testRoomID(t)))
	if len(acl.Deny) != 0 {
		t.Errorf("Deny = %v, want empty", acl.Deny)
	}
	if !slices.Equal(acl.Allow, []string{"*"}) {
		t.Errorf("Allow = %v, want [*]", acl.Allow)
	}
}
