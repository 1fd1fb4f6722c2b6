// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package protection

import (
	"slices"

	"github.com/warden-foundation/warden/lib/ref"
	"github.com/warden-foundation/warden/policy"
	"github.com/warden-foundation/warden/schema"
)

// CompileServerACL derives the m.room.server_acl content implied by
// the watched server-ban policies. Every banned server glob becomes a
// deny entry, except globs that would match ownServer: denying the
// bot's own server would sever it from every protected room. The
// allow list admits everything not denied, and IP literals are always
// denied.
func CompileServerACL(ownServer ref.ServerName, policies policy.ListRevision) schema.ServerACLContent {
	var deny []string
	for _, rule := range policies.AllRulesOfType(schema.PolicyRuleServer, schema.RecommendationBan) {
		if rule.MatchesEntity(ownServer.String()) {
			continue
		}
		deny = append(deny, rule.Entity)
	}
	slices.Sort(deny)
	deny = slices.Compact(deny)
	return schema.ServerACLContent{
		Allow:           []string{"*"},
		Deny:            deny,
		AllowIPLiterals: false,
	}
}
