// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import "testing"

func TestClassifyMembershipChange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		previous Membership
		next     Membership
		ownEvent bool
		want     MembershipChangeType
	}{
		{"first join", MembershipNone, MembershipJoin, true, MembershipChangeJoined},
		{"join from invite", MembershipInvite, MembershipJoin, true, MembershipChangeJoined},
		{"rejoin", MembershipLeave, MembershipJoin, true, MembershipChangeRejoined},
		{"voluntary leave", MembershipJoin, MembershipLeave, true, MembershipChangeLeft},
		{"kick", MembershipJoin, MembershipLeave, false, MembershipChangeKicked},
		{"ban", MembershipJoin, MembershipBan, false, MembershipChangeBanned},
		{"ban from outside", MembershipNone, MembershipBan, false, MembershipChangeBanned},
		{"unban", MembershipBan, MembershipLeave, false, MembershipChangeUnbanned},
		{"invite", MembershipNone, MembershipInvite, false, MembershipChangeInvited},
		{"knock", MembershipNone, MembershipKnock, true, MembershipChangeKnocked},
		{"invitation rejected", MembershipInvite, MembershipLeave, true, MembershipChangeInvitationRejected},
		{"invitation revoked", MembershipInvite, MembershipLeave, false, MembershipChangeInvitationRevoked},
		{"no change", MembershipJoin, MembershipJoin, true, MembershipChangeNone},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			got := ClassifyMembershipChange(test.previous, test.next, test.ownEvent)
			if got != test.want {
				t.Errorf("ClassifyMembershipChange(%q, %q, %v) = %q, want %q",
					test.previous, test.next, test.ownEvent, got, test.want)
			}
		})
	}
}
