// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import "testing"

func TestServerACLContentEqual(t *testing.T) {
	t.Parallel()

	a := ServerACLContent{Allow: []string{"*"}, Deny: []string{"bad.example", "evil.example"}}
	b := ServerACLContent{Allow: []string{"*"}, Deny: []string{"evil.example", "bad.example"}}
	if !a.Equal(b) {
		t.Error("ACLs differing only in deny order compared unequal")
	}

	c := ServerACLContent{Allow: []string{"*"}, Deny: []string{"bad.example"}}
	if a.Equal(c) {
		t.Error("ACLs with different deny lists compared equal")
	}

	d := ServerACLContent{Allow: []string{"*"}, Deny: []string{"bad.example", "evil.example"}, AllowIPLiterals: true}
	if a.Equal(d) {
		t.Error("ACLs with different allow_ip_literals compared equal")
	}
}

func TestServerACLContentAllowsServer(t *testing.T) {
	t.Parallel()

	acl := ServerACLContent{Allow: []string{"*"}, Deny: []string{"*.banned.example", "evil.example"}}

	tests := []struct {
		server string
		want   bool
	}{
		{"good.example", true},
		{"evil.example", false},
		{"sub.banned.example", false},
		{"banned.example", true},
	}
	for _, test := range tests {
		if got := acl.AllowsServer(test.server); got != test.want {
			t.Errorf("AllowsServer(%q) = %v, want %v", test.server, got, test.want)
		}
	}

	noAllow := ServerACLContent{Deny: []string{"evil.example"}}
	if !noAllow.AllowsServer("good.example") {
		t.Error("absent allow list denied a server not on the deny list")
	}

	emptyAllow := ServerACLContent{Allow: []string{}}
	if emptyAllow.AllowsServer("good.example") {
		t.Error("empty allow list permitted a server")
	}
}

func TestGlob(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pattern string
		subject string
		want    bool
	}{
		{"*", "anything.example", true},
		{"*.example.com", "a.example.com", true},
		{"*.example.com", "example.com", false},
		{"@spam*:example.com", "@spammer42:example.com", true},
		{"@spam?:example.com", "@spam1:example.com", true},
		{"@spam?:example.com", "@spam12:example.com", false},
		{"exact.example", "exact.example", true},
		{"exact.example", "other.example", false},
		{"a.b.example", "aXbXexample", false},
	}
	for _, test := range tests {
		glob, err := CompileGlob(test.pattern)
		if err != nil {
			t.Fatalf("CompileGlob(%q): %v", test.pattern, err)
		}
		if got := glob.Match(test.subject); got != test.want {
			t.Errorf("glob %q match %q = %v, want %v", test.pattern, test.subject, got, test.want)
		}
	}

	literal, err := CompileGlob("plain.example")
	if err != nil {
		t.Fatalf("CompileGlob: %v", err)
	}
	if !literal.IsLiteral() {
		t.Error("pattern without wildcards not recognized as literal")
	}
}
