// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "warden.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
homeserver:
  url: https://matrix.example.com
  server_name: example.com
auth:
  username: warden
  password: hunter2
storage:
  database: /var/lib/warden/warden.db
protections:
  enabled:
    - member-ban-synchronisation
logging:
  level: debug
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Homeserver.URL != "https://matrix.example.com" {
		t.Errorf("URL = %q", cfg.Homeserver.URL)
	}
	if cfg.Storage.Database != "/var/lib/warden/warden.db" {
		t.Errorf("Database = %q", cfg.Storage.Database)
	}
	if len(cfg.Protections.Enabled) != 1 || cfg.Protections.Enabled[0] != "member-ban-synchronisation" {
		t.Errorf("Enabled = %v", cfg.Protections.Enabled)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{
			name: "missing homeserver url",
			content: `
homeserver:
  server_name: example.com
auth:
  username: warden
  password: hunter2
`,
		},
		{
			name: "missing server name",
			content: `
homeserver:
  url: https://matrix.example.com
auth:
  username: warden
  password: hunter2
`,
		},
		{
			name: "no credentials",
			content: `
homeserver:
  url: https://matrix.example.com
  server_name: example.com
`,
		},
		{
			name: "token without user id",
			content: `
homeserver:
  url: https://matrix.example.com
  server_name: example.com
auth:
  access_token: syt_secret
`,
		},
		{
			name: "both credential forms",
			content: `
homeserver:
  url: https://matrix.example.com
  server_name: example.com
auth:
  user_id: "@warden:example.com"
  access_token: syt_secret
  username: warden
  password: hunter2
`,
		},
		{
			name: "unknown field",
			content: `
homeserver:
  url: https://matrix.example.com
  server_name: example.com
  homserver_typo: oops
auth:
  username: warden
  password: hunter2
`,
		},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			if _, err := LoadConfig(writeConfig(t, test.content)); err == nil {
				t.Error("LoadConfig did not fail")
			}
		})
	}
}

func TestResolveConfigPath(t *testing.T) {
	if path, err := ResolveConfigPath("/etc/warden.yaml"); err != nil || path != "/etc/warden.yaml" {
		t.Errorf("flag value: path=%q err=%v", path, err)
	}

	t.Setenv("WARDEN_CONFIG", "/env/warden.yaml")
	if path, err := ResolveConfigPath(""); err != nil || path != "/env/warden.yaml" {
		t.Errorf("env value: path=%q err=%v", path, err)
	}
	if path, err := ResolveConfigPath("/etc/warden.yaml"); err != nil || path != "/etc/warden.yaml" {
		t.Errorf("flag beats env: path=%q err=%v", path, err)
	}

	t.Setenv("WARDEN_CONFIG", "")
	if _, err := ResolveConfigPath(""); err == nil {
		t.Error("no source did not fail")
	}
}
