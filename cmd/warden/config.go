// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the warden configuration file. It is loaded from a single
// explicit path (--config flag or WARDEN_CONFIG environment variable)
// with no fallbacks or discovery, so a running bot's configuration is
// always auditable.
type Config struct {
	Homeserver  HomeserverConfig  `yaml:"homeserver"`
	Auth        AuthConfig        `yaml:"auth"`
	Storage     StorageConfig     `yaml:"storage"`
	Protections ProtectionsConfig `yaml:"protections"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// HomeserverConfig locates the Matrix homeserver.
type HomeserverConfig struct {
	// URL is the base URL of the homeserver.
	URL string `yaml:"url"`

	// ServerName is the homeserver's Matrix server name. Server ACL
	// compilation must never deny it.
	ServerName string `yaml:"server_name"`
}

// AuthConfig holds the bot account credentials: either an existing
// access token with its user ID, or a username and password to log in
// with.
type AuthConfig struct {
	UserID      string `yaml:"user_id,omitempty"`
	AccessToken string `yaml:"access_token,omitempty"`
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
}

// StorageConfig selects where protected-room and watched-list
// membership persists.
type StorageConfig struct {
	// Database is the path to a SQLite database. Empty means the
	// sets persist as account data on the homeserver instead.
	Database string `yaml:"database,omitempty"`
}

// ProtectionsConfig selects the enabled protections.
type ProtectionsConfig struct {
	// Enabled lists protection names. Empty enables every registered
	// protection.
	Enabled []string `yaml:"enabled,omitempty"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is debug, info, warn, or error. Empty means info.
	Level string `yaml:"level,omitempty"`
}

// ResolveConfigPath returns the config file path from the flag value
// or the WARDEN_CONFIG environment variable, in that order.
func ResolveConfigPath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if env := os.Getenv("WARDEN_CONFIG"); env != "" {
		return env, nil
	}
	return "", fmt.Errorf("no config file specified: use --config or set WARDEN_CONFIG")
}

// LoadConfig reads and validates the configuration file. Unknown
// fields are rejected, so typos fail loudly instead of silently
// disabling behavior.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	var config Config
	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &config, nil
}

// Validate checks required fields and credential consistency.
func (c *Config) Validate() error {
	if c.Homeserver.URL == "" {
		return fmt.Errorf("homeserver.url is required")
	}
	if c.Homeserver.ServerName == "" {
		return fmt.Errorf("homeserver.server_name is required")
	}

	hasToken := c.Auth.AccessToken != ""
	hasPassword := c.Auth.Username != "" && c.Auth.Password != ""
	switch {
	case hasToken && hasPassword:
		return fmt.Errorf("auth: provide either access_token or username/password, not both")
	case hasToken && c.Auth.UserID == "":
		return fmt.Errorf("auth: user_id is required with access_token")
	case !hasToken && !hasPassword:
		return fmt.Errorf("auth: access_token or username/password is required")
	}
	return nil
}
