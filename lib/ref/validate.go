// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"fmt"
	"strings"
)

// parsePrefixedID splits a sigil-prefixed Matrix identifier
// ("@localpart:server" or "#localpart:server") into its localpart and
// server name. The label names the identifier kind in error messages.
func parsePrefixedID(id string, sigil byte, label string) (localpart, server string, err error) {
	if id == "" {
		return "", "", fmt.Errorf("empty %s", label)
	}
	if id[0] != sigil {
		return "", "", fmt.Errorf("%s must start with %q: %q", label, string(sigil), id)
	}

	colonIndex := strings.IndexByte(id[1:], ':')
	if colonIndex < 0 {
		return "", "", fmt.Errorf("%s missing ':server' suffix: %q", label, id)
	}
	if colonIndex == 0 {
		return "", "", fmt.Errorf("%s has empty localpart: %q", label, id)
	}

	localpart = id[1 : 1+colonIndex]
	server = id[1+colonIndex+1:]
	if err := validateServer(server); err != nil {
		return "", "", fmt.Errorf("%s %q: %w", label, id, err)
	}
	return localpart, server, nil
}

// parseMatrixID parses a Matrix user ID ("@localpart:server").
func parseMatrixID(matrixID string) (localpart, server string, err error) {
	return parsePrefixedID(matrixID, '@', "Matrix user ID")
}

// validateServer checks that a Matrix server name is minimally valid:
// non-empty, no control characters or spaces, no Matrix sigils. Full
// grammar validation (DNS names, IP literals, ports) is left to the
// homeserver — moderation code must accept any server name that appears
// in federated events.
func validateServer(server string) error {
	if server == "" {
		return fmt.Errorf("server name is empty")
	}
	for i := 0; i < len(server); i++ {
		c := server[i]
		if c <= ' ' || c == '@' || c == '#' || c == '!' || c == '$' {
			return fmt.Errorf("server name %q: invalid character at position %d", server, i)
		}
	}
	return nil
}
