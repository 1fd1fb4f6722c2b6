// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"encoding/json"
	"fmt"

	"github.com/zeebo/blake3"
)

// Digest is a BLAKE3 hash of a value's deterministic CBOR encoding.
// Equal digests mean structurally equal values.
type Digest [32]byte

// String returns a short hex prefix for logging.
func (d Digest) String() string {
	return fmt.Sprintf("%x", d[:8])
}

// ContentDigest hashes a value's deterministic CBOR encoding. Because
// the encoding is canonical (sorted map keys, smallest-width
// integers), the digest is a structural fingerprint: insertion order
// of map entries and numeric representation quirks do not affect it.
func ContentDigest(v any) (Digest, error) {
	encoded, err := Marshal(v)
	if err != nil {
		return Digest{}, fmt.Errorf("codec: encoding for digest: %w", err)
	}
	return blake3.Sum256(encoded), nil
}

// JSONDigest hashes the structural content of a raw JSON document.
// The document is decoded to generic Go values and re-encoded with
// deterministic CBOR before hashing, so two JSON documents that differ
// only in key order or whitespace produce the same digest.
//
// A nil or empty document digests as JSON null.
func JSONDigest(raw json.RawMessage) (Digest, error) {
	var value any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &value); err != nil {
			return Digest{}, fmt.Errorf("codec: decoding JSON for digest: %w", err)
		}
	}
	return ContentDigest(value)
}
