// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Warden's standard CBOR encoding configuration
// and content digests over it.
//
// Warden uses two serialization formats with a clear boundary:
//
//   - JSON for external interfaces: the Matrix Client-Server API and
//     homeserver account data.
//   - CBOR for internal storage: values in the SQLite account-data
//     store and digest inputs for event content comparison.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items.
// Same logical data always produces identical bytes. That property is
// what makes [ContentDigest] usable for structural comparison: two
// Matrix event contents are structurally equal exactly when their
// digests are equal, regardless of JSON key order or whitespace in the
// wire form the homeserver happened to send.
package codec
