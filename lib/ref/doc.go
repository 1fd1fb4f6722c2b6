// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package ref provides validated Matrix identifier value types.
//
// Matrix identifiers arrive as raw strings from homeserver responses,
// policy list events, and configuration files. This package parses them
// into immutable value types at the boundary — [UserID], [RoomID],
// [EventID], [ServerName] — so that the revision engine and protections
// never handle an unvalidated identifier.
//
// All types follow the same conventions: a Parse function that
// validates, a MustParse variant for tests and static initialization,
// String and IsZero accessors, and TextMarshaler/TextUnmarshaler
// implementations so the types work directly in JSON event content and
// as map keys in /sync responses.
//
// [EventType] is a named string rather than a struct wrapper: event
// types are opaque identifiers that need no parsing, the type exists
// for compile-time safety only.
package ref
