// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package messaging is the Matrix client-server API subset the
// moderation engine consumes: authentication, room membership
// actions, state reads and writes, account data, and /sync
// long-polling. The engine itself never touches HTTP; everything it
// needs from a homeserver flows through a DirectSession.
package messaging
