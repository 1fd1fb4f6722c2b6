// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package client tracks which managed Matrix users are in which
// rooms. Join actions are asynchronous: the confirming m.room.member
// event arrives on the sync stream seconds after the join request is
// issued, and in that window a second decision maker could conclude
// the client is absent. ClientRooms closes the race by recording a
// preemptive join immediately; the room counts as occupied until the
// confirming event promotes it to a real join or the join is
// observed to have failed. ClientsInRoomMap aggregates every managed
// user's ClientRooms into a per-room index used to route timeline
// events.
package client
