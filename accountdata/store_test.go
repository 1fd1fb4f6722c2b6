// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package accountdata

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/warden-foundation/warden/lib/ref"
	"github.com/warden-foundation/warden/lib/sqlitepool"
	"github.com/warden-foundation/warden/messaging"
	"github.com/warden-foundation/warden/schema"
)

type fakeSession struct {
	data map[ref.EventType]json.RawMessage
}

func (s *fakeSession) GetAccountData(ctx context.Context, eventType ref.EventType) (json.RawMessage, error) {
	raw, ok := s.data[eventType]
	if !ok {
		return nil, &messaging.MatrixError{Code: messaging.ErrCodeNotFound, Message: "not found", StatusCode: 404}
	}
	return raw, nil
}

func (s *fakeSession) PutAccountData(ctx context.Context, eventType ref.EventType, content any) error {
	raw, err := json.Marshal(content)
	if err != nil {
		return err
	}
	if s.data == nil {
		s.data = map[ref.EventType]json.RawMessage{}
	}
	s.data[eventType] = raw
	return nil
}

func TestMatrixStoreRoundTrip(t *testing.T) {
	t.Parallel()

	session := &fakeSession{}
	store := NewMatrixStore[schema.ProtectedRoomsAccountData](session, schema.AccountDataProtectedRooms)

	if _, ok, err := store.Load(context.Background()); err != nil || ok {
		t.Fatalf("Load before first save: ok=%v err=%v, want ok=false err=nil", ok, err)
	}

	saved := schema.ProtectedRoomsAccountData{
		Rooms: []ref.RoomID{ref.MustParseRoomID("!a:example.com"), ref.MustParseRoomID("!b:example.com")},
	}
	if err := store.Save(context.Background(), saved); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, ok, err := store.Load(context.Background())
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if len(loaded.Rooms) != 2 || loaded.Rooms[0] != saved.Rooms[0] {
		t.Errorf("loaded = %+v, want %+v", loaded, saved)
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	t.Parallel()

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:      filepath.Join(t.TempDir(), "warden.db"),
		PoolSize:  2,
		OnConnect: PrepareSQLite,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	store := NewSQLiteStore[schema.WatchedListsAccountData](pool, schema.AccountDataWatchedLists)

	if _, ok, err := store.Load(context.Background()); err != nil || ok {
		t.Fatalf("Load before first save: ok=%v err=%v, want ok=false err=nil", ok, err)
	}

	saved := schema.WatchedListsAccountData{
		References: []ref.RoomID{ref.MustParseRoomID("!policy:example.com")},
	}
	if err := store.Save(context.Background(), saved); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, ok, err := store.Load(context.Background())
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if len(loaded.References) != 1 || loaded.References[0] != saved.References[0] {
		t.Errorf("loaded = %+v, want %+v", loaded, saved)
	}

	// Overwrite.
	saved.References = append(saved.References, ref.MustParseRoomID("!second:example.com"))
	if err := store.Save(context.Background(), saved); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	loaded, _, err = store.Load(context.Background())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(loaded.References) != 2 {
		t.Errorf("references after overwrite = %d, want 2", len(loaded.References))
	}
}
