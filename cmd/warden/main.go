// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Warden is a Matrix moderation bot. It watches policy rooms for
// moderation rules, keeps an immutable revision history of the rooms
// it protects, and applies the configured protections whenever room
// state or policy changes.
//
// On startup:
//  1. Loads the config file (--config or WARDEN_CONFIG).
//  2. Authenticates with the homeserver and validates the session.
//  3. Loads the persisted protected-room and watched-list sets.
//  4. Takes a sync checkpoint, then fetches full state for every
//     protected and watched room.
//  5. Long-polls /sync, feeding revisions to the protections.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/warden-foundation/warden/accountdata"
	"github.com/warden-foundation/warden/client"
	"github.com/warden-foundation/warden/lib/ref"
	"github.com/warden-foundation/warden/lib/sqlitepool"
	"github.com/warden-foundation/warden/lib/version"
	"github.com/warden-foundation/warden/messaging"
	"github.com/warden-foundation/warden/protection"
	"github.com/warden-foundation/warden/schema"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "warden: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := pflag.NewFlagSet("warden", pflag.ContinueOnError)
	configPath := flags.String("config", "", "path to the config file (or set WARDEN_CONFIG)")
	showVersion := flags.Bool("version", false, "print version information and exit")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if *showVersion {
		fmt.Printf("warden %s\n", version.Info())
		return nil
	}

	path, err := ResolveConfigPath(*configPath)
	if err != nil {
		return err
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.Logging.Level),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ownServer, err := ref.ParseServerName(cfg.Homeserver.ServerName)
	if err != nil {
		return fmt.Errorf("invalid homeserver.server_name: %w", err)
	}

	matrixClient, err := messaging.NewClient(messaging.ClientConfig{
		HomeserverURL: cfg.Homeserver.URL,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	session, err := openSession(ctx, matrixClient, cfg.Auth)
	if err != nil {
		return err
	}
	userID, err := session.WhoAmI(ctx)
	if err != nil {
		return fmt.Errorf("validating matrix session: %w", err)
	}
	logger.Info("authenticated", "user_id", userID, "homeserver", cfg.Homeserver.URL)

	protectedStore, listStore, cleanup, err := openStores(session, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	protectedCfg, err := protection.LoadProtectedRoomsConfig(ctx, protectedStore)
	if err != nil {
		return err
	}
	listCfg, err := protection.LoadPolicyListConfig(ctx, listStore)
	if err != nil {
		return err
	}

	joined, err := session.JoinedRooms(ctx)
	if err != nil {
		return fmt.Errorf("listing joined rooms: %w", err)
	}
	clients := client.NewClientsInRoomMap()
	clients.AddClientRooms(client.NewClientRooms(userID, joined))

	set := protection.NewProtectedRoomsSet(protection.SetConfig{
		Fetcher:      session,
		Consequences: protection.NewSessionConsequences(session),
		OwnServer:    ownServer,
		Clients:      clients,
		Logger:       logger,
	})
	registry := protection.StandardRegistry()
	enabled := cfg.Protections.Enabled
	if len(enabled) == 0 {
		enabled = registry.Names()
	}
	for _, name := range enabled {
		if err := set.EnableProtection(registry, name); err != nil {
			return err
		}
	}
	logger.Info("protections enabled", "protections", enabled)

	// Checkpoint before fetching room state: events arriving between
	// the checkpoint and the state fetch are replayed by the first
	// /sync and reconciled idempotently.
	feed := messaging.NewSyncFeed(session, set, nil, logger)
	if err := feed.Checkpoint(ctx); err != nil {
		return err
	}

	for _, room := range listCfg.References() {
		if err := set.WatchPolicyRoom(ctx, room); err != nil {
			return err
		}
	}
	for _, room := range protectedCfg.Rooms() {
		if err := set.ProtectRoom(ctx, room); err != nil {
			return err
		}
	}

	// Structural changes persisted at runtime flow into the set.
	protectedCfg.OnRoomAdded(func(room ref.RoomID) {
		if err := set.ProtectRoom(ctx, room); err != nil {
			logger.Error("protecting room", "room_id", room, "error", err)
		}
	})
	protectedCfg.OnRoomRemoved(func(room ref.RoomID) { set.UnprotectRoom(room) })
	listCfg.OnListWatched(func(room ref.RoomID) {
		if err := set.WatchPolicyRoom(ctx, room); err != nil {
			logger.Error("watching policy room", "room_id", room, "error", err)
		}
	})
	listCfg.OnListUnwatched(func(room ref.RoomID) { set.UnwatchPolicyRoom(room) })

	logger.Info("warden running",
		"protected_rooms", len(protectedCfg.Rooms()),
		"watched_lists", len(listCfg.References()))

	err = feed.Run(ctx)
	if ctx.Err() != nil {
		logger.Info("shutting down")
		return nil
	}
	return err
}

// openSession authenticates from the validated auth config.
func openSession(ctx context.Context, matrixClient *messaging.Client, auth AuthConfig) (*messaging.DirectSession, error) {
	if auth.AccessToken != "" {
		userID, err := ref.ParseUserID(auth.UserID)
		if err != nil {
			return nil, fmt.Errorf("invalid auth.user_id: %w", err)
		}
		return matrixClient.SessionFromToken(userID, auth.AccessToken), nil
	}
	session, err := matrixClient.Login(ctx, auth.Username, auth.Password)
	if err != nil {
		return nil, fmt.Errorf("logging in as %s: %w", auth.Username, err)
	}
	return session, nil
}

// openStores returns the protected-rooms and watched-lists stores,
// SQLite-backed when a database path is configured, else persisted as
// homeserver account data.
func openStores(session *messaging.DirectSession, storage StorageConfig, logger *slog.Logger) (
	accountdata.Store[schema.ProtectedRoomsAccountData],
	accountdata.Store[schema.WatchedListsAccountData],
	func(),
	error,
) {
	if storage.Database == "" {
		return accountdata.NewMatrixStore[schema.ProtectedRoomsAccountData](session, schema.AccountDataProtectedRooms),
			accountdata.NewMatrixStore[schema.WatchedListsAccountData](session, schema.AccountDataWatchedLists),
			func() {}, nil
	}
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:      storage.Database,
		Logger:    logger,
		OnConnect: accountdata.PrepareSQLite,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening database %s: %w", storage.Database, err)
	}
	cleanup := func() {
		if err := pool.Close(); err != nil {
			logger.Warn("closing database", "error", err)
		}
	}
	return accountdata.NewSQLiteStore[schema.ProtectedRoomsAccountData](pool, schema.AccountDataProtectedRooms),
		accountdata.NewSQLiteStore[schema.WatchedListsAccountData](pool, schema.AccountDataWatchedLists),
		cleanup, nil
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
