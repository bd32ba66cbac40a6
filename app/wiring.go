package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"todo-share/app/config"
	"todo-share/app/logger"
	"todo-share/app/services"
	"todo-share/app/sharing"
	"todo-share/app/slot"
)

// application bundles the wired components shared by every command.
type application struct {
	cfg    *config.Config
	logger *slog.Logger
	slot   slot.Slot
	store  *services.TaskStore
	codec  *sharing.Codec
}

func openApplication(ctx context.Context, cfg *config.Config, logOut io.Writer) (*application, error) {
	log := logger.InitWriter(logOut, cfg.LogLevel, cfg.LogJSON)

	sl, err := openSlot(ctx, cfg)
	if err != nil {
		return nil, err
	}
	log.Debug("Slot opened", "backend", cfg.Slot, "key", cfg.StorageKey)

	store := services.NewTaskStore(sl,
		services.WithKey(cfg.StorageKey),
		services.WithLogger(log),
		services.WithWriteTimeout(cfg.WriteTimeout),
	)
	if err := store.Load(ctx); err != nil {
		_ = store.Close(ctx)
		_ = sl.Close(ctx)
		return nil, err
	}

	return &application{
		cfg:    cfg,
		logger: log,
		slot:   sl,
		store:  store,
		codec:  sharing.NewCodec(log),
	}, nil
}

// Close flushes the store and releases the slot.
func (a *application) Close(ctx context.Context) error {
	storeErr := a.store.Close(ctx)
	if err := a.slot.Close(ctx); err != nil {
		return fmt.Errorf("close slot: %w", err)
	}
	return storeErr
}

func openSlot(ctx context.Context, cfg *config.Config) (slot.Slot, error) {
	switch cfg.Slot {
	case config.SlotMemory:
		return slot.NewMemory(), nil
	case config.SlotFile:
		return slot.NewFile(cfg.DataDir)
	case config.SlotNeo4j:
		driver, err := config.InitNeo4j(ctx, cfg.Neo4j)
		if err != nil {
			return nil, err
		}
		s := slot.NewNeo4j(driver, cfg.Neo4j.Database)
		if err := s.EnsureSchema(ctx); err != nil {
			_ = s.Close(ctx)
			return nil, err
		}
		return s, nil
	case config.SlotRedis:
		client, err := config.InitRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return slot.NewRedis(client, cfg.Redis.Prefix), nil
	case config.SlotSQLite:
		db, err := config.InitSQLite(cfg.SQLite)
		if err != nil {
			return nil, err
		}
		return slot.NewSQL(db)
	}
	return nil, fmt.Errorf("unknown slot backend %q", cfg.Slot)
}
