package storage

import (
	"context"
	"errors"
	"strings"

	logx "questminder/pkg/logx"
)

// Store is the persistence API used by the engine.
type Store interface {
	SaveSnapshot(ctx context.Context, slot string, data []byte) error
	// LoadSnapshot returns ErrNotFound when the slot was never saved.
	LoadSnapshot(ctx context.Context, slot string) ([]byte, error)
	AppendFire(ctx context.Context, e FireEntry) error
	// RecentFires returns up to n entries, oldest first.
	RecentFires(ctx context.Context, n int) ([]FireEntry, error)
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}

func cleanSlot(slot string) (string, error) {
	slot = strings.TrimSpace(slot)
	if slot == "" {
		return "", errors.New("empty snapshot slot")
	}
	if strings.ContainsAny(slot, `/\`) || strings.Contains(slot, "..") {
		return "", errors.New("invalid snapshot slot: " + slot)
	}
	return slot, nil
}
