package storage

import (
	"errors"
	"time"
)

var (
	ErrDisabled = errors.New("storage disabled")
	ErrNotFound = errors.New("snapshot not found")
)

// Config configures storage.
//
// Driver values:
//   - "file": snapshot files next to a JSON Lines journal
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
	// KeepFires bounds the journal; 0 keeps everything.
	KeepFires int
}

// FireEntry is one journaled reminder event.
type FireEntry struct {
	At           time.Time `json:"at"`
	Session      string    `json:"session,omitempty"`
	Event        string    `json:"event"`
	Tick         int64     `json:"tick"`
	ReminderID   int       `json:"reminder_id"`
	Title        string    `json:"title,omitempty"`
	Severity     string    `json:"severity,omitempty"`
	ActionErrors int       `json:"action_errors,omitempty"`
}
