package notifier

import (
	"context"
	"time"

	"questminder/internal/reminder"
)

// Config controls the async notification pipeline.
type Config struct {
	Enabled       bool
	Workers       int
	QueueSize     int
	RatePerSec    int
	RetryMax      int
	RetryBase     time.Duration
	RetryMaxDelay time.Duration
	DedupWindow   time.Duration
	HistorySize   int
}

// Deliverer shows a notification to the player.
type Deliverer interface {
	Deliver(ctx context.Context, n reminder.Notification) error
}

// DelivererFunc adapts a function to Deliverer.
type DelivererFunc func(ctx context.Context, n reminder.Notification) error

func (f DelivererFunc) Deliver(ctx context.Context, n reminder.Notification) error { return f(ctx, n) }

// Pauser receives pause requests. The host clock implements it.
type Pauser interface {
	RequestPause()
}

type HistoryItem struct {
	At      time.Time
	Title   string
	Text    string
	Class   string
	QuestID int
}

// NotificationEvent is the payload of notifier.* bus events.
type NotificationEvent struct {
	Title   string    `json:"title"`
	Class   string    `json:"class"`
	QuestID int       `json:"quest_id,omitempty"`
	Key     string    `json:"key"`
	At      time.Time `json:"at"`
	Error   string    `json:"error,omitempty"`
}

// Event types published on the bus.
const (
	EventQueued  = "notifier.queued"
	EventDeduped = "notifier.deduped"
	EventDropped = "notifier.dropped"
	EventSent    = "notifier.sent"
	EventFailed  = "notifier.failed"
	EventPause   = "notifier.pause"
)
