package reminder

import (
	logx "questminder/pkg/logx"
)

// Clock is the host's simulated time source. CurrentTick never decreases.
type Clock interface {
	CurrentTick() int64
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() int64

func (f ClockFunc) CurrentTick() int64 { return f() }

type QuestState int

const (
	QuestAwaitingDecision QuestState = iota
	QuestAccepted
	QuestRejected
	QuestExpired
)

func (s QuestState) String() string {
	switch s {
	case QuestAwaitingDecision:
		return "awaiting"
	case QuestAccepted:
		return "accepted"
	case QuestRejected:
		return "rejected"
	case QuestExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Quest is a read-only copy of a host quest at lookup time.
type Quest struct {
	ID         int
	Label      string
	ExpiryTick int64
	State      QuestState
}

// QuestResolver looks quests up by id. The host owns the quests; callers
// must not keep the returned value past the current evaluation.
type QuestResolver interface {
	FindQuest(id int) (Quest, bool)
}

// QuestRef is the deep link a notification may carry.
type QuestRef struct {
	ID    int
	Label string
}

// Notification is what a NotificationAction hands to the sink.
type Notification struct {
	Title string
	Text  string
	Class NotificationClass
	Quest *QuestRef
}

// NotificationSink delivers notifications on the host side.
type NotificationSink interface {
	Send(n Notification) error
	RequestPause()
}

// Env bundles the host collaborators a trigger or action may consult.
// Nil members are tolerated: no clock reads as tick 0, no resolver finds
// nothing and no sink drops notifications.
type Env struct {
	Clock  Clock
	Quests QuestResolver
	Sink   NotificationSink
	Log    logx.Logger
}

func (e Env) Now() int64 {
	if e.Clock == nil {
		return 0
	}
	return e.Clock.CurrentTick()
}

func (e Env) findQuest(id int) (Quest, bool) {
	if e.Quests == nil {
		return Quest{}, false
	}
	return e.Quests.FindQuest(id)
}

// at returns a copy of e whose clock is frozen at tick.
func (e Env) at(tick int64) Env {
	e.Clock = ClockFunc(func() int64 { return tick })
	return e
}
