package reminder

import (
	"fmt"
	"strings"
)

type TriggerKind string

const (
	KindTime          TriggerKind = "time"
	KindQuestDeadline TriggerKind = "quest-deadline"
)

// Trigger is a fireable condition owned by exactly one Reminder.
//
// The implementor set is closed: *TimeTrigger and *QuestDeadlineTrigger.
// Callers that need per-kind behavior should type switch over those two.
type Trigger interface {
	Kind() TriggerKind
	// Evaluate reports true at most once per Reset. It never panics on a
	// missing collaborator and may update derived fields.
	Evaluate(env Env) bool
	// Reset re-arms the trigger at tick now.
	Reset(now int64)
	// Refresh recomputes derived targets that are still at their zero
	// sentinel, without changing whether the trigger has fired.
	Refresh(env Env)
	Triggered() bool
	// Retired reports that the trigger stopped itself without firing.
	Retired() bool
	Describe(env Env) string
	Clone() Trigger

	isTrigger()
}

// QuestLeadFloorTicks is the minimum distance between "now" and a freshly
// computed quest deadline target. A quest observed with less than its lead
// time left fires on the next cycle, whatever the cycle length, rather than
// inside the cycle that first computed the target.
const QuestLeadFloorTicks int64 = 1

type TimeUnit int

const (
	UnitTick TimeUnit = iota
	UnitHour
	UnitDay
)

const (
	TicksPerHour int64 = 2500
	TicksPerDay        = 24 * TicksPerHour
)

func (u TimeUnit) Ticks() int64 {
	switch u {
	case UnitHour:
		return TicksPerHour
	case UnitDay:
		return TicksPerDay
	default:
		return 1
	}
}

func (u TimeUnit) String() string {
	switch u {
	case UnitHour:
		return "hour"
	case UnitDay:
		return "day"
	default:
		return "tick"
	}
}

func ParseTimeUnit(raw string) (TimeUnit, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "tick", "ticks":
		return UnitTick, nil
	case "hour", "hours", "h":
		return UnitHour, nil
	case "day", "days", "d":
		return UnitDay, nil
	default:
		return UnitTick, fmt.Errorf("unknown time unit %q", raw)
	}
}

// FormatTicks renders a tick span as days/hours, falling back to raw ticks
// for spans shorter than an hour.
func FormatTicks(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	var s string
	switch {
	case n >= TicksPerDay:
		d := n / TicksPerDay
		h := (n % TicksPerDay) / TicksPerHour
		if h > 0 {
			s = fmt.Sprintf("%dd %dh", d, h)
		} else {
			s = fmt.Sprintf("%dd", d)
		}
	case n >= TicksPerHour:
		s = fmt.Sprintf("%dh", n/TicksPerHour)
	default:
		s = fmt.Sprintf("%d ticks", n)
	}
	if neg {
		return "-" + s
	}
	return s
}
