package reminder

import (
	"fmt"
	"math"
)

// TimeTrigger fires when the clock reaches TargetTick.
//
// A relative trigger keeps the originally requested offset (Magnitude in
// Unit) and derives TargetTick from it; zero is the "not yet computed"
// sentinel. An absolute trigger with TargetTick <= 0 is unscheduled and
// never fires; BuildReminder refuses to create one, so it only shows up in
// damaged saves.
type TimeTrigger struct {
	TargetTick int64
	Relative   bool
	Magnitude  int64
	Unit       TimeUnit

	Fired bool
	// LastFiredTarget is the target of the most recent firing; an absolute
	// trigger never fires twice for the same target.
	LastFiredTarget int64
}

func NewAbsoluteTrigger(target int64) *TimeTrigger {
	return &TimeTrigger{TargetTick: target}
}

func NewRelativeTrigger(magnitude int64, unit TimeUnit) *TimeTrigger {
	return &TimeTrigger{Relative: true, Magnitude: magnitude, Unit: unit}
}

func (t *TimeTrigger) isTrigger() {}

func (t *TimeTrigger) Kind() TriggerKind { return KindTime }

// Offset is the relative span in ticks. Negative magnitudes count as zero
// and spans too large for int64 saturate.
func (t *TimeTrigger) Offset() int64 {
	if t.Magnitude <= 0 {
		return 0
	}
	per := t.Unit.Ticks()
	if t.Magnitude > math.MaxInt64/per {
		return math.MaxInt64 / per * per
	}
	return t.Magnitude * per
}

// after returns now+d, saturating at math.MaxInt64.
func after(now, d int64) int64 {
	if d > math.MaxInt64-now {
		return math.MaxInt64
	}
	return now + d
}

func (t *TimeTrigger) Evaluate(env Env) bool {
	if t.Fired {
		return false
	}
	now := env.Now()
	if t.Relative && t.TargetTick == 0 {
		t.TargetTick = after(now, t.Offset())
	}
	if !t.Relative {
		if t.TargetTick <= 0 {
			return false
		}
		if t.LastFiredTarget != 0 && t.TargetTick == t.LastFiredTarget {
			return false
		}
	}
	if now < t.TargetTick {
		return false
	}
	t.Fired = true
	t.LastFiredTarget = t.TargetTick
	return true
}

func (t *TimeTrigger) Reset(now int64) {
	t.Fired = false
	if t.Relative {
		t.TargetTick = after(now, t.Offset())
	}
}

func (t *TimeTrigger) Refresh(env Env) {
	if t.Relative && t.TargetTick == 0 && !t.Fired {
		t.TargetTick = after(env.Now(), t.Offset())
	}
}

func (t *TimeTrigger) Triggered() bool { return t.Fired }

func (t *TimeTrigger) Retired() bool { return false }

func (t *TimeTrigger) Describe(env Env) string {
	if !t.Relative && t.TargetTick <= 0 {
		return "unscheduled"
	}
	if t.Fired {
		return fmt.Sprintf("fired at tick %d", t.LastFiredTarget)
	}
	prefix := fmt.Sprintf("at tick %d", t.TargetTick)
	if !t.Relative && t.TargetTick == t.LastFiredTarget {
		return prefix + " (fired, waiting for a new target)"
	}
	if t.Relative {
		prefix = fmt.Sprintf("%d %s(s) after arming, at tick %d", t.Magnitude, t.Unit, t.TargetTick)
		if t.TargetTick == 0 {
			return fmt.Sprintf("%d %s(s) after arming", t.Magnitude, t.Unit)
		}
	}
	left := t.TargetTick - env.Now()
	if left <= 0 {
		return prefix + " (due)"
	}
	return fmt.Sprintf("%s (in %s)", prefix, FormatTicks(left))
}

func (t *TimeTrigger) Clone() Trigger {
	cp := *t
	return &cp
}
