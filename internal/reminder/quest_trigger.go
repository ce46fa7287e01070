package reminder

import (
	"fmt"

	logx "questminder/pkg/logx"
)

// QuestDeadlineTrigger fires LeadTicks before the referenced quest expires.
//
// QuestID is a lookup key only; the quest is resolved again on every
// evaluation. ComputedTargetTick is derived and recomputed when it is zero
// or when the quest's expiry changed since it was computed.
type QuestDeadlineTrigger struct {
	QuestID   int
	LeadTicks int64

	ComputedTargetTick int64
	ComputedForExpiry  int64

	Fired bool
	// Gone is set when the quest vanished or left the awaiting state.
	Gone bool
	// LastFiredExpiry keeps a re-armed trigger from firing twice for the
	// same deadline.
	LastFiredExpiry int64
}

func NewQuestDeadlineTrigger(questID int, leadTicks int64) *QuestDeadlineTrigger {
	if leadTicks < 0 {
		leadTicks = 0
	}
	return &QuestDeadlineTrigger{QuestID: questID, LeadTicks: leadTicks}
}

func (t *QuestDeadlineTrigger) isTrigger() {}

func (t *QuestDeadlineTrigger) Kind() TriggerKind { return KindQuestDeadline }

func (t *QuestDeadlineTrigger) Evaluate(env Env) bool {
	if t.Fired || t.Gone {
		return false
	}
	q, ok := env.findQuest(t.QuestID)
	if !ok {
		t.retire(env, "quest not found")
		return false
	}
	if q.State != QuestAwaitingDecision {
		t.retire(env, "quest "+q.State.String())
		return false
	}
	if t.LastFiredExpiry != 0 && q.ExpiryTick == t.LastFiredExpiry {
		return false
	}

	now := env.Now()
	if t.ComputedTargetTick == 0 || t.ComputedForExpiry != q.ExpiryTick {
		t.compute(q, now)
	}
	if now < t.ComputedTargetTick {
		return false
	}
	t.Fired = true
	t.LastFiredExpiry = q.ExpiryTick
	return true
}

func (t *QuestDeadlineTrigger) compute(q Quest, now int64) {
	target := q.ExpiryTick - t.LeadTicks
	if floor := now + QuestLeadFloorTicks; target < floor {
		target = floor
	}
	t.ComputedTargetTick = target
	t.ComputedForExpiry = q.ExpiryTick
}

func (t *QuestDeadlineTrigger) retire(env Env, reason string) {
	t.Fired = true
	t.Gone = true
	env.Log.Debug("quest trigger retired",
		logx.Int("quest_id", t.QuestID),
		logx.String("reason", reason),
	)
}

func (t *QuestDeadlineTrigger) Reset(now int64) {
	_ = now
	if t.Gone {
		return
	}
	t.Fired = false
	t.ComputedTargetTick = 0
	t.ComputedForExpiry = 0
}

// Refresh computes the target if a pending quest resolves. It never retires:
// on load the host's quest list may not be populated yet.
func (t *QuestDeadlineTrigger) Refresh(env Env) {
	if t.Fired || t.Gone || t.ComputedTargetTick != 0 {
		return
	}
	q, ok := env.findQuest(t.QuestID)
	if !ok || q.State != QuestAwaitingDecision || q.ExpiryTick == t.LastFiredExpiry {
		return
	}
	t.compute(q, env.Now())
}

func (t *QuestDeadlineTrigger) Triggered() bool { return t.Fired }

func (t *QuestDeadlineTrigger) Retired() bool { return t.Gone }

func (t *QuestDeadlineTrigger) Describe(env Env) string {
	base := fmt.Sprintf("%s before quest #%d expires", FormatTicks(t.LeadTicks), t.QuestID)
	if q, ok := env.findQuest(t.QuestID); ok && q.Label != "" {
		base = fmt.Sprintf("%s before %q expires", FormatTicks(t.LeadTicks), q.Label)
	}
	switch {
	case t.Gone:
		return base + " (quest no longer pending)"
	case t.Fired:
		return base + " (fired)"
	case t.ComputedTargetTick == 0:
		return base
	}
	left := t.ComputedTargetTick - env.Now()
	if left <= 0 {
		return fmt.Sprintf("%s, at tick %d (due)", base, t.ComputedTargetTick)
	}
	return fmt.Sprintf("%s, at tick %d (in %s)", base, t.ComputedTargetTick, FormatTicks(left))
}

func (t *QuestDeadlineTrigger) Clone() Trigger {
	cp := *t
	return &cp
}
