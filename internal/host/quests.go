package host

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"questminder/internal/reminder"
	logx "questminder/pkg/logx"
)

var (
	ErrQuestExists   = errors.New("quest already exists")
	ErrQuestNotFound = errors.New("quest not found")
	ErrQuestDecided  = errors.New("quest already decided")
)

// QuestBoard holds the quests offered to the player. It implements
// reminder.QuestResolver and is safe for concurrent use.
type QuestBoard struct {
	mu     sync.RWMutex
	quests map[int]reminder.Quest
	log    logx.Logger
}

func NewQuestBoard(log logx.Logger) *QuestBoard {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &QuestBoard{quests: map[int]reminder.Quest{}, log: log}
}

// Offer posts a new quest awaiting a decision.
func (b *QuestBoard) Offer(id int, label string, expiry int64) error {
	if id <= 0 {
		return errors.New("quest id must be positive")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.quests[id]; ok {
		return ErrQuestExists
	}
	b.quests[id] = reminder.Quest{
		ID:         id,
		Label:      strings.TrimSpace(label),
		ExpiryTick: expiry,
		State:      reminder.QuestAwaitingDecision,
	}
	b.log.Debug("quest offered", logx.Int("quest_id", id), logx.Int64("expiry", expiry))
	return nil
}

// Decide accepts or rejects an awaiting quest.
func (b *QuestBoard) Decide(id int, accept bool) error {
	state := reminder.QuestRejected
	if accept {
		state = reminder.QuestAccepted
	}
	return b.update(id, func(q *reminder.Quest) error {
		if q.State != reminder.QuestAwaitingDecision {
			return ErrQuestDecided
		}
		q.State = state
		return nil
	})
}

// Extend moves an awaiting quest's expiry.
func (b *QuestBoard) Extend(id int, expiry int64) error {
	return b.update(id, func(q *reminder.Quest) error {
		if q.State != reminder.QuestAwaitingDecision {
			return ErrQuestDecided
		}
		q.ExpiryTick = expiry
		return nil
	})
}

func (b *QuestBoard) update(id int, fn func(q *reminder.Quest) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.quests[id]
	if !ok {
		return ErrQuestNotFound
	}
	if err := fn(&q); err != nil {
		return err
	}
	b.quests[id] = q
	return nil
}

func (b *QuestBoard) Remove(id int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.quests[id]; !ok {
		return false
	}
	delete(b.quests, id)
	return true
}

func (b *QuestBoard) FindQuest(id int) (reminder.Quest, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	q, ok := b.quests[id]
	return q, ok
}

// Sweep expires awaiting quests whose expiry is at or before now and
// returns their ids in ascending order.
func (b *QuestBoard) Sweep(now int64) []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	var expired []int
	for id, q := range b.quests {
		if q.State == reminder.QuestAwaitingDecision && q.ExpiryTick <= now {
			q.State = reminder.QuestExpired
			b.quests[id] = q
			expired = append(expired, id)
		}
	}
	sort.Ints(expired)
	for _, id := range expired {
		b.log.Info("quest expired", logx.Int("quest_id", id), logx.Int64("tick", now))
	}
	return expired
}

// List returns every quest ordered by id.
func (b *QuestBoard) List() []reminder.Quest {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]reminder.Quest, 0, len(b.quests))
	for _, q := range b.quests {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
