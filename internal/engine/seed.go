package engine

import (
	"errors"
	"fmt"
	"strings"

	"questminder/internal/host"
	"questminder/internal/reminder"
	logx "questminder/pkg/logx"
)

// BuildReminder turns a definition into an unsaved reminder. A definition
// without Notify still gets one notification action using the reminder's
// own title and description.
func BuildReminder(def ReminderDef) (*reminder.Reminder, error) {
	if strings.TrimSpace(def.Title) == "" {
		return nil, errors.New("reminder title is required")
	}
	sev := reminder.SeverityLow
	if def.Severity != "" {
		s, err := reminder.ParseSeverity(def.Severity)
		if err != nil {
			return nil, err
		}
		sev = s
	}
	r := reminder.New(def.Title, def.Description, sev)
	r.Repeating = def.Repeating

	switch strings.ToLower(strings.TrimSpace(def.TriggerKind)) {
	case string(reminder.KindTime):
		if def.In > 0 {
			unit, err := reminder.ParseTimeUnit(def.Unit)
			if err != nil {
				return nil, err
			}
			r.Trigger = reminder.NewRelativeTrigger(def.In, unit)
		} else {
			if def.At <= 0 {
				return nil, fmt.Errorf("reminder %q: time trigger needs at > 0 or in > 0", def.Title)
			}
			r.Trigger = reminder.NewAbsoluteTrigger(def.At)
		}
	case string(reminder.KindQuestDeadline):
		if def.QuestID <= 0 {
			return nil, fmt.Errorf("reminder %q: quest-deadline trigger needs a quest id", def.Title)
		}
		r.Trigger = reminder.NewQuestDeadlineTrigger(def.QuestID, def.Lead)
	case "":
	default:
		return nil, fmt.Errorf("reminder %q: unknown trigger kind %q", def.Title, def.TriggerKind)
	}

	act := reminder.NewNotificationAction()
	if n := def.Notify; n != nil {
		class, err := reminder.ParseNotificationClass(n.Class)
		if err != nil {
			return nil, err
		}
		act.Title, act.Text, act.Class, act.PauseOnFire = n.Title, n.Text, class, n.PauseOnFire
	}
	r.Actions = []reminder.Action{act}
	return r, nil
}

// SeedQuests offers every quest not already on the board. Expiries count
// from epoch, not from the current tick, so a quest seeded again after a
// restore keeps its deadline. One whose deadline already passed is expired
// by the next Step.
func (s *Service) SeedQuests(defs []QuestDef, epoch int64) int {
	n := 0
	for _, d := range defs {
		err := s.quests.Offer(d.ID, d.Label, epoch+d.ExpiresIn)
		switch {
		case err == nil:
			n++
		case errors.Is(err, host.ErrQuestExists):
		default:
			s.log.Warn("seed quest rejected", logx.Int("quest_id", d.ID), logx.Err(err))
		}
	}
	return n
}

// SeedReminders builds and adds every definition, logging the ones that are
// invalid.
func (s *Service) SeedReminders(defs []ReminderDef) int {
	reg := s.Registry()
	n := 0
	for _, d := range defs {
		r, err := BuildReminder(d)
		if err != nil {
			s.log.Warn("seed reminder rejected", logx.String("title", d.Title), logx.Err(err))
			continue
		}
		if _, ok := reg.Add(r); ok {
			n++
		}
	}
	return n
}
