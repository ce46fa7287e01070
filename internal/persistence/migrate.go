package persistence

import (
	"strconv"

	"questminder/internal/reminder"
)

// legacyKinds maps version 1 type names onto current tags.
var legacyKinds = map[string]string{
	"TimeTrigger":          string(reminder.KindTime),
	"QuestDeadlineTrigger": string(reminder.KindQuestDeadline),
	"NotificationAction":   string(reminder.KindNotification),
}

// Migrate upgrades s in place to CurrentSchemaVersion and reports whether
// anything changed. A missing or zero version is read as version 1. Newer
// versions are left alone and decoded best-effort.
func Migrate(s *Snapshot) bool {
	v := s.SchemaVersion
	if v <= 0 {
		v = 1
	}
	if v >= CurrentSchemaVersion {
		return false
	}
	for i := range s.Reminders {
		rec := &s.Reminders[i]
		if v < 2 {
			migrateV1(rec)
		}
		if v < 3 {
			migrateV2(rec)
		}
	}
	s.SchemaVersion = CurrentSchemaVersion
	return true
}

func migrateV1(rec *Record) {
	rec.Severity = upgradeSeverity(rec.Severity)

	if rec.Trigger != nil {
		tg := rec.Trigger
		if tg.Fields == nil {
			tg.Fields = FieldTable{}
		}
		if tg.Kind == "" {
			if name, ok := tg.Fields["type"].(string); ok {
				tg.Kind = name
			}
		}
		delete(tg.Fields, "type")
		if k, ok := legacyKinds[tg.Kind]; ok {
			tg.Kind = k
		}
		if tg.Kind == string(reminder.KindTime) {
			tg.Fields.rename("isRelative", "relative")
			tg.Fields.rename("offsetTicks", "magnitude")
			if !tg.Fields.Has("unit") {
				tg.Fields["unit"] = reminder.UnitTick.String()
			}
		}
	}

	for i := range rec.Actions {
		a := &rec.Actions[i]
		if a.Kind == "" {
			if name, ok := a.Fields["type"].(string); ok {
				a.Kind = name
			}
		}
		delete(a.Fields, "type")
		if k, ok := legacyKinds[a.Kind]; ok {
			a.Kind = k
		}
	}
	if rec.Actions == nil {
		pause := rec.PauseOnFire != nil && *rec.PauseOnFire
		rec.Actions = []Tagged{{
			Kind:   string(reminder.KindNotification),
			Fields: FieldTable{"pauseOnFire": pause},
		}}
	}
	rec.PauseOnFire = nil
}

// migrateV2 derives the trigger state version 3 persists. A completed
// one-shot reminder must not fire again after load.
func migrateV2(rec *Record) {
	if rec.Trigger == nil || rec.Active || rec.Repeating {
		return
	}
	tg := rec.Trigger
	if tg.Fields == nil {
		tg.Fields = FieldTable{}
	}
	if !tg.Fields.Has("fired") {
		tg.Fields["fired"] = true
	}
	if tg.Kind == string(reminder.KindTime) && !tg.Fields.Has("lastFiredTarget") {
		if target, err := tg.Fields.Int64("targetTick", 0); err == nil {
			tg.Fields["lastFiredTarget"] = target
		}
	}
}

// upgradeSeverity turns the numeric levels of version 1 into names.
func upgradeSeverity(s SeverityText) SeverityText {
	n, err := strconv.Atoi(string(s))
	if err != nil {
		return s
	}
	sev := reminder.Severity(n)
	if !sev.Valid() {
		return SeverityText(reminder.SeverityLow.String())
	}
	return SeverityText(sev.String())
}
