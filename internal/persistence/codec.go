package persistence

import (
	"fmt"

	"questminder/internal/reminder"
)

type (
	triggerDecoder func(FieldTable) (reminder.Trigger, error)
	actionDecoder  func(FieldTable) (reminder.Action, error)
)

var triggerDecoders = map[string]triggerDecoder{
	string(reminder.KindTime):          decodeTimeTrigger,
	string(reminder.KindQuestDeadline): decodeQuestTrigger,
}

var actionDecoders = map[string]actionDecoder{
	string(reminder.KindNotification): decodeNotification,
}

func EncodeTrigger(t reminder.Trigger) (*Tagged, error) {
	switch tt := t.(type) {
	case *reminder.TimeTrigger:
		return &Tagged{Kind: string(reminder.KindTime), Fields: FieldTable{
			"targetTick":      tt.TargetTick,
			"relative":        tt.Relative,
			"magnitude":       tt.Magnitude,
			"unit":            tt.Unit.String(),
			"fired":           tt.Fired,
			"lastFiredTarget": tt.LastFiredTarget,
		}}, nil
	case *reminder.QuestDeadlineTrigger:
		return &Tagged{Kind: string(reminder.KindQuestDeadline), Fields: FieldTable{
			"questId":            tt.QuestID,
			"leadTicks":          tt.LeadTicks,
			"computedTargetTick": tt.ComputedTargetTick,
			"computedForExpiry":  tt.ComputedForExpiry,
			"fired":              tt.Fired,
			"retired":            tt.Gone,
			"lastFiredExpiry":    tt.LastFiredExpiry,
		}}, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: trigger %T", ErrUnknownKind, t)
	}
}

func DecodeTrigger(tg *Tagged) (reminder.Trigger, error) {
	if tg == nil {
		return nil, nil
	}
	dec, ok := triggerDecoders[tg.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: trigger %q", ErrUnknownKind, tg.Kind)
	}
	f := tg.Fields
	if f == nil {
		f = FieldTable{}
	}
	return dec(f)
}

func decodeTimeTrigger(f FieldTable) (reminder.Trigger, error) {
	var (
		t   reminder.TimeTrigger
		err error
	)
	if t.TargetTick, err = f.Int64("targetTick", 0); err != nil {
		return nil, err
	}
	if t.Relative, err = f.Bool("relative", false); err != nil {
		return nil, err
	}
	if t.Magnitude, err = f.Int64("magnitude", 0); err != nil {
		return nil, err
	}
	unit, err := f.String("unit", "")
	if err != nil {
		return nil, err
	}
	if t.Unit, err = reminder.ParseTimeUnit(unit); err != nil {
		return nil, err
	}
	if t.Fired, err = f.Bool("fired", false); err != nil {
		return nil, err
	}
	if t.LastFiredTarget, err = f.Int64("lastFiredTarget", 0); err != nil {
		return nil, err
	}
	if !t.Relative && t.TargetTick <= 0 && !f.Has("targetTick") {
		return nil, fmt.Errorf("%w: targetTick", ErrMissingField)
	}
	return &t, nil
}

func decodeQuestTrigger(f FieldTable) (reminder.Trigger, error) {
	qid, err := f.RequireInt64("questId")
	if err != nil {
		return nil, err
	}
	t := reminder.QuestDeadlineTrigger{QuestID: int(qid)}
	if t.LeadTicks, err = f.Int64("leadTicks", 0); err != nil {
		return nil, err
	}
	if t.LeadTicks < 0 {
		t.LeadTicks = 0
	}
	if t.ComputedTargetTick, err = f.Int64("computedTargetTick", 0); err != nil {
		return nil, err
	}
	if t.ComputedForExpiry, err = f.Int64("computedForExpiry", 0); err != nil {
		return nil, err
	}
	if t.Fired, err = f.Bool("fired", false); err != nil {
		return nil, err
	}
	if t.Gone, err = f.Bool("retired", false); err != nil {
		return nil, err
	}
	if t.LastFiredExpiry, err = f.Int64("lastFiredExpiry", 0); err != nil {
		return nil, err
	}
	return &t, nil
}

func EncodeAction(a reminder.Action) (Tagged, error) {
	switch aa := a.(type) {
	case *reminder.NotificationAction:
		f := FieldTable{"pauseOnFire": aa.PauseOnFire}
		if aa.Title != "" {
			f["title"] = aa.Title
		}
		if aa.Text != "" {
			f["text"] = aa.Text
		}
		if aa.Class != reminder.ClassAuto {
			f["class"] = aa.Class.String()
		}
		return Tagged{Kind: string(reminder.KindNotification), Fields: f}, nil
	default:
		return Tagged{}, fmt.Errorf("%w: action %T", ErrUnknownKind, a)
	}
}

func DecodeAction(tg Tagged) (reminder.Action, error) {
	dec, ok := actionDecoders[tg.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: action %q", ErrUnknownKind, tg.Kind)
	}
	f := tg.Fields
	if f == nil {
		f = FieldTable{}
	}
	return dec(f)
}

func decodeNotification(f FieldTable) (reminder.Action, error) {
	var (
		a   reminder.NotificationAction
		err error
	)
	if a.Title, err = f.String("title", ""); err != nil {
		return nil, err
	}
	if a.Text, err = f.String("text", ""); err != nil {
		return nil, err
	}
	if a.PauseOnFire, err = f.Bool("pauseOnFire", false); err != nil {
		return nil, err
	}
	class, err := f.String("class", "")
	if err != nil {
		return nil, err
	}
	if a.Class, err = reminder.ParseNotificationClass(class); err != nil {
		return nil, err
	}
	return &a, nil
}
