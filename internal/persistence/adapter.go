package persistence

import (
	"strings"

	"questminder/internal/reminder"
	logx "questminder/pkg/logx"
)

// LoadReport summarizes what Load did with a snapshot.
type LoadReport struct {
	Loaded      int
	Skipped     int
	Degraded    int
	Migrated    bool
	FromVersion int
}

// Adapter converts between a live registry and its snapshot form.
type Adapter struct {
	env  reminder.Env
	log  logx.Logger
	opts []reminder.Option
}

// NewAdapter returns an adapter whose loaded registries use env and opts.
func NewAdapter(env reminder.Env, log logx.Logger, opts ...reminder.Option) *Adapter {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Adapter{env: env, log: log, opts: opts}
}

// Save captures every reminder, active and completed.
func (a *Adapter) Save(reg *reminder.Registry) Snapshot {
	all := reg.All()
	s := Snapshot{
		SchemaVersion: CurrentSchemaVersion,
		SavedAtTick:   a.env.Now(),
		Reminders:     make([]Record, 0, len(all)),
	}
	for _, r := range all {
		s.Reminders = append(s.Reminders, a.record(r))
	}
	return s
}

func (a *Adapter) record(r *reminder.Reminder) Record {
	rec := Record{
		ID:              r.ID,
		Title:           r.Title,
		Description:     r.Description,
		Severity:        SeverityText(r.Severity.String()),
		Active:          r.Active,
		Repeating:       r.Repeating,
		CreatedAt:       r.CreatedAt,
		LastTriggeredAt: r.LastTriggeredAt,
		Actions:         make([]Tagged, 0, len(r.Actions)),
	}
	tg, err := EncodeTrigger(r.Trigger)
	if err != nil {
		a.log.Error("encode trigger failed", logx.Int("reminder_id", r.ID), logx.Err(err))
	}
	rec.Trigger = tg
	for _, act := range r.Actions {
		t, err := EncodeAction(act)
		if err != nil {
			a.log.Error("encode action failed", logx.Int("reminder_id", r.ID), logx.Err(err))
			continue
		}
		rec.Actions = append(rec.Actions, t)
	}
	return rec
}

// Decode parses data and logs the records it had to drop.
func (a *Adapter) Decode(data []byte) (Snapshot, error) {
	s, malformed, err := decode(data)
	if err != nil {
		return Snapshot{}, err
	}
	for _, i := range malformed {
		a.log.Warn("dropped malformed record", logx.Int("index", i))
	}
	return s, nil
}

// Load builds a fresh registry from snap. It may upgrade snap in place.
//
// Records with an empty title or a non-positive id are skipped. A trigger
// that cannot be decoded leaves the reminder without one; an action that
// cannot be decoded is dropped. Every trigger is refreshed against the
// current clock before the registry is returned.
func (a *Adapter) Load(snap *Snapshot) (*reminder.Registry, LoadReport) {
	rep := LoadReport{FromVersion: snap.SchemaVersion}
	if snap.SchemaVersion > CurrentSchemaVersion {
		a.log.Warn("snapshot is newer than this build, loading best-effort",
			logx.Int("version", snap.SchemaVersion), logx.Int("current", CurrentSchemaVersion))
	}
	rep.Migrated = Migrate(snap)
	if rep.Migrated {
		a.log.Info("migrated snapshot", logx.Int("from", rep.FromVersion), logx.Int("to", CurrentSchemaVersion))
	}

	rems := make([]*reminder.Reminder, 0, len(snap.Reminders))
	for _, rec := range snap.Reminders {
		if strings.TrimSpace(rec.Title) == "" || rec.ID <= 0 {
			a.log.Warn("skipped record", logx.Int("reminder_id", rec.ID), logx.String("reason", "empty title or bad id"))
			rep.Skipped++
			continue
		}
		r, degraded := a.reminder(rec)
		if degraded {
			rep.Degraded++
		}
		a.refresh(r)
		rems = append(rems, r)
	}

	reg := reminder.NewRegistry(a.env, a.opts...)
	rep.Loaded = reg.Restore(rems)
	rep.Skipped += len(rems) - rep.Loaded
	return reg, rep
}

func (a *Adapter) reminder(rec Record) (r *reminder.Reminder, degraded bool) {
	sev, err := reminder.ParseSeverity(string(rec.Severity))
	if err != nil {
		a.log.Warn("unknown severity, using low", logx.Int("reminder_id", rec.ID), logx.String("severity", string(rec.Severity)))
		sev = reminder.SeverityLow
		degraded = true
	}
	r = &reminder.Reminder{
		ID:              rec.ID,
		Title:           rec.Title,
		Description:     rec.Description,
		Severity:        sev,
		Active:          rec.Active,
		Repeating:       rec.Repeating,
		CreatedAt:       rec.CreatedAt,
		LastTriggeredAt: rec.LastTriggeredAt,
	}
	if tr, err := DecodeTrigger(rec.Trigger); err != nil {
		a.log.Warn("dropped undecodable trigger", logx.Int("reminder_id", rec.ID), logx.Err(err))
		degraded = true
	} else {
		r.Trigger = tr
	}
	for _, tg := range rec.Actions {
		act, err := DecodeAction(tg)
		if err != nil {
			a.log.Warn("dropped undecodable action", logx.Int("reminder_id", rec.ID), logx.Err(err))
			degraded = true
			continue
		}
		r.Actions = append(r.Actions, act)
	}
	return r, degraded
}

func (a *Adapter) refresh(r *reminder.Reminder) {
	if r.Trigger == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			a.log.Error("trigger refresh panicked", logx.Int("reminder_id", r.ID), logx.Any("panic", p))
		}
	}()
	r.Trigger.Refresh(a.env)
}
