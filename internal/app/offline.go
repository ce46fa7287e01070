package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"questminder/internal/config"
	"questminder/internal/engine"
	"questminder/internal/persistence"
	"questminder/internal/reminder"
	"questminder/internal/storage"
	logx "questminder/pkg/logx"
)

// Offline gives maintenance commands access to the saved slot without
// starting the engine.
type Offline struct {
	store storage.Store
	slot  string
	log   logx.Logger
}

func OpenOffline(cfgPath string, log logx.Logger) (*Offline, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	cfg, err := config.NewConfigManager(cfgPath).Load()
	if err != nil {
		return nil, err
	}
	sc, enabled, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return nil, fmt.Errorf("%s: %w", cfgPath, storage.ErrDisabled)
	}
	ec, err := mapEngineConfig(cfg)
	if err != nil {
		return nil, err
	}
	slot := ec.Slot
	if slot == "" {
		slot = engine.DefaultSlot
	}
	st, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}
	return &Offline{store: st, slot: slot, log: log}, nil
}

func (o *Offline) Slot() string { return o.slot }

func (o *Offline) Close() error { return o.store.Close() }

// load decodes the slot into a registry whose clock is frozen at the saved
// tick. Quest triggers cannot see the host here and describe themselves
// without a deadline.
func (o *Offline) load(ctx context.Context) (*reminder.Registry, persistence.Snapshot, persistence.LoadReport, *persistence.Adapter, error) {
	data, err := o.store.LoadSnapshot(ctx, o.slot)
	if err != nil {
		return nil, persistence.Snapshot{}, persistence.LoadReport{}, nil, fmt.Errorf("slot %s: %w", o.slot, err)
	}
	ad := persistence.NewAdapter(reminder.Env{Log: o.log}, o.log)
	snap, err := ad.Decode(data)
	if err != nil {
		return nil, snap, persistence.LoadReport{}, nil, err
	}
	saved := snap.SavedAtTick
	env := reminder.Env{Clock: reminder.ClockFunc(func() int64 { return saved }), Log: o.log}
	ad = persistence.NewAdapter(env, o.log, reminder.WithLogger(o.log))
	reg, rep := ad.Load(&snap)
	return reg, snap, rep, ad, nil
}

// Inspect prints every saved reminder and the last fires entries of the
// journal.
func (o *Offline) Inspect(ctx context.Context, w io.Writer, fires int) error {
	reg, snap, rep, _, err := o.load(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "slot %s: schema v%d, saved at tick %d (%s)\n",
		o.slot, rep.FromVersion, snap.SavedAtTick, reminder.FormatTicks(snap.SavedAtTick))
	if rep.Skipped > 0 || rep.Degraded > 0 {
		fmt.Fprintf(w, "skipped %d, degraded %d\n", rep.Skipped, rep.Degraded)
	}
	env := reg.Env()
	for _, r := range reg.All() {
		fmt.Fprintf(w, "  %s\n", r.Describe(env))
		for _, a := range r.Actions {
			fmt.Fprintf(w, "      %s\n", a.Describe())
		}
	}
	if fires <= 0 {
		return nil
	}
	entries, err := o.store.RecentFires(ctx, fires)
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		fmt.Fprintln(w, "recent fires:")
	}
	for _, e := range entries {
		fmt.Fprintf(w, "  %s %-15s tick %-8d #%d %s\n",
			e.At.Format(time.DateTime), e.Event, e.Tick, e.ReminderID, e.Title)
	}
	return nil
}

// Migrate rewrites the slot at the current schema version. It reports the
// version found and whether anything was rewritten.
func (o *Offline) Migrate(ctx context.Context) (from int, rewritten bool, err error) {
	reg, _, rep, ad, err := o.load(ctx)
	if err != nil {
		return 0, false, err
	}
	if rep.FromVersion >= persistence.CurrentSchemaVersion && rep.Skipped == 0 && rep.Degraded == 0 {
		return rep.FromVersion, false, nil
	}
	data, err := persistence.Encode(ad.Save(reg))
	if err != nil {
		return rep.FromVersion, false, err
	}
	if err := o.store.SaveSnapshot(ctx, o.slot, data); err != nil {
		return rep.FromVersion, false, err
	}
	o.log.Info("slot migrated",
		logx.String("slot", o.slot),
		logx.Int("from", rep.FromVersion),
		logx.Int("to", persistence.CurrentSchemaVersion),
		logx.Int("reminders", rep.Loaded),
	)
	return rep.FromVersion, true, nil
}
