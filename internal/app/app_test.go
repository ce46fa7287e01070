package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"questminder/internal/config"
	"questminder/internal/storage"
	logx "questminder/pkg/logx"
)

func TestMapStorageConfig(t *testing.T) {
	cases := []struct {
		name    string
		sc      *config.StorageConfig
		enabled bool
		wantErr string
		driver  string
	}{
		{name: "missing", sc: nil},
		{name: "none", sc: &config.StorageConfig{Driver: "None"}},
		{name: "file", sc: &config.StorageConfig{Driver: "file", Path: "./q.json"}, enabled: true, driver: "file"},
		{name: "sqlite", sc: &config.StorageConfig{Driver: "SQLite", Path: "./q.db", BusyTimeout: "3s"}, enabled: true, driver: "sqlite"},
		{name: "no path", sc: &config.StorageConfig{Driver: "sqlite"}, wantErr: "storage.path"},
		{name: "bad busy", sc: &config.StorageConfig{Driver: "sqlite", Path: "x", BusyTimeout: "soon"}, wantErr: "storage.busy_timeout"},
		{name: "unknown", sc: &config.StorageConfig{Driver: "redis", Path: "x"}, wantErr: "unknown storage.driver"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sc, enabled, err := mapStorageConfig(&config.Config{Storage: tc.sc})
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("err = %v, want %q", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if enabled != tc.enabled || sc.Driver != tc.driver {
				t.Fatalf("got %+v enabled=%v", sc, enabled)
			}
		})
	}

	sc, _, _ := mapStorageConfig(&config.Config{Storage: &config.StorageConfig{Driver: "sqlite", Path: "x"}})
	if sc.BusyTimeout != time.Second {
		t.Fatalf("default busy timeout = %s", sc.BusyTimeout)
	}
}

func TestMapNotifierConfig(t *testing.T) {
	nc, err := mapNotifierConfig(&config.Config{})
	if err != nil || !nc.Enabled {
		t.Fatalf("missing section should enable the notifier: %+v %v", nc, err)
	}
	nc, err = mapNotifierConfig(&config.Config{Notifier: &config.NotifierConfig{
		Enabled: true, Workers: 3, RetryBase: "100ms", DedupWindow: "1m",
	}})
	if err != nil {
		t.Fatal(err)
	}
	if nc.Workers != 3 || nc.RetryBase != 100*time.Millisecond || nc.DedupWindow != time.Minute {
		t.Fatalf("mapped %+v", nc)
	}
	if _, err := mapNotifierConfig(&config.Config{Notifier: &config.NotifierConfig{QueueSize: -1}}); err == nil {
		t.Fatal("negative queue size should fail")
	}
	if _, err := mapNotifierConfig(&config.Config{Notifier: &config.NotifierConfig{DedupWindow: "later"}}); err == nil {
		t.Fatal("bad duration should fail")
	}
}

func TestMapEngineConfig(t *testing.T) {
	ec, err := mapEngineConfig(&config.Config{Engine: config.EngineConfig{StepInterval: "2s", TicksPerStep: 5, ResumeAfterSteps: -1, Slot: " alt "}})
	if err != nil {
		t.Fatal(err)
	}
	if ec.StepInterval != 2*time.Second || ec.TicksPerStep != 5 || ec.ResumeAfterSteps != -1 || ec.Slot != "alt" {
		t.Fatalf("mapped %+v", ec)
	}
	ec, err = mapEngineConfig(&config.Config{})
	if err != nil || ec.StepInterval != time.Second {
		t.Fatalf("default interval: %+v %v", ec, err)
	}
	for _, bad := range []config.EngineConfig{
		{StepInterval: "250ms"},
		{TicksPerStep: -1},
		{CycleTicks: -5},
		{StartTick: -1},
		{Slot: "../etc"},
	} {
		if _, err := mapEngineConfig(&config.Config{Engine: bad}); err == nil {
			t.Fatalf("expected an error for %+v", bad)
		}
	}
}

func TestValidateSeed(t *testing.T) {
	ok := &config.Config{Seed: config.SeedConfig{
		Quests: []config.SeedQuest{{ID: 1, Label: "Escort", ExpiresIn: 9000}},
		Reminders: []config.SeedReminder{{
			Title:   "escort",
			Trigger: config.SeedTrigger{Kind: "quest-deadline", Quest: 1, Lead: 2500},
			Notify:  &config.SeedNotify{Class: "alert"},
		}},
	}}
	if err := validate(ok); err != nil {
		t.Fatal(err)
	}

	dup := *ok
	dup.Seed.Quests = append([]config.SeedQuest{}, ok.Seed.Quests[0], ok.Seed.Quests[0])
	if err := validate(&dup); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("dup: %v", err)
	}

	bad := *ok
	bad.Seed.Reminders = []config.SeedReminder{{Title: "x", Severity: "extreme"}}
	if err := validate(&bad); err == nil || !strings.Contains(err.Error(), "seed.reminders[0]") {
		t.Fatalf("bad: %v", err)
	}
	if err := validate(nil); err == nil {
		t.Fatal("nil config should fail")
	}
}

func TestMapReminderDefs(t *testing.T) {
	defs := mapReminderDefs(&config.Config{Seed: config.SeedConfig{Reminders: []config.SeedReminder{{
		Title:     "hourly",
		Repeating: true,
		Trigger:   config.SeedTrigger{Kind: "time", In: 1, Unit: "hour"},
		Notify:    &config.SeedNotify{Text: "stretch", PauseOnFire: true},
	}}}})
	if len(defs) != 1 {
		t.Fatalf("defs: %d", len(defs))
	}
	d := defs[0]
	if d.TriggerKind != "time" || d.In != 1 || d.Unit != "hour" || !d.Repeating || d.Notify == nil || !d.Notify.PauseOnFire {
		t.Fatalf("def %+v", d)
	}
}

const appYAML = `
logging:
  level: error
  console: false
engine:
  step_interval: 1h
  start_tick: 100
notifier:
  enabled: true
storage:
  driver: file
  path: %s
seed:
  quests:
    - { id: 1, label: Escort, expires_in: 9000 }
  reminders:
    - title: escort
      trigger: { kind: quest-deadline, quest: 1, lead: 2500 }
    - title: stretch
      repeating: true
      trigger: { kind: time, in: 1, unit: hour }
`

func TestAppLifecycle(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.json")
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(strings.Replace(appYAML, "%s", statePath, 1)), 0o600); err != nil {
		t.Fatal(err)
	}

	run := func() *App {
		a, err := NewApp(cfgPath)
		if err != nil {
			t.Fatal(err)
		}
		if err := a.Start(context.Background()); err != nil {
			t.Fatal(err)
		}
		return a
	}
	stop := func(a *App) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Stop(ctx, StopAppStop); err != nil {
			t.Fatal(err)
		}
	}

	a := run()
	if n := a.Engine().Registry().Len(); n != 2 {
		t.Fatalf("seeded %d reminders", n)
	}
	if a.Engine().Clock().CurrentTick() != 100 {
		t.Fatalf("start tick: %d", a.Engine().Clock().CurrentTick())
	}
	a.Engine().Step(context.Background())
	stop(a)

	st, err := storage.Open(storage.Config{Driver: "file", Path: statePath}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := st.LoadSnapshot(context.Background(), "main"); err != nil {
		t.Fatalf("final save missing: %v", err)
	}
	_ = st.Close()

	// A second run restores instead of seeding reminders again.
	b := run()
	defer stop(b)
	if n := b.Engine().Registry().Len(); n != 2 {
		t.Fatalf("restored %d reminders", n)
	}
	if b.Engine().Clock().CurrentTick() < 110 {
		t.Fatalf("clock should resume from the snapshot, got %d", b.Engine().Clock().CurrentTick())
	}
}

const legacySnapshot = `{
  "schemaVersion": 1,
  "savedAtTick": 900,
  "reminders": [
    {"id": 1, "title": "drink", "severity": 2, "active": true, "repeating": true,
     "trigger": {"type": "TimeTrigger", "isRelative": true, "offsetTicks": 300}},
    {"id": 4, "title": "caravan", "severity": 4, "active": true,
     "trigger": {"type": "QuestDeadlineTrigger", "questId": 9, "leadTicks": 1000}}
  ]
}`

func TestOfflineInspectAndMigrate(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.json")
	cfgPath := filepath.Join(dir, "config.yaml")
	body := "storage:\n  driver: file\n  path: " + statePath + "\nengine:\n  slot: alt\n"
	if err := os.WriteFile(cfgPath, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	st, err := storage.Open(storage.Config{Driver: "file", Path: statePath}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if err := st.SaveSnapshot(context.Background(), "alt", []byte(legacySnapshot)); err != nil {
		t.Fatal(err)
	}
	_ = st.Close()

	off, err := OpenOffline(cfgPath, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer off.Close()
	ctx := context.Background()

	var buf bytes.Buffer
	if err := off.Inspect(ctx, &buf, 5); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"slot alt: schema v1", "drink", "caravan", "quest #9"} {
		if !strings.Contains(out, want) {
			t.Fatalf("inspect output missing %q:\n%s", want, out)
		}
	}

	from, rewritten, err := off.Migrate(ctx)
	if err != nil || from != 1 || !rewritten {
		t.Fatalf("migrate: from=%d rewritten=%v err=%v", from, rewritten, err)
	}
	from, rewritten, err = off.Migrate(ctx)
	if err != nil || from != 3 || rewritten {
		t.Fatalf("second migrate: from=%d rewritten=%v err=%v", from, rewritten, err)
	}
}

func TestOpenOfflineNeedsStorage(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("logging:\n  level: info\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenOffline(cfgPath, logx.Nop()); !errors.Is(err, storage.ErrDisabled) {
		t.Fatalf("err = %v", err)
	}
}
