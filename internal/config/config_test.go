package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleYAML = `
logging:
  level: debug
  console: true
engine:
  step_interval: 2s
  ticks_per_step: 20
  cycle_ticks: 60
notifier:
  enabled: true
  workers: 2
  rate_per_sec: 5
storage:
  driver: sqlite
  path: ./data/q.db
seed:
  quests:
    - id: 1
      label: Escort the caravan
      expires_in: 9000
  reminders:
    - title: caravan leaving
      severity: high
      trigger: { kind: quest-deadline, quest: 1, lead: 2500 }
      notify: { pause_on_fire: true }
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	m := NewConfigManager(writeFile(t, "config.yaml", sampleYAML))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Get() != cfg {
		t.Fatal("Get should return the committed config")
	}
	if cfg.Engine.TicksPerStep != 20 || cfg.Engine.StepInterval != "2s" {
		t.Fatalf("engine: %+v", cfg.Engine)
	}
	if cfg.Storage == nil || cfg.Storage.Driver != "sqlite" {
		t.Fatalf("storage: %+v", cfg.Storage)
	}
	if len(cfg.Seed.Reminders) != 1 {
		t.Fatalf("seed: %+v", cfg.Seed)
	}
	r := cfg.Seed.Reminders[0]
	if r.Trigger.Kind != "quest-deadline" || r.Trigger.Quest != 1 || r.Trigger.Lead != 2500 || r.Notify == nil || !r.Notify.PauseOnFire {
		t.Fatalf("seed reminder: %+v", r)
	}
}

func TestDecodeStrict(t *testing.T) {
	cases := []struct {
		name, file, body string
	}{
		{"unknown json key", "c.json", `{"engine":{"tick_rate":3}}`},
		{"unknown yaml key", "c.yml", "logging:\n  colour: true\n"},
		{"trailing data", "c.json", `{} {}`},
		{"bad yaml", "c.yaml", "logging: [\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Decode(tc.file, []byte(tc.body)); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
	if _, err := Decode("empty.yaml", nil); err != nil {
		t.Fatalf("empty yaml should decode: %v", err)
	}
}

func TestParseDuration(t *testing.T) {
	if d, err := ParseDurationOrDefault("x", "", time.Second); err != nil || d != time.Second {
		t.Fatalf("default: %v %v", d, err)
	}
	if d, err := ParseDurationField("x", " 2m "); err != nil || d != 2*time.Minute {
		t.Fatalf("parse: %v %v", d, err)
	}
	if _, err := ParseDurationField("engine.step_interval", "-1s"); err == nil || !strings.Contains(err.Error(), "engine.step_interval") {
		t.Fatalf("expected negative error naming the field, got %v", err)
	}
	if _, err := ParseDurationField("x", "soon"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestReloadValidatesAndPublishes(t *testing.T) {
	path := writeFile(t, "config.json", `{"engine":{"ticks_per_step":10}}`)
	m := NewConfigManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatal(err)
	}
	sub := m.Subscribe(1)
	defer m.Unsubscribe(sub)
	ctx := context.Background()

	if m.reload(ctx) {
		t.Fatal("unchanged content should not publish")
	}

	m.SetValidator(func(_ context.Context, cfg *Config) error {
		if cfg.Engine.TicksPerStep < 0 {
			return errors.New("negative ticks")
		}
		return nil
	})
	if err := os.WriteFile(path, []byte(`{"engine":{"ticks_per_step":-5}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if m.reload(ctx) {
		t.Fatal("invalid config should be rejected")
	}
	if m.Get().Engine.TicksPerStep != 10 {
		t.Fatal("rejected config must not be committed")
	}

	if err := os.WriteFile(path, []byte(`{"engine":{"ticks_per_step":30}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if !m.reload(ctx) {
		t.Fatal("valid change should publish")
	}
	select {
	case got := <-sub:
		if got.Engine.TicksPerStep != 30 {
			t.Fatalf("published %+v", got.Engine)
		}
	default:
		t.Fatal("subscriber got nothing")
	}
}

func TestPublishKeepsNewest(t *testing.T) {
	m := NewConfigManager("unused.json")
	sub := m.Subscribe(1)
	m.publish(&Config{Engine: EngineConfig{Slot: "a"}})
	m.publish(&Config{Engine: EngineConfig{Slot: "b"}})
	if got := <-sub; got.Engine.Slot != "b" {
		t.Fatalf("expected newest config, got %q", got.Engine.Slot)
	}
	m.Unsubscribe(sub)
	if _, ok := <-sub; ok {
		t.Fatal("channel should be closed after Unsubscribe")
	}
	m.publish(&Config{})
}

func TestSummarizeConfigChange(t *testing.T) {
	a := &Config{Engine: EngineConfig{TicksPerStep: 10}}
	b := &Config{Engine: EngineConfig{TicksPerStep: 20}, Storage: &StorageConfig{Driver: "file"}}
	sections, attrs := SummarizeConfigChange(a, b)
	if strings.Join(sections, ",") != "engine,storage" {
		t.Fatalf("sections: %v", sections)
	}
	if len(attrs) == 0 {
		t.Fatal("expected attrs")
	}
	if s, _ := SummarizeConfigChange(a, a); len(s) != 0 {
		t.Fatalf("no change expected, got %v", s)
	}
	if s, _ := SummarizeConfigChange(nil, &Config{Notifier: &NotifierConfig{Enabled: true}}); len(s) != 0 {
		t.Fatalf("omitted notifier equals enabled notifier, got %v", s)
	}
}
