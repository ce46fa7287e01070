package app

import (
	"fmt"
	"strings"
	"time"

	"questminder/internal/config"
	"questminder/internal/engine"
	"questminder/internal/notifier"
	"questminder/internal/storage"
	logx "questminder/pkg/logx"
)

func mapLoggingConfig(cfg *config.Config) logx.Config {
	if cfg == nil {
		return logx.Config{Level: "info", Console: true}
	}
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	sc := cfg.Storage
	driver := strings.TrimSpace(sc.Driver)
	if driver == "" || strings.EqualFold(driver, "none") {
		return storage.Config{}, false, nil
	}
	if sc.KeepFires < 0 {
		return storage.Config{}, false, fmt.Errorf("storage.keep_fires must be >= 0")
	}
	path := strings.TrimSpace(sc.Path)
	if path == "" {
		return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=%s", driver)
	}

	dl := strings.ToLower(driver)
	switch dl {
	case "file":
		return storage.Config{Driver: "file", Path: path, KeepFires: sc.KeepFires}, true, nil
	case "sqlite", "sqlite3":
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
		if err != nil {
			return storage.Config{}, false, err
		}
		return storage.Config{Driver: dl, Path: path, BusyTimeout: busy, KeepFires: sc.KeepFires}, true, nil
	default:
		return storage.Config{}, false, fmt.Errorf("unknown storage.driver: %s", driver)
	}
}

// mapNotifierConfig treats a missing section as enabled with defaults.
func mapNotifierConfig(cfg *config.Config) (notifier.Config, error) {
	if cfg == nil || cfg.Notifier == nil {
		return notifier.Config{Enabled: true}, nil
	}
	nc := cfg.Notifier
	switch {
	case nc.Workers < 0:
		return notifier.Config{}, fmt.Errorf("notifier.workers must be >= 0")
	case nc.QueueSize < 0:
		return notifier.Config{}, fmt.Errorf("notifier.queue_size must be >= 0")
	case nc.RatePerSec < 0:
		return notifier.Config{}, fmt.Errorf("notifier.rate_per_sec must be >= 0")
	case nc.RetryMax < 0:
		return notifier.Config{}, fmt.Errorf("notifier.retry_max must be >= 0")
	case nc.HistorySize < 0:
		return notifier.Config{}, fmt.Errorf("notifier.history_size must be >= 0")
	}
	retryBase, err := config.ParseDurationField("notifier.retry_base", nc.RetryBase)
	if err != nil {
		return notifier.Config{}, err
	}
	dedup, err := config.ParseDurationField("notifier.dedup_window", nc.DedupWindow)
	if err != nil {
		return notifier.Config{}, err
	}
	return notifier.Config{
		Enabled:     nc.Enabled,
		Workers:     nc.Workers,
		QueueSize:   nc.QueueSize,
		RatePerSec:  nc.RatePerSec,
		RetryMax:    nc.RetryMax,
		RetryBase:   retryBase,
		DedupWindow: dedup,
		HistorySize: nc.HistorySize,
	}, nil
}

func mapEngineConfig(cfg *config.Config) (engine.Config, error) {
	if cfg == nil {
		return engine.Config{}, nil
	}
	ec := cfg.Engine
	interval, err := config.ParseDurationOrDefault("engine.step_interval", ec.StepInterval, engine.DefaultStepInterval)
	if err != nil {
		return engine.Config{}, err
	}
	switch {
	case interval < time.Second:
		// The cron scheduler only has whole-second resolution.
		return engine.Config{}, fmt.Errorf("engine.step_interval must be at least 1s, got %s", interval)
	case ec.TicksPerStep < 0:
		return engine.Config{}, fmt.Errorf("engine.ticks_per_step must be >= 0")
	case ec.CycleTicks < 0:
		return engine.Config{}, fmt.Errorf("engine.cycle_ticks must be >= 0")
	case ec.StartTick < 0:
		return engine.Config{}, fmt.Errorf("engine.start_tick must be >= 0")
	case strings.ContainsAny(ec.Slot, `/\`) || strings.Contains(ec.Slot, ".."):
		return engine.Config{}, fmt.Errorf("engine.slot: invalid name %q", ec.Slot)
	}
	return engine.Config{
		StepInterval:     interval,
		TicksPerStep:     ec.TicksPerStep,
		CycleTicks:       ec.CycleTicks,
		AutosaveCycles:   ec.AutosaveCycles,
		ResumeAfterSteps: ec.ResumeAfterSteps,
		Slot:             strings.TrimSpace(ec.Slot),
	}, nil
}

func mapQuestDefs(cfg *config.Config) []engine.QuestDef {
	if cfg == nil {
		return nil
	}
	out := make([]engine.QuestDef, 0, len(cfg.Seed.Quests))
	for _, q := range cfg.Seed.Quests {
		out = append(out, engine.QuestDef{ID: q.ID, Label: q.Label, ExpiresIn: q.ExpiresIn})
	}
	return out
}

func mapReminderDefs(cfg *config.Config) []engine.ReminderDef {
	if cfg == nil {
		return nil
	}
	out := make([]engine.ReminderDef, 0, len(cfg.Seed.Reminders))
	for _, r := range cfg.Seed.Reminders {
		def := engine.ReminderDef{
			Title:       r.Title,
			Description: r.Description,
			Severity:    r.Severity,
			Repeating:   r.Repeating,
			TriggerKind: r.Trigger.Kind,
			At:          r.Trigger.At,
			In:          r.Trigger.In,
			Unit:        r.Trigger.Unit,
			QuestID:     r.Trigger.Quest,
			Lead:        r.Trigger.Lead,
		}
		if n := r.Notify; n != nil {
			def.Notify = &engine.NotifyDef{Title: n.Title, Text: n.Text, Class: n.Class, PauseOnFire: n.PauseOnFire}
		}
		out = append(out, def)
	}
	return out
}

// validate rejects a config before it is committed, both at startup and on
// hot reload.
func validate(cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if _, err := mapEngineConfig(cfg); err != nil {
		return err
	}
	if _, err := mapNotifierConfig(cfg); err != nil {
		return err
	}
	if _, _, err := mapStorageConfig(cfg); err != nil {
		return err
	}
	seen := map[int]bool{}
	for i, q := range cfg.Seed.Quests {
		if q.ID <= 0 {
			return fmt.Errorf("seed.quests[%d].id must be > 0", i)
		}
		if seen[q.ID] {
			return fmt.Errorf("seed.quests[%d]: duplicate id %d", i, q.ID)
		}
		seen[q.ID] = true
	}
	for i, def := range mapReminderDefs(cfg) {
		if _, err := engine.BuildReminder(def); err != nil {
			return fmt.Errorf("seed.reminders[%d]: %w", i, err)
		}
	}
	return nil
}
