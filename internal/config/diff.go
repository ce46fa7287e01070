package config

import (
	"reflect"
	"strings"

	logx "questminder/pkg/logx"
)

// SummarizeConfigChange returns the changed top-level sections and log
// fields describing their new values.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 5)
	attrs := make([]logx.Field, 0, 12)

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	if oldCfg.Engine != newCfg.Engine {
		changed = append(changed, "engine")
		attrs = append(attrs,
			logx.String("engine.step_interval", strings.TrimSpace(newCfg.Engine.StepInterval)),
			logx.Int64("engine.ticks_per_step", newCfg.Engine.TicksPerStep),
			logx.Int64("engine.cycle_ticks", newCfg.Engine.CycleTicks),
			logx.Int("engine.autosave_cycles", newCfg.Engine.AutosaveCycles),
			logx.Int("engine.resume_after_steps", newCfg.Engine.ResumeAfterSteps),
		)
	}

	on, nn := derefNotifier(oldCfg.Notifier), derefNotifier(newCfg.Notifier)
	if on != nn {
		changed = append(changed, "notifier")
		attrs = append(attrs,
			logx.Bool("notifier.enabled", nn.Enabled),
			logx.Int("notifier.workers", nn.Workers),
			logx.Int("notifier.rate_per_sec", nn.RatePerSec),
		)
	}

	ost, nst := derefStorage(oldCfg.Storage), derefStorage(newCfg.Storage)
	if ost != nst {
		changed = append(changed, "storage")
		attrs = append(attrs, logx.String("storage.driver", strings.TrimSpace(nst.Driver)))
	}

	if !reflect.DeepEqual(oldCfg.Seed, newCfg.Seed) {
		changed = append(changed, "seed")
		attrs = append(attrs,
			logx.Int("seed.quests", len(newCfg.Seed.Quests)),
			logx.Int("seed.reminders", len(newCfg.Seed.Reminders)),
		)
	}
	return changed, attrs
}

func derefNotifier(n *NotifierConfig) NotifierConfig {
	if n == nil {
		return NotifierConfig{Enabled: true}
	}
	return *n
}

func derefStorage(s *StorageConfig) StorageConfig {
	if s == nil {
		return StorageConfig{}
	}
	return *s
}
