package config

// Config is the on-disk configuration. Field names are snake_case in both
// JSON and YAML files; unknown keys are rejected.
type Config struct {
	Logging  LoggingConfig   `json:"logging"`
	Engine   EngineConfig    `json:"engine"`
	Notifier *NotifierConfig `json:"notifier,omitempty"`
	Storage  *StorageConfig  `json:"storage,omitempty"`
	Seed     SeedConfig      `json:"seed,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// EngineConfig controls the simulation pump.
//
// Defaults (when fields are omitted/zero):
//   - step_interval: "1s"
//   - ticks_per_step: 10
//   - cycle_ticks: 60
//   - autosave_cycles: 10 (negative disables periodic autosave)
//   - resume_after_steps: 30 (negative keeps a pause until SIGUSR1)
//   - slot: "main"
type EngineConfig struct {
	// StepInterval is a Go duration string (e.g. "250ms", "1s").
	StepInterval     string `json:"step_interval,omitempty"`
	TicksPerStep     int64  `json:"ticks_per_step,omitempty"`
	CycleTicks       int64  `json:"cycle_ticks,omitempty"`
	AutosaveCycles   int    `json:"autosave_cycles,omitempty"`
	ResumeAfterSteps int    `json:"resume_after_steps,omitempty"`
	Slot             string `json:"slot,omitempty"`
	StartTick        int64  `json:"start_tick,omitempty"`
}

// NotifierConfig controls the async notification pipeline.
//
// All durations are Go duration strings. If the whole section is omitted,
// the notifier defaults to enabled=true.
type NotifierConfig struct {
	Enabled     bool   `json:"enabled"`
	Workers     int    `json:"workers"`
	QueueSize   int    `json:"queue_size"`
	RatePerSec  int    `json:"rate_per_sec"`
	RetryMax    int    `json:"retry_max"`
	RetryBase   string `json:"retry_base"`
	DedupWindow string `json:"dedup_window"`
	HistorySize int    `json:"history_size"`
}

// StorageConfig controls the optional persistence layer.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./data/questminder.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
	KeepFires   int    `json:"keep_fires,omitempty"`
}

// SeedConfig lists quests and reminders created on a fresh start, when no
// saved snapshot exists.
type SeedConfig struct {
	Quests    []SeedQuest    `json:"quests,omitempty"`
	Reminders []SeedReminder `json:"reminders,omitempty"`
}

type SeedQuest struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
	// ExpiresIn counts ticks from the start tick.
	ExpiresIn int64 `json:"expires_in"`
}

type SeedReminder struct {
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Severity    string      `json:"severity,omitempty"`
	Repeating   bool        `json:"repeating,omitempty"`
	Trigger     SeedTrigger `json:"trigger"`
	Notify      *SeedNotify `json:"notify,omitempty"`
}

// SeedTrigger describes one trigger. Kind is "time" or "quest-deadline".
//
// A time trigger sets either At (absolute tick) or In with Unit (relative).
// A quest trigger sets Quest and optionally Lead.
type SeedTrigger struct {
	Kind  string `json:"kind"`
	At    int64  `json:"at,omitempty"`
	In    int64  `json:"in,omitempty"`
	Unit  string `json:"unit,omitempty"`
	Quest int    `json:"quest,omitempty"`
	Lead  int64  `json:"lead,omitempty"`
}

type SeedNotify struct {
	Title       string `json:"title,omitempty"`
	Text        string `json:"text,omitempty"`
	Class       string `json:"class,omitempty"`
	PauseOnFire bool   `json:"pause_on_fire,omitempty"`
}
