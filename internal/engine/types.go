package engine

import (
	"time"

	"questminder/internal/eventbus"
	"questminder/internal/host"
	"questminder/internal/reminder"
	"questminder/internal/storage"
	logx "questminder/pkg/logx"
)

// Config controls the pump. Zero values take defaults in New.
type Config struct {
	// StepInterval is the wall-clock time between steps; cron supports
	// whole seconds only.
	StepInterval time.Duration
	TicksPerStep int64
	// CycleTicks is the simulated time between trigger evaluations.
	CycleTicks int64
	// AutosaveCycles saves every n cycles; negative disables periodic saves.
	AutosaveCycles int
	// ResumeAfterSteps resumes a paused clock after that many held steps;
	// negative leaves it paused until Resume.
	ResumeAfterSteps int
	Slot             string
}

const (
	DefaultStepInterval   = time.Second
	DefaultTicksPerStep   = 10
	DefaultCycleTicks     = 60
	DefaultAutosaveCycles = 10
	DefaultResumeAfter    = 30
	DefaultSlot           = "main"
)

func (c Config) withDefaults() Config {
	if c.StepInterval < time.Second {
		c.StepInterval = DefaultStepInterval
	}
	if c.TicksPerStep <= 0 {
		c.TicksPerStep = DefaultTicksPerStep
	}
	if c.CycleTicks <= 0 {
		c.CycleTicks = DefaultCycleTicks
	}
	if c.AutosaveCycles == 0 {
		c.AutosaveCycles = DefaultAutosaveCycles
	}
	if c.ResumeAfterSteps == 0 {
		c.ResumeAfterSteps = DefaultResumeAfter
	}
	if c.Slot == "" {
		c.Slot = DefaultSlot
	}
	return c
}

// Deps are the collaborators the engine drives. Store, Bus and Sink may be
// nil.
type Deps struct {
	Clock  *host.Clock
	Quests *host.QuestBoard
	Sink   reminder.NotificationSink
	Store  storage.Store
	Bus    eventbus.Bus
	Log    logx.Logger
}

// StepReport describes one Step.
type StepReport struct {
	Tick     int64
	Advanced bool
	// Resumed is set when the step lifted a pause after ResumeAfterSteps.
	Resumed bool
	Expired  []int
	// Cycle is set when the step ran ProcessTriggers.
	Cycle *reminder.CycleReport
	Saved bool
}

// QuestDef seeds a quest. ExpiresIn counts ticks from the epoch passed to
// SeedQuests.
type QuestDef struct {
	ID        int
	Label     string
	ExpiresIn int64
}

// ReminderDef seeds a reminder; see BuildReminder.
type ReminderDef struct {
	Title       string
	Description string
	Severity    string
	Repeating   bool

	// Trigger: "time" or "quest-deadline".
	TriggerKind string
	At          int64
	In          int64
	Unit        string
	QuestID     int
	Lead        int64

	Notify *NotifyDef
}

type NotifyDef struct {
	Title       string
	Text        string
	Class       string
	PauseOnFire bool
}
