package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"questminder/internal/eventbus"
	"questminder/internal/host"
	"questminder/internal/persistence"
	"questminder/internal/reminder"
	rtsup "questminder/internal/runtime/supervisor"
	"questminder/internal/storage"
	logx "questminder/pkg/logx"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// Service owns the reminder registry and the cadence that drives it.
type Service struct {
	mu  sync.Mutex
	cfg Config
	reg *reminder.Registry

	// stepMu serializes Step, Save and Restore.
	stepMu      sync.Mutex
	lastCycle   int64
	cycles      int
	pausedSteps int

	clock  *host.Clock
	quests *host.QuestBoard
	store  storage.Store
	deps   Deps
	log    logx.Logger

	env     reminder.Env
	adapter *persistence.Adapter
	session string

	c   *cron.Cron
	sup *rtsup.Supervisor
}

// New builds a stopped engine with an empty registry.
func New(cfg Config, deps Deps) *Service {
	log := deps.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	if deps.Clock == nil {
		deps.Clock = host.NewClock(0, log)
	}
	if deps.Quests == nil {
		deps.Quests = host.NewQuestBoard(log)
	}
	session := uuid.NewString()
	log = log.With(logx.String("session", session))

	env := reminder.Env{Clock: deps.Clock, Quests: deps.Quests, Sink: deps.Sink, Log: log.With(logx.String("comp", "reminder"))}
	opts := []reminder.Option{reminder.WithLogger(env.Log)}
	if deps.Bus != nil {
		opts = append(opts, reminder.WithEvents(deps.Bus))
	}

	s := &Service{
		cfg:       cfg.withDefaults(),
		clock:     deps.Clock,
		quests:    deps.Quests,
		store:     deps.Store,
		deps:      deps,
		log:       log,
		env:       env,
		adapter:   persistence.NewAdapter(env, log.With(logx.String("comp", "persistence")), opts...),
		session:   session,
		reg:       reminder.NewRegistry(env, opts...),
		lastCycle: deps.Clock.CurrentTick(),
	}
	return s
}

func (s *Service) Session() string { return s.session }

func (s *Service) Clock() *host.Clock { return s.clock }

func (s *Service) Quests() *host.QuestBoard { return s.quests }

// Registry returns the live registry. Restore replaces it.
func (s *Service) Registry() *reminder.Registry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg
}

func (s *Service) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Step advances the simulation once. It is what the cron entry runs and is
// exported so callers can drive the engine by hand.
func (s *Service) Step(ctx context.Context) StepReport {
	s.stepMu.Lock()
	defer s.stepMu.Unlock()

	cfg := s.Config()
	rep := StepReport{}
	if s.clock.Paused() {
		s.pausedSteps++
		if cfg.ResumeAfterSteps > 0 && s.pausedSteps > cfg.ResumeAfterSteps {
			s.clock.Resume()
			rep.Resumed = true
			s.log.Info("clock auto-resumed", logx.Int("held_steps", s.pausedSteps-1))
		}
	}
	if !s.clock.Paused() {
		s.pausedSteps = 0
		s.clock.Advance(cfg.TicksPerStep)
		rep.Advanced = true
	}
	now := s.clock.CurrentTick()
	rep.Tick = now
	rep.Expired = s.quests.Sweep(now)

	if now-s.lastCycle < cfg.CycleTicks {
		return rep
	}
	s.lastCycle = now
	cycle := s.Registry().ProcessTriggers()
	rep.Cycle = &cycle
	s.cycles++
	if cycle.Fired > 0 || cycle.Retired > 0 {
		s.log.Debug("cycle",
			logx.Int64("tick", cycle.Tick),
			logx.Int("fired", cycle.Fired),
			logx.Int("retired", cycle.Retired),
			logx.Int("failed", cycle.Failed),
		)
	}

	if cfg.AutosaveCycles > 0 && s.cycles%cfg.AutosaveCycles == 0 && s.store != nil {
		if err := s.saveLocked(ctx, cfg.Slot); err != nil {
			s.log.Warn("autosave failed", logx.Err(err))
		} else {
			rep.Saved = true
		}
	}
	return rep
}

// Resume lifts a pause on the clock; the next Step advances again.
func (s *Service) Resume() {
	s.stepMu.Lock()
	defer s.stepMu.Unlock()
	s.pausedSteps = 0
	s.clock.Resume()
}

// Save writes the registry to the configured slot.
func (s *Service) Save(ctx context.Context) error {
	s.stepMu.Lock()
	defer s.stepMu.Unlock()
	return s.saveLocked(ctx, s.Config().Slot)
}

func (s *Service) saveLocked(ctx context.Context, slot string) error {
	if s.store == nil {
		return storage.ErrDisabled
	}
	snap := s.adapter.Save(s.Registry())
	data, err := persistence.Encode(snap)
	if err != nil {
		return err
	}
	if err := s.store.SaveSnapshot(ctx, slot, data); err != nil {
		return fmt.Errorf("save slot %s: %w", slot, err)
	}
	s.log.Debug("snapshot saved", logx.String("slot", slot), logx.Int("reminders", len(snap.Reminders)))
	return nil
}

// Restore replaces the registry with the saved slot. found is false when
// nothing was saved yet. The clock moves forward to the saved tick.
func (s *Service) Restore(ctx context.Context) (rep persistence.LoadReport, found bool, err error) {
	if s.store == nil {
		return rep, false, storage.ErrDisabled
	}
	s.stepMu.Lock()
	defer s.stepMu.Unlock()

	slot := s.Config().Slot
	data, err := s.store.LoadSnapshot(ctx, slot)
	if errors.Is(err, storage.ErrNotFound) {
		return rep, false, nil
	}
	if err != nil {
		return rep, false, fmt.Errorf("load slot %s: %w", slot, err)
	}
	snap, err := s.adapter.Decode(data)
	if err != nil {
		return rep, true, err
	}
	s.clock.AdvanceTo(snap.SavedAtTick)

	reg, rep := s.adapter.Load(&snap)
	s.mu.Lock()
	s.reg = reg
	s.mu.Unlock()
	s.lastCycle = s.clock.CurrentTick()

	s.log.Info("snapshot restored",
		logx.String("slot", slot),
		logx.Int("loaded", rep.Loaded),
		logx.Int("skipped", rep.Skipped),
		logx.Int("degraded", rep.Degraded),
		logx.Bool("migrated", rep.Migrated),
	)
	return rep, true, nil
}

// Start schedules Step and starts the fire journal. It is idempotent.
func (s *Service) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}

	s.sup = rtsup.New(ctx, rtsup.WithLogger(s.log))
	if s.store != nil && s.deps.Bus != nil {
		events, unsub := s.deps.Bus.Subscribe(256, reminder.EventFired, reminder.EventRetired)
		s.sup.GoRestart("engine.journal", func(c context.Context) error {
			return s.journalLoop(c, events)
		})
		go func() {
			<-s.sup.Context().Done()
			unsub()
		}()
	}

	c, err := s.newCronLocked(s.sup.Context())
	if err != nil {
		s.sup.Cancel()
		s.sup = nil
		return err
	}
	s.c = c
	c.Start()
	s.log.Info("engine started",
		logx.Duration("step_interval", s.cfg.StepInterval),
		logx.Int64("ticks_per_step", s.cfg.TicksPerStep),
		logx.Int64("cycle_ticks", s.cfg.CycleTicks),
		logx.Int("resume_after_steps", s.cfg.ResumeAfterSteps),
		logx.Int64("tick", s.clock.CurrentTick()),
	)
	return nil
}

func (s *Service) newCronLocked(ctx context.Context) (*cron.Cron, error) {
	cl := cronLogger{log: s.log.With(logx.String("comp", "cron"))}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	spec := "@every " + s.cfg.StepInterval.String()
	if _, err := c.AddFunc(spec, func() { s.Step(ctx) }); err != nil {
		return nil, fmt.Errorf("schedule %q: %w", spec, err)
	}
	return c, nil
}

// Apply swaps the config. A running engine reschedules when the step
// interval changed.
func (s *Service) Apply(cfg Config) {
	cfg = cfg.withDefaults()
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.cfg
	s.cfg = cfg
	if s.c == nil || old.StepInterval == cfg.StepInterval {
		return
	}
	<-s.c.Stop().Done()
	c, err := s.newCronLocked(s.sup.Context())
	if err != nil {
		s.log.Error("reschedule failed; keeping previous interval", logx.Err(err))
		s.cfg.StepInterval = old.StepInterval
		c, _ = s.newCronLocked(s.sup.Context())
	}
	s.c = c
	c.Start()
	s.log.Info("engine rescheduled", logx.Duration("step_interval", s.cfg.StepInterval))
}

// Stop halts the cadence, waits for a running step and saves a final
// snapshot.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	c, sup := s.c, s.sup
	s.c, s.sup = nil, nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}

	var err error
	if s.store != nil {
		if err = s.Save(ctx); err != nil {
			s.log.Warn("final save failed", logx.Err(err))
		}
	}
	if sup != nil {
		if werr := sup.Stop(ctx); werr != nil && err == nil && !errors.Is(werr, context.Canceled) {
			err = werr
		}
	}
	s.log.Info("engine stopped", logx.Int64("tick", s.clock.CurrentTick()))
	return err
}

func (s *Service) journalLoop(ctx context.Context, events <-chan eventbus.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-events:
			if !ok {
				return nil
			}
			ev, ok := e.Data.(reminder.Event)
			if !ok {
				continue
			}
			entry := storage.FireEntry{
				At:           e.Time,
				Session:      s.session,
				Event:        e.Type,
				Tick:         ev.Tick,
				ReminderID:   ev.ReminderID,
				Title:        ev.Title,
				Severity:     ev.Severity,
				ActionErrors: ev.ActionErrors,
			}
			wctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			if err := s.store.AppendFire(wctx, entry); err != nil {
				s.log.Warn("journal append failed", logx.Int("reminder_id", ev.ReminderID), logx.Err(err))
			}
			cancel()
		}
	}
}
