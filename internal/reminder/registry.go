package reminder

import (
	"fmt"
	"runtime/debug"
	"sync"

	"questminder/internal/eventbus"
	logx "questminder/pkg/logx"
)

// Event types published on the bus.
const (
	EventAdded   = "reminder.added"
	EventUpdated = "reminder.updated"
	EventRemoved = "reminder.removed"
	EventFired   = "reminder.fired"
	EventRetired = "reminder.retired"
	EventCleared = "reminder.cleared"
)

// Event is the payload of reminder.* bus events.
type Event struct {
	ReminderID   int    `json:"reminder_id"`
	Title        string `json:"title,omitempty"`
	Severity     string `json:"severity,omitempty"`
	Tick         int64  `json:"tick"`
	ActionErrors int    `json:"action_errors,omitempty"`
	Count        int    `json:"count,omitempty"`
}

// CycleReport summarizes one ProcessTriggers call.
type CycleReport struct {
	Tick         int64
	Evaluated    int
	Fired        int
	Retired      int
	Failed       int
	ActionErrors int
}

type Option func(*Registry)

func WithLogger(log logx.Logger) Option {
	return func(g *Registry) { g.log = log }
}

// WithEvents publishes lifecycle events to bus.
func WithEvents(bus eventbus.Bus) Option {
	return func(g *Registry) { g.bus = bus }
}

// Registry owns the authoritative reminder collection.
//
// It is safe for concurrent use; every public method holds one mutex for its
// whole duration.
type Registry struct {
	mu sync.Mutex

	env Env
	log logx.Logger
	bus eventbus.Bus

	reminders []*Reminder
	nextID    int
}

func NewRegistry(env Env, opts ...Option) *Registry {
	g := &Registry{nextID: 1}
	for _, o := range opts {
		if o != nil {
			o(g)
		}
	}
	if g.log.IsZero() {
		g.log = env.Log
	}
	if g.log.IsZero() {
		g.log = logx.Nop()
	}
	env.Log = g.log
	g.env = env
	return g
}

// Env returns the collaborators this registry evaluates against.
func (g *Registry) Env() Env {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.env
}

// Add stores a copy of rem under a fresh id and sets rem.ID. Invalid
// reminders are logged and rejected with ok=false.
func (g *Registry) Add(rem *Reminder) (id int, ok bool) {
	if rem == nil {
		g.log.Warn("reminder rejected", logx.String("reason", "nil reminder"))
		return 0, false
	}
	if !rem.Valid() {
		g.log.Warn("reminder rejected", logx.String("reason", "empty title"))
		return 0, false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	id = g.nextID
	g.nextID++

	cp := rem.Clone()
	cp.ID = id
	if cp.CreatedAt == 0 {
		cp.CreatedAt = g.env.Now()
	}
	g.refreshLocked(cp)
	rem.ID = id
	rem.CreatedAt = cp.CreatedAt
	g.reminders = append(g.reminders, cp)

	g.log.Debug("reminder added", logx.Int("reminder_id", id), logx.String("title", cp.Title))
	g.publish(EventAdded, Event{ReminderID: id, Title: cp.Title, Severity: cp.Severity.String(), Tick: cp.CreatedAt})
	return id, true
}

func (g *Registry) Remove(id int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.indexLocked(id)
	if i < 0 {
		return false
	}
	g.reminders = append(g.reminders[:i], g.reminders[i+1:]...)
	g.publish(EventRemoved, Event{ReminderID: id, Tick: g.env.Now()})
	return true
}

// Get returns a copy of the reminder with the given id.
func (g *Registry) Get(id int) (*Reminder, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.indexLocked(id)
	if i < 0 {
		return nil, false
	}
	return g.reminders[i].Clone(), true
}

// Update replaces the stored reminder that has rem.ID.
func (g *Registry) Update(rem *Reminder) bool {
	if !rem.Valid() {
		g.log.Warn("reminder update rejected", logx.String("reason", "empty title"))
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.indexLocked(rem.ID)
	if i < 0 {
		g.log.Warn("reminder update ignored", logx.Int("reminder_id", rem.ID), logx.String("reason", "no such id"))
		return false
	}
	cp := rem.Clone()
	if cp.CreatedAt == 0 {
		cp.CreatedAt = g.reminders[i].CreatedAt
	}
	g.refreshLocked(cp)
	g.reminders[i] = cp
	g.publish(EventUpdated, Event{ReminderID: cp.ID, Title: cp.Title, Tick: g.env.Now()})
	return true
}

// ProcessTriggers evaluates every active reminder and fires the due ones.
//
// All triggers are evaluated against one frozen tick before any action
// runs, so firing a reminder never changes another reminder's decision in
// the same cycle. A panic in one reminder is logged and counted in Failed.
func (g *Registry) ProcessTriggers() CycleReport {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.env.Now()
	env := g.env.at(now)
	rep := CycleReport{Tick: now}

	active := make([]*Reminder, 0, len(g.reminders))
	for _, r := range g.reminders {
		if r.Active {
			active = append(active, r)
		}
	}

	var due []*Reminder
	for _, r := range active {
		rep.Evaluated++
		fire, ok := g.evaluate(env, r)
		switch {
		case !ok:
			rep.Failed++
		case fire:
			due = append(due, r)
		case r.Trigger != nil && r.Trigger.Retired():
			r.Active = false
			rep.Retired++
			g.publish(EventRetired, Event{ReminderID: r.ID, Title: r.Title, Tick: now})
		}
	}

	for _, r := range due {
		errs, ok := g.fire(env, r)
		if !ok {
			rep.Failed++
			continue
		}
		rep.Fired++
		rep.ActionErrors += len(errs)
		g.log.Info("reminder fired",
			logx.Int("reminder_id", r.ID),
			logx.String("title", r.Title),
			logx.Int64("tick", now),
			logx.Int("action_errors", len(errs)),
		)
		g.publish(EventFired, Event{ReminderID: r.ID, Title: r.Title, Severity: r.Severity.String(), Tick: now, ActionErrors: len(errs)})
	}
	return rep
}

func (g *Registry) evaluate(env Env, r *Reminder) (fire, ok bool) {
	defer func() {
		if p := recover(); p != nil {
			g.log.Error("reminder evaluation panicked",
				logx.Int("reminder_id", r.ID),
				logx.Any("panic", p),
				logx.String("stack", string(debug.Stack())),
			)
			fire, ok = false, false
		}
	}()
	return r.ShouldTrigger(env), true
}

func (g *Registry) fire(env Env, r *Reminder) (errs []error, ok bool) {
	defer func() {
		if p := recover(); p != nil {
			g.log.Error("reminder fire panicked",
				logx.Int("reminder_id", r.ID),
				logx.Any("panic", p),
				logx.String("stack", string(debug.Stack())),
			)
			errs, ok = []error{fmt.Errorf("fire panicked: %v", p)}, false
		}
	}()
	return r.Fire(env), true
}

// ClearCompleted drops every inactive reminder and returns how many went.
func (g *Registry) ClearCompleted() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	kept := g.reminders[:0]
	n := 0
	for _, r := range g.reminders {
		if r.Active {
			kept = append(kept, r)
			continue
		}
		n++
	}
	for i := len(kept); i < len(g.reminders); i++ {
		g.reminders[i] = nil
	}
	g.reminders = kept
	if n > 0 {
		g.publish(EventCleared, Event{Tick: g.env.Now(), Count: n})
	}
	return n
}

// All returns copies of every reminder in insertion order.
func (g *Registry) All() []*Reminder { return g.filter(func(*Reminder) bool { return true }) }

func (g *Registry) Active() []*Reminder { return g.filter(func(r *Reminder) bool { return r.Active }) }

func (g *Registry) Completed() []*Reminder {
	return g.filter(func(r *Reminder) bool { return !r.Active })
}

func (g *Registry) filter(keep func(*Reminder) bool) []*Reminder {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Reminder, 0, len(g.reminders))
	for _, r := range g.reminders {
		if keep(r) {
			out = append(out, r.Clone())
		}
	}
	return out
}

func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.reminders)
}

// NextID is the id the next Add will assign.
func (g *Registry) NextID() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.nextID
}

// Restore replaces the collection with copies of rems, keeping their ids.
// Invalid entries and duplicate ids are skipped. The id counter continues
// from the highest id seen.
func (g *Registry) Restore(rems []*Reminder) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	seen := make(map[int]struct{}, len(rems))
	out := make([]*Reminder, 0, len(rems))
	maxID := 0
	for _, r := range rems {
		if !r.Valid() || r.ID <= 0 {
			g.log.Warn("restore skipped reminder", logx.String("reason", "invalid"))
			continue
		}
		if _, dup := seen[r.ID]; dup {
			g.log.Warn("restore skipped reminder", logx.Int("reminder_id", r.ID), logx.String("reason", "duplicate id"))
			continue
		}
		seen[r.ID] = struct{}{}
		if r.ID > maxID {
			maxID = r.ID
		}
		out = append(out, r.Clone())
	}
	g.reminders = out
	if maxID+1 > g.nextID {
		g.nextID = maxID + 1
	}
	return len(out)
}

// refreshLocked lets a new or replaced trigger compute its target now so
// descriptions are accurate before the first cycle.
func (g *Registry) refreshLocked(r *Reminder) {
	if r.Trigger == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			g.log.Error("trigger refresh panicked", logx.Int("reminder_id", r.ID), logx.Any("panic", p))
		}
	}()
	r.Trigger.Refresh(g.env)
}

func (g *Registry) indexLocked(id int) int {
	for i, r := range g.reminders {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (g *Registry) publish(typ string, ev Event) {
	if g.bus == nil {
		return
	}
	g.bus.Publish(eventbus.Event{Type: typ, Data: ev})
}
