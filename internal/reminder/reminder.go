package reminder

import (
	"fmt"
	"runtime/debug"
	"strings"

	logx "questminder/pkg/logx"
)

// Reminder binds one trigger to an ordered list of actions.
//
// ID is assigned by the Registry. LastTriggeredAt is only set by Fire.
type Reminder struct {
	ID          int
	Title       string
	Description string
	Severity    Severity

	Active    bool
	Repeating bool

	CreatedAt       int64
	LastTriggeredAt int64

	Trigger Trigger
	Actions []Action
}

// New returns an active, non-repeating reminder without trigger or actions.
func New(title, description string, severity Severity) *Reminder {
	return &Reminder{
		Title:       title,
		Description: description,
		Severity:    severity,
		Active:      true,
	}
}

// Valid reports whether the reminder may enter a registry.
func (r *Reminder) Valid() bool {
	return r != nil && strings.TrimSpace(r.Title) != ""
}

func (r *Reminder) ShouldTrigger(env Env) bool {
	return r.Active && r.Trigger != nil && r.Trigger.Evaluate(env)
}

// Fire runs every action in order, then updates firing state. A failing or
// panicking action is logged and does not stop the actions after it. The
// returned slice holds one error per failed action.
func (r *Reminder) Fire(env Env) []error {
	var errs []error
	for i, a := range r.Actions {
		if a == nil {
			continue
		}
		if err := runAction(env, r, a); err != nil {
			env.Log.Warn("reminder action failed",
				logx.Int("reminder_id", r.ID),
				logx.Int("action", i),
				logx.String("kind", string(a.Kind())),
				logx.Err(err),
			)
			errs = append(errs, err)
		}
	}

	now := env.Now()
	r.LastTriggeredAt = now
	if r.Repeating && r.Trigger != nil {
		r.Trigger.Reset(now)
		r.Trigger.Refresh(env)
	} else {
		r.Active = false
	}
	return errs
}

func runAction(env Env, r *Reminder, a Action) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("action panicked: %v", p)
			env.Log.Debug("action panic stack", logx.String("stack", string(debug.Stack())))
		}
	}()
	return a.Execute(env, r)
}

func (r *Reminder) Describe(env Env) string {
	trig := "no trigger"
	if r.Trigger != nil {
		trig = r.Trigger.Describe(env)
	}
	state := "active"
	if !r.Active {
		state = "completed"
	}
	if r.Repeating {
		state += ", repeating"
	}
	return fmt.Sprintf("#%d [%s] %s: %s (%s)", r.ID, r.Severity, r.Title, trig, state)
}

// Clone deep-copies the reminder including its trigger and actions.
func (r *Reminder) Clone() *Reminder {
	if r == nil {
		return nil
	}
	cp := *r
	if r.Trigger != nil {
		cp.Trigger = r.Trigger.Clone()
	}
	if r.Actions != nil {
		cp.Actions = make([]Action, 0, len(r.Actions))
		for _, a := range r.Actions {
			if a != nil {
				cp.Actions = append(cp.Actions, a.Clone())
			}
		}
	}
	return &cp
}
