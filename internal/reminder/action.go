package reminder

import (
	"errors"
	"fmt"
	"strings"
)

type ActionKind string

const KindNotification ActionKind = "notification"

var ErrNoSink = errors.New("no notification sink")

// Action is an effect run when its reminder fires. The implementor set is
// closed; *NotificationAction is the only variant.
type Action interface {
	Kind() ActionKind
	Execute(env Env, r *Reminder) error
	Describe() string
	Clone() Action

	isAction()
}

// NotificationAction emits a notification through the host sink.
//
// Empty Title/Text fall back to the reminder's title and description.
// ClassAuto derives the class from the reminder's severity.
type NotificationAction struct {
	Title       string
	Text        string
	PauseOnFire bool
	Class       NotificationClass
}

func NewNotificationAction() *NotificationAction { return &NotificationAction{} }

func (a *NotificationAction) isAction() {}

func (a *NotificationAction) Kind() ActionKind { return KindNotification }

func (a *NotificationAction) Execute(env Env, r *Reminder) error {
	if r == nil {
		return errors.New("notification: nil reminder")
	}
	if env.Sink == nil {
		return ErrNoSink
	}

	n := Notification{
		Title: strings.TrimSpace(a.Title),
		Text:  strings.TrimSpace(a.Text),
		Class: a.Class,
	}
	if n.Title == "" {
		n.Title = r.Title
	}
	if n.Text == "" {
		n.Text = r.Description
	}
	if n.Class == ClassAuto {
		n.Class = ClassFor(r.Severity)
	}
	if qt, ok := r.Trigger.(*QuestDeadlineTrigger); ok {
		if q, found := env.findQuest(qt.QuestID); found {
			n.Quest = &QuestRef{ID: q.ID, Label: q.Label}
		}
	}

	if a.PauseOnFire || r.Severity >= SeverityCritical {
		env.Sink.RequestPause()
	}
	if err := env.Sink.Send(n); err != nil {
		return fmt.Errorf("notification send: %w", err)
	}
	return nil
}

func (a *NotificationAction) Describe() string {
	var b strings.Builder
	b.WriteString("notify")
	if a.Class != ClassAuto {
		b.WriteString(" as ")
		b.WriteString(a.Class.String())
	}
	if t := strings.TrimSpace(a.Title); t != "" {
		fmt.Fprintf(&b, " %q", t)
	}
	if a.PauseOnFire {
		b.WriteString(", pause game")
	}
	return b.String()
}

func (a *NotificationAction) Clone() Action {
	cp := *a
	return &cp
}
