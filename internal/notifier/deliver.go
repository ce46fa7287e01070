package notifier

import (
	"context"

	"questminder/internal/reminder"
	logx "questminder/pkg/logx"
)

// LogDeliverer writes notifications as log lines. Alert and critical
// classes log at warn level.
type LogDeliverer struct {
	Log logx.Logger
}

func (d LogDeliverer) Deliver(ctx context.Context, n reminder.Notification) error {
	_ = ctx
	fields := []logx.Field{
		logx.String("title", n.Title),
		logx.String("class", n.Class.String()),
	}
	if n.Text != "" {
		fields = append(fields, logx.String("text", n.Text))
	}
	if n.Quest != nil {
		fields = append(fields, logx.Int("quest_id", n.Quest.ID), logx.String("quest", n.Quest.Label))
	}
	if n.Class >= reminder.ClassAlert {
		d.Log.Warn("notification", fields...)
	} else {
		d.Log.Info("notification", fields...)
	}
	return nil
}
