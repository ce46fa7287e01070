package reminder

import (
	"fmt"
	"strings"
)

type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
	SeverityUrgent
)

var severityNames = [...]string{"low", "medium", "high", "critical", "urgent"}

func (s Severity) String() string {
	if s < SeverityLow || s > SeverityUrgent {
		return fmt.Sprintf("severity(%d)", int(s))
	}
	return severityNames[s]
}

func (s Severity) Valid() bool { return s >= SeverityLow && s <= SeverityUrgent }

// ParseSeverity accepts the lower-case names used in config and snapshots.
func ParseSeverity(raw string) (Severity, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	for i, n := range severityNames {
		if n == v {
			return Severity(i), nil
		}
	}
	return SeverityLow, fmt.Errorf("unknown severity %q", raw)
}

// NotificationClass is how loudly the host should surface a notification.
// ClassAuto means "derive from the reminder's severity".
type NotificationClass int

const (
	ClassAuto NotificationClass = iota
	ClassInfo
	ClassNotice
	ClassWarning
	ClassAlert
	ClassCritical
)

var classNames = [...]string{"auto", "info", "notice", "warning", "alert", "critical"}

func (c NotificationClass) String() string {
	if c < ClassAuto || c > ClassCritical {
		return fmt.Sprintf("class(%d)", int(c))
	}
	return classNames[c]
}

func ParseNotificationClass(raw string) (NotificationClass, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return ClassAuto, nil
	}
	for i, n := range classNames {
		if n == v {
			return NotificationClass(i), nil
		}
	}
	return ClassAuto, fmt.Errorf("unknown notification class %q", raw)
}

// ClassFor maps severity onto a class. The mapping is monotonic.
func ClassFor(s Severity) NotificationClass {
	switch {
	case s <= SeverityLow:
		return ClassInfo
	case s == SeverityMedium:
		return ClassNotice
	case s == SeverityHigh:
		return ClassWarning
	case s == SeverityCritical:
		return ClassAlert
	default:
		return ClassCritical
	}
}
