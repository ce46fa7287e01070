package persistence

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const CurrentSchemaVersion = 3

type Snapshot struct {
	SchemaVersion int      `json:"schemaVersion"`
	SavedAtTick   int64    `json:"savedAtTick"`
	Reminders     []Record `json:"reminders"`
}

// Record is one persisted reminder.
type Record struct {
	ID              int          `json:"id"`
	Title           string       `json:"title"`
	Description     string       `json:"description,omitempty"`
	Severity        SeverityText `json:"severity"`
	Active          bool         `json:"active"`
	Repeating       bool         `json:"repeating,omitempty"`
	CreatedAt       int64        `json:"createdAt"`
	LastTriggeredAt int64        `json:"lastTriggeredAt,omitempty"`

	Trigger *Tagged  `json:"trigger,omitempty"`
	Actions []Tagged `json:"actions,omitempty"`

	// PauseOnFire only appears in version 1 records.
	PauseOnFire *bool `json:"pauseOnFire,omitempty"`
}

// Encode renders a snapshot as indented JSON.
func Encode(s Snapshot) ([]byte, error) {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return b, nil
}

type rawSnapshot struct {
	SchemaVersion int               `json:"schemaVersion"`
	SavedAtTick   int64             `json:"savedAtTick"`
	Reminders     []json.RawMessage `json:"reminders"`
}

// Decode parses a snapshot. Only an unreadable envelope is an error; a
// record that cannot be parsed is left out.
func Decode(data []byte) (Snapshot, error) {
	s, _, err := decode(data)
	return s, err
}

// decode also returns the positions of the records it dropped.
func decode(data []byte) (Snapshot, []int, error) {
	var raw rawSnapshot
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return Snapshot{}, nil, fmt.Errorf("decode snapshot: %w", err)
	}

	s := Snapshot{
		SchemaVersion: raw.SchemaVersion,
		SavedAtTick:   raw.SavedAtTick,
		Reminders:     make([]Record, 0, len(raw.Reminders)),
	}
	var malformed []int
	for i, rm := range raw.Reminders {
		var rec Record
		if err := json.Unmarshal(rm, &rec); err != nil {
			malformed = append(malformed, i)
			continue
		}
		s.Reminders = append(s.Reminders, rec)
	}
	return s, malformed, nil
}
