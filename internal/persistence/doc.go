// Package persistence converts a reminder.Registry to and from a versioned
// snapshot that the host stores with its save data.
//
// # Wire format
//
// A snapshot is a JSON object with an integer schemaVersion and an ordered
// list of reminder records. Triggers and actions are tagged records: a JSON
// object whose "kind" names the variant and whose remaining keys form the
// field table for that variant, e.g.
//
//	{"kind": "quest-deadline", "questId": 12, "leadTicks": 2500}
//
// Tags are decoded through a table of constructors; there is no
// reflection-based polymorphism.
//
// # Versions
//
//   - 1: triggers tagged by "type" with class names (TimeTrigger,
//     QuestDeadlineTrigger), relative offsets in "offsetTicks", numeric
//     severity, and one implicit notification configured by the record's
//     "pauseOnFire".
//   - 2: "kind" tags (time, quest-deadline), explicit actions, and relative
//     offsets as magnitude + unit.
//   - 3: trigger firing state is persisted (fired, retired, last fired
//     target/expiry, computed quest target).
//
// Older snapshots are migrated record by record. A record that cannot be
// migrated keeps its identity and text and loses its trigger.
package persistence
