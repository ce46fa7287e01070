// Package reminder is the in-process scheduling engine behind questminder.
//
// # Model
//
// A Reminder owns exactly one Trigger and an ordered list of Actions. The
// Registry holds every reminder and is pumped by the host at a fixed cadence
// through ProcessTriggers. Time is measured only in host ticks.
//
// # Triggers
//
// The trigger set is closed:
//
//   - TimeTrigger fires once the current tick reaches an absolute target.
//     Relative triggers derive that target from "now" plus an offset.
//   - QuestDeadlineTrigger fires a lead time before a quest expires. The
//     quest is looked up by id on every evaluation; if it has vanished or
//     has been decided, the trigger retires without firing.
//
// A trigger reports true from Evaluate at most once per Reset.
//
// # Concurrency
//
// All Registry operations take one coarse mutex. Actions run while that
// mutex is held, so an action (or the sink behind it) must not call back
// into the registry synchronously.
package reminder
