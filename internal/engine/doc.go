// Package engine drives the simulation.
//
// A cron entry calls Step at a fixed wall-clock interval. Each step
// advances the host clock (unless paused), expires overdue quests and, once
// enough ticks have passed since the previous cycle, runs the reminder
// registry's ProcessTriggers. Snapshots are saved every few cycles and on
// Stop; fire and retire events are journaled to storage.
package engine
