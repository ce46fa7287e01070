// Package host simulates the world the reminders live in: a tick clock the
// engine advances and a board of quests awaiting the player's decision.
package host
