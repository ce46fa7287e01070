// Package storage keeps saved reminder snapshots and the fire journal.
//
// Snapshots are opaque byte blobs addressed by slot name; encoding them is
// the persistence package's job. The journal is append-only and records
// every firing and retirement the engine observes.
package storage
