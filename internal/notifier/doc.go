// Package notifier delivers reminder notifications on the host side.
//
// Send only enqueues, so it is safe to call while the reminder registry
// holds its lock. Workers drain the queue under a token-bucket rate limit,
// retrying failed deliveries with backoff. Identical notifications inside
// the dedup window are suppressed.
//
// # Delivery
//
// Delivery goes through a Deliverer. The default LogDeliverer writes one
// structured log line per notification.
//
// # History
//
// The service keeps a short in-memory history of delivered notifications
// for diagnostics and tests.
package notifier
