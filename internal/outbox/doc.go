// Package outbox delivers entity changes to the external sync target with
// at-least-once semantics.
//
// Producers call Enqueuer.Enqueue after their primary write commits. The
// Dispatcher polls pending tasks, claims each one with a conditional update
// so that concurrent workers never share a task, and pushes it to a
// SyncTarget. Failed deliveries return to pending until the attempt cap is
// reached, after which the task is parked as failed for an operator to
// inspect and replay. Claims held longer than the stale timeout are returned
// to pending by a background reclaimer.
package outbox
