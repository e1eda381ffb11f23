// Package booking implements the mentor calendar write path: booking,
// rescheduling and closing sessions, and managing availability blocks.
//
// Every write to a mentor's calendar runs in one unit of work that first
// takes the mentor's calendar lock and then consults the ConflictDetector,
// so two concurrent requests for overlapping windows can never both succeed.
// After the unit of work commits, a mentor sync task is handed to the outbox;
// failures there are logged by the outbox and never reach the caller.
package booking
