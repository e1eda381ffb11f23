// Package schedule holds the pure calendar algorithms: interval overlap
// checks and the reconciliation of availability blocks against booked
// sessions into the public slot view.
package schedule
