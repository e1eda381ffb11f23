// Package mocks provides in-memory implementations of the store interfaces
// and the transaction runner for testing.
//
// The fakes keep their data in maps guarded by a mutex, so they can be shared
// by concurrent goroutines in dispatcher and handler tests. Each fake also
// exposes optional function fields and error fields that override the default
// behavior of a single method:
//
//	sessions := mocks.NewMockSessionStore()
//	sessions.CreateErr = errors.New("boom")
//
// MockTxRunner passes a nil *sql.Tx to the transaction function. The fakes
// return themselves from WithTx, so services run unchanged against them.
// Units of work are not serialized by the runner; MockSessionStore.LockMentor
// provides the per-mentor exclusion a real transaction gets from its
// advisory lock.
// The fakes cannot roll back, which means writes made before an error inside
// a unit of work stay visible.
package mocks
