package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/mentorbook-api/internal/store"
)

// MockTxRunner implements store.TxRunner without a database.
// Units of work run concurrently; locks taken through MockSessionStore.LockMentor
// are held until the unit of work returns, like Postgres transaction-scoped
// advisory locks.
type MockTxRunner struct {
	mu    sync.Mutex
	calls int

	// Err is returned before fn runs when set.
	Err error
}

var _ store.TxRunner = (*MockTxRunner)(nil)

// NewMockTxRunner creates a runner that always executes fn.
func NewMockTxRunner() *MockTxRunner {
	return &MockTxRunner{}
}

// Calls returns the number of RunInTx invocations.
func (m *MockTxRunner) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// RunInTx implements store.TxRunner.
func (m *MockTxRunner) RunInTx(ctx context.Context, fn store.TxFn) error {
	m.mu.Lock()
	m.calls++
	err := m.Err
	m.mu.Unlock()
	if err != nil {
		return err
	}

	locks := &txLocks{held: make(map[any]struct{})}
	defer locks.releaseAll()
	return fn(context.WithValue(ctx, txLocksKey{}, locks), nil)
}

type txLocksKey struct{}

// txLocks tracks the locks a unit of work holds. Acquiring a lock it already
// holds is a no-op.
type txLocks struct {
	mu       sync.Mutex
	held     map[any]struct{}
	releases []func()
}

func (l *txLocks) has(key any) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[key]
	return ok
}

func (l *txLocks) add(key any, release func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held[key] = struct{}{}
	l.releases = append(l.releases, release)
}

func (l *txLocks) releaseAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.releases) - 1; i >= 0; i-- {
		l.releases[i]()
	}
	l.releases = nil
	l.held = make(map[any]struct{})
}

// acquireForTx locks lock until the unit of work in ctx ends. Outside a unit
// of work the lock is released immediately.
func acquireForTx(ctx context.Context, key any, lock *sync.Mutex) {
	locks, _ := ctx.Value(txLocksKey{}).(*txLocks)
	if locks == nil {
		lock.Lock()
		lock.Unlock()
		return
	}
	if locks.has(key) {
		return
	}
	lock.Lock()
	locks.add(key, lock.Unlock)
}
