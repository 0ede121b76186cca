package state

import "sync"

// Locks serializes workflow runs per thread. At most one turn can mutate a
// thread's state at a time; different threads proceed independently.
type Locks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLocks creates an empty lock set.
func NewLocks() *Locks {
	return &Locks{locks: make(map[string]*sync.Mutex)}
}

// Acquire blocks until the lock for threadID is held, returning the release
// function. Locks are created on first use and kept for the process lifetime.
func (l *Locks) Acquire(threadID string) (release func()) {
	l.mu.Lock()
	lock, ok := l.locks[threadID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[threadID] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
