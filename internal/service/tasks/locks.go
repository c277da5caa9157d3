package tasks

import "sync"

// userLocks serializes scheduling operations per assignee. Conflicts
// are always scoped to a single user, so holding the effective
// assignee's lock across scan, validate and write closes the
// read-then-write race. In a multi-instance deployment this would
// move to a Postgres advisory lock keyed on the user id.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *userLocks) lock(userID string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
