package sync

import gosync "sync"

// ConnLocks guarantees at most one reconciliation per connection at a time.
// Different connections do not block each other.
type ConnLocks struct {
	mu   gosync.Mutex
	held map[string]struct{}
}

// NewConnLocks returns an empty lock set.
func NewConnLocks() *ConnLocks {
	return &ConnLocks{held: make(map[string]struct{})}
}

// TryLock claims connectionID without blocking. When ok is true the caller
// must call unlock exactly once; calling it again is a no-op.
func (l *ConnLocks) TryLock(connectionID string) (unlock func(), ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[connectionID]; busy {
		return nil, false
	}
	l.held[connectionID] = struct{}{}

	var once gosync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, connectionID)
			l.mu.Unlock()
		})
	}, true
}

// Held reports whether connectionID is currently locked.
func (l *ConnLocks) Held(connectionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, busy := l.held[connectionID]
	return busy
}
