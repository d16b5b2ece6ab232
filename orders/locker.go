package orders

import (
	"context"
	"sync"
	"time"
)

// LocalLocker is an in-process Locker for single-instance deployments
// running without Redis.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]time.Time
	now  func() time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]time.Time), now: time.Now}
}

func (l *LocalLocker) Acquire(_ context.Context, name string, ttl time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if exp, ok := l.held[name]; ok && now.Before(exp) {
		return func() {}, false, nil
	}
	exp := now.Add(ttl)
	l.held[name] = exp
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		// a lock that expired and was re-taken belongs to someone else
		if l.held[name] == exp {
			delete(l.held, name)
		}
	}, true, nil
}
