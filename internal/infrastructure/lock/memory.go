package lock

import (
	"context"
	"sync"
	"time"
)

type lease struct {
	token     string
	expiresAt time.Time
}

// MemoryLocker serialises runs within one process
type MemoryLocker struct {
	mu     sync.Mutex
	leases map[string]lease
	now    func() time.Time
}

// NewMemoryLocker creates an in-process locker
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{leases: make(map[string]lease), now: time.Now}
}

// Acquire takes the named lease unless a live one exists
func (l *MemoryLocker) Acquire(_ context.Context, name string, ttl time.Duration) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if cur, ok := l.leases[name]; ok && now.Before(cur.expiresAt) {
		return nil, held(name)
	}
	token := newToken()
	l.leases[name] = lease{token: token, expiresAt: now.Add(ttlOrDefault(ttl))}

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		// an expired lease may have been taken over; leave the new holder alone
		if cur, ok := l.leases[name]; ok && cur.token == token {
			delete(l.leases, name)
		}
		return nil
	}, nil
}

// Held reports whether name has a live lease
func (l *MemoryLocker) Held(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	cur, ok := l.leases[name]
	return ok && l.now().Before(cur.expiresAt)
}

var _ Locker = (*MemoryLocker)(nil)
