package cache

import (
	"context"
	"sync"

	"github.com/storefront/merchandising/internal/domain/shared"
)

// InMemoryKeyedLocker serializes callers per key inside one process.
// Entries are reference counted and dropped once the last holder or waiter
// leaves, so the map only holds keys that are in use.
type InMemoryKeyedLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

// keyLock is a one-slot semaphore; a channel lets waiters honour ctx.
type keyLock struct {
	sem  chan struct{}
	refs int
}

// NewInMemoryKeyedLocker creates a new in-process keyed locker
func NewInMemoryKeyedLocker() *InMemoryKeyedLocker {
	return &InMemoryKeyedLocker{locks: make(map[string]*keyLock)}
}

// Lock blocks until key is free or ctx is done
func (l *InMemoryKeyedLocker) Lock(ctx context.Context, key string) (shared.UnlockFunc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	kl := l.acquireRef(key)
	select {
	case kl.sem <- struct{}{}:
	case <-ctx.Done():
		l.releaseRef(key, kl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-kl.sem
			l.releaseRef(key, kl)
		})
	}, nil
}

// Len returns the number of keys currently held or awaited
func (l *InMemoryKeyedLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func (l *InMemoryKeyedLocker) acquireRef(key string) *keyLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{sem: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	return kl
}

func (l *InMemoryKeyedLocker) releaseRef(key string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}

var _ shared.KeyedLocker = (*InMemoryKeyedLocker)(nil)
