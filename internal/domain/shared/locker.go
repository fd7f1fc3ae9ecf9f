package shared

import "context"

// UnlockFunc releases a lock previously acquired with KeyedLocker.Lock.
// It is safe to call more than once.
type UnlockFunc func()

// KeyedLocker serializes work per key. Implementations block until the
// lock is acquired or ctx is done.
type KeyedLocker interface {
	Lock(ctx context.Context, key string) (UnlockFunc, error)
}
