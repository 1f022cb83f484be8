// Package locks provides per-expense mutual exclusion for decision
// processing. The read-decide-write sequence for one expense must not
// interleave with another for the same expense; decisions on different
// expenses are independent.
package locks

import (
	"context"
	"sync"
)

// Locker serializes work per key. Acquire blocks until the key is held
// or ctx is done; the returned release function must be called exactly
// once.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// KeyedMutex is the in-process Locker used by single-instance
// deployments and tests. Entries are dropped once no goroutine holds
// or waits on a key.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewKeyedMutex creates an empty keyed mutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*entry)}
}

// Acquire locks the given key. The context is checked before waiting;
// in-process waits are expected to be short since engine transactions
// never perform network calls while holding the lock.
func (km *KeyedMutex) Acquire(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	km.mu.Lock()

	e, ok := km.entries[key]
	if !ok {
		e = &entry{}
		km.entries[key] = e
	}

	e.refs++
	km.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		km.mu.Lock()

		e.refs--
		if e.refs == 0 {
			delete(km.entries, key)
		}

		km.mu.Unlock()
	}, nil
}
