// Package keylock provides a per-key mutex arena. Operations against the same
// key serialize; operations against different keys proceed in parallel. Lock
// entries are reference-counted and reclaimed once the last holder releases,
// so the arena does not grow with the number of keys ever seen.
package keylock

import (
	"context"
	"sync"

	dErrors "sapphire/pkg/domain-errors"
)

type entry struct {
	mu   sync.Mutex
	refs int
}

// Arena hands out per-key locks.
type Arena struct {
	mu    sync.Mutex
	locks map[string]*entry
}

func New() *Arena {
	return &Arena{locks: make(map[string]*entry)}
}

// Acquire blocks until the lock for key is held or ctx is cancelled. On
// success it returns a release function which must be called exactly once.
func (a *Arena) Acquire(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "lock acquisition aborted: context cancelled")
	}

	a.mu.Lock()
	e, ok := a.locks[key]
	if !ok {
		e = &entry{}
		a.locks[key] = e
	}
	e.refs++
	a.mu.Unlock()

	acquired := make(chan struct{})
	go func() {
		e.mu.Lock()
		close(acquired)
	}()

	select {
	case <-acquired:
		return func() {
			e.mu.Unlock()
			a.release(key, e)
		}, nil
	case <-ctx.Done():
		// The goroutine will still obtain the mutex eventually; hand the
		// release off so the entry is not leaked.
		go func() {
			<-acquired
			e.mu.Unlock()
			a.release(key, e)
		}()
		return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "lock acquisition aborted: context cancelled")
	}
}

func (a *Arena) release(key string, e *entry) {
	a.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(a.locks, key)
	}
	a.mu.Unlock()
}

// Len reports the number of live lock entries. Exposed for tests and metrics.
func (a *Arena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.locks)
}
