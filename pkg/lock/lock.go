// Package lock provides per-entity mutual exclusion used to serialize
// transfer mutations. A Redis SetNX implementation lives under
// infra/lock for multi-instance deployments; the in-process
// implementation here serves single-instance runs and tests.
package lock

import (
	"context"
	"sync"
	"time"
)

// Locker serializes work keyed by an entity id.
type Locker interface {
	// Acquire takes the lock for key, waiting up to the context deadline.
	// The returned release function must be called exactly once. ok is
	// false when the lock could not be obtained.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// Memory is an in-process Locker.
type Memory struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

// NewMemory creates an in-process Locker.
func NewMemory() *Memory {
	return &Memory{locks: make(map[string]chan struct{})}
}

// Acquire implements Locker. The ttl is ignored: in-process locks are
// released explicitly and cannot leak across process restarts.
func (m *Memory) Acquire(ctx context.Context, key string, _ time.Duration) (func(), bool, error) {
	for {
		m.mu.Lock()
		ch, held := m.locks[key]
		if !held {
			m.locks[key] = make(chan struct{})
			m.mu.Unlock()
			release := func() {
				m.mu.Lock()
				done := m.locks[key]
				delete(m.locks, key)
				m.mu.Unlock()
				close(done)
			}
			return release, true, nil
		}
		m.mu.Unlock()

		select {
		case <-ch:
			// Holder released; retry.
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}
}
