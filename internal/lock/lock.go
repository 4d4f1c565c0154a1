// Package lock serializes work per key. Booking uses it to give every
// doctor-clinic a single writer while unrelated keys run in parallel.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var ErrNotAcquired = errors.New("lock not acquired")

// Locker runs fn while holding the lock for key.
type Locker interface {
	WithKeyLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// DoctorClinicKey is the lock key guarding admission for one doctor-clinic.
func DoctorClinicKey(doctorClinicID int64) string {
	return fmt.Sprintf("doctor-clinic:%d", doctorClinicID)
}

type keyedEntry struct {
	sem  chan struct{}
	refs int
}

// KeyedMutex is an in-process Locker. Entries are reference counted and
// dropped when the last holder or waiter leaves.
type KeyedMutex struct {
	mu   sync.Mutex
	keys map[string]*keyedEntry
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{keys: make(map[string]*keyedEntry)}
}

func (m *KeyedMutex) WithKeyLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	e := m.acquireRef(key)
	defer m.releaseRef(key, e)

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrNotAcquired, ctx.Err())
	}
	defer func() { <-e.sem }()

	return fn(ctx)
}

func (m *KeyedMutex) acquireRef(key string) *keyedEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.keys[key]
	if !ok {
		e = &keyedEntry{sem: make(chan struct{}, 1)}
		m.keys[key] = e
	}
	e.refs++
	return e
}

func (m *KeyedMutex) releaseRef(key string, e *keyedEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(m.keys, key)
	}
}

// size is the number of live keys, used by tests.
func (m *KeyedMutex) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.keys)
}
