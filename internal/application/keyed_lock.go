package application

import (
	"sync"

	"github.com/google/uuid"
)

// keyedLock serializes work per key. Entries are reference counted and
// removed when the last holder releases, so the map stays bounded by the
// number of trips with in-flight updates.
type keyedLock struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedLock() *keyedLock {
	return &keyedLock{locks: make(map[uuid.UUID]*lockEntry)}
}

// Lock blocks until the key is exclusively held and returns the release
// function.
func (k *keyedLock) Lock(key uuid.UUID) func() {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		entry = &lockEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
