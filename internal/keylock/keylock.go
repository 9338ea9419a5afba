// Package keylock provides per-key mutual exclusion for attendance record
// mutation. Check-in, check-out, and verification execution for the same
// (worker, session) pair all acquire the same key, so their record mutations
// never interleave while different pairs proceed in parallel.
package keylock

import (
	"fmt"
	"sync"
)

// KeyedMutex holds one mutex per key. Entries are created lazily and kept
// for the process lifetime; the key space is bounded by workers x sessions
// actually touched.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewKeyedMutex creates an empty keyed mutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*sync.Mutex)}
}

// RecordKey builds the canonical lock key for a (worker, session) pair.
func RecordKey(workerID string, sessionID uint) string {
	return fmt.Sprintf("%d:%s", sessionID, workerID)
}

// Lock acquires the mutex for a key, creating it if needed, and returns the
// unlock function.
func (k *KeyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
