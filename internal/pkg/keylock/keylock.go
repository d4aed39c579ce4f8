// Package keylock provides a mutex per string key. The case workflow uses
// it to serialize writers touching the same (incident, employee) thread,
// which removes the lost-update race between concurrent approvers.
package keylock

import "sync"

// KeyedMutex hands out one mutex per key. Mutexes are created lazily and
// kept for the life of the process; the key space (case threads) is small.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key and returns its unlock function.
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
