package manager

import (
	"sync"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// keyedMutex holds one mutex per session id, only while it is held or
// waited on.
type keyedMutex struct {
	sync.Mutex
	entries map[string]*keyedEntry
}

type keyedEntry struct {
	sync.Mutex
	refs int
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// lock acquires the mutex for id and returns the function which releases it.
// The entry is dropped on the last release.
func (k *keyedMutex) lock(id string) func() {
	k.Lock()
	if k.entries == nil {
		k.entries = make(map[string]*keyedEntry)
	}
	entry, exists := k.entries[id]
	if !exists {
		entry = new(keyedEntry)
		k.entries[id] = entry
	}
	entry.refs++
	k.Unlock()

	entry.Lock()
	return func() {
		entry.Unlock()

		k.Lock()
		defer k.Unlock()
		if entry.refs--; entry.refs == 0 {
			delete(k.entries, id)
		}
	}
}

// len returns the number of ids currently held or waited on.
func (k *keyedMutex) len() int {
	k.Lock()
	defer k.Unlock()
	return len(k.entries)
}
