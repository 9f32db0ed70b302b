// Package keylock serializes work per string key. Entries are reference
// counted and dropped once the last holder unlocks.
package keylock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

type Locks struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func New() *Locks {
	return &Locks{entries: make(map[string]*entry)}
}

// Lock blocks until key is free and returns the matching unlock.
func (l *Locks) Lock(key string) func() {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		if e.refs--; e.refs == 0 {
			delete(l.entries, key)
		}
		l.mu.Unlock()
	}
}

// Len returns the number of keys currently held or awaited.
func (l *Locks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
