package graphval

import "sync"

// Interner assigns stable, dense ids to repeated strings (labels and edge
// types). It is append-only: an id, once assigned, is never reassigned or
// reclaimed, so ids can be cached across store versions and snapshots.
type Interner struct {
	mu     sync.RWMutex
	byName map[string]uint32
	names  []string
}

// NewInterner returns an empty interner.
func NewInterner() *Interner {
	return &Interner{byName: make(map[string]uint32)}
}

// Intern returns the id for name, assigning a new one if name hasn't been
// seen before.
func (in *Interner) Intern(name string) uint32 {
	in.mu.RLock()
	if id, ok := in.byName[name]; ok {
		in.mu.RUnlock()
		return id
	}
	in.mu.RUnlock()

	in.mu.Lock()
	defer in.mu.Unlock()
	if id, ok := in.byName[name]; ok {
		return id
	}
	id := uint32(len(in.names))
	in.names = append(in.names, name)
	in.byName[name] = id
	return id
}

// Lookup returns the id already assigned to name, if any, without
// allocating a new one.
func (in *Interner) Lookup(name string) (uint32, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	id, ok := in.byName[name]
	return id, ok
}

// Name returns the string for an id previously returned by Intern. It
// panics if id was never assigned, since that indicates a caller holding a
// stale or corrupt id.
func (in *Interner) Name(id uint32) string {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if int(id) >= len(in.names) {
		panic("graphval: unknown interned id")
	}
	return in.names[id]
}

// Len returns the number of distinct strings interned so far.
func (in *Interner) Len() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.names)
}
