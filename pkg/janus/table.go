package janus

import "sync"

// HandleTable tracks the live handles of a session, keyed by the
// gateway-assigned handle id.
type HandleTable struct {
	mu      sync.RWMutex
	handles map[uint64]*Handle
}

// NewHandleTable creates an empty table.
func NewHandleTable() *HandleTable {
	return &HandleTable{
		handles: make(map[uint64]*Handle),
	}
}

// Add inserts h under its id.
func (t *HandleTable) Add(h *Handle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handles[h.ID()] = h
}

// Get looks up a handle by id.
func (t *HandleTable) Get(id uint64) (*Handle, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	h, ok := t.handles[id]
	return h, ok
}

// Remove deletes the handle with the given id, reporting whether it
// was present.
func (t *HandleTable) Remove(id uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.handles[id]; !ok {
		return false
	}
	delete(t.handles, id)
	return true
}

// All returns a snapshot of the live handles.
func (t *HandleTable) All() []*Handle {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Handle, 0, len(t.handles))
	for _, h := range t.handles {
		out = append(out, h)
	}
	return out
}

// Drain empties the table and returns what it held.
func (t *HandleTable) Drain() []*Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Handle, 0, len(t.handles))
	for id, h := range t.handles {
		out = append(out, h)
		delete(t.handles, id)
	}
	return out
}

// Count returns the number of live handles.
func (t *HandleTable) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.handles)
}
