package status

import (
	"sync"

	"uptimer/internals/modules/monitor"
)

type Key struct {
	Type monitor.Type
	ID   int
}

type entry struct {
	mu    sync.Mutex
	state AlertState
}

// Table holds the hysteresis state of every scheduled monitor.
type Table struct {
	mu      sync.Mutex
	entries map[Key]*entry
}

func NewTable() *Table {
	return &Table{entries: make(map[Key]*entry)}
}

func (t *Table) get(k Key) *entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[k]
	if !ok {
		e = &entry{}
		t.entries[k] = e
	}
	return e
}

// Update runs fn with exclusive access to the state of k.
func (t *Table) Update(k Key, fn func(*AlertState)) {
	e := t.get(k)
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.state)
}

// Snapshot returns a copy of the state of k.
func (t *Table) Snapshot(k Key) AlertState {
	e := t.get(k)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (t *Table) Delete(k Key) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, k)
}

func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
