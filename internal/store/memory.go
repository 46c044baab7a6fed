package store

import (
	"sync"

	"github.com/google/uuid"
)

// Memory keeps snapshots in process memory.
type Memory struct {
	mu        sync.RWMutex
	retain    int
	snapshots map[uuid.UUID]*Snapshot
	order     []uuid.UUID
	closed    bool
}

// NewMemory creates a memory store keeping at most retain snapshots (0 keeps
// all of them).
func NewMemory(retain int) *Memory {
	return &Memory{
		retain:    retain,
		snapshots: make(map[uuid.UUID]*Snapshot),
	}
}

func (m *Memory) Save(snap *Snapshot) error {
	if err := snap.validate(); err != nil {
		return err
	}
	if snap.ID == uuid.Nil {
		snap.ID = uuid.New()
	}
	stored := snap.clone()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if _, exists := m.snapshots[stored.ID]; exists {
		m.order = removeID(m.order, stored.ID)
	}
	m.snapshots[stored.ID] = stored
	m.order = append(m.order, stored.ID)
	for _, id := range evictions(m.order, m.retain) {
		delete(m.snapshots, id)
		m.order = removeID(m.order, id)
	}
	return nil
}

func (m *Memory) Load(id uuid.UUID) (*Snapshot, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, false, ErrClosed
	}
	snap, ok := m.snapshots[id]
	if !ok {
		return nil, false, nil
	}
	return snap.clone(), true, nil
}

func (m *Memory) List() ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	infos := make([]Info, 0, len(m.order))
	for _, id := range m.order {
		infos = append(infos, m.snapshots[id].Info())
	}
	return infos, nil
}

func (m *Memory) Delete(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.snapshots, id)
	m.order = removeID(m.order, id)
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.snapshots = nil
	m.order = nil
	return nil
}
