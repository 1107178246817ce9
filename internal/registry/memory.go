// memory.go - In-memory spend registry.
//
// Used by tests and the dev daemon. Sets are plain maps; a batch stages
// into shadow maps and merges them on Commit.

package registry

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Memory is the map-backed Store.
type Memory struct {
	mu          sync.RWMutex
	commitments map[common.Hash]struct{}
	nullifiers  map[common.Hash]struct{}
	footers     map[common.Hash]struct{}
	locks       map[common.Hash]struct{}
}

// NewMemory returns an empty in-memory registry.
func NewMemory() *Memory {
	return &Memory{
		commitments: make(map[common.Hash]struct{}),
		nullifiers:  make(map[common.Hash]struct{}),
		footers:     make(map[common.Hash]struct{}),
		locks:       make(map[common.Hash]struct{}),
	}
}

func (m *Memory) IsCommitmentCreated(id common.Hash) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.commitments[id]
	return ok, nil
}

func (m *Memory) IsNullifierUsed(id common.Hash) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.nullifiers[id]
	return ok, nil
}

func (m *Memory) IsNullifierLocked(id common.Hash) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.locks[id]
	return ok, nil
}

func (m *Memory) IsFooterUsed(id common.Hash) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.footers[id]
	return ok, nil
}

func (m *Memory) SetNullifierLocked(id common.Hash, locked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if locked {
		m.locks[id] = struct{}{}
	} else {
		delete(m.locks, id)
	}
	return nil
}

func (m *Memory) Batch() (Batch, error) {
	return &memoryBatch{
		store:       m,
		commitments: make(map[common.Hash]struct{}),
		nullifiers:  make(map[common.Hash]struct{}),
		footers:     make(map[common.Hash]struct{}),
	}, nil
}

func (m *Memory) Close() error { return nil }

type memoryBatch struct {
	store       *Memory
	commitments map[common.Hash]struct{}
	nullifiers  map[common.Hash]struct{}
	footers     map[common.Hash]struct{}
	done        bool
}

func (b *memoryBatch) MarkCommitmentCreated(id common.Hash) error {
	if created, _ := b.store.IsCommitmentCreated(id); created {
		return ErrNoteAlreadyCreated
	}
	if _, staged := b.commitments[id]; staged {
		return ErrNoteAlreadyCreated
	}
	b.commitments[id] = struct{}{}
	return nil
}

func (b *memoryBatch) MarkNullifierUsed(id common.Hash) error {
	if used, _ := b.store.IsNullifierUsed(id); used {
		return ErrNullifierUsed
	}
	if _, staged := b.nullifiers[id]; staged {
		return ErrNullifierUsed
	}
	b.nullifiers[id] = struct{}{}
	return nil
}

func (b *memoryBatch) MarkFooterUsed(id common.Hash) error {
	if used, _ := b.store.IsFooterUsed(id); used {
		return ErrNoteFooterUsed
	}
	if _, staged := b.footers[id]; staged {
		return ErrNoteFooterUsed
	}
	b.footers[id] = struct{}{}
	return nil
}

func (b *memoryBatch) Commit() error {
	if b.done {
		return nil
	}
	b.done = true
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	for id := range b.commitments {
		b.store.commitments[id] = struct{}{}
	}
	for id := range b.nullifiers {
		b.store.nullifiers[id] = struct{}{}
	}
	for id := range b.footers {
		b.store.footers[id] = struct{}{}
	}
	return nil
}

func (b *memoryBatch) Discard() {
	b.done = true
	b.commitments = nil
	b.nullifiers = nil
	b.footers = nil
}
