package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ethproofs/chainproof-go/pkg/persistence"
)

// MemoryStore is an in-memory implementation of ICommitmentStore.
// This implementation is intended for TESTING ONLY.
//
// All data is lost when the process exits. Thread-safe using sync.RWMutex.
// Deep copies records to prevent external mutation.
type MemoryStore struct {
	mu sync.RWMutex

	// blockNumber -> BlockCommitment
	commitments map[uint64]*persistence.BlockCommitment

	closed bool
}

var _ persistence.ICommitmentStore = (*MemoryStore)(nil)

// NewMemoryStore creates a new in-memory commitment store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		commitments: make(map[uint64]*persistence.BlockCommitment),
	}
}

func copyCommitment(c *persistence.BlockCommitment) *persistence.BlockCommitment {
	clone := *c
	return &clone
}

func (m *MemoryStore) SaveCommitment(commitment *persistence.BlockCommitment) error {
	if commitment == nil {
		return fmt.Errorf("cannot save nil BlockCommitment")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("store is closed")
	}

	m.commitments[commitment.BlockNumber] = copyCommitment(commitment)
	return nil
}

func (m *MemoryStore) LoadCommitment(blockNumber uint64) (*persistence.BlockCommitment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("store is closed")
	}

	commitment, exists := m.commitments[blockNumber]
	if !exists {
		return nil, nil
	}
	return copyCommitment(commitment), nil
}

func (m *MemoryStore) ListCommitments() ([]*persistence.BlockCommitment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("store is closed")
	}

	commitments := make([]*persistence.BlockCommitment, 0, len(m.commitments))
	for _, c := range m.commitments {
		commitments = append(commitments, copyCommitment(c))
	}

	sort.Slice(commitments, func(i, j int) bool {
		return commitments[i].BlockNumber < commitments[j].BlockNumber
	})
	return commitments, nil
}

func (m *MemoryStore) LatestBlockNumber() (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return 0, fmt.Errorf("store is closed")
	}

	var latest uint64
	for blockNumber := range m.commitments {
		if blockNumber > latest {
			latest = blockNumber
		}
	}
	return latest, nil
}

func (m *MemoryStore) DeleteCommitment(blockNumber uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("store is closed")
	}

	delete(m.commitments, blockNumber)
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

func (m *MemoryStore) HealthCheck() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return fmt.Errorf("store is closed")
	}
	return nil
}
