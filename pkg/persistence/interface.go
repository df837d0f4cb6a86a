package persistence

// ICommitmentStore defines the interface for persisting block commitments
// across restarts. All implementations must be thread-safe; the indexer
// writes from the committer goroutine while CLI queries read concurrently.
type ICommitmentStore interface {
	// SaveCommitment persists a commitment keyed by block number.
	// Overwrites any existing record for the same block (idempotent).
	SaveCommitment(commitment *BlockCommitment) error

	// LoadCommitment retrieves a commitment by block number.
	// Returns nil if no record exists, error only on storage failure.
	LoadCommitment(blockNumber uint64) (*BlockCommitment, error)

	// ListCommitments returns all persisted commitments sorted by block
	// number (ascending). Empty slice if none exist.
	ListCommitments() ([]*BlockCommitment, error)

	// LatestBlockNumber returns the highest committed block number, 0 when
	// the store is empty (first run).
	LatestBlockNumber() (uint64, error)

	// DeleteCommitment removes a commitment by block number.
	// Idempotent - returns nil if the record doesn't exist.
	DeleteCommitment(blockNumber uint64) error

	// Close cleanly shuts down the store. Idempotent.
	// After Close(), all other operations should return errors.
	Close() error

	// HealthCheck verifies the store is operational. Called during indexer
	// startup to fail fast.
	HealthCheck() error
}
