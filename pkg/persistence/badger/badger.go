package badger

import (
	"context"
	"encoding/binary"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"

	"github.com/ethproofs/chainproof-go/pkg/persistence"
)

// Key prefixes for namespacing
const (
	keyPrefixCommitment  = "commitment:"
	keySchemaVersion     = "metadata:schema_version"
	currentSchemaVersion = "v1"

	gcInterval     = 5 * time.Minute
	gcDiscardRatio = 0.5
)

// BadgerStore is a production-ready commitment store backed by Badger.
// Provides durable, disk-based storage with ACID guarantees.
type BadgerStore struct {
	db       *badgerdb.DB
	logger   *zap.Logger
	gcCancel context.CancelFunc
	gcWg     sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
}

var _ persistence.ICommitmentStore = (*BadgerStore)(nil)

// NewBadgerStore opens a Badger-backed commitment store at the given path
// with SyncWrites enabled for durability. A background goroutine is started
// for value-log garbage collection.
func NewBadgerStore(dataPath string, logger *zap.Logger) (*BadgerStore, error) {
	absPath, err := filepath.Abs(dataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	opts := badgerdb.DefaultOptions(absPath)
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.SyncWrites = true // fsync on every write; roots must survive crashes
	opts.CompactL0OnClose = true
	opts.NumVersionsToKeep = 1

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", absPath, err)
	}

	bs := &BadgerStore{
		db:     db,
		logger: logger,
	}

	if err := bs.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	bs.gcCancel = cancel
	bs.gcWg.Add(1)
	go bs.runGC(ctx)

	logger.Sugar().Infow("Badger commitment store initialized", "path", absPath)

	return bs, nil
}

// initSchema initializes or validates the schema version
func (b *BadgerStore) initSchema() error {
	return b.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(keySchemaVersion))
		if err == badgerdb.ErrKeyNotFound {
			return txn.Set([]byte(keySchemaVersion), []byte(currentSchemaVersion))
		}
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}

		var existingVersion string
		err = item.Value(func(val []byte) error {
			existingVersion = string(val)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to read schema version value: %w", err)
		}

		if existingVersion != currentSchemaVersion {
			return fmt.Errorf("schema version mismatch: store has %s, expected %s", existingVersion, currentSchemaVersion)
		}
		return nil
	})
}

// runGC runs Badger's value log garbage collection periodically
func (b *BadgerStore) runGC(ctx context.Context) {
	defer b.gcWg.Done()

	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// ErrNoRewrite just means there was nothing to collect
			if err := b.db.RunValueLogGC(gcDiscardRatio); err != nil && err != badgerdb.ErrNoRewrite {
				b.logger.Sugar().Warnw("Badger GC failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// commitmentKey builds the key for a block number. Big-endian encoding keeps
// byte order equal to numeric order, so prefix iteration yields ascending
// block numbers.
func commitmentKey(blockNumber uint64) []byte {
	key := make([]byte, len(keyPrefixCommitment)+8)
	copy(key, keyPrefixCommitment)
	binary.BigEndian.PutUint64(key[len(keyPrefixCommitment):], blockNumber)
	return key
}

func (b *BadgerStore) SaveCommitment(commitment *persistence.BlockCommitment) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("store is closed")
	}

	data, err := persistence.MarshalBlockCommitment(commitment)
	if err != nil {
		return err
	}

	return b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(commitmentKey(commitment.BlockNumber), data)
	})
}

func (b *BadgerStore) LoadCommitment(blockNumber uint64) (*persistence.BlockCommitment, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, fmt.Errorf("store is closed")
	}

	var commitment *persistence.BlockCommitment
	err := b.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(commitmentKey(blockNumber))
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			commitment, err = persistence.UnmarshalBlockCommitment(val)
			return err
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load commitment for block %d: %w", blockNumber, err)
	}
	return commitment, nil
}

func (b *BadgerStore) ListCommitments() ([]*persistence.BlockCommitment, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, fmt.Errorf("store is closed")
	}

	commitments := make([]*persistence.BlockCommitment, 0)
	err := b.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefixCommitment)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(keyPrefixCommitment)); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				commitment, err := persistence.UnmarshalBlockCommitment(val)
				if err != nil {
					return err
				}
				commitments = append(commitments, commitment)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list commitments: %w", err)
	}
	return commitments, nil
}

func (b *BadgerStore) LatestBlockNumber() (uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return 0, fmt.Errorf("store is closed")
	}

	var latest uint64
	err := b.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefixCommitment)
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(keyPrefixCommitment)); it.Valid(); it.Next() {
			key := it.Item().Key()
			latest = binary.BigEndian.Uint64(key[len(keyPrefixCommitment):])
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to find latest block number: %w", err)
	}
	return latest, nil
}

func (b *BadgerStore) DeleteCommitment(blockNumber uint64) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("store is closed")
	}

	return b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete(commitmentKey(blockNumber))
	})
}

func (b *BadgerStore) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	b.gcCancel()
	b.gcWg.Wait()

	return b.db.Close()
}

func (b *BadgerStore) HealthCheck() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("store is closed")
	}

	return b.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get([]byte(keySchemaVersion))
		return err
	})
}
