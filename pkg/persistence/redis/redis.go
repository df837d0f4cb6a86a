package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ethproofs/chainproof-go/pkg/persistence"
)

// Key prefixes for namespacing in Redis
const (
	keyPrefixCommitment  = "chainproof:commitment:"
	keySchemaVersion     = "chainproof:metadata:schema_version"
	currentSchemaVersion = "v1"

	// Index set for listing operations (Redis doesn't support prefix
	// iteration natively)
	keySetCommitments = "chainproof:commitments:index"

	opTimeout = 5 * time.Second
)

// RedisStore is a commitment store backed by Redis, suitable for
// cloud-native deployments where local disk is ephemeral.
type RedisStore struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string // Custom prefix for all keys
	mu        sync.RWMutex
	closed    bool
}

var _ persistence.ICommitmentStore = (*RedisStore)(nil)

// RedisConfig holds the configuration for connecting to Redis
type RedisConfig struct {
	// Address is the Redis server address (host:port)
	Address string
	// Password is the optional Redis password
	Password string
	// DB is the Redis database number (0-15)
	DB int
	// KeyPrefix is an optional custom prefix for all keys (for multi-tenant
	// setups). If set, it is prepended to the default "chainproof:" keys.
	KeyPrefix string
}

// NewRedisStore creates a new Redis-backed commitment store.
func NewRedisStore(cfg *RedisConfig, logger *zap.Logger) (*RedisStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	rs := &RedisStore{
		client:    client,
		logger:    logger,
		keyPrefix: cfg.KeyPrefix,
	}

	if err := rs.initSchema(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Sugar().Infow("Redis commitment store initialized", "address", cfg.Address, "db", cfg.DB)

	return rs, nil
}

func (r *RedisStore) initSchema(ctx context.Context) error {
	key := r.keyPrefix + keySchemaVersion

	existing, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return r.client.Set(ctx, key, currentSchemaVersion, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if existing != currentSchemaVersion {
		return fmt.Errorf("schema version mismatch: store has %s, expected %s", existing, currentSchemaVersion)
	}
	return nil
}

func (r *RedisStore) commitmentKey(blockNumber uint64) string {
	return fmt.Sprintf("%s%s%d", r.keyPrefix, keyPrefixCommitment, blockNumber)
}

func (r *RedisStore) indexKey() string {
	return r.keyPrefix + keySetCommitments
}

func (r *RedisStore) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), opTimeout)
}

func (r *RedisStore) SaveCommitment(commitment *persistence.BlockCommitment) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return fmt.Errorf("store is closed")
	}

	data, err := persistence.MarshalBlockCommitment(commitment)
	if err != nil {
		return err
	}

	ctx, cancel := r.opContext()
	defer cancel()

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.commitmentKey(commitment.BlockNumber), data, 0)
	pipe.SAdd(ctx, r.indexKey(), strconv.FormatUint(commitment.BlockNumber, 10))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save commitment for block %d: %w", commitment.BlockNumber, err)
	}
	return nil
}

func (r *RedisStore) LoadCommitment(blockNumber uint64) (*persistence.BlockCommitment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, fmt.Errorf("store is closed")
	}

	ctx, cancel := r.opContext()
	defer cancel()

	data, err := r.client.Get(ctx, r.commitmentKey(blockNumber)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load commitment for block %d: %w", blockNumber, err)
	}

	return persistence.UnmarshalBlockCommitment(data)
}

func (r *RedisStore) ListCommitments() ([]*persistence.BlockCommitment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, fmt.Errorf("store is closed")
	}

	ctx, cancel := r.opContext()
	defer cancel()

	members, err := r.client.SMembers(ctx, r.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list commitment index: %w", err)
	}

	commitments := make([]*persistence.BlockCommitment, 0, len(members))
	for _, member := range members {
		blockNumber, err := strconv.ParseUint(member, 10, 64)
		if err != nil {
			r.logger.Sugar().Warnw("skipping malformed index entry", "member", member)
			continue
		}

		data, err := r.client.Get(ctx, r.commitmentKey(blockNumber)).Bytes()
		if err == redis.Nil {
			// Index and data can drift if a delete raced; skip
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load commitment for block %d: %w", blockNumber, err)
		}

		commitment, err := persistence.UnmarshalBlockCommitment(data)
		if err != nil {
			return nil, err
		}
		commitments = append(commitments, commitment)
	}

	sort.Slice(commitments, func(i, j int) bool {
		return commitments[i].BlockNumber < commitments[j].BlockNumber
	})
	return commitments, nil
}

func (r *RedisStore) LatestBlockNumber() (uint64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return 0, fmt.Errorf("store is closed")
	}

	ctx, cancel := r.opContext()
	defer cancel()

	members, err := r.client.SMembers(ctx, r.indexKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list commitment index: %w", err)
	}

	var latest uint64
	for _, member := range members {
		blockNumber, err := strconv.ParseUint(member, 10, 64)
		if err != nil {
			continue
		}
		if blockNumber > latest {
			latest = blockNumber
		}
	}
	return latest, nil
}

func (r *RedisStore) DeleteCommitment(blockNumber uint64) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return fmt.Errorf("store is closed")
	}

	ctx, cancel := r.opContext()
	defer cancel()

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.commitmentKey(blockNumber))
	pipe.SRem(ctx, r.indexKey(), strconv.FormatUint(blockNumber, 10))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete commitment for block %d: %w", blockNumber, err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.client.Close()
}

func (r *RedisStore) HealthCheck() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return fmt.Errorf("store is closed")
	}

	ctx, cancel := r.opContext()
	defer cancel()
	return r.client.Ping(ctx).Err()
}
