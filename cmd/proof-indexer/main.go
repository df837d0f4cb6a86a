package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/ethproofs/chainproof-go/pkg/blockHandler"
	"github.com/ethproofs/chainproof-go/pkg/chainClient"
	"github.com/ethproofs/chainproof-go/pkg/config"
	"github.com/ethproofs/chainproof-go/pkg/logger"
	"github.com/ethproofs/chainproof-go/pkg/persistence"
	badgerStore "github.com/ethproofs/chainproof-go/pkg/persistence/badger"
	memoryStore "github.com/ethproofs/chainproof-go/pkg/persistence/memory"
	redisStore "github.com/ethproofs/chainproof-go/pkg/persistence/redis"
)

func main() {
	app := &cli.App{
		Name:  "proof-indexer",
		Usage: "Merkle commitment indexer for Ethereum blocks",
		Description: `Scans finalized blocks for contract logs, builds per-block merkle
commitments over transaction receipts and transaction hashes, and persists
the resulting roots. Proofs for individual receipts or transaction hashes
are rebuilt on demand from chain data against the stored roots.`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "rpc-url",
				Aliases: []string{"rpc"},
				Usage:   "Ethereum RPC endpoint URL",
				Value:   "http://localhost:8545",
				EnvVars: []string{config.EnvRpcUrl},
			},
			&cli.Uint64Flag{
				Name:     "chain-id",
				Aliases:  []string{"chain"},
				Usage:    fmt.Sprintf("Ethereum chain ID: %s", config.GetSupportedChainIDsString()),
				EnvVars:  []string{config.EnvChainId},
				Required: true,
			},
			&cli.Uint64Flag{
				Name:    "start-block",
				Aliases: []string{"from"},
				Usage:   "Block number to start scanning from",
				EnvVars: []string{config.EnvStartBlock},
			},
			&cli.StringSliceFlag{
				Name:    "address",
				Aliases: []string{"addr"},
				Usage:   "Contract address whose logs drive commitment building (repeatable)",
				EnvVars: []string{config.EnvAddresses},
			},
			&cli.StringFlag{
				Name:    "store",
				Usage:   "Commitment store backend: memory, badger, redis",
				Value:   string(config.StoreBackend_Badger),
				EnvVars: []string{config.EnvStoreBackend},
			},
			&cli.StringFlag{
				Name:    "store-path",
				Usage:   "Data directory for the badger backend",
				Value:   "./chainproof-data",
				EnvVars: []string{config.EnvStorePath},
			},
			&cli.StringFlag{
				Name:    "redis-address",
				Usage:   "Redis address (host:port) for the redis backend",
				EnvVars: []string{config.EnvRedisAddress},
			},
			&cli.Float64Flag{
				Name:    "rate-limit",
				Usage:   "Max RPC requests per second (0 = unlimited)",
				EnvVars: []string{config.EnvRateLimit},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Enable verbose logging",
				EnvVars: []string{config.EnvVerbose},
			},
		},
		Action: runIndexer,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func parseIndexerConfig(c *cli.Context) *config.IndexerConfig {
	return &config.IndexerConfig{
		RpcUrl:     c.String("rpc-url"),
		ChainID:    config.ChainId(c.Uint64("chain-id")),
		StartBlock: c.Uint64("start-block"),
		Addresses:  c.StringSlice("address"),
		Store: config.StoreConfig{
			Backend:      config.StoreBackend(c.String("store")),
			Path:         c.String("store-path"),
			RedisAddress: c.String("redis-address"),
		},
		RateLimit: c.Float64("rate-limit"),
		Debug:     c.Bool("verbose"),
	}
}

func openStore(cfg *config.IndexerConfig, l *zap.Logger) (persistence.ICommitmentStore, error) {
	switch cfg.Store.Backend {
	case config.StoreBackend_Memory:
		l.Sugar().Warn("Using in-memory store - commitments will be lost on restart")
		return memoryStore.NewMemoryStore(), nil
	case config.StoreBackend_Badger:
		return badgerStore.NewBadgerStore(cfg.Store.Path, l)
	case config.StoreBackend_Redis:
		return redisStore.NewRedisStore(&redisStore.RedisConfig{
			Address: cfg.Store.RedisAddress,
			DB:      cfg.Store.RedisDB,
		}, l)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
	}
}

func runIndexer(c *cli.Context) error {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: c.Bool("verbose")})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = l.Sync() }()

	cfg := parseIndexerConfig(c)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	l.Sugar().Infow("Using chain", "name", cfg.ChainName, "chain_id", cfg.ChainID)

	store, err := openStore(cfg, l)
	if err != nil {
		return fmt.Errorf("failed to open commitment store: %w", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.HealthCheck(); err != nil {
		return fmt.Errorf("commitment store unhealthy: %w", err)
	}

	client, err := chainClient.NewChainClient(&chainClient.ChainClientConfig{
		RpcUrl:            cfg.RpcUrl,
		ChainName:         string(cfg.ChainName),
		ChainId:           uint64(cfg.ChainID),
		StartBlock:        cfg.StartBlock,
		Addresses:         cfg.ContractAddresses(),
		RequestsPerSecond: cfg.RateLimit,
		ScanWindow:        config.ScanWindow_Default,
		ConfirmationGap:   config.GetConfirmationGapForChain(cfg.ChainID),
	}, l)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Resume from the store when it is ahead of the configured start block
	startBlock := cfg.StartBlock
	if latest, err := store.LatestBlockNumber(); err == nil && latest > 0 && latest >= startBlock {
		startBlock = latest + 1
		l.Sugar().Infow("Resuming from stored commitments", "start_block", startBlock)
	}

	scanner, err := client.NewLogScanner(ctx, startBlock, nil)
	if err != nil {
		return err
	}

	handler := blockHandler.NewBlockHandler(l)
	go handler.ListenToChannel(ctx, func(blockNumber uint64) {
		if err := commitBlock(ctx, client, store, cfg, l, blockNumber); err != nil {
			l.Sugar().Errorw("Failed to commit block", "block", blockNumber, "error", err)
		}
	})

	l.Sugar().Infow("Indexer started", "start_block", startBlock)

	for {
		logs, next, err := scanner.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				l.Sugar().Info("Indexer shutting down")
				return nil
			}
			l.Sugar().Errorw("Scan round failed, retrying", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(5 * time.Second):
			}
			continue
		}

		// One commitment per block that produced matching logs
		seen := make(map[uint64]bool)
		for _, lg := range logs {
			if seen[lg.BlockNumber] {
				continue
			}
			seen[lg.BlockNumber] = true
			_ = handler.HandleBlock(ctx, lg.BlockNumber)
		}

		l.Sugar().Debugw("Scan round complete", "advanced_to", next, "matching_blocks", len(seen))
	}
}

func commitBlock(
	ctx context.Context,
	client *chainClient.ChainClient,
	store persistence.ICommitmentStore,
	cfg *config.IndexerConfig,
	l *zap.Logger,
	blockNumber uint64,
) error {
	block, err := client.GetBlock(ctx, blockNumber)
	if err != nil {
		return err
	}

	var receiptRoot common.Hash
	leafCount := len(block.Transactions())
	if leafCount > 0 {
		tree, _, err := client.ReceiptTreeForBlock(ctx, block)
		if err != nil {
			return err
		}
		receiptRoot = common.Hash(tree.Root)
	}

	txHashRoot, _, _, err := client.TxHashProofForBlock(block, nil)
	if err != nil {
		return err
	}

	commitment := &persistence.BlockCommitment{
		BlockNumber: blockNumber,
		ChainId:     uint64(cfg.ChainID),
		ReceiptRoot: receiptRoot,
		TxHashRoot:  common.Hash(txHashRoot),
		LeafCount:   leafCount,
		CreatedAt:   time.Now().UTC(),
	}
	if err := store.SaveCommitment(commitment); err != nil {
		return err
	}

	l.Sugar().Infow("Committed block",
		"block", blockNumber,
		"receipt_root", receiptRoot.Hex(),
		"tx_hash_root", commitment.TxHashRoot.Hex(),
		"transactions", leafCount,
	)
	return nil
}
