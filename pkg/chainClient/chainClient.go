package chainClient

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ethproofs/chainproof-go/pkg/commitment"
	"github.com/ethproofs/chainproof-go/pkg/merkle"
)

// ethBackend is the subset of the ethclient API the chain client needs.
// Narrow on purpose so tests can substitute a fake.
type ethBackend interface {
	BlockNumber(ctx context.Context) (uint64, error)
	BlockByNumber(ctx context.Context, number *big.Int) (*types.Block, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

var _ ethBackend = (*ethclient.Client)(nil)

type ChainClientConfig struct {
	RpcUrl     string
	ChainName  string
	ChainId    uint64
	StartBlock uint64
	// Addresses are the contracts whose logs the scanner filters on
	Addresses []common.Address
	// RequestsPerSecond caps outgoing RPC calls. Zero means unlimited.
	RequestsPerSecond float64
	// ScanWindow and ConfirmationGap tune the log scanner per chain.
	// Zero selects the scanner defaults.
	ScanWindow      uint64
	ConfirmationGap uint64
}

// ChainClient fetches blocks, receipts and logs from a remote node and hands
// the commitment layer ordered leaf material. It owns no tree math.
type ChainClient struct {
	backend ethBackend
	config  *ChainClientConfig
	signer  types.Signer
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewChainClient(cfg *ChainClientConfig, logger *zap.Logger) (*ChainClient, error) {
	client, err := ethclient.Dial(cfg.RpcUrl)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial ethereum node at %s", cfg.RpcUrl)
	}
	return newChainClient(client, cfg, logger), nil
}

func newChainClient(backend ethBackend, cfg *ChainClientConfig, logger *zap.Logger) *ChainClient {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &ChainClient{
		backend: backend,
		config:  cfg,
		signer:  types.LatestSignerForChainID(new(big.Int).SetUint64(cfg.ChainId)),
		limiter: limiter,
		logger:  logger,
	}
}

func (c *ChainClient) wait(ctx context.Context) error {
	return c.limiter.Wait(ctx)
}

// BlockCount returns the current head block number.
func (c *ChainClient) BlockCount(ctx context.Context) (uint64, error) {
	if err := c.wait(ctx); err != nil {
		return 0, err
	}
	number, err := c.backend.BlockNumber(ctx)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to fetch head block number")
	}
	return number, nil
}

// GetBlock fetches a block by number.
func (c *ChainClient) GetBlock(ctx context.Context, number uint64) (*types.Block, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	block, err := c.backend.BlockByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch block %d", number)
	}
	return block, nil
}

// GetTransactionReceipt fetches the receipt for a transaction hash.
func (c *ChainClient) GetTransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	receipt, err := c.backend.TransactionReceipt(ctx, txHash)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch receipt for tx %s", txHash.Hex())
	}
	return receipt, nil
}

// GetLogs fetches all logs in the inclusive block range, unfiltered.
func (c *ChainClient) GetLogs(ctx context.Context, startBlock, endBlock uint64) ([]types.Log, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	logs, err := c.backend.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(startBlock),
		ToBlock:   new(big.Int).SetUint64(endBlock),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch logs for blocks %d-%d", startBlock, endBlock)
	}
	return logs, nil
}

// ReceiptsForBlock returns the block's receipt records in transaction order,
// each paired with the sender recovered from the transaction signature.
func (c *ChainClient) ReceiptsForBlock(ctx context.Context, block *types.Block) ([]*commitment.ReceiptRecord, error) {
	records := make([]*commitment.ReceiptRecord, 0, len(block.Transactions()))
	for _, tx := range block.Transactions() {
		receipt, err := c.GetTransactionReceipt(ctx, tx.Hash())
		if err != nil {
			return nil, err
		}

		from, err := types.Sender(c.signer, tx)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to recover sender for tx %s", tx.Hash().Hex())
		}

		records = append(records, &commitment.ReceiptRecord{
			Receipt: receipt,
			From:    from,
			To:      tx.To(),
		})
	}
	return records, nil
}

// ReceiptTreeForBlock builds the object-commitment tree over the block's
// receipts. The returned leaf blobs are the canonical receipt projections in
// transaction order.
func (c *ChainClient) ReceiptTreeForBlock(ctx context.Context, block *types.Block) (*merkle.Tree, [][]byte, error) {
	records, err := c.ReceiptsForBlock(ctx, block)
	if err != nil {
		return nil, nil, err
	}
	return commitment.BuildReceiptTree(records)
}

// ReceiptProofForBlock builds the object-commitment tree and returns the
// root, proof and leaf blob for the transaction with the given index.
// When txIndex is nil the first transaction's proof is returned.
func (c *ChainClient) ReceiptProofForBlock(ctx context.Context, block *types.Block, txIndex *uint64) (merkle.Hash, merkle.Proof, []byte, error) {
	records, err := c.ReceiptsForBlock(ctx, block)
	if err != nil {
		return merkle.Hash{}, nil, nil, err
	}

	position := 0
	if txIndex != nil {
		position = -1
		for i, record := range records {
			if uint64(record.Receipt.TransactionIndex) == *txIndex {
				position = i
				break
			}
		}
		if position < 0 {
			return merkle.Hash{}, nil, nil, errors.Errorf("transaction index %d not found in block %d", *txIndex, block.NumberU64())
		}
	}

	tree, leaves, err := commitment.BuildReceiptTree(records)
	if err != nil {
		return merkle.Hash{}, nil, nil, err
	}

	proof, err := tree.Proof(position)
	if err != nil {
		return merkle.Hash{}, nil, nil, err
	}

	return tree.Root, proof, leaves[position], nil
}

// TxHashProofForBlock builds the identifier-commitment tree over the block's
// transaction hashes plus the block's transactions root, and returns the
// proof for target (position 0 when nil). Pure computation, no RPC.
func (c *ChainClient) TxHashProofForBlock(block *types.Block, target *common.Hash) (merkle.Hash, merkle.Proof, int, error) {
	txHashes := make([]common.Hash, 0, len(block.Transactions()))
	for _, tx := range block.Transactions() {
		txHashes = append(txHashes, tx.Hash())
	}
	return commitment.BuildTxHashTree(txHashes, block.TxHash(), target)
}
