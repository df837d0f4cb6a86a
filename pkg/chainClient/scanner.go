package chainClient

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	// DefaultScanWindow is the widest block range requested per log query
	// while catching up to the head.
	DefaultScanWindow = 50000

	// DefaultConfirmationGap is how many blocks behind the head the scanner
	// stays so it only ever sees finalized-enough blocks.
	DefaultConfirmationGap = 3

	defaultTipPollInterval = 10 * time.Second
)

// LogScanner walks a contract log filter over a block range in fixed
// windows. While behind the head it advances window by window; once caught
// up it follows the head at the confirmation gap, sleeping one poll interval
// between rounds.
//
// A scanner is not safe for concurrent use; run one per goroutine.
type LogScanner struct {
	client *ChainClient
	runId  string
	filter ethereum.FilterQuery

	from uint64 // next unscanned block
	head uint64 // confirmed head (actual head minus gap) at last sync

	window uint64
	gap    uint64
	poll   time.Duration

	logger *zap.Logger
}

// NewLogScanner creates a scanner starting at fromBlock, filtering on the
// client's configured addresses and the given topics. Each scanner carries a
// run id so interleaved scan logs can be told apart.
func (c *ChainClient) NewLogScanner(ctx context.Context, fromBlock uint64, topics [][]common.Hash) (*LogScanner, error) {
	window := uint64(DefaultScanWindow)
	if c.config.ScanWindow > 0 {
		window = c.config.ScanWindow
	}
	gap := uint64(DefaultConfirmationGap)
	if c.config.ConfirmationGap > 0 {
		gap = c.config.ConfirmationGap
	}

	head, err := c.BlockCount(ctx)
	if err != nil {
		return nil, err
	}
	if head < gap {
		return nil, errors.Errorf("chain head %d is below the confirmation gap %d", head, gap)
	}

	scanner := &LogScanner{
		client: c,
		runId:  uuid.New().String(),
		filter: ethereum.FilterQuery{
			Addresses: c.config.Addresses,
			Topics:    topics,
		},
		from:   fromBlock,
		head:   head - gap,
		window: window,
		gap:    gap,
		poll:   defaultTipPollInterval,
		logger: c.logger,
	}

	c.logger.Sugar().Infow("log scanner created",
		"run_id", scanner.runId,
		"from_block", fromBlock,
		"confirmed_head", scanner.head,
	)
	return scanner, nil
}

// Next returns the next batch of matching logs together with the block
// number scanning has advanced to. While catching up each call covers one
// window; once caught up it waits one poll interval, scans up to the
// confirmed head, and re-reads the head for the next round.
func (s *LogScanner) Next(ctx context.Context) ([]types.Log, uint64, error) {
	var behind uint64
	if s.head > s.from {
		behind = s.head - s.from
	}

	var to uint64
	catchingUp := behind > s.window
	if catchingUp {
		to = s.from + s.window - 1
	} else {
		// Caught up; give the chain time to produce blocks
		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		case <-time.After(s.poll):
		}
		to = s.head
		// fromBlock may start ahead of the confirmed head; never issue a
		// reversed range
		if to < s.from {
			to = s.from
		}
	}

	query := s.filter
	query.FromBlock = new(big.Int).SetUint64(s.from)
	query.ToBlock = new(big.Int).SetUint64(to)

	if err := s.client.wait(ctx); err != nil {
		return nil, 0, err
	}
	logs, err := s.client.backend.FilterLogs(ctx, query)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "failed to fetch logs for blocks %d-%d", s.from, to)
	}

	next := to + 1
	if catchingUp {
		s.from = to + 1
	} else {
		s.from = to
		head, err := s.client.BlockCount(ctx)
		if err != nil {
			return nil, 0, err
		}
		s.head = head - s.gap
		next = s.head
	}

	s.logger.Sugar().Debugw("scan window complete",
		"run_id", s.runId,
		"from", query.FromBlock.Uint64(),
		"to", to,
		"logs", len(logs),
		"catching_up", catchingUp,
	)
	return logs, next, nil
}
