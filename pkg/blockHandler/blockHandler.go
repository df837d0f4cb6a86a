package blockHandler

import (
	"context"

	"go.uber.org/zap"
)

type IBlockHandler interface {
	HandleBlock(ctx context.Context, blockNumber uint64) error
	ListenToChannel(ctx context.Context, handleFunc func(uint64))
}

// BlockHandler decouples the log scanner from the committer: scanned block
// numbers go into a buffered channel and the committer drains them at its
// own pace.
type BlockHandler struct {
	BlockChannel chan uint64
	logger       *zap.Logger
}

func NewBlockHandler(
	logger *zap.Logger,
) *BlockHandler {
	return &BlockHandler{
		// 100 block capacity should be more than enough to handle finalized blocks
		BlockChannel: make(chan uint64, 100),
		logger:       logger,
	}
}

func (h *BlockHandler) ListenToChannel(ctx context.Context, handleFunc func(uint64)) {
	for {
		select {
		// read block numbers from the channel and call handleFunc
		case blockNumber := <-h.BlockChannel:
			h.logger.Sugar().Infof("BlockHandler received block %d from channel", blockNumber)
			handleFunc(blockNumber)
		case <-ctx.Done():
			h.logger.Sugar().Info("BlockHandler channel listener exiting due to context done")
			return
		}
	}
}

func (h *BlockHandler) HandleBlock(ctx context.Context, blockNumber uint64) error {
	select {
	case h.BlockChannel <- blockNumber:
		h.logger.Sugar().Debugf("Block %d sent to channel", blockNumber)
	case <-ctx.Done():
		h.logger.Sugar().Warnf("Context done before sending block %d to channel", blockNumber)
	default:
		h.logger.Sugar().Warnf("Block channel is full, dropping block %d", blockNumber)
	}
	return nil
}
