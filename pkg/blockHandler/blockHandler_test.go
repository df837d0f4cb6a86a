package blockHandler

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func Test_BlockHandler(t *testing.T) {
	t.Run("ReceiveFromScanner", func(t *testing.T) {
		logger, _ := zap.NewDevelopment()

		bh := NewBlockHandler(logger)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		// Track received blocks
		var receivedBlocks []uint64
		var mu sync.Mutex

		go bh.ListenToChannel(ctx, func(blockNumber uint64) {
			mu.Lock()
			defer mu.Unlock()
			receivedBlocks = append(receivedBlocks, blockNumber)
		})

		// Give listener time to start
		time.Sleep(50 * time.Millisecond)

		// Simulate the scanner sending blocks
		testBlocks := []uint64{1, 2, 5, 10, 15}
		for _, blockNum := range testBlocks {
			if err := bh.HandleBlock(ctx, blockNum); err != nil {
				t.Fatalf("HandleBlock failed: %v", err)
			}
		}

		// Wait for processing
		time.Sleep(200 * time.Millisecond)

		mu.Lock()
		defer mu.Unlock()

		if len(receivedBlocks) != len(testBlocks) {
			t.Fatalf("Expected %d blocks, got %d", len(testBlocks), len(receivedBlocks))
		}
		for i, expected := range testBlocks {
			if receivedBlocks[i] != expected {
				t.Errorf("Block %d: expected %d, got %d (ordering violated)", i, expected, receivedBlocks[i])
			}
		}
	})

	t.Run("ChannelFull", func(t *testing.T) {
		logger, _ := zap.NewDevelopment()

		bh := NewBlockHandler(logger)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		// Don't start a listener; blocks accumulate in the channel.
		// HandleBlock uses a select with default, so overflow is dropped
		// with a warning instead of blocking.
		blocksToSend := 110
		for i := 0; i < blocksToSend; i++ {
			_ = bh.HandleBlock(ctx, uint64(i))
		}

		if len(bh.BlockChannel) != cap(bh.BlockChannel) {
			t.Errorf("Expected channel to hold %d blocks, got %d", cap(bh.BlockChannel), len(bh.BlockChannel))
		}
	})

	t.Run("ContextCancellation", func(t *testing.T) {
		logger, _ := zap.NewDevelopment()

		bh := NewBlockHandler(logger)

		ctx, cancel := context.WithCancel(context.Background())

		listenerStopped := make(chan bool, 1)
		go func() {
			bh.ListenToChannel(ctx, func(blockNumber uint64) {})
			listenerStopped <- true
		}()

		time.Sleep(50 * time.Millisecond)
		cancel()

		select {
		case <-listenerStopped:
		case <-time.After(2 * time.Second):
			t.Error("Listener did not stop after context cancellation")
		}
	})

	t.Run("ConcurrentWrites", func(t *testing.T) {
		logger, _ := zap.NewDevelopment()

		bh := NewBlockHandler(logger)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		receivedCount := 0
		var mu sync.Mutex

		go bh.ListenToChannel(ctx, func(blockNumber uint64) {
			mu.Lock()
			receivedCount++
			mu.Unlock()
		})

		time.Sleep(50 * time.Millisecond)

		// 5 writers * 10 blocks = 50 total, well under the channel capacity
		numWriters := 5
		blocksPerWriter := 10
		var wg sync.WaitGroup

		for w := 0; w < numWriters; w++ {
			wg.Add(1)
			go func(writerID int) {
				defer wg.Done()
				for i := 0; i < blocksPerWriter; i++ {
					_ = bh.HandleBlock(ctx, uint64(writerID*blocksPerWriter+i))
					time.Sleep(2 * time.Millisecond)
				}
			}(w)
		}

		wg.Wait()
		time.Sleep(300 * time.Millisecond)

		mu.Lock()
		defer mu.Unlock()

		if expectedTotal := numWriters * blocksPerWriter; receivedCount != expectedTotal {
			t.Errorf("Expected %d blocks, got %d", expectedTotal, receivedCount)
		}
	})
}
