package badger

import (
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethproofs/chainproof-go/pkg/logger"
	"github.com/ethproofs/chainproof-go/pkg/persistence"
)

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()

	tmpDir := t.TempDir()
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})

	bs, err := NewBadgerStore(tmpDir, testLogger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = bs.Close() })
	return bs
}

func sampleCommitment(blockNumber uint64) *persistence.BlockCommitment {
	return &persistence.BlockCommitment{
		BlockNumber: blockNumber,
		ChainId:     11155111,
		ReceiptRoot: common.HexToHash("0xaa"),
		TxHashRoot:  common.HexToHash("0xbb"),
		LeafCount:   7,
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}
}

func TestBadgerStore_SaveAndLoad(t *testing.T) {
	bs := newTestStore(t)

	commitment := sampleCommitment(1000)
	require.NoError(t, bs.SaveCommitment(commitment))

	loaded, err := bs.LoadCommitment(1000)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, commitment, loaded)
}

func TestBadgerStore_Load_NotFound(t *testing.T) {
	bs := newTestStore(t)

	loaded, err := bs.LoadCommitment(9999999)
	require.NoError(t, err)
	require.Nil(t, loaded)
}

func TestBadgerStore_Save_Overwrites(t *testing.T) {
	bs := newTestStore(t)

	first := sampleCommitment(1000)
	require.NoError(t, bs.SaveCommitment(first))

	second := sampleCommitment(1000)
	second.LeafCount = 99
	require.NoError(t, bs.SaveCommitment(second))

	loaded, err := bs.LoadCommitment(1000)
	require.NoError(t, err)
	assert.Equal(t, 99, loaded.LeafCount)
}

func TestBadgerStore_ListAndLatest(t *testing.T) {
	bs := newTestStore(t)

	// Insert out of order; listing must come back ascending
	for _, blockNumber := range []uint64{3000, 1000, 2000} {
		require.NoError(t, bs.SaveCommitment(sampleCommitment(blockNumber)))
	}

	commitments, err := bs.ListCommitments()
	require.NoError(t, err)
	require.Len(t, commitments, 3)
	assert.Equal(t, uint64(1000), commitments[0].BlockNumber)
	assert.Equal(t, uint64(2000), commitments[1].BlockNumber)
	assert.Equal(t, uint64(3000), commitments[2].BlockNumber)

	latest, err := bs.LatestBlockNumber()
	require.NoError(t, err)
	assert.Equal(t, uint64(3000), latest)
}

func TestBadgerStore_LatestEmpty(t *testing.T) {
	bs := newTestStore(t)

	latest, err := bs.LatestBlockNumber()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), latest)
}

func TestBadgerStore_Delete(t *testing.T) {
	bs := newTestStore(t)

	require.NoError(t, bs.SaveCommitment(sampleCommitment(1000)))
	require.NoError(t, bs.DeleteCommitment(1000))

	loaded, err := bs.LoadCommitment(1000)
	require.NoError(t, err)
	require.Nil(t, loaded)

	// Deleting a missing record is not an error
	require.NoError(t, bs.DeleteCommitment(1000))
}

func TestBadgerStore_Persistence(t *testing.T) {
	tmpDir := t.TempDir()
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})

	bs, err := NewBadgerStore(tmpDir, testLogger)
	require.NoError(t, err)

	commitment := sampleCommitment(42)
	require.NoError(t, bs.SaveCommitment(commitment))
	require.NoError(t, bs.Close())

	// Reopen and verify data survived
	bs2, err := NewBadgerStore(tmpDir, testLogger)
	require.NoError(t, err)
	defer func() { _ = bs2.Close() }()

	loaded, err := bs2.LoadCommitment(42)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, commitment.ReceiptRoot, loaded.ReceiptRoot)
}

func TestBadgerStore_Closed(t *testing.T) {
	bs := newTestStore(t)
	require.NoError(t, bs.Close())

	require.Error(t, bs.SaveCommitment(sampleCommitment(1)))
	_, err := bs.LoadCommitment(1)
	require.Error(t, err)
	require.Error(t, bs.HealthCheck())

	// Close is idempotent
	require.NoError(t, bs.Close())
}

func TestBadgerStore_ConcurrentAccess(t *testing.T) {
	bs := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(blockNumber uint64) {
			defer wg.Done()
			assert.NoError(t, bs.SaveCommitment(sampleCommitment(blockNumber)))
			_, err := bs.LoadCommitment(blockNumber)
			assert.NoError(t, err)
		}(uint64(i + 1))
	}
	wg.Wait()

	commitments, err := bs.ListCommitments()
	require.NoError(t, err)
	assert.Len(t, commitments, 10)
}

func TestBadgerStore_HealthCheck(t *testing.T) {
	bs := newTestStore(t)
	require.NoError(t, bs.HealthCheck())
}
