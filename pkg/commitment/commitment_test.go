package commitment

import (
	"fmt"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethproofs/chainproof-go/pkg/merkle"
)

// createTestRecord creates a receipt record with deterministic contents
func createTestRecord(index uint) *ReceiptRecord {
	to := common.HexToAddress(fmt.Sprintf("0x%040x", index+1000))
	return &ReceiptRecord{
		Receipt: &types.Receipt{
			TxHash:           common.HexToHash(fmt.Sprintf("0x%064x", index+1)),
			TransactionIndex: index,
			BlockHash:        common.HexToHash("0xbeef"),
			PostState:        []byte{0x01, 0x02},
			Logs: []*types.Log{
				{
					Address: common.HexToAddress("0xcafe"),
					Topics:  []common.Hash{common.HexToHash("0x01")},
					Data:    []byte{0xaa},
				},
			},
		},
		From: common.HexToAddress(fmt.Sprintf("0x%040x", index+2000)),
		To:   &to,
	}
}

func TestEncodeReceipt(t *testing.T) {
	record := createTestRecord(0)

	blob1, err := EncodeReceipt(record)
	require.NoError(t, err)
	blob2, err := EncodeReceipt(record)
	require.NoError(t, err)

	// The projection is canonical: identical input, identical bytes
	require.Equal(t, blob1, blob2)

	// Fixed field order in the serialized form
	s := string(blob1)
	require.True(t, strings.HasPrefix(s, `{"tx_hash":`))
	order := []string{`"tx_hash"`, `"index"`, `"logs"`, `"from"`, `"to"`, `"block_hash"`, `"root"`, `"logs_bloom"`}
	last := -1
	for _, key := range order {
		pos := strings.Index(s, key)
		require.Greater(t, pos, last, "field %s out of order", key)
		last = pos
	}
}

func TestEncodeReceipt_Nil(t *testing.T) {
	_, err := EncodeReceipt(nil)
	require.Error(t, err)

	_, err = EncodeReceipt(&ReceiptRecord{})
	require.Error(t, err)
}

func TestEncodeReceipt_ContractCreation(t *testing.T) {
	record := createTestRecord(0)
	record.To = nil

	blob, err := EncodeReceipt(record)
	require.NoError(t, err)
	require.Contains(t, string(blob), `"to":""`)
}

func TestBuildReceiptTree(t *testing.T) {
	records := make([]*ReceiptRecord, 5)
	for i := range records {
		records[i] = createTestRecord(uint(i))
	}

	tree, leaves, err := BuildReceiptTree(records)
	require.NoError(t, err)
	require.Equal(t, 5, tree.NumLeaves())
	require.Len(t, leaves, 5)

	for i := range records {
		proof, err := tree.Proof(i)
		require.NoError(t, err)
		require.True(t, merkle.Verify(leaves[i], proof, tree.Root))
	}

	// Mutating a receipt changes the root
	records[2].Receipt.TransactionIndex = 99
	changed, _, err := BuildReceiptTree(records)
	require.NoError(t, err)
	require.NotEqual(t, tree.Root, changed.Root)
}

func TestBuildReceiptTree_Empty(t *testing.T) {
	_, _, err := BuildReceiptTree(nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "empty")
}

func TestBuildTxHashTree(t *testing.T) {
	txHashes := []common.Hash{
		common.HexToHash("0x01"),
		common.HexToHash("0x02"),
		common.HexToHash("0x03"),
	}
	txRoot := common.HexToHash("0xdead")

	t.Run("Default target is position zero", func(t *testing.T) {
		root, proof, index, err := BuildTxHashTree(txHashes, txRoot, nil)
		require.NoError(t, err)
		require.Equal(t, 0, index)

		// 3 tx hashes + synthetic root leaf = 4 leaves, depth 2
		require.Len(t, proof, 2)
		require.True(t, merkle.Verify(HashIdentifier(txHashes[0]), proof, root))
	})

	t.Run("Explicit target", func(t *testing.T) {
		root, proof, index, err := BuildTxHashTree(txHashes, txRoot, &txHashes[1])
		require.NoError(t, err)
		require.Equal(t, 1, index)
		require.True(t, merkle.Verify(HashIdentifier(txHashes[1]), proof, root))
	})

	t.Run("Synthetic root leaf is provable", func(t *testing.T) {
		root, proof, index, err := BuildTxHashTree(txHashes, txRoot, &txRoot)
		require.NoError(t, err)
		require.Equal(t, 3, index)
		require.True(t, merkle.Verify(HashIdentifier(txRoot), proof, root))
	})

	t.Run("Missing target is an error", func(t *testing.T) {
		missing := common.HexToHash("0xffff")
		_, _, _, err := BuildTxHashTree(txHashes, txRoot, &missing)
		require.Error(t, err)
		require.Contains(t, err.Error(), "not found")
	})

	t.Run("Empty block still commits to the transactions root", func(t *testing.T) {
		root, proof, index, err := BuildTxHashTree(nil, txRoot, nil)
		require.NoError(t, err)
		require.Equal(t, 0, index)
		require.Len(t, proof, 0)
		require.True(t, merkle.Verify(HashIdentifier(txRoot), proof, root))
	})
}

func TestHashIdentifier(t *testing.T) {
	h := common.HexToHash("0x0badc0de")

	// Stable and fixed-width
	assert.Equal(t, HashIdentifier(h), HashIdentifier(h))
	assert.Len(t, HashIdentifier(h), 32)

	// Pre-hashed identifier leaves are re-hashed inside Build, so the leaf
	// digest differs from the identifier blob itself
	leaf := merkle.LeafHash(HashIdentifier(h))
	assert.NotEqual(t, leaf[:], HashIdentifier(h))
}
