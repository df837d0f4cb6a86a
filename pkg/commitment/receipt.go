package commitment

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/ethproofs/chainproof-go/pkg/merkle"
)

// ReceiptProjection is the canonical byte form of a transaction receipt used
// as a merkle leaf in object-commitment mode. Field order is fixed; changing
// it (or any field's encoding) changes every receipt root ever produced.
type ReceiptProjection struct {
	TxHash    string   `json:"tx_hash"`
	Index     uint64   `json:"index"`
	Logs      []string `json:"logs"`
	From      string   `json:"from"`
	To        string   `json:"to"`
	BlockHash string   `json:"block_hash"`
	Root      string   `json:"root"`
	LogsBloom string   `json:"logs_bloom"`
}

// ReceiptRecord pairs a receipt with the sender and recipient recovered from
// its transaction. The receipt itself does not carry them.
type ReceiptRecord struct {
	Receipt *types.Receipt
	From    common.Address
	To      *common.Address // nil for contract creation
}

// EncodeReceipt projects a receipt record into its canonical leaf blob.
// Each log entry is serialized independently so the projection stays stable
// under go-ethereum log type changes that don't touch the JSON form.
func EncodeReceipt(record *ReceiptRecord) ([]byte, error) {
	if record == nil || record.Receipt == nil {
		return nil, fmt.Errorf("cannot encode nil receipt")
	}
	receipt := record.Receipt

	logs := make([]string, len(receipt.Logs))
	for i, log := range receipt.Logs {
		raw, err := json.Marshal(log)
		if err != nil {
			return nil, fmt.Errorf("failed to encode log %d of receipt %s: %w", i, receipt.TxHash.Hex(), err)
		}
		logs[i] = string(raw)
	}

	to := ""
	if record.To != nil {
		to = record.To.Hex()
	}

	projection := ReceiptProjection{
		TxHash:    receipt.TxHash.Hex(),
		Index:     uint64(receipt.TransactionIndex),
		Logs:      logs,
		From:      record.From.Hex(),
		To:        to,
		BlockHash: receipt.BlockHash.Hex(),
		Root:      hexutil.Encode(receipt.PostState),
		LogsBloom: hexutil.Encode(receipt.Bloom.Bytes()),
	}

	return json.Marshal(projection)
}

// BuildReceiptTree builds the object-commitment tree over an ordered list of
// receipt records. Order is the caller's transaction order within the block
// and is exactly what the root commits to. The encoded leaf blobs are
// returned alongside the tree so callers can hand a verifier the original
// leaf together with its proof.
func BuildReceiptTree(records []*ReceiptRecord) (*merkle.Tree, [][]byte, error) {
	leaves := make([][]byte, len(records))
	for i, record := range records {
		blob, err := EncodeReceipt(record)
		if err != nil {
			return nil, nil, err
		}
		leaves[i] = blob
	}

	tree, err := merkle.Build(leaves)
	if err != nil {
		return nil, nil, err
	}
	return tree, leaves, nil
}
