package persistence

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// BlockCommitment is the per-block record a caller persists after building
// commitments: the two roots plus enough context to serve proofs later. The
// trees themselves are rebuilt on demand from chain data; only the published
// roots need to survive restarts.
//
// A block with no transactions has no receipt tree, so its ReceiptRoot is the
// zero hash. LeafCount == 0 is the discriminator for that case; a zero
// ReceiptRoot alongside a non-zero LeafCount is a corrupt record. TxHashRoot
// is never zero because the identifier tree always contains at least the
// synthetic transactions-root leaf.
type BlockCommitment struct {
	BlockNumber uint64      `json:"block_number"`
	ChainId     uint64      `json:"chain_id"`
	ReceiptRoot common.Hash `json:"receipt_root"`
	TxHashRoot  common.Hash `json:"tx_hash_root"`
	// LeafCount is the number of receipts committed to (pre-padding)
	LeafCount int       `json:"leaf_count"`
	CreatedAt time.Time `json:"created_at"`
}
