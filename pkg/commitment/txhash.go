package commitment

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ethproofs/chainproof-go/pkg/merkle"
)

// HashIdentifier produces the fixed-size leaf blob for identifier-commitment
// trees: SHA-256 over the JSON serialization of the hash's hex form. The blob
// is keccak-hashed again inside merkle.Build; both hashes are part of the
// leaf format, and dropping either changes every identifier root ever
// produced.
func HashIdentifier(h common.Hash) []byte {
	raw, _ := json.Marshal(h.Hex())
	sum := sha256.Sum256(raw)
	return sum[:]
}

// BuildTxHashTree builds the identifier-commitment tree for a block's
// transaction hashes. One synthetic leaf for the block's transactions root is
// appended so the commitment also covers the aggregate. target selects which
// leaf's proof is returned; when nil the proof for position 0 is returned.
// A target hash that is not in the block is a hard error, never a zero proof.
func BuildTxHashTree(txHashes []common.Hash, txRoot common.Hash, target *common.Hash) (merkle.Hash, merkle.Proof, int, error) {
	hashes := make([]common.Hash, 0, len(txHashes)+1)
	hashes = append(hashes, txHashes...)
	hashes = append(hashes, txRoot)

	index := 0
	if target != nil {
		index = -1
		for i, h := range hashes {
			if h == *target {
				index = i
				break
			}
		}
		if index < 0 {
			return merkle.Hash{}, nil, 0, fmt.Errorf("transaction hash %s not found in block", target.Hex())
		}
	}

	leaves := make([][]byte, len(hashes))
	for i, h := range hashes {
		leaves[i] = HashIdentifier(h)
	}

	tree, err := merkle.Build(leaves)
	if err != nil {
		return merkle.Hash{}, nil, 0, err
	}

	proof, err := tree.Proof(index)
	if err != nil {
		return merkle.Hash{}, nil, 0, err
	}

	return tree.Root, proof, index, nil
}
