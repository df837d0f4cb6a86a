package merkle

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// LeafHash computes the keccak256 digest of a raw leaf blob. Every leaf is
// hashed through here exactly once during Build, regardless of whether the
// caller passed raw records or pre-hashed identifiers.
func LeafHash(data []byte) Hash {
	return Hash(crypto.Keccak256Hash(data))
}

// HashPair combines two node hashes into their parent. The pair is sorted
// byte-lexicographically before hashing, so HashPair(a, b) == HashPair(b, a).
// Because combination is commutative, a proof only needs to carry the sibling
// value, never which side of the parent it was on. The sorted pair is hashed
// as the 64-byte concatenation smaller||larger.
//
// An implementation that hashes in fixed (left, right) order produces
// different roots and is not proof-compatible with this one.
func HashPair(a, b Hash) Hash {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}

	data := make([]byte, 2*HashSize)
	copy(data[0:HashSize], a[:])
	copy(data[HashSize:], b[:])

	return Hash(crypto.Keccak256Hash(data))
}

// Build creates a merkle tree from an ordered list of leaf blobs. The order
// of the input is exactly what the root commits to: reordering, inserting,
// removing, or mutating any leaf yields a different root.
//
// The leaf list is padded with empty blobs up to the next power of two so
// the tree is complete and every proof has the same length, log2(padded).
// Padding leaves get no proof; the returned tree exposes exactly one proof
// per input leaf.
func Build(leaves [][]byte) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, fmt.Errorf("cannot build merkle tree from empty leaf list")
	}

	padded := 1
	for padded < len(leaves) {
		padded <<= 1
	}

	// Dense complete binary tree in heap layout: node 0 is the root,
	// children of node i sit at 2i+1 and 2i+2, and the last `padded` slots
	// hold the leaf hashes in input order.
	nodes := make([]Hash, 2*padded-1)
	for j := 0; j < padded; j++ {
		if j < len(leaves) {
			nodes[padded-1+j] = LeafHash(leaves[j])
		} else {
			nodes[padded-1+j] = LeafHash(nil)
		}
	}

	// Filling from the highest internal index down guarantees both children
	// exist before their parent is computed.
	for i := padded - 2; i >= 0; i-- {
		nodes[i] = HashPair(nodes[2*i+1], nodes[2*i+2])
	}

	proofs := make([]Proof, len(leaves))
	for i := range leaves {
		proofs[i] = extractProof(nodes, padded-1+i)
	}

	return &Tree{
		Root:   nodes[0],
		proofs: proofs,
	}, nil
}

// extractProof walks from a leaf's node position up to the root, collecting
// sibling hashes in combination order.
func extractProof(nodes []Hash, v int) Proof {
	proof := make(Proof, 0)
	for v > 0 {
		sibling := v + 1
		if v%2 == 0 {
			sibling = v - 1
		}
		proof = append(proof, nodes[sibling])
		v = (v - 1) / 2
	}
	return proof
}

// Proof returns the inclusion proof for the leaf at the given input index.
func (t *Tree) Proof(index int) (Proof, error) {
	if index < 0 || index >= len(t.proofs) {
		return nil, fmt.Errorf("leaf index %d out of bounds (tree has %d leaves)", index, len(t.proofs))
	}
	return t.proofs[index], nil
}

// Verify reports whether leaf was one of the blobs committed to by root, at
// the position the proof was extracted for. It recomputes the root by folding
// HashPair over the proof starting from the leaf hash; the proof alone
// encodes the path, no leaf index is needed. A mismatch is the normal
// negative outcome, not an error.
func Verify(leaf []byte, proof Proof, root Hash) bool {
	hash := LeafHash(leaf)
	for _, sibling := range proof {
		hash = HashPair(hash, sibling)
	}
	return hash == root
}
