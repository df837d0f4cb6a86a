package merkle

// HashSize is the width in bytes of every tree digest.
const HashSize = 32

// Hash is a keccak256 digest. Hashes are ordered byte-lexicographically;
// that ordering is what makes pair combination commutative (see HashPair).
type Hash [HashSize]byte

// Proof is the ordered list of sibling hashes needed to recompute the root
// from one leaf. Proof[0] is the leaf's direct sibling and the last entry
// sits just below the root. Every proof of one tree has the same length
// because the tree is padded to a complete binary tree.
type Proof []Hash

// Tree is a binary merkle commitment over an ordered list of leaf blobs.
// A Tree is built once by Build and is read-only afterward, so it is safe
// to share across goroutines without locking.
type Tree struct {
	// Root is the commitment to the entire ordered leaf list.
	Root Hash

	// proofs[i] belongs to the i-th input leaf. Proofs for padding leaves
	// are computed during construction but never stored here.
	proofs []Proof
}

// NumLeaves returns the number of original (unpadded) leaves the tree
// commits to.
func (t *Tree) NumLeaves() int {
	return len(t.proofs)
}
