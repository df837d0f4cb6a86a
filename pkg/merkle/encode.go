package merkle

import "fmt"

// EncodeProof serializes a proof as the plain concatenation of its hashes.
// No delimiters are needed since every hash has fixed width.
func EncodeProof(proof Proof) []byte {
	encoded := make([]byte, 0, len(proof)*HashSize)
	for _, h := range proof {
		encoded = append(encoded, h[:]...)
	}
	return encoded
}

// DecodeProof parses a proof from its concatenated wire form.
func DecodeProof(data []byte) (Proof, error) {
	if len(data)%HashSize != 0 {
		return nil, fmt.Errorf("proof length %d is not a multiple of %d", len(data), HashSize)
	}

	proof := make(Proof, len(data)/HashSize)
	for i := range proof {
		copy(proof[i][:], data[i*HashSize:(i+1)*HashSize])
	}
	return proof, nil
}
