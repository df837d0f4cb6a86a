package persistence

import (
	"encoding/json"
	"fmt"
)

// MarshalBlockCommitment serializes a BlockCommitment to JSON bytes.
// common.Hash fields carry their own hex JSON encoding.
func MarshalBlockCommitment(commitment *BlockCommitment) ([]byte, error) {
	if commitment == nil {
		return nil, fmt.Errorf("cannot marshal nil BlockCommitment")
	}

	data, err := json.Marshal(commitment)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal BlockCommitment to JSON: %w", err)
	}

	return data, nil
}

// UnmarshalBlockCommitment deserializes a BlockCommitment from JSON bytes.
func UnmarshalBlockCommitment(data []byte) (*BlockCommitment, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	var commitment BlockCommitment
	if err := json.Unmarshal(data, &commitment); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to BlockCommitment: %w", err)
	}

	return &commitment, nil
}
