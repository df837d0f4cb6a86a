package main

import (
	"fmt"
	"log"
	"os"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"

	"github.com/ethproofs/chainproof-go/pkg/merkle"
)

func main() {
	app := &cli.App{
		Name:  "proof-verifier",
		Usage: "Offline merkle inclusion proof verification",
		Description: `Verifies that a leaf blob is included under a merkle root, given the
proof produced by the indexer. The proof is the hex concatenation of its
32-byte sibling hashes in leaf-to-root order; no chain access is needed.`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "leaf",
				Usage:    "Hex-encoded leaf blob (the original committed bytes)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "proof",
				Usage:    "Hex-encoded concatenation of the proof's sibling hashes",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "root",
				Usage:    "Hex-encoded 32-byte merkle root",
				Required: true,
			},
		},
		Action: runVerify,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func runVerify(c *cli.Context) error {
	leaf, err := hexutil.Decode(c.String("leaf"))
	if err != nil {
		return fmt.Errorf("invalid leaf: %w", err)
	}

	proofBytes, err := hexutil.Decode(c.String("proof"))
	if err != nil {
		return fmt.Errorf("invalid proof: %w", err)
	}
	proof, err := merkle.DecodeProof(proofBytes)
	if err != nil {
		return fmt.Errorf("invalid proof: %w", err)
	}

	rootBytes, err := hexutil.Decode(c.String("root"))
	if err != nil {
		return fmt.Errorf("invalid root: %w", err)
	}
	if len(rootBytes) != merkle.HashSize {
		return fmt.Errorf("root must be %d bytes, got %d", merkle.HashSize, len(rootBytes))
	}
	var root merkle.Hash
	copy(root[:], rootBytes)

	if !merkle.Verify(leaf, proof, root) {
		return cli.Exit("INVALID: leaf is not included under the given root", 1)
	}

	fmt.Println("OK: leaf is included under the given root")
	return nil
}
