package consensus

import (
	"github.com/kjstanding/BlueChain-for-ML/internal/blockchain"
	"github.com/kjstanding/BlueChain-for-ML/internal/merkle"
)

// merkleLeaf adapts a blockchain.Transaction to merkle.Leaf, since
// internal/merkle is deliberately transaction-agnostic (it only needs a
// digest, not either flavor's concrete fields).
type merkleLeaf struct {
	tx blockchain.Transaction
}

func (l merkleLeaf) Digest() string { return l.tx.Digest() }

func buildMerkleRoot(leaves []merkleLeaf) string {
	asLeaves := make([]merkle.Leaf, len(leaves))
	for i, l := range leaves {
		asLeaves[i] = l
	}
	return merkle.New(asLeaves).Root()
}

func merkleProofFor(leaves []merkleLeaf, tx blockchain.Transaction) (merkle.Proof, bool) {
	asLeaves := make([]merkle.Leaf, len(leaves))
	for i, l := range leaves {
		asLeaves[i] = l
	}
	return merkle.New(asLeaves).Proof(merkleLeaf{tx})
}
