// Package quorum implements C2: deterministic quorum derivation from chain
// state. Grounded on the original's Node.deriveQuorum and the teacher's own
// deterministic shuffle-by-seed idiom in deriveTask (utilities.go/consensus.go).
package quorum

import (
	"math/big"
	"math/rand"

	"github.com/kjstanding/BlueChain-for-ML/internal/address"
	"github.com/kjstanding/BlueChain-for-ML/internal/blockchain"
)

// Derive returns the ordered quorum for block at the given nonce, per
// spec.md §4.2. It is a pure function: identical (block, nonce,
// globalPeers, numNodes, quorumSize) always yields an identical result,
// which is the wire-contract requirement spec.md §4.2 calls out explicitly.
func Derive(block *blockchain.Block, nonce int, globalPeers []address.Address, numNodes, quorumSize int) []address.Address {
	hash := blockchain.BlockHash(block, nonce)

	bigHash := new(big.Int)
	bigHash.SetString(hash, 16)
	bigHash.Mod(bigHash, big.NewInt(int64(numNodes)))
	seed := bigHash.Int64()

	rng := rand.New(rand.NewSource(seed))

	quorum := make([]address.Address, 0, quorumSize)
	seen := make(map[address.Address]bool, quorumSize)
	for len(quorum) < quorumSize {
		idx := rng.Intn(numNodes)
		candidate := globalPeers[idx]
		if seen[candidate] {
			continue
		}
		seen[candidate] = true
		quorum = append(quorum, candidate)
	}
	return quorum
}

// Contains reports whether self is a member of quorum, the repeated
// in_quorum()/inQuorum() check every C4 handler performs.
func Contains(quorum []address.Address, self address.Address) bool {
	return address.Contains(quorum, self)
}
