package quorum

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kjstanding/BlueChain-for-ML/internal/address"
	"github.com/kjstanding/BlueChain-for-ML/internal/blockchain"
)

func peers(n int) []address.Address {
	out := make([]address.Address, n)
	for i := range out {
		out[i] = address.Address{Host: "127.0.0.1", Port: string(rune('0' + i))}
	}
	return out
}

func TestDeriveIsDeterministic(t *testing.T) {
	block := blockchain.Genesis(blockchain.FlavorFinancial)
	globalPeers := peers(6)

	q1 := Derive(block, 0, globalPeers, 6, 4)
	q2 := Derive(block, 0, globalPeers, 6, 4)
	assert.Equal(t, q1, q2)
}

func TestDeriveReturnsQuorumSizeDistinctMembers(t *testing.T) {
	block := blockchain.Genesis(blockchain.FlavorFinancial)
	globalPeers := peers(6)

	q := Derive(block, 0, globalPeers, 6, 4)
	assert.Len(t, q, 4)

	seen := make(map[address.Address]bool)
	for _, a := range q {
		assert.False(t, seen[a], "quorum must not contain duplicates")
		seen[a] = true
	}
}

func TestDeriveWithQuorumSizeEqualToNumNodes(t *testing.T) {
	block := blockchain.Genesis(blockchain.FlavorFinancial)
	globalPeers := peers(4)

	q := Derive(block, 0, globalPeers, 4, 4)
	assert.Len(t, q, 4)
	for _, p := range globalPeers {
		assert.True(t, Contains(q, p))
	}
}

func TestDeriveWithQuorumSizeOne(t *testing.T) {
	block := blockchain.Genesis(blockchain.FlavorFinancial)
	globalPeers := peers(4)

	q := Derive(block, 0, globalPeers, 4, 1)
	assert.Len(t, q, 1)
}

func TestDeriveChangesWithNonce(t *testing.T) {
	block := blockchain.Genesis(blockchain.FlavorFinancial)
	globalPeers := peers(10)

	q1 := Derive(block, 0, globalPeers, 10, 5)
	q2 := Derive(block, 1, globalPeers, 10, 5)
	assert.NotEqual(t, q1, q2)
}

func TestContains(t *testing.T) {
	globalPeers := peers(4)
	q := globalPeers[:2]
	assert.True(t, Contains(q, globalPeers[0]))
	assert.False(t, Contains(q, globalPeers[3]))
}
