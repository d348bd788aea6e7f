// Package merkle builds the Merkle tree over a block's transactions and
// produces inclusion proofs for the wallet-alert path (spec.md §4.7, §6's
// MerkleTree(list_of_tx) external contract). No example in the retrieval
// pack vendors a merkle-tree library as an importable third-party module
// (every pack repo that needs one — e.g. 1170300606-obrs's types/block.go —
// hand-rolls its own over crypto/sha256), so this is built the same way,
// directly on the standard library; see DESIGN.md for the justification.
package merkle

import (
	"crypto/sha256"
	"encoding/hex"
)

// Leaf is anything that can be hashed into the tree. blockchain.Transaction
// satisfies this via its Digest method.
type Leaf interface {
	Digest() string
}

type node struct {
	hash        string
	left, right *node
}

// Tree is a binary Merkle tree with deterministic left-to-right leaf order.
type Tree struct {
	root   *node
	leaves []string
	byHash map[string]int
}

// New builds a tree from txs in the given order. An empty input yields a
// Tree whose Root is "".
func New(txs []Leaf) *Tree {
	t := &Tree{byHash: make(map[string]int)}
	if len(txs) == 0 {
		return t
	}

	level := make([]*node, len(txs))
	for i, tx := range txs {
		h := leafHash(tx.Digest())
		level[i] = &node{hash: h}
		t.leaves = append(t.leaves, h)
		t.byHash[tx.Digest()] = i
	}

	for len(level) > 1 {
		var next []*node
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				// Odd node out promotes itself, mirroring the common
				// duplicate-last-leaf-free convention.
				next = append(next, level[i])
				continue
			}
			parent := &node{
				hash:  parentHash(level[i].hash, level[i+1].hash),
				left:  level[i],
				right: level[i+1],
			}
			next = append(next, parent)
		}
		level = next
	}
	t.root = level[0]
	return t
}

// Root returns the tree's root hash, or "" for an empty tree.
func (t *Tree) Root() string {
	if t.root == nil {
		return ""
	}
	return t.root.hash
}

// Proof is an ordered list of sibling hashes plus left/right orientation,
// sufficient for a light client to recompute the root.
type Proof struct {
	LeafDigest string
	Siblings   []ProofStep
}

type ProofStep struct {
	Hash       string
	IsLeftSibl bool
}

// Proof builds an inclusion proof for tx. Returns ok=false if tx is not a
// leaf of this tree.
func (t *Tree) Proof(tx Leaf) (Proof, bool) {
	idx, ok := t.byHash[tx.Digest()]
	if !ok {
		return Proof{}, false
	}

	level := make([]*node, len(t.leaves))
	for i, h := range t.leaves {
		level[i] = &node{hash: h}
	}

	p := Proof{LeafDigest: tx.Digest()}
	pos := idx
	for len(level) > 1 {
		var next []*node
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				if pos == i {
					pos = len(next) - 1
				}
				continue
			}
			if pos == i {
				p.Siblings = append(p.Siblings, ProofStep{Hash: level[i+1].hash, IsLeftSibl: false})
				pos = len(next)
			} else if pos == i+1 {
				p.Siblings = append(p.Siblings, ProofStep{Hash: level[i].hash, IsLeftSibl: true})
				pos = len(next)
			}
			next = append(next, &node{hash: parentHash(level[i].hash, level[i+1].hash)})
		}
		level = next
	}
	return p, true
}

// Verify recomputes the root from a proof and compares it to root.
func Verify(p Proof, root string) bool {
	h := leafHash(p.LeafDigest)
	for _, step := range p.Siblings {
		if step.IsLeftSibl {
			h = parentHash(step.Hash, h)
		} else {
			h = parentHash(h, step.Hash)
		}
	}
	return h == root
}

func leafHash(digest string) string {
	sum := sha256.Sum256([]byte("leaf:" + digest))
	return hex.EncodeToString(sum[:])
}

func parentHash(left, right string) string {
	sum := sha256.Sum256([]byte("node:" + left + right))
	return hex.EncodeToString(sum[:])
}
