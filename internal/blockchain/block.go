package blockchain

import "sort"

// Block is the single data model for both flavors, per spec.md §3: the ML
// flavor simply populates IntervalValidations/AllValid, and the financial
// flavor leaves them nil/false. This collapses the original's
// DefiBlock/MLBlock subtype split into one struct, the more idiomatic Go
// shape for "same fields, one flavor-specific optional extension."
type Block struct {
	BlockID    uint64
	PrevHash   string
	TxMap      map[string]Transaction
	MerkleRoot string

	// ML flavor only; nil/false for financial blocks.
	IntervalValidations map[int]bool
	AllValid            bool
}

// Genesis builds block 0 for the given flavor, exactly per spec.md §6.
func Genesis(flavor Flavor) *Block {
	b := &Block{
		BlockID:  0,
		PrevHash: "000000",
		TxMap:    make(map[string]Transaction),
	}
	if flavor == FlavorML {
		b.IntervalValidations = make(map[int]bool)
		b.AllValid = true
	}
	return b
}

// OrderedTxDigests returns the block's transaction digests in a stable,
// deterministic (sorted) order — needed both for hashing and for the
// skeleton's ordered digest list (spec.md §3's BlockSkeleton).
func (b *Block) OrderedTxDigests() []string {
	digests := make([]string, 0, len(b.TxMap))
	for d := range b.TxMap {
		digests = append(digests, d)
	}
	sort.Strings(digests)
	return digests
}
