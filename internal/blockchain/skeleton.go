package blockchain

import "github.com/kjstanding/BlueChain-for-ML/internal/address"

// BlockSignature is one quorum member's signature over a candidate block's
// hash, per spec.md §3.
type BlockSignature struct {
	Signer    address.Address
	BlockHash string
	Signature []byte
}

// BlockSkeleton is the compact commit artifact C6 gossips to non-quorum
// peers, per spec.md §3 and §4.6.1.
type BlockSkeleton struct {
	BlockID             uint64
	TxDigests           []string
	Signatures          []BlockSignature
	BlockHash           string
	IntervalValidations map[int]bool
	AllValid            bool
}
