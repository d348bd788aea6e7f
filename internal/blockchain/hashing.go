package blockchain

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// BlockHash computes the deterministic hex digest the quorum selector,
// signature scheme, and skeleton path all key off of. Grounded on the
// original's Hashing.getBlockHash(block, nonce) and the teacher's equivalent
// getHashOfMsg: hash a stable field encoding, never Go's map iteration
// order, since spec.md §4.2 requires byte-identical output across nodes.
func BlockHash(b *Block, nonce int) string {
	var sb strings.Builder
	sb.WriteString(strconv.FormatUint(b.BlockID, 10))
	sb.WriteByte('|')
	sb.WriteString(b.PrevHash)
	sb.WriteByte('|')
	for _, digest := range b.OrderedTxDigests() {
		sb.WriteString(digest)
		sb.WriteByte(',')
	}
	sb.WriteByte('|')
	sb.WriteString(strconv.Itoa(nonce))

	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}
