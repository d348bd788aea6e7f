package consensus

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kjstanding/BlueChain-for-ML/internal/address"
	"github.com/kjstanding/BlueChain-for-ML/internal/blockchain"
	"github.com/kjstanding/BlueChain-for-ML/internal/messaging"
	"github.com/kjstanding/BlueChain-for-ML/internal/registry"
)

// SendSkeleton is C6: once a quorum member commits a block, it gossips a
// compact skeleton (digests + quorum signatures, no transaction bodies) to
// every peer outside the quorum so the rest of the network can catch up
// without re-running consensus, spec.md §4.6.
func (n *Node) SendSkeleton(blk *blockchain.Block, winningHash string) {
	quorum := n.DeriveQuorum()
	sigs := n.sigRounds.signaturesFor(winningHash)

	skel := blockchain.BlockSkeleton{
		BlockID:             blk.BlockID,
		TxDigests:           blk.OrderedTxDigests(),
		Signatures:          sigs,
		BlockHash:           winningHash,
		IntervalValidations: blk.IntervalValidations,
		AllValid:            blk.AllValid,
	}

	env := messaging.Envelope{Kind: messaging.KindReceiveSkeleton, From: n.self, Payload: skel}

	outsiders := make([]address.Address, 0, len(n.globalPeers))
	for _, p := range n.globalPeers {
		if !address.Contains(quorum, p) {
			outsiders = append(outsiders, p)
		}
	}
	n.fanOut(outsiders, env)
}

// ReceiveSkeleton is spec.md §4.6's receiving half: validate the attached
// signatures, then reconstruct the block body from the local mempool,
// sending REQUEST_TRANSACTION to the skeleton's sender for whatever is
// missing and bounding the wait by cfg.SkeletonAssemblyTimeout — the chosen resolution of spec.md
// §9 open question 2, in place of the original's silent
// reconstruct-with-whatever-arrived behavior.
func (n *Node) ReceiveSkeleton(ctx context.Context, from address.Address, skel blockchain.BlockSkeleton) error {
	tip := n.Tip()
	if skel.BlockID != tip.BlockID+1 {
		return fmt.Errorf("receiveSkeleton: %w: skeleton for block %d, tip is %d", ErrProtocolMismatch, skel.BlockID, tip.BlockID)
	}

	isNew, conflict := n.seenSkeletons.markIfNew(skel.BlockID, skel.BlockHash)
	if conflict {
		return fmt.Errorf("receiveSkeleton: %w: conflicting skeleton for block %d", ErrProtocolMismatch, skel.BlockID)
	}
	if !isNew {
		return nil
	}

	if err := n.ValidateSkeleton(skel); err != nil {
		return err
	}

	blk, err := n.ConstructBlockWithSkeleton(ctx, skel, from)
	if err != nil {
		return err
	}

	n.AddBlock(ctx, blk)
	return nil
}

// ValidateSkeleton checks that at least |quorum|-1 distinct signatures
// verify against skel.BlockHash from registered, quorum-eligible signers,
// spec.md §4.6.2 step 3's acceptance rule ("Accept iff verified_count =
// |quorum| − 1", deliberately excluding one signer, typically self or the
// leader).
func (n *Node) ValidateSkeleton(skel blockchain.BlockSkeleton) error {
	expectedQuorum := n.DeriveQuorum()

	verified := make(map[address.Address]bool)
	for _, sig := range skel.Signatures {
		if !address.Contains(expectedQuorum, sig.Signer) {
			continue
		}
		pub, ok := n.registry.Lookup(sig.Signer)
		if !ok {
			continue
		}
		if sig.BlockHash != skel.BlockHash {
			continue
		}
		if registry.VerifySignature(sig.BlockHash, sig.Signature, pub) {
			verified[sig.Signer] = true
		}
	}

	if len(verified) < len(expectedQuorum)-1 {
		return fmt.Errorf("receiveSkeleton: %w: only %d of %d required signatures verified", ErrRoundFailed, len(verified), len(expectedQuorum)-1)
	}
	return nil
}

// ConstructBlockWithSkeleton rebuilds a full block body from a skeleton's
// digest list, pulling whatever this node is missing from the mempool and,
// failing that, from the skeleton's sender, bounded by
// cfg.SkeletonAssemblyTimeout.
func (n *Node) ConstructBlockWithSkeleton(ctx context.Context, skel blockchain.BlockSkeleton, from address.Address) (*blockchain.Block, error) {
	txMap := make(map[string]blockchain.Transaction, len(skel.TxDigests))
	var missing []string
	for _, d := range skel.TxDigests {
		if tx, ok := n.mempool.Get(d); ok {
			txMap[d] = tx
			continue
		}
		missing = append(missing, d)
	}

	if len(missing) > 0 {
		if err := n.requestAndWaitForTxs(ctx, from, missing, txMap); err != nil {
			return nil, err
		}
	}

	tip := n.Tip()
	blk := &blockchain.Block{
		BlockID:             skel.BlockID,
		PrevHash:            blockchain.BlockHash(tip, 0),
		TxMap:               txMap,
		IntervalValidations: skel.IntervalValidations,
		AllValid:            skel.AllValid,
	}

	got := blockchain.BlockHash(blk, 0)
	if got != skel.BlockHash {
		return nil, fmt.Errorf("constructBlockWithSkeleton: %w: reconstructed hash %s != skeleton hash %s", ErrRoundFailed, got, skel.BlockHash)
	}
	for d := range txMap {
		n.mempool.Remove(d)
	}
	return blk, nil
}

func (n *Node) requestAndWaitForTxs(ctx context.Context, from address.Address, missing []string, txMap map[string]blockchain.Transaction) error {
	env := messaging.Envelope{
		Kind:    messaging.KindRequestTransaction,
		From:    n.self,
		Payload: messaging.RequestTransactionPayload{Digests: missing},
	}
	if err := messaging.SendOneWay(from, env); err != nil {
		return fmt.Errorf("requestAndWaitForTxs: %w", err)
	}

	deadline := time.Now().Add(n.cfg.SkeletonAssemblyTimeout)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		allPresent := true
		for _, d := range missing {
			if _, ok := txMap[d]; ok {
				continue
			}
			if tx, ok := n.mempool.Get(d); ok {
				txMap[d] = tx
				continue
			}
			allPresent = false
		}
		if allPresent {
			return nil
		}
		if time.Now().After(deadline) {
			n.log.WithFields(logrus.Fields{"missing": len(missing) - len(txMap)}).Warn("requestAndWaitForTxs: timed out")
			return ErrIncompleteSkeleton
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
