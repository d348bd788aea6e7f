package consensus

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/kjstanding/BlueChain-for-ML/internal/address"
	"github.com/kjstanding/BlueChain-for-ML/internal/blockchain"
	"github.com/kjstanding/BlueChain-for-ML/internal/interval"
	"github.com/kjstanding/BlueChain-for-ML/internal/messaging"
	"github.com/kjstanding/BlueChain-for-ML/internal/registry"
)

// SendQuorumReady is C4's entry point: announce to the rest of the derived
// quorum that self has enough mempool transactions to begin a round,
// grounded on the original's sendQuorumReady (fan-out over
// Messager.sendOneWayMessage per quorum peer).
func (n *Node) SendQuorumReady(ctx context.Context) {
	n.phase.Set(PhaseReady)
	n.quorumReadyVotes.reset()

	quorum := n.DeriveQuorum()
	env := messaging.Envelope{Kind: messaging.KindQuorumReady, From: n.self}

	n.fanOut(quorum, env)

	// self counts as a vote too, matching the original counting itself in
	// quorumReadyVotes before any peer replies.
	votes := n.quorumReadyVotes.record(n.self)
	n.log.WithField("votes", votes).Debug("sendQuorumReady: self-vote recorded")

	if votes >= n.cfg.QuorumSize {
		go n.beginMempoolSync(ctx)
	}
}

// ReceiveQuorumReady handles an incoming QUORUM_READY, spec.md §4.4.2: if
// the receiver (self) is not in the quorum for its own current tip, it
// replies RECONCILE_BLOCK with its own tip so the sender can detect the
// lag; otherwise it counts the vote as before.
func (n *Node) ReceiveQuorumReady(ctx context.Context, from address.Address) error {
	if !n.InQuorum() {
		tip := n.Tip()
		env := messaging.Envelope{
			Kind: messaging.KindReconcileBlock,
			From: n.self,
			Payload: messaging.ReconcileBlockPayload{
				BlockID:   tip.BlockID,
				BlockHash: blockchain.BlockHash(tip, 0),
			},
		}
		if err := messaging.SendOneWay(from, env); err != nil {
			return fmt.Errorf("receiveQuorumReady: %w", err)
		}
		return nil
	}

	votes := n.quorumReadyVotes.record(from)
	n.log.WithFields(logrus.Fields{"from": from, "votes": votes}).Debug("receiveQuorumReady")

	if votes >= n.cfg.QuorumSize && n.phase.Get() == PhaseIdle {
		n.phase.Set(PhaseReady)
		go n.beginMempoolSync(ctx)
	}
	return nil
}

// fanOut sends env to every address in peers in parallel, grounded on the
// teacher's paypenalty.go goroutine-per-peer PoW race — the pattern is kept
// (launch one goroutine per recipient, join on the results channel), the PoW
// body is not.
func (n *Node) fanOut(peers []address.Address, env messaging.Envelope) {
	type result struct {
		addr address.Address
		err  error
	}
	results := make(chan result, len(peers))
	launched := 0
	for _, p := range peers {
		if p == n.self {
			continue
		}
		launched++
		go func(p address.Address) {
			results <- result{addr: p, err: messaging.SendOneWay(p, env)}
		}(p)
	}
	for i := 0; i < launched; i++ {
		r := <-results
		if r.err != nil {
			n.log.WithError(r.err).WithField("peer", r.addr).Debug("fanOut: delivery failed")
		}
	}
}

// beginMempoolSync is spec.md §4.3: exchange digest sets with the quorum,
// request whatever self is missing, then move to BUILDING once every
// member has replied.
func (n *Node) beginMempoolSync(ctx context.Context) {
	n.phase.Set(PhaseMempoolSync)
	n.mempoolRounds.reset()

	digests := n.mempool.SnapshotKeys()
	digestList := make([]string, 0, len(digests))
	for d := range digests {
		digestList = append(digestList, d)
	}

	quorum := n.DeriveQuorum()
	env := messaging.Envelope{
		Kind:    messaging.KindReceiveMempoolDigests,
		From:    n.self,
		Payload: messaging.MempoolDigestsPayload{Digests: digestList},
	}
	n.fanOut(quorum, env)

	votes := n.mempoolRounds.record(n.self)
	if votes >= n.cfg.QuorumSize {
		go n.ConstructBlock(ctx)
	}
}

// ReceiveMempoolDigests implements spec.md §4.3's digest-diff half: reply
// with REQUEST_TRANSACTION for whatever self is missing from the sender's
// digest set.
func (n *Node) ReceiveMempoolDigests(from address.Address, payload messaging.MempoolDigestsPayload) error {
	missing := make([]string, 0)
	for _, d := range payload.Digests {
		if !n.mempool.Contains(d) {
			missing = append(missing, d)
		}
	}
	if len(missing) > 0 {
		env := messaging.Envelope{
			Kind:    messaging.KindRequestTransaction,
			From:    n.self,
			Payload: messaging.RequestTransactionPayload{Digests: missing},
		}
		if err := messaging.SendOneWay(from, env); err != nil {
			return fmt.Errorf("receiveMempoolDigests: %w", err)
		}
	}

	votes := n.mempoolRounds.record(from)
	if votes >= n.cfg.QuorumSize && n.phase.Get() == PhaseMempoolSync {
		go n.ConstructBlock(context.Background())
	}
	return nil
}

// ReceiveRequestTransaction answers a peer's REQUEST_TRANSACTION for the
// digests it is missing with a RECEIVE_MEMPOOL_TXS reply.
func (n *Node) ReceiveRequestTransaction(from address.Address, payload messaging.RequestTransactionPayload) error {
	txs := make([]blockchain.Transaction, 0, len(payload.Digests))
	for _, d := range payload.Digests {
		if tx, ok := n.mempool.Get(d); ok {
			txs = append(txs, tx)
		}
	}
	if len(txs) == 0 {
		return nil
	}
	env := messaging.Envelope{
		Kind:    messaging.KindReceiveMempoolTxs,
		From:    n.self,
		Payload: messaging.MempoolTxsPayload{Txs: txs},
	}
	return messaging.SendOneWay(from, env)
}

// ReceiveMempoolTxs folds a peer's reconciliation reply back into the
// local mempool.
func (n *Node) ReceiveMempoolTxs(payload messaging.MempoolTxsPayload) {
	for _, tx := range payload.Txs {
		n.mempool.Insert(tx, func(digest string) bool {
			_, inTip := n.block.tip().TxMap[digest]
			return inTip
		})
	}
}

// ConstructBlock is spec.md §4.4: assemble the next block from the
// reconciled mempool, run ML interval validation when applicable, sign its
// hash, and gossip the signature to the quorum.
func (n *Node) ConstructBlock(ctx context.Context) {
	n.phase.Set(PhaseBuilding)

	tip := n.Tip()
	txMap := n.mempool.SnapshotTxs()

	if n.cfg.Use == blockchain.FlavorFinancial {
		accounts := n.accounts.snapshot()
		selected := make(map[string]blockchain.Transaction, len(txMap))
		for _, d := range (&blockchain.Block{TxMap: txMap}).OrderedTxDigests() {
			ftx, ok := txMap[d].(*blockchain.FinancialTx)
			if ok && blockchain.ValidateFinancialTx(ftx, accounts, selected) {
				selected[d] = ftx
			}
		}
		txMap = selected
	}

	blk := &blockchain.Block{
		BlockID:  tip.BlockID + 1,
		PrevHash: blockchain.BlockHash(tip, 0),
		TxMap:    txMap,
	}

	if n.cfg.Use == blockchain.FlavorML {
		if err := n.runIntervalValidation(ctx, blk); err != nil {
			n.log.WithError(err).Warn("constructBlock: interval validation failed")
			n.phase.Set(PhaseIdle)
			return
		}
	}

	n.quorumBlockMu.Lock()
	n.quorumBlock = blk
	n.quorumBlockMu.Unlock()

	hash := blockchain.BlockHash(blk, 0)
	sig, err := registry.SignHash(hash, n.keys.Private)
	if err != nil {
		n.log.WithError(err).Error("constructBlock: signing failed")
		n.phase.Set(PhaseIdle)
		return
	}

	n.sigRounds.reset()
	ownSig := blockchain.BlockSignature{Signer: n.self, BlockHash: hash, Signature: sig}
	votes := n.sigRounds.seedSelf(ownSig)
	n.log.WithFields(logrus.Fields{"hash": hash, "votes": votes}).Debug("constructBlock: self-signed")

	quorum := n.DeriveQuorum()
	env := messaging.Envelope{Kind: messaging.KindReceiveSignature, From: n.self, Payload: ownSig}
	n.fanOut(quorum, env)

	n.phase.Set(PhaseCommitting)

	if votes >= n.cfg.QuorumSize {
		n.tallyAndCommit(ctx, hash)
	}
}

// runIntervalValidation extracts the submitted model, assigns this node's
// interval task, and waits for the quorum's votes to converge into a
// validity map, spec.md §4.5 / C5.
func (n *Node) runIntervalValidation(ctx context.Context, blk *blockchain.Block) error {
	model, err := blockchain.ExtractModel(blk.TxMap)
	if err != nil {
		return err
	}

	prevHash := blk.PrevHash
	quorum := n.DeriveQuorum()

	v := interval.New(len(quorum))
	n.validation.set(v)

	if idx, assigned := interval.AssignTask(model.Model, prevHash, quorum, n.self); assigned {
		valid := model.Model.IntervalsValidity[idx]
		if n.cfg.IsMalicious {
			valid = !valid
		}
		env := messaging.Envelope{
			Kind: messaging.KindReceiveIntervalValidation,
			From: n.self,
			Payload: messaging.IntervalVotePayload{
				IntervalIdx: idx,
				IsValid:     valid,
			},
		}
		n.fanOut(quorum, env)
		v.RecordVote(idx, valid)
	}

	result, err := v.Wait(ctx)
	if err != nil {
		return err
	}

	blk.IntervalValidations = result
	blk.AllValid = blockchain.AllIntervalsValid(result)
	return nil
}

// ReceiveIntervalValidation folds in a peer's vote for the round's
// in-flight validator.
func (n *Node) ReceiveIntervalValidation(payload messaging.IntervalVotePayload) {
	n.validation.recordVote(payload.IntervalIdx, payload.IsValid)
}

// ReceiveQuorumSignature tallies an incoming signature vote, spec.md
// §4.4.8, and commits once a hash clears quorum size.
func (n *Node) ReceiveQuorumSignature(ctx context.Context, sig blockchain.BlockSignature) error {
	pub, ok := n.registry.Lookup(sig.Signer)
	if !ok {
		return fmt.Errorf("receiveQuorumSignature: %w: unknown signer %s", ErrProtocolMismatch, sig.Signer)
	}
	if !registry.VerifySignature(sig.BlockHash, sig.Signature, pub) {
		return fmt.Errorf("receiveQuorumSignature: %w: signature verification failed", ErrProtocolMismatch)
	}

	votes := n.sigRounds.record(sig, n.cfg.LegacyVoteSeeding)
	n.log.WithFields(logrus.Fields{"from": sig.Signer, "hash": sig.BlockHash, "votes": votes}).Debug("receiveQuorumSignature")

	if votes >= n.cfg.QuorumSize {
		n.tallyAndCommit(ctx, sig.BlockHash)
	}
	return nil
}

// tallyAndCommit is spec.md §4.4.8's TallyQuorumSigs: clear the mempool
// first (step 1), then verify the winning hash matches self's own
// candidate block before committing, per spec.md §7's "local hash !=
// winning hash" recoverable-failure bucket.
func (n *Node) tallyAndCommit(ctx context.Context, winningHash string) {
	n.mempool.Clear()

	n.quorumBlockMu.Lock()
	blk := n.quorumBlock
	n.quorumBlockMu.Unlock()

	if blk == nil {
		n.log.Warn("tallyAndCommit: no local candidate block")
		return
	}

	localHash := blockchain.BlockHash(blk, 0)
	if localHash != winningHash {
		n.log.WithFields(logrus.Fields{
			"local":   localHash,
			"winning": winningHash,
		}).Warn("tallyAndCommit: local hash does not match winning hash, round failed")
		n.phase.Set(PhaseIdle)
		return
	}

	n.SendSkeleton(blk, winningHash)
	n.AddBlock(ctx, blk)
}
