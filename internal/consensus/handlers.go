package consensus

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/kjstanding/BlueChain-for-ML/internal/blockchain"
	"github.com/kjstanding/BlueChain-for-ML/internal/messaging"
	"github.com/kjstanding/BlueChain-for-ML/internal/merkle"
)

// waitPhase bounds a wait for one of wants by cfg.PhaseGateTimeout, spec.md
// §4.1's "bounded wait with periodic re-check" (implemented here as a
// cond-var wait woken on every transition, not a poll loop). Returns an
// error only on timeout/cancellation; callers log-and-drop on that error
// rather than queuing the message, since the round that would have
// accepted it has already moved on.
func (n *Node) waitPhase(ctx context.Context, wants ...Phase) error {
	wctx, cancel := context.WithTimeout(ctx, n.cfg.PhaseGateTimeout)
	defer cancel()
	return n.phase.WaitForAny(wctx, wants...)
}

// Dispatch routes an inbound envelope to its handler, phase-gating each
// kind per spec.md §4.1's table: a bounded wait for the required phase,
// falling back to a logged drop if the round never reaches it in time.
// RequestTransaction, ReceiveMempoolTxs, ReconcileBlock, AlertWallet and
// Ping are phase-independent and are always accepted, matching the
// original's connections.go switch, which never checked `state` for those.
func (n *Node) Dispatch(ctx context.Context, env messaging.Envelope) error {
	switch env.Kind {
	case messaging.KindAddTransaction:
		tx, ok := env.Payload.(blockchain.Transaction)
		if !ok {
			return fmt.Errorf("dispatch: ADD_TRANSACTION payload is not a Transaction")
		}
		if err := n.waitPhase(ctx, PhaseIdle); err != nil {
			n.log.WithField("phase", n.phase.Get()).Debug("dispatch: dropping ADD_TRANSACTION, IDLE never reached")
			return nil
		}
		if !n.validateTx(tx) {
			n.log.WithField("digest", tx.Digest()).Debug("dispatch: rejecting ADD_TRANSACTION, failed flavor validation")
			return nil
		}
		n.mempool.Insert(tx, func(digest string) bool {
			_, inTip := n.Tip().TxMap[digest]
			return inTip
		})
		return nil

	case messaging.KindQuorumReady:
		if err := n.waitPhase(ctx, PhaseIdle, PhaseReady); err != nil {
			n.log.WithField("phase", n.phase.Get()).Debug("dispatch: dropping QUORUM_READY out of phase")
			return nil
		}
		return n.ReceiveQuorumReady(ctx, env.From)

	case messaging.KindReceiveMempoolDigests:
		if err := n.waitPhase(ctx, PhaseMempoolSync, PhaseReady); err != nil {
			n.log.WithField("phase", n.phase.Get()).Debug("dispatch: dropping RECEIVE_MEMPOOL_DIGESTS out of phase")
			return nil
		}
		payload, ok := env.Payload.(messaging.MempoolDigestsPayload)
		if !ok {
			return fmt.Errorf("dispatch: RECEIVE_MEMPOOL_DIGESTS payload malformed")
		}
		return n.ReceiveMempoolDigests(env.From, payload)

	case messaging.KindRequestTransaction:
		payload, ok := env.Payload.(messaging.RequestTransactionPayload)
		if !ok {
			return fmt.Errorf("dispatch: REQUEST_TRANSACTION payload malformed")
		}
		return n.ReceiveRequestTransaction(env.From, payload)

	case messaging.KindReceiveMempoolTxs:
		payload, ok := env.Payload.(messaging.MempoolTxsPayload)
		if !ok {
			return fmt.Errorf("dispatch: RECEIVE_MEMPOOL_TXS payload malformed")
		}
		n.ReceiveMempoolTxs(payload)
		return nil

	case messaging.KindReceiveIntervalValidation:
		if err := n.waitPhase(ctx, PhaseBuilding); err != nil {
			n.log.WithField("phase", n.phase.Get()).Debug("dispatch: dropping RECEIVE_INTERVAL_VALIDATION out of phase")
			return nil
		}
		payload, ok := env.Payload.(messaging.IntervalVotePayload)
		if !ok {
			return fmt.Errorf("dispatch: RECEIVE_INTERVAL_VALIDATION payload malformed")
		}
		n.ReceiveIntervalValidation(payload)
		return nil

	case messaging.KindReceiveSignature:
		if err := n.waitPhase(ctx, PhaseBuilding, PhaseCommitting); err != nil {
			n.log.WithField("phase", n.phase.Get()).Debug("dispatch: dropping RECEIVE_SIGNATURE out of phase")
			return nil
		}
		sig, ok := env.Payload.(blockchain.BlockSignature)
		if !ok {
			return fmt.Errorf("dispatch: RECEIVE_SIGNATURE payload malformed")
		}
		return n.ReceiveQuorumSignature(ctx, sig)

	case messaging.KindReceiveSkeleton:
		if err := n.waitPhase(ctx, PhaseIdle); err != nil {
			n.log.WithField("phase", n.phase.Get()).Debug("dispatch: dropping RECEIVE_SKELETON out of phase")
			return nil
		}
		skel, ok := env.Payload.(blockchain.BlockSkeleton)
		if !ok {
			return fmt.Errorf("dispatch: RECEIVE_SKELETON payload malformed")
		}
		return n.ReceiveSkeleton(ctx, env.From, skel)

	case messaging.KindReconcileBlock:
		payload, ok := env.Payload.(messaging.ReconcileBlockPayload)
		if !ok {
			return fmt.Errorf("dispatch: RECONCILE_BLOCK payload malformed")
		}
		return n.ReconcileBlock(payload)

	case messaging.KindAlertWallet:
		payload, ok := env.Payload.(messaging.AlertWalletPayload)
		if !ok {
			return fmt.Errorf("dispatch: ALERT_WALLET payload malformed")
		}
		n.handleWalletAlert(payload)
		return nil

	case messaging.KindPing:
		return nil

	default:
		return fmt.Errorf("dispatch: unknown message kind %v", env.Kind)
	}
}

// validateTx applies spec.md §4.4.5 step 3's flavor-specific validator
// before a transaction is admitted to the mempool: financial transactions
// must not drive their sender's running balance negative against both the
// committed chain and everything already pending; ML transactions must
// carry a structurally valid model.
func (n *Node) validateTx(tx blockchain.Transaction) bool {
	switch n.cfg.Use {
	case blockchain.FlavorFinancial:
		ftx, ok := tx.(*blockchain.FinancialTx)
		if !ok {
			return false
		}
		return blockchain.ValidateFinancialTx(ftx, n.accounts.snapshot(), n.mempool.SnapshotTxs())
	case blockchain.FlavorML:
		mtx, ok := tx.(*blockchain.MLTx)
		if !ok {
			return false
		}
		return blockchain.ValidateMLTx(mtx)
	default:
		return true
	}
}

// ReconcileBlock handles a peer's RECONCILE_BLOCK report of its block id and
// hash by comparing it against this node's own block at that id; it sends
// no reply and fetches no blocks. spec.md §9 leaves the exact
// RECONCILE_BLOCK catch-up protocol unspecified beyond its message shape;
// this implements the minimal form — compare hashes at the requested id and
// log a mismatch, since full backfill (requesting a skeleton for an
// arbitrary past block id) is out of this expansion's scope.
func (n *Node) ReconcileBlock(payload messaging.ReconcileBlockPayload) error {
	local, ok := n.block.at(payload.BlockID)
	if !ok {
		n.log.WithField("block_id", payload.BlockID).Debug("reconcileBlock: no local block at that id yet")
		return nil
	}
	localHash := blockchain.BlockHash(local, 0)
	if localHash != payload.BlockHash {
		n.log.WithFields(logrus.Fields{
			"block_id": payload.BlockID,
			"local":    localHash,
			"remote":   payload.BlockHash,
		}).Warn("reconcileBlock: chain fork detected at block id")
	}
	return nil
}

// handleWalletAlert verifies an incoming merkle inclusion proof against
// the locally known root for the block it claims to belong to. A wallet
// client without a local chain would instead hold the latest root from its
// last ReconcileBlock/skeleton exchange; here we check it against this
// node's own tip, since Node always has the full chain.
func (n *Node) handleWalletAlert(payload messaging.AlertWalletPayload) {
	tip := n.Tip()
	if !merkle.Verify(payload.Proof, tip.MerkleRoot) {
		n.log.Warn("handleWalletAlert: proof failed to verify against current tip root")
		return
	}
	n.log.WithField("leaf", payload.Proof.LeafDigest).Info("wallet alert: transaction included in latest block")
}
