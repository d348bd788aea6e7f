// Package messaging implements the wire-level message kinds of spec.md §6
// and the synchronous send primitives spec.md calls out as an external
// collaborator ("Transport: two-way and one-way message send primitives").
// Grounded on the teacher's gob-over-TCP exchanges (handlers.go,
// connections.go, comply.go) — gob is kept because that is the teacher's
// own wire format and spec.md §6 only requires "any encoding preserving the
// payload types."
package messaging

import (
	"encoding/gob"

	"github.com/kjstanding/BlueChain-for-ML/internal/address"
	"github.com/kjstanding/BlueChain-for-ML/internal/blockchain"
	"github.com/kjstanding/BlueChain-for-ML/internal/merkle"
)

// Kind enumerates the message variants of spec.md §6's table.
type Kind int

const (
	KindPing Kind = iota
	KindAddTransaction
	KindQuorumReady
	KindReconcileBlock
	KindReceiveMempoolDigests
	KindReceiveMempoolTxs
	KindRequestTransaction
	KindReceiveSignature
	KindReceiveSkeleton
	KindReceiveIntervalValidation
	KindAlertWallet
)

var kindNames = map[Kind]string{
	KindPing:                      "PING",
	KindAddTransaction:            "ADD_TRANSACTION",
	KindQuorumReady:               "QUORUM_READY",
	KindReconcileBlock:            "RECONCILE_BLOCK",
	KindReceiveMempoolDigests:     "RECEIVE_MEMPOOL_DIGESTS",
	KindReceiveMempoolTxs:         "RECEIVE_MEMPOOL_TXS",
	KindRequestTransaction:        "REQUEST_TRANSACTION",
	KindReceiveSignature:          "RECEIVE_SIGNATURE",
	KindReceiveSkeleton:           "RECEIVE_SKELETON",
	KindReceiveIntervalValidation: "RECEIVE_INTERVAL_VALIDATION",
	KindAlertWallet:               "ALERT_WALLET",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// Envelope is the single struct that crosses the wire for every exchange.
// Payload is nil for PING/QUORUM_READY requests, one of the *Payload types
// below otherwise.
type Envelope struct {
	Kind    Kind
	From    address.Address
	Payload interface{}
}

// ReconcileBlockPayload carries a peer's reported chain tip, the
// RECONCILE_BLOCK payload of spec.md §6 ("(block_id, block_hash) or block_id").
type ReconcileBlockPayload struct {
	BlockID   uint64
	BlockHash string
}

// MempoolDigestsPayload is the RECEIVE_MEMPOOL request payload: a snapshot
// digest set.
type MempoolDigestsPayload struct {
	Digests []string
}

// MempoolTxsPayload is the RECEIVE_MEMPOOL reply payload: transactions sent
// in response to REQUEST_TRANSACTION.
type MempoolTxsPayload struct {
	Txs []blockchain.Transaction
}

// RequestTransactionPayload is the REQUEST_TRANSACTION payload: the digests
// missing locally.
type RequestTransactionPayload struct {
	Digests []string
}

// IntervalVotePayload is the RECEIVE_INTERVAL_VALIDATION payload.
type IntervalVotePayload struct {
	IntervalIdx int
	IsValid     bool
}

// AlertWalletPayload is the ALERT_WALLET payload: a Merkle inclusion proof.
type AlertWalletPayload struct {
	Proof merkle.Proof
}

func init() {
	// gob needs every concrete type that will flow through an interface{}
	// or Transaction-interface field registered up front, exactly as the
	// teacher registers its own message structs implicitly by using
	// concrete (non-interface) fields; we use interfaces for Transaction,
	// so registration is required where the teacher's design didn't need it.
	gob.Register(&blockchain.FinancialTx{})
	gob.Register(&blockchain.MLTx{})
	gob.Register(ReconcileBlockPayload{})
	gob.Register(MempoolDigestsPayload{})
	gob.Register(MempoolTxsPayload{})
	gob.Register(RequestTransactionPayload{})
	gob.Register(blockchain.BlockSignature{})
	gob.Register(blockchain.BlockSkeleton{})
	gob.Register(IntervalVotePayload{})
	gob.Register(AlertWalletPayload{})
}
