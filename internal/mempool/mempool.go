// Package mempool implements C3: pending-transaction storage keyed by
// digest, served to the reconciliation protocol. Grounded on the teacher's
// memPool/memPoolLock pattern (consensus.go, handlers.go) and spec.md §4.3.
package mempool

import (
	"sync"

	"github.com/kjstanding/BlueChain-for-ML/internal/blockchain"
)

// Pool is the node's pending-transaction set, guarded by one mutex exactly
// as spec.md §5's lock table prescribes ("mempool — mempool, block
// construction critical section").
type Pool struct {
	mu  sync.Mutex
	txs map[string]blockchain.Transaction

	// OnInsert fires after an accepted insert, outside the lock, to drive
	// the gossip contract in spec.md §4.3 ("Every accepted insert triggers
	// a one-way ADD_TRANSACTION to all local_peers").
	OnInsert func(tx blockchain.Transaction)
}

func New() *Pool {
	return &Pool{txs: make(map[string]blockchain.Transaction)}
}

// Contains reports whether digest is currently pending.
func (p *Pool) Contains(digest string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.txs[digest]
	return ok
}

// Insert adds tx if its digest is not already pending. inBlock reports
// whether digest is already committed on chain (the caller's snapshot
// check, spec.md §4.3: "rejected if the digest already appears in any block
// on the chain"). Returns true if the transaction was newly inserted.
func (p *Pool) Insert(tx blockchain.Transaction, inBlock func(digest string) bool) bool {
	digest := tx.Digest()

	p.mu.Lock()
	if _, exists := p.txs[digest]; exists {
		p.mu.Unlock()
		return false
	}
	if inBlock != nil && inBlock(digest) {
		p.mu.Unlock()
		return false
	}
	p.txs[digest] = tx
	p.mu.Unlock()

	if p.OnInsert != nil {
		p.OnInsert(tx)
	}
	return true
}

// Get returns the transaction for digest, if pending.
func (p *Pool) Get(digest string) (blockchain.Transaction, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	tx, ok := p.txs[digest]
	return tx, ok
}

// SnapshotKeys returns the current set of pending digests.
func (p *Pool) SnapshotKeys() map[string]struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make(map[string]struct{}, len(p.txs))
	for k := range p.txs {
		keys[k] = struct{}{}
	}
	return keys
}

// SnapshotTxs returns a shallow copy of every pending transaction, used by
// construct_block (spec.md §4.4.6) to build an accumulator independent of
// concurrent mutation.
func (p *Pool) SnapshotTxs() map[string]blockchain.Transaction {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]blockchain.Transaction, len(p.txs))
	for k, v := range p.txs {
		out[k] = v
	}
	return out
}

// Len reports the number of pending transactions.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.txs)
}

// Clear empties the pool, invoked by the coordinator on commit (spec.md
// §4.3: "invoked by C4 on commit"). After Clear returns, Len() is 0; a
// concurrent Insert racing with Clear is explicitly permitted by spec.md
// and simply starts the next round's pool.
func (p *Pool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.txs = make(map[string]blockchain.Transaction)
}

// Remove drops digest from the pool if present, used when draining
// transactions into a reconstructed block (spec.md §4.6.2 step 4).
func (p *Pool) Remove(digest string) (blockchain.Transaction, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	tx, ok := p.txs[digest]
	if ok {
		delete(p.txs, digest)
	}
	return tx, ok
}
