package mempool

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kjstanding/BlueChain-for-ML/internal/blockchain"
)

func notInBlock(string) bool { return false }

func TestInsertAndGet(t *testing.T) {
	p := New()
	tx := &blockchain.FinancialTx{IDBytes: []byte("tx-1")}

	assert.True(t, p.Insert(tx, notInBlock))
	assert.Equal(t, 1, p.Len())

	got, ok := p.Get(tx.Digest())
	assert.True(t, ok)
	assert.Equal(t, tx, got)
}

func TestInsertRejectsDuplicate(t *testing.T) {
	p := New()
	tx := &blockchain.FinancialTx{IDBytes: []byte("tx-1")}

	assert.True(t, p.Insert(tx, notInBlock))
	assert.False(t, p.Insert(tx, notInBlock))
	assert.Equal(t, 1, p.Len())
}

func TestInsertRejectsAlreadyCommitted(t *testing.T) {
	p := New()
	tx := &blockchain.FinancialTx{IDBytes: []byte("tx-1")}

	inBlock := func(digest string) bool { return digest == tx.Digest() }
	assert.False(t, p.Insert(tx, inBlock))
	assert.Equal(t, 0, p.Len())
}

func TestOnInsertFiresOutsideLock(t *testing.T) {
	p := New()
	fired := make(chan blockchain.Transaction, 1)
	p.OnInsert = func(tx blockchain.Transaction) {
		fired <- tx
		// Must be able to call back into the pool from the callback
		// without deadlocking, since OnInsert runs after the lock is
		// released.
		p.Contains(tx.Digest())
	}

	tx := &blockchain.FinancialTx{IDBytes: []byte("tx-1")}
	p.Insert(tx, notInBlock)

	select {
	case got := <-fired:
		assert.Equal(t, tx, got)
	default:
		t.Fatal("OnInsert did not fire")
	}
}

func TestSnapshotsAreIndependentCopies(t *testing.T) {
	p := New()
	tx := &blockchain.FinancialTx{IDBytes: []byte("tx-1")}
	p.Insert(tx, notInBlock)

	keys := p.SnapshotKeys()
	txs := p.SnapshotTxs()
	assert.Len(t, keys, 1)
	assert.Len(t, txs, 1)

	p.Remove(tx.Digest())
	assert.Len(t, keys, 1, "snapshot must not reflect later mutation")
	assert.Equal(t, 0, p.Len())
}

func TestClearEmptiesPool(t *testing.T) {
	p := New()
	p.Insert(&blockchain.FinancialTx{IDBytes: []byte("tx-1")}, notInBlock)
	p.Clear()
	assert.Equal(t, 0, p.Len())
}

func TestRemove(t *testing.T) {
	p := New()
	tx := &blockchain.FinancialTx{IDBytes: []byte("tx-1")}
	p.Insert(tx, notInBlock)

	got, ok := p.Remove(tx.Digest())
	assert.True(t, ok)
	assert.Equal(t, tx, got)

	_, ok = p.Remove(tx.Digest())
	assert.False(t, ok)
}
