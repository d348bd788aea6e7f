package blockchain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigestOfIsDeterministic(t *testing.T) {
	uid := []byte("tx-1")
	assert.Equal(t, DigestOf(uid), DigestOf(uid))
	assert.NotEqual(t, DigestOf(uid), DigestOf([]byte("tx-2")))
}

func TestGenesisFlavors(t *testing.T) {
	fin := Genesis(FlavorFinancial)
	assert.Equal(t, uint64(0), fin.BlockID)
	assert.Nil(t, fin.IntervalValidations)
	assert.False(t, fin.AllValid)

	ml := Genesis(FlavorML)
	assert.NotNil(t, ml.IntervalValidations)
	assert.True(t, ml.AllValid)
}

func TestOrderedTxDigestsIsSorted(t *testing.T) {
	b := &Block{TxMap: map[string]Transaction{
		"zzz": &FinancialTx{IDBytes: []byte("z")},
		"aaa": &FinancialTx{IDBytes: []byte("a")},
		"mmm": &FinancialTx{IDBytes: []byte("m")},
	}}
	assert.Equal(t, []string{"aaa", "mmm", "zzz"}, b.OrderedTxDigests())
}

func TestBlockHashIsOrderIndependent(t *testing.T) {
	b1 := &Block{
		BlockID:  1,
		PrevHash: "abc",
		TxMap: map[string]Transaction{
			"zzz": &FinancialTx{},
			"aaa": &FinancialTx{},
		},
	}
	b2 := &Block{
		BlockID:  1,
		PrevHash: "abc",
		TxMap: map[string]Transaction{
			"aaa": &FinancialTx{},
			"zzz": &FinancialTx{},
		},
	}
	assert.Equal(t, BlockHash(b1, 0), BlockHash(b2, 0))
}

func TestBlockHashChangesWithNonce(t *testing.T) {
	b := &Block{BlockID: 1, PrevHash: "abc"}
	assert.NotEqual(t, BlockHash(b, 0), BlockHash(b, 1))
}

func TestBlockHashChangesWithPrevHash(t *testing.T) {
	b1 := &Block{BlockID: 1, PrevHash: "abc"}
	b2 := &Block{BlockID: 1, PrevHash: "def"}
	assert.NotEqual(t, BlockHash(b1, 0), BlockHash(b2, 0))
}

func TestValidateFinancialTxRejectsNonPositiveAmount(t *testing.T) {
	tx := &FinancialTx{From: "alice", To: "bob", Amount: 0}
	assert.False(t, ValidateFinancialTx(tx, Accounts{"alice": 100}, nil))
}

func TestValidateFinancialTxRejectsInsufficientBalance(t *testing.T) {
	tx := &FinancialTx{From: "alice", To: "bob", Amount: 50}
	assert.False(t, ValidateFinancialTx(tx, Accounts{"alice": 10}, nil))
}

func TestValidateFinancialTxAccountsForPending(t *testing.T) {
	tx := &FinancialTx{From: "alice", To: "bob", Amount: 50}
	accounts := Accounts{"alice": 100}
	pending := map[string]Transaction{
		"p1": &FinancialTx{From: "alice", To: "carol", Amount: 60},
	}
	// alice has 100, already has 60 pending out, so only 40 left — 50 must fail.
	assert.False(t, ValidateFinancialTx(tx, accounts, pending))
}

func TestValidateFinancialTxAccountsForPendingIncoming(t *testing.T) {
	tx := &FinancialTx{From: "alice", To: "bob", Amount: 50}
	accounts := Accounts{"alice": 10}
	pending := map[string]Transaction{
		"p1": &FinancialTx{From: "carol", To: "alice", Amount: 60},
	}
	assert.True(t, ValidateFinancialTx(tx, accounts, pending))
}

func TestApplyFinancialTxsUpdatesBalances(t *testing.T) {
	accounts := Accounts{"alice": 100, "bob": 0}
	txMap := map[string]Transaction{
		"t1": &FinancialTx{From: "alice", To: "bob", Amount: 30},
	}
	ApplyFinancialTxs(txMap, accounts)
	assert.EqualValues(t, 70, accounts["alice"])
	assert.EqualValues(t, 30, accounts["bob"])
}

func TestTouchesAccount(t *testing.T) {
	tx := &FinancialTx{From: "alice", To: "bob", Amount: 1}
	assert.True(t, TouchesAccount(tx, "alice"))
	assert.True(t, TouchesAccount(tx, "bob"))
	assert.False(t, TouchesAccount(tx, "carol"))
}

func TestValidateMLTxRequiresIntervals(t *testing.T) {
	assert.False(t, ValidateMLTx(&MLTx{}))
	assert.True(t, ValidateMLTx(&MLTx{Model: ModelData{IntervalsValidity: []bool{true}}}))
}

func TestExtractModelRequiresExactlyOne(t *testing.T) {
	_, err := ExtractModel(map[string]Transaction{
		"t1": &FinancialTx{},
	})
	assert.ErrorIs(t, err, ErrNoModelSubmitted)

	model, err := ExtractModel(map[string]Transaction{
		"t1": &FinancialTx{},
		"t2": &MLTx{IDBytes: []byte("m1")},
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("m1"), model.IDBytes)

	_, err = ExtractModel(map[string]Transaction{
		"t1": &MLTx{IDBytes: []byte("m1")},
		"t2": &MLTx{IDBytes: []byte("m2")},
	})
	assert.ErrorIs(t, err, ErrMultipleModelsSubmitted)
}

func TestAllIntervalsValid(t *testing.T) {
	assert.True(t, AllIntervalsValid(map[int]bool{0: true, 1: true}))
	assert.False(t, AllIntervalsValid(map[int]bool{0: true, 1: false}))
}
