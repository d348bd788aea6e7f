package blockchain

// Accounts is the financial flavor's balance ledger, keyed by account name
// (spec.md §3's "accounts — map account-key -> integer balance").
type Accounts map[string]int64

// ValidateFinancialTx checks that applying tx on top of accounts, after also
// accounting for every other transaction already staged in pending (the
// mempool on gossip-time acceptance, spec.md §4.4.5, or a fresh per-block
// accumulator during construct_block, spec.md §4.4.6), would not drive the
// sender negative. Grounded on the original's DefiTransactionValidator,
// whose validate(tx, accounts, pendingSet) signature this mirrors.
func ValidateFinancialTx(tx *FinancialTx, accounts Accounts, pending map[string]Transaction) bool {
	if tx.Amount <= 0 {
		return false
	}

	balance := accounts[tx.From]
	for _, other := range pending {
		ftx, ok := other.(*FinancialTx)
		if !ok {
			continue
		}
		if ftx.From == tx.From {
			balance -= ftx.Amount
		}
		if ftx.To == tx.From {
			balance += ftx.Amount
		}
	}

	return balance >= tx.Amount
}

// ApplyFinancialTxs updates accounts in place for every financial
// transaction in txMap, the commit-time step of spec.md §4.7 ("apply
// balance updates to accounts").
func ApplyFinancialTxs(txMap map[string]Transaction, accounts Accounts) {
	for _, t := range txMap {
		ftx, ok := t.(*FinancialTx)
		if !ok {
			continue
		}
		accounts[ftx.From] -= ftx.Amount
		accounts[ftx.To] += ftx.Amount
	}
}

// TouchesAccount reports whether tx moves funds into or out of account, used
// by the wallet-alert fan-out in spec.md §4.7.
func TouchesAccount(t Transaction, account string) bool {
	ftx, ok := t.(*FinancialTx)
	if !ok {
		return false
	}
	return ftx.From == account || ftx.To == account
}
