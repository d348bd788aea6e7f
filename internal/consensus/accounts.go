package consensus

import (
	"github.com/sirupsen/logrus"

	"github.com/kjstanding/BlueChain-for-ML/internal/address"
	"github.com/kjstanding/BlueChain-for-ML/internal/blockchain"
	"github.com/kjstanding/BlueChain-for-ML/internal/messaging"
)

// applyAccountsAndAlert is the financial-flavor half of spec.md §4.7's
// commit step: apply every committed transaction to the running balance
// sheet, then notify any watched account whose balance just moved, each
// notification carrying a merkle inclusion proof so the recipient can
// verify the alert against the block's own root without trusting the
// sender.
func (n *Node) applyAccountsAndAlert(b *blockchain.Block) {
	n.accounts.apply(b.TxMap)

	leaves := make([]merkleLeaf, 0, len(b.TxMap))
	for _, d := range b.OrderedTxDigests() {
		leaves = append(leaves, merkleLeaf{b.TxMap[d]})
	}

	for _, tx := range b.TxMap {
		ftx, ok := tx.(*blockchain.FinancialTx)
		if !ok {
			continue
		}
		n.alertIfWatched(ftx.From, tx, leaves)
		n.alertIfWatched(ftx.To, tx, leaves)
	}
}

func (n *Node) alertIfWatched(account string, tx blockchain.Transaction, leaves []merkleLeaf) {
	watcher, ok := n.accounts.watcherOf(account)
	if !ok {
		return
	}
	proof, ok := merkleProofFor(leaves, tx)
	if !ok {
		return
	}
	env := messaging.Envelope{
		Kind:    messaging.KindAlertWallet,
		From:    n.self,
		Payload: messaging.AlertWalletPayload{Proof: proof},
	}
	if err := messaging.SendOneWay(watcher, env); err != nil {
		n.log.WithError(err).WithFields(logrus.Fields{
			"account": account,
			"watcher": watcher,
		}).Debug("alertIfWatched: watcher unreachable")
	}
}

// WatchAccount registers who to notify when account's balance changes,
// the original's registerWalletWatcher.
func (n *Node) WatchAccount(account string, watcher address.Address) {
	n.accounts.watch(account, watcher)
}
