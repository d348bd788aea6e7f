package consensus

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kjstanding/BlueChain-for-ML/internal/address"
	"github.com/kjstanding/BlueChain-for-ML/internal/blockchain"
	"github.com/kjstanding/BlueChain-for-ML/internal/config"
	"github.com/kjstanding/BlueChain-for-ML/internal/mempool"
	"github.com/kjstanding/BlueChain-for-ML/internal/messaging"
	"github.com/kjstanding/BlueChain-for-ML/internal/quorum"
	"github.com/kjstanding/BlueChain-for-ML/internal/registry"
	"go.dedis.ch/kyber/v3"
)

// Node holds every piece of node-local state spec.md §3 names, plus the
// named locks spec.md §5's lock table requires. This collapses the
// teacher's package-scope globals (ServerList, clientConnections, memPool,
// ...) into fields injected at construction time, per spec.md §9's design
// note ("Inject them rather than using file-scope globals").
type Node struct {
	cfg  config.Config
	self address.Address
	log  *logrus.Entry

	// "peers" lock: local_peers, global_peers.
	peers       *peerSet
	globalPeers []address.Address

	// "mempool" lock lives inside mempool.Pool itself.
	mempool *mempool.Pool

	// "block" lock: blockchain, commit critical section.
	block *blockState

	// "state" lock: phase.
	phase *PhaseGate

	// "quorum_ready_votes" lock.
	quorumReadyVotes *roundCounter

	// "mempool_rounds" lock.
	mempoolRounds *roundCounter

	// "sig_rounds" lock: quorumSigs, receiveQuorumSignature section.
	sigRounds *sigRoundState

	// "validation" lock: validation_votes, validation_responses. The
	// *interval.Validator for the in-flight round is swapped in under this
	// guard at the start of every construct_block invocation.
	validation *validationSlot

	// "accounts" lock: accounts, accounts_to_alert (financial flavor only).
	accounts *accountState

	// Signature registry and this node's own keypair.
	registry *registry.Registry
	keys     registry.KeyPair

	seenSkeletons *seenSkeletonSet

	// quorumBlockMu guards quorumBlock, the candidate block this node
	// built and signed during ConstructBlock, held until tallyAndCommit
	// either confirms or rejects it against the round's winning hash.
	quorumBlockMu sync.Mutex
	quorumBlock   *blockchain.Block
}

// New constructs a Node with the genesis block already appended, mirroring
// the original constructor's writePubKeyToRegistry + initializeBlockchain
// sequence.
func New(cfg config.Config, self address.Address, globalPeers []address.Address, reg *registry.Registry, keys registry.KeyPair, log *logrus.Entry) *Node {
	n := &Node{
		cfg:              cfg,
		self:             self,
		log:              log,
		peers:            newPeerSet(cfg.MaxPeers),
		globalPeers:      globalPeers,
		mempool:          mempool.New(),
		block:            newBlockState(),
		phase:            NewPhaseGate(),
		quorumReadyVotes: newRoundCounter(),
		mempoolRounds:    newRoundCounter(),
		sigRounds:        newSigRoundState(),
		validation:       newValidationSlot(),
		accounts:         newAccountState(),
		registry:         reg,
		keys:             keys,
		seenSkeletons:    newSeenSkeletonSet(),
	}

	reg.WritePublicKey(self, keys.Public)

	genesis := blockchain.Genesis(cfg.Use)
	n.block.append(genesis)

	n.mempool.OnInsert = func(tx blockchain.Transaction) {
		n.gossipTransaction(tx)
	}

	return n
}

func (n *Node) Self() address.Address { return n.self }

func (n *Node) Tip() *blockchain.Block { return n.block.tip() }

func (n *Node) Phase() Phase { return n.phase.Get() }

// DeriveQuorum derives the quorum for the current tip, the repeated
// deriveQuorum(blockchain.getLast(), 0) call sprinkled through the
// original's Node methods.
func (n *Node) DeriveQuorum() []address.Address {
	return quorum.Derive(n.Tip(), 0, n.globalPeers, n.cfg.NumNodes, n.cfg.QuorumSize)
}

// InQuorum reports whether this node is a member of the current tip's
// quorum, the original's inQuorum().
func (n *Node) InQuorum() bool {
	return quorum.Contains(n.DeriveQuorum(), n.self)
}

func (n *Node) gossipTransaction(tx blockchain.Transaction) {
	for _, addr := range n.peers.snapshot() {
		env := messaging.Envelope{Kind: messaging.KindAddTransaction, From: n.self, Payload: tx}
		if err := messaging.SendOneWay(addr, env); err != nil {
			n.log.WithError(err).WithField("peer", addr).Debug("gossipTransaction: peer unreachable")
		}
	}
}

// AddBlock implements spec.md §4.7, the shared commit step for both the
// quorum path (C4) and the skeleton path (C6).
func (n *Node) AddBlock(ctx context.Context, b *blockchain.Block) {
	n.phase.Set(PhaseIdle)

	txs := make([]merkleLeaf, 0, len(b.TxMap))
	for _, d := range b.OrderedTxDigests() {
		txs = append(txs, merkleLeaf{b.TxMap[d]})
	}
	root := buildMerkleRoot(txs)
	b.MerkleRoot = root

	n.block.append(b)
	n.log.WithFields(logrus.Fields{
		"block_id": b.BlockID,
		"txs":      len(b.TxMap),
	}).Info("added block")

	if n.cfg.Use == blockchain.FlavorFinancial {
		n.applyAccountsAndAlert(b)
	}

	if n.InQuorum() {
		n.waitForMempoolThenAnnounce(ctx)
	}
}

// waitForMempoolThenAnnounce is spec.md §4.7 step 5: "If self is in the
// next quorum, spin until |mempool| >= MINIMUM_TRANSACTIONS (bounded-sleep
// poll) then send_quorum_ready." Grounded on the original's identical
// `while(memPool.size() < MINIMUM_TRANSACTIONS) { sleep(3000) }` loop.
func (n *Node) waitForMempoolThenAnnounce(ctx context.Context) {
	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()

	for n.mempool.Len() < n.cfg.MinimumTransactions {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}

	go n.SendQuorumReady(ctx)
}

// publicKeyOf returns the node's own public key.
func (n *Node) publicKeyOf() kyber.Point { return n.keys.Public }
