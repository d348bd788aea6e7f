package consensus

import (
	"sync"

	"github.com/kjstanding/BlueChain-for-ML/internal/address"
	"github.com/kjstanding/BlueChain-for-ML/internal/blockchain"
)

// peerSet is the "peers" lock of spec.md §5, guarding local_peers.
type peerSet struct {
	mu       sync.RWMutex
	addrs    []address.Address
	maxPeers int
}

func newPeerSet(maxPeers int) *peerSet {
	return &peerSet{maxPeers: maxPeers}
}

func (p *peerSet) snapshot() []address.Address {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]address.Address, len(p.addrs))
	copy(out, p.addrs)
	return out
}

func (p *peerSet) add(a address.Address) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if address.Contains(p.addrs, a) || len(p.addrs) >= p.maxPeers {
		return false
	}
	p.addrs = append(p.addrs, a)
	return true
}

func (p *peerSet) remove(a address.Address) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.addrs = address.Remove(p.addrs, a)
}

func (p *peerSet) len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.addrs)
}

// blockState is the "block" lock of spec.md §5, guarding the chain slice
// and the commit critical section.
type blockState struct {
	mu    sync.RWMutex
	chain []*blockchain.Block
}

func newBlockState() *blockState {
	return &blockState{}
}

func (b *blockState) append(blk *blockchain.Block) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chain = append(b.chain, blk)
}

func (b *blockState) tip() *blockchain.Block {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.chain) == 0 {
		return nil
	}
	return b.chain[len(b.chain)-1]
}

func (b *blockState) height() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return uint64(len(b.chain))
}

func (b *blockState) at(id uint64) (*blockchain.Block, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if id >= uint64(len(b.chain)) {
		return nil, false
	}
	return b.chain[id], true
}

// roundCounter is a plain vote tally guarded by its own mutex, used for both
// "quorum_ready_votes" and "mempool_rounds" in spec.md §5 — both are "count
// replies from quorum members this round, reset next round" state with
// identical shape.
type roundCounter struct {
	mu    sync.Mutex
	count int
	seen  map[address.Address]bool
}

func newRoundCounter() *roundCounter {
	return &roundCounter{seen: make(map[address.Address]bool)}
}

// record registers a reply from from and returns the number of distinct
// peers counted so far this round (duplicate replies do not count twice,
// matching the original's Set<Address> vote bookkeeping).
func (r *roundCounter) record(from address.Address) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.seen[from] {
		r.seen[from] = true
		r.count++
	}
	return r.count
}

func (r *roundCounter) get() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

func (r *roundCounter) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count = 0
	r.seen = make(map[address.Address]bool)
}

// sigRoundState is the "sig_rounds" lock, tallying per-hash vote counts for
// receive_quorum_signature.
type sigRoundState struct {
	mu      sync.Mutex
	sigs    []blockchain.BlockSignature
	votesBy map[string]int
}

func newSigRoundState() *sigRoundState {
	return &sigRoundState{votesBy: make(map[string]int)}
}

// seedSelf initializes the round's vote map with self's own candidate hash
// at 1 vote, spec.md §4.4.8 step 2 ("Initialize a vote map with
// {local_block_hash: 1}") — unconditional and never subject to
// legacySeeding. The off-by-one only ever applies to hashes first
// introduced by an incoming signature (step 3's loop over quorumSigs,
// which never contains self's own signature); self's seed always lands at
// the documented 1.
func (s *sigRoundState) seedSelf(sig blockchain.BlockSignature) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sigs = append(s.sigs, sig)
	s.votesBy[sig.BlockHash] = 1
	return s.votesBy[sig.BlockHash]
}

// record appends an incoming signature (from receive_quorum_signature) and
// bumps its hash's vote count. legacySeeding reproduces spec.md §9 open
// question 1's preserved off-by-one: a hash seen for the first time from an
// incoming signature is inserted at 0 votes rather than counted, so that
// first signer's vote is silently dropped and every hash needs one extra
// signature to clear quorum. Disabling it counts the first sighting as a
// real vote (1), as a fixed implementation would. A hash already present
// (including self's own, seeded by seedSelf) always increments normally —
// the bug only ever touches a hash's first sighting.
func (s *sigRoundState) record(sig blockchain.BlockSignature, legacySeeding bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sigs = append(s.sigs, sig)
	if _, ok := s.votesBy[sig.BlockHash]; !ok {
		if legacySeeding {
			s.votesBy[sig.BlockHash] = 0
		} else {
			s.votesBy[sig.BlockHash] = 1
		}
	} else {
		s.votesBy[sig.BlockHash]++
	}
	return s.votesBy[sig.BlockHash]
}

func (s *sigRoundState) signaturesFor(hash string) []blockchain.BlockSignature {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]blockchain.BlockSignature, 0, len(s.sigs))
	for _, sig := range s.sigs {
		if sig.BlockHash == hash {
			out = append(out, sig)
		}
	}
	return out
}

func (s *sigRoundState) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sigs = nil
	s.votesBy = make(map[string]int)
}

// validationSlot is the "validation" lock, holding the interval.Validator
// in play for the round currently under construction. ML flavor only.
type validationSlot struct {
	mu  sync.Mutex
	cur interface {
		RecordVote(intervalIdx int, isValid bool)
	}
}

func newValidationSlot() *validationSlot {
	return &validationSlot{}
}

func (v *validationSlot) set(cur interface {
	RecordVote(intervalIdx int, isValid bool)
}) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cur = cur
}

func (v *validationSlot) recordVote(idx int, valid bool) {
	v.mu.Lock()
	cur := v.cur
	v.mu.Unlock()
	if cur != nil {
		cur.RecordVote(idx, valid)
	}
}

// accountState is the "accounts" lock, financial flavor only.
type accountState struct {
	mu      sync.Mutex
	balance blockchain.Accounts
	alert   map[string]address.Address
}

func newAccountState() *accountState {
	return &accountState{balance: blockchain.Accounts{}, alert: make(map[string]address.Address)}
}

func (a *accountState) snapshot() blockchain.Accounts {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(blockchain.Accounts, len(a.balance))
	for k, v := range a.balance {
		out[k] = v
	}
	return out
}

func (a *accountState) apply(txMap map[string]blockchain.Transaction) {
	a.mu.Lock()
	defer a.mu.Unlock()
	blockchain.ApplyFinancialTxs(txMap, a.balance)
}

func (a *accountState) watch(account string, who address.Address) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alert[account] = who
}

func (a *accountState) watcherOf(account string) (address.Address, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	w, ok := a.alert[account]
	return w, ok
}

// seenSkeletonSet dedups skeletons already processed for a given block id,
// the guard behind spec.md §4.6's idempotence invariant.
type seenSkeletonSet struct {
	mu   sync.Mutex
	seen map[uint64]string
}

func newSeenSkeletonSet() *seenSkeletonSet {
	return &seenSkeletonSet{seen: make(map[uint64]string)}
}

// markIfNew records hash for blockID and reports whether this is the first
// time blockID has been seen (or a repeat with the exact same hash, which
// is harmless to re-accept; a repeat with a different hash is the protocol
// violation spec.md flags).
func (s *seenSkeletonSet) markIfNew(blockID uint64, hash string) (isNew bool, conflict bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.seen[blockID]
	if !ok {
		s.seen[blockID] = hash
		return true, false
	}
	if existing != hash {
		return false, true
	}
	return false, false
}
