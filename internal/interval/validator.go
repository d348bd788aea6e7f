// Package interval implements C5, the ML-flavor interval-validation
// sub-protocol: task assignment, voting, and majority tally. Grounded on
// the original's Node.deriveTask/validateModel/receiveIntervalValidation
// and the teacher's identical deterministic-shuffle-by-folded-seed idiom
// (utilities.go's FetchPublicPolyAndPrivateKeyShare uses the same
// seed-a-PRNG-from-a-hash pattern, just over Shamir shares instead of
// quorum membership).
package interval

import (
	"context"
	"math/rand"
	"sync"

	"github.com/kjstanding/BlueChain-for-ML/internal/address"
	"github.com/kjstanding/BlueChain-for-ML/internal/blockchain"
)

// TaskIntervals maps a submitted model to the set of interval indices
// quorum members must re-check. spec.md §6 leaves this external and
// unspecified beyond its signature; the simplest deterministic mapping that
// "bounds the interval space" is one interval per validity entry.
func TaskIntervals(model blockchain.ModelData, blockHash string) []int {
	intervals := make([]int, len(model.IntervalsValidity))
	for i := range intervals {
		intervals[i] = i
	}
	return intervals
}

// FoldSeed folds a hex block hash's UTF-8 bytes into a 64-bit accumulator,
// exactly per spec.md §4.5.1 step 3 ("left-shift 8 and OR each byte; only
// the trailing 8 bytes effectively survive") and the original's identical
// `seed = (seed << 8) | (seedByte & 0xFF)` loop.
func FoldSeed(blockHash string) int64 {
	var seed uint64
	for _, b := range []byte(blockHash) {
		seed = (seed << 8) | uint64(b)
	}
	return int64(seed)
}

// AssignTask derives which interval self must re-validate for the given
// model and quorum, per spec.md §4.5.1 steps 4-5: shuffle a copy of the
// quorum with a PRNG seeded by the folded block hash, then distribute
// intervals round-robin over the shuffled order.
func AssignTask(model blockchain.ModelData, blockHash string, quorum []address.Address, self address.Address) (int, bool) {
	intervals := TaskIntervals(model, blockHash)
	if len(intervals) == 0 {
		return 0, false
	}

	shuffled := append([]address.Address(nil), quorum...)
	rng := rand.New(rand.NewSource(FoldSeed(blockHash)))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	assignment := make(map[address.Address]int, len(shuffled))
	idx := 0
	for _, a := range shuffled {
		assignment[a] = intervals[idx]
		if idx == len(intervals)-1 {
			idx = 0
		} else {
			idx++
		}
	}

	task, ok := assignment[self]
	return task, ok
}

// Validator collects per-interval votes across one round and tallies them
// into a validity map once every quorum member has responded. One
// Validator instance is scoped to a single round, matching spec.md §3's
// "All per-round scratch state ... is reset before the next round."
type Validator struct {
	mu         sync.Mutex
	quorumSize int
	votes      map[int][]bool
	responses  int
	result     map[int]bool
	done       chan struct{}
}

func New(quorumSize int) *Validator {
	return &Validator{
		quorumSize: quorumSize,
		votes:      make(map[int][]bool),
		done:       make(chan struct{}),
	}
}

// RecordVote tallies one quorum member's vote for intervalIdx. spec.md §9's
// design note requires this mutate exactly once per node regardless of
// whether the vote arrived via self-invocation or network gossip — callers
// must ensure RecordVote is invoked exactly once per (round, voter).
func (v *Validator) RecordVote(intervalIdx int, isValid bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.votes[intervalIdx] = append(v.votes[intervalIdx], isValid)
	v.responses++

	if v.responses != v.quorumSize {
		return
	}

	result := make(map[int]bool, len(v.votes))
	for interval, ballots := range v.votes {
		var yes, no int
		for _, b := range ballots {
			if b {
				yes++
			} else {
				no++
			}
		}
		result[interval] = yes > no
	}

	v.responses = 0
	v.votes = make(map[int][]bool)
	v.result = result
	close(v.done)
}

// Wait blocks (bounded by ctx) until RecordVote has tallied every quorum
// member's vote, mirroring the busy-wait-on-validationComplete loop in
// spec.md §4.5.2's invariant, re-architected as a channel instead of the
// original's 1-second-sleep polling loop.
func (v *Validator) Wait(ctx context.Context) (map[int]bool, error) {
	select {
	case <-v.done:
		v.mu.Lock()
		defer v.mu.Unlock()
		return v.result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
