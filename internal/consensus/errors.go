package consensus

import "errors"

// The three recoverable error kinds of spec.md §7. "Invariant violation"
// (the fourth bucket) is deliberately not a value here — spec.md calls
// those fatal and propagated, so they surface as ordinary Go errors
// wrapped with fmt.Errorf at their call site, or a panic when no caller
// could possibly recover (a missing hash algorithm, a corrupt gob stream).
var (
	// ErrOutOfOrderMessage is returned (never by handlers that instead
	// choose to silently drop, per spec.md §4.1) when a message arrives
	// whose required phase will never be reached before the next addBlock
	// resets the round to IDLE.
	ErrOutOfOrderMessage = errors.New("consensus: out-of-order message for current round")

	// ErrProtocolMismatch covers spec.md §7's "signer not in quorum" /
	// "block id not tip+1" family: never fatal, always logged and dropped.
	ErrProtocolMismatch = errors.New("consensus: protocol mismatch")

	// ErrRoundFailed covers spec.md §7's "signature tally below quorum
	// size" / "local hash != winning hash" family.
	ErrRoundFailed = errors.New("consensus: round failed, scratch state cleared")

	// ErrIncompleteSkeleton is the chosen resolution of spec.md §9 open
	// question 2: a skeleton reconstruction that cannot recover every
	// referenced transaction within the configured deadline fails loudly
	// instead of silently producing a block with a mismatched hash.
	ErrIncompleteSkeleton = errors.New("consensus: skeleton transactions did not arrive via gossip in time")
)
