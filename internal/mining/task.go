// Package mining implements the shared mining-task queue: per-task
// nonce-range allocation to miners and head re-linking on solution
// acceptance — the concurrency core of this system.
package mining

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dchain-network/dchain/internal/chain"
)

// Status is a MiningTask's lifecycle state.
type Status int

const (
	StatusPending Status = iota
	StatusMining
	StatusDone
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusMining:
		return "mining"
	case StatusDone:
		return "done"
	default:
		return "unknown"
	}
}

// active reports whether s is a status the head task may be mined
// under — an explicit, correct membership test rather than an
// always-true "status string" truthiness check.
func (s Status) active() bool {
	return s == StatusPending || s == StatusMining
}

// nonceRange is an inclusive [start, end] interval of nonces handed to
// one miner.
type nonceRange struct {
	start, end uint64
}

func (r nonceRange) contains(n uint64) bool { return n >= r.start && n <= r.end }

// Task is an unsealed block plus the bookkeeping needed to allocate
// disjoint nonce ranges to concurrent miners and transition through
// pending -> mining -> done.
type Task struct {
	mu sync.Mutex

	id            string // log-correlation only; never on the wire.
	block         *chain.Block
	status        Status
	createdAt     time.Time
	startedAt     time.Time
	baseNonce     uint64
	currentMax    uint64
	rangesByMiner map[string]nonceRange
}

// NewTask wraps an unsealed block as a freshly enqueued task.
func NewTask(b *chain.Block) *Task {
	return &Task{
		id:            uuid.New().String(),
		block:         b,
		status:        StatusPending,
		createdAt:     time.Now(),
		rangesByMiner: make(map[string]nonceRange),
	}
}

// ID returns the task's log-correlation identifier.
func (t *Task) ID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.id
}

// Status returns the task's current lifecycle state.
func (t *Task) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Block returns a snapshot of the task's block fields needed by
// callers that must read without risking a torn read during a
// concurrent head re-link. The returned value is a copy; mutating it
// has no effect on the task.
func (t *Task) Block() chain.Block {
	t.mu.Lock()
	defer t.mu.Unlock()
	return *t.block
}

// allocateRange assigns the next contiguous, disjoint nonce range of
// size rangeSize to miner, transitioning pending -> mining on first
// allocation. It is the only place ranges are created, which is what
// keeps invariant 6 (pairwise-disjoint ranges) trivially true: each
// call starts strictly after the previous call's end.
func (t *Task) allocateRange(miner string, rangeSize uint64) (start, end uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status == StatusPending {
		t.status = StatusMining
		t.startedAt = time.Now()
	}

	start = t.currentMax + 1
	end = start + rangeSize - 1
	t.currentMax = end
	t.rangesByMiner[miner] = nonceRange{start: start, end: end}
	return start, end
}

// checkRange reports whether nonce falls inside the range previously
// allocated to miner. A miner with no allocation on this task never
// matches.
func (t *Task) checkRange(miner string, nonce uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.rangesByMiner[miner]
	if !ok {
		return false
	}
	return r.contains(nonce)
}

// seal mutates the task's block with the accepted nonce/hash and
// marks the task done. Callers must already hold the queue-level lock
// that makes this part of the atomic {verify, append, pop, re-link,
// credit} sequence.
func (t *Task) seal(nonce uint64, hash string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.block.Nonce = nonce
	t.block.Hash = hash
	t.status = StatusDone
}

// relinkHead rewrites this task's block to be the new head: its
// prev_hash becomes sealedHash, its id becomes newID, and its hash is
// recomputed. The timestamp is left untouched (not refreshed) and
// existing miner nonce allocations are left in place — any in-flight
// solution computed against the old fields will simply fail
// HashMismatch/DifficultyNotMet, which is correct, not a bug.
func (t *Task) relinkHead(newID int, sealedHash string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.block.ID = newID
	t.block.PrevHash = sealedHash
	t.block.Hash = t.block.CalculateHash()
}
