package mining

import (
	"errors"

	"github.com/dchain-network/dchain/internal/chain"
)

// DefaultRangeSize is the number of nonces handed out per MINE
// request. This is fixed once per deployment, typically somewhere in
// the 100,000–400,000 range.
const DefaultRangeSize = 200_000

var (
	ErrNoTasks          = errors.New("mining: no tasks in queue")
	ErrNoActiveTask     = errors.New("mining: queue is empty")
	ErrNonceOutOfRange  = errors.New("mining: nonce outside the miner's assigned range")
	ErrHashMismatch     = errors.New("mining: recomputed hash does not match submission")
	ErrDifficultyNotMet = errors.New("mining: recomputed hash does not meet difficulty")
)

// Queue is the FIFO of mining tasks. It is not safe for concurrent use
// on its own — internal/server.State embeds it behind the single
// server-wide lock, as the only guarded state object. Queue methods
// assume the caller already holds that lock.
type Queue struct {
	rangeSize uint64
	tasks     []*Task
}

// NewQueue creates an empty queue allocating rangeSize nonces per
// MINE request.
func NewQueue(rangeSize uint64) *Queue {
	if rangeSize == 0 {
		rangeSize = DefaultRangeSize
	}
	return &Queue{rangeSize: rangeSize}
}

// Len returns the number of tasks currently queued.
func (q *Queue) Len() int { return len(q.tasks) }

// Enqueue appends a freshly constructed task to the back of the
// queue. Callers in internal/server build the unsealed Block
// (projecting id/prev_hash per §4.5) before calling this.
func (q *Queue) Enqueue(t *Task) {
	q.tasks = append(q.tasks, t)
}

// head returns the front-of-queue task, or nil if the queue is empty.
func (q *Queue) head() *Task {
	if len(q.tasks) == 0 {
		return nil
	}
	return q.tasks[0]
}

// AssignWork allocates the next nonce range of the queue's configured
// size on the head task to miner, transitioning it to mining on first
// allocation. Returns ErrNoTasks if the queue is empty.
func (q *Queue) AssignWork(miner string) (taskID string, block chain.Block, start, end uint64, difficulty int, err error) {
	head := q.head()
	if head == nil {
		return "", chain.Block{}, 0, 0, 0, ErrNoTasks
	}
	start, end = head.allocateRange(miner, q.rangeSize)
	snap := head.Block()
	return head.id, snap, start, end, snap.Difficulty, nil
}

// ValidateAndSeal checks a miner's proposed (nonce, hash) against the
// head task and, if it satisfies the range/hash/difficulty
// preconditions, mutates the head block's nonce and hash so it now
// satisfies the seal condition. It does NOT pop the task or touch the
// blockchain — the caller must attempt blockchain.Append(sealed) next,
// and only call CompleteHead if that succeeds. This split is what lets
// internal/server.State compose {seal, append, pop, re-link, credit}
// into one atomic sequence under its single lock.
func (q *Queue) ValidateAndSeal(miner string, nonce uint64, hash string) (sealed chain.Block, err error) {
	head := q.head()
	if head == nil {
		return chain.Block{}, ErrNoActiveTask
	}
	if !head.checkRange(miner, nonce) {
		return chain.Block{}, ErrNonceOutOfRange
	}
	snap := head.Block()
	recomputed := chain.HashWithNonce(snap.HashInfo(), nonce, snap.Difficulty)
	if recomputed != hash {
		return chain.Block{}, ErrHashMismatch
	}
	if !chain.MeetsDifficulty(recomputed, snap.Difficulty) {
		return chain.Block{}, ErrDifficultyNotMet
	}
	head.seal(nonce, hash)
	return head.Block(), nil
}

// TaskSummary is a read-only view of one queued task, for LIST_QUEUE.
type TaskSummary struct {
	BlockID    int
	Status     string
	Difficulty int
}

// Snapshot returns a summary of every queued task, head first.
func (q *Queue) Snapshot() []TaskSummary {
	out := make([]TaskSummary, 0, len(q.tasks))
	for _, t := range q.tasks {
		snap := t.Block()
		out = append(out, TaskSummary{BlockID: snap.ID, Status: t.Status().String(), Difficulty: snap.Difficulty})
	}
	return out
}

// CompleteHead pops the just-sealed head task and, if another task is
// now at the head, rewrites its block's id and prev_hash to chain
// onto sealedHash. The new head's timestamp and any nonce ranges
// already handed out against it are left untouched: an in-flight
// solution computed against its old fields will now fail
// HashMismatch/DifficultyNotMet, which is correct, not a bug.
func (q *Queue) CompleteHead(newCurrentID int, sealedHash string) {
	if len(q.tasks) == 0 {
		return
	}
	q.tasks = q.tasks[1:]
	if newHead := q.head(); newHead != nil {
		newHead.relinkHead(newCurrentID, sealedHash)
	}
}
