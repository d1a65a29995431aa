// Package server implements the request router and TCP listener: the
// single guarded state object, command dispatch by role, wire framing,
// and response formatting.
package server

import (
	"errors"
	"sync"

	"github.com/dchain-network/dchain/internal/auth"
	"github.com/dchain-network/dchain/internal/chain"
	"github.com/dchain-network/dchain/internal/cryptoutil"
	"github.com/dchain-network/dchain/internal/diploma"
	"github.com/dchain-network/dchain/internal/mining"
	"github.com/dchain-network/dchain/internal/reward"
)

var (
	ErrInvalidSignature = errors.New("server: diploma does not verify under the supplied public key")
	ErrNotFound         = errors.New("server: block id out of range")
)

// State is the single object guarding every piece of mutable,
// cross-connection state: the blockchain, the mining queue, and the
// reward ledger. Every exported method takes the lock internally; the
// router never sees a mutex directly.
type State struct {
	mu sync.Mutex

	chain   *chain.Blockchain
	queue   *mining.Queue
	rewards *reward.Ledger
	users   *auth.CachedRegistry
}

// NewState wires the four collaborators behind one lock.
func NewState(bc *chain.Blockchain, q *mining.Queue, rl *reward.Ledger, users *auth.CachedRegistry) *State {
	return &State{chain: bc, queue: q, rewards: rl, users: users}
}

// Authenticate resolves username/password to a User, delegating to the
// cached registry. It does not need the state lock: the registry has
// its own internal synchronization.
func (s *State) Authenticate(username, password string) (auth.User, error) {
	return s.users.Authenticate(username, password)
}

// ViewBlock returns the block at id, or ErrNotFound.
func (s *State) ViewBlock(id int) (*chain.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.chain.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return b, nil
}

// AddBlockResult is what ADD_BLOCK reports back to the admin.
type AddBlockResult struct {
	BlockID int
}

// AddBlock verifies the diploma signature, projects id/prev_hash
// against the current queue/chain state, and enqueues a new mining
// task. The admin dispatch path calls this while holding no outer
// lock; State.mu is the only lock involved.
func (s *State) AddBlock(rec diploma.Record, pubPEM string) (AddBlockResult, error) {
	pub, err := cryptoutil.DecodePublicKeyPEM([]byte(pubPEM))
	if err != nil {
		return AddBlockResult{}, ErrInvalidSignature
	}
	if !diploma.Verify(rec, pub) {
		return AddBlockResult{}, ErrInvalidSignature
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var projectedID int
	var prevHash string
	if s.queue.Len() == 0 {
		projectedID = s.chain.CurrentID()
		prevHash = s.chain.LastHash()
	} else {
		projectedID = 0
		prevHash = chain.GenesisPrevHash
	}

	b, err := chain.NewBlock(projectedID, rec, pub, prevHash, s.chain.Difficulty())
	if err != nil {
		return AddBlockResult{}, ErrInvalidSignature
	}
	s.queue.Enqueue(mining.NewTask(b))
	return AddBlockResult{BlockID: b.ID}, nil
}

// MineResult is what MINE reports back to a miner.
type MineResult struct {
	BlockID    int
	HashInfo   string
	NonceStart uint64
	NonceEnd   uint64
	Difficulty int
}

// Mine allocates the next nonce range on the head task to miner.
func (s *State) Mine(miner string) (MineResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, block, start, end, difficulty, err := s.queue.AssignWork(miner)
	if err != nil {
		return MineResult{}, err
	}
	return MineResult{BlockID: block.ID, HashInfo: block.HashInfo(), NonceStart: start, NonceEnd: end, Difficulty: difficulty}, nil
}

// SubmitResult is what SUBMIT_SOLUTION reports back to a miner.
type SubmitResult struct {
	BlockID  int
	PrevHash string
	NewHash  string
	Reward   int
}

// SubmitSolution runs the atomic {seal, append, pop, relink, credit}
// sequence under the single lock. A failed chain append returns before
// the head task is popped and before the reward ledger is credited; the
// head task stays at the front of the queue, with its block already
// carrying the submitted nonce and hash and its status set to done.
func (s *State) SubmitSolution(miner string, nonce uint64, hash string) (SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sealed, err := s.queue.ValidateAndSeal(miner, nonce, hash)
	if err != nil {
		return SubmitResult{}, err
	}
	if err := s.chain.Append(&sealed); err != nil {
		return SubmitResult{}, ChainRejectedError{Cause: err}
	}
	s.queue.CompleteHead(sealed.ID+1, sealed.Hash)

	newTotal, err := s.rewards.Credit(miner, 1)
	if err != nil {
		return SubmitResult{}, err
	}
	return SubmitResult{
		BlockID:  sealed.ID,
		PrevHash: sealed.PrevHash,
		NewHash:  sealed.Hash,
		Reward:   newTotal,
	}, nil
}

// ListQueue returns a snapshot of every pending/mining task, head first.
func (s *State) ListQueue() []mining.TaskSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Snapshot()
}

// ChainRejectedError wraps an unexpected Blockchain.Append failure
// after a solution otherwise passed every mining-queue precondition —
// this should never happen in practice, since SubmitSolution only ever
// calls Append with a block it just sealed against the live chain
// state under the same lock.
type ChainRejectedError struct{ Cause error }

func (e ChainRejectedError) Error() string {
	return "server: chain rejected sealed block: " + e.Cause.Error()
}
func (e ChainRejectedError) Unwrap() error { return e.Cause }
