package quorum

import (
	"sync"

	"github.com/AlexZinkM/joint-wallet/internal/safetx"

	"github.com/ethereum/go-ethereum/common"
)

const shardCount = 32

// store holds one entry per identity hash. Lookups on different hashes
// only contend when they share a shard, and the shard lock is held just for
// the map access. Operations on one transaction serialize on entry.mu.
type store struct {
	shards [shardCount]shard
}

type shard struct {
	mu      sync.Mutex
	entries map[common.Hash]*entry
}

type entry struct {
	mu sync.Mutex

	hash          common.Hash
	tx            *safetx.Transaction
	state         State
	confirmations map[common.Address]safetx.Confirmation
	threshold     int
	// signalled is set once the entry has reported becoming executable.
	signalled   bool
	executionID string
	failure     string
	// removed marks a Draft entry discarded after a failed proposal.
	removed bool
}

func newStore() *store {
	s := &store{}
	for i := range s.shards {
		s.shards[i].entries = make(map[common.Hash]*entry)
	}
	return s
}

func (s *store) shardFor(hash common.Hash) *shard {
	return &s.shards[int(hash[0])%shardCount]
}

func (s *store) get(hash common.Hash) (*entry, bool) {
	sh := s.shardFor(hash)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	e, ok := sh.entries[hash]
	return e, ok
}

// getOrCreate returns the entry for tx's hash, inserting a Draft entry when
// none exists.
func (s *store) getOrCreate(hash common.Hash, tx *safetx.Transaction) (*entry, bool) {
	sh := s.shardFor(hash)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if e, ok := sh.entries[hash]; ok {
		return e, false
	}
	e := &entry{
		hash:          hash,
		tx:            tx,
		state:         StateDraft,
		confirmations: make(map[common.Address]safetx.Confirmation),
	}
	sh.entries[hash] = e
	return e, true
}

// remove drops an entry that never left Draft.
func (s *store) remove(e *entry) {
	sh := s.shardFor(e.hash)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if cur, ok := sh.entries[e.hash]; ok && cur == e {
		delete(sh.entries, e.hash)
	}
	e.removed = true
}

func (s *store) len() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		n += len(sh.entries)
		sh.mu.Unlock()
	}
	return n
}
