package webhookledger

import (
	"context"
	"sync"
)

const memoryShards = 16

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	shards [memoryShards]struct {
		mu      sync.RWMutex
		records map[string]*Record
	}
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{}
	for i := range s.shards {
		s.shards[i].records = make(map[string]*Record)
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context, eventID string) (*Record, error) {
	sh := &s.shards[stripe(eventID)%memoryShards]
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	rec, ok := sh.records[eventID]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.clone(), nil
}

func (s *MemoryStore) InsertIfAbsent(_ context.Context, rec *Record) (*Record, bool, error) {
	sh := &s.shards[stripe(rec.EventID)%memoryShards]
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if existing, ok := sh.records[rec.EventID]; ok {
		return existing.clone(), false, nil
	}
	sh.records[rec.EventID] = rec.clone()
	return rec.clone(), true, nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		n += len(sh.records)
		sh.mu.RUnlock()
	}
	return n
}
