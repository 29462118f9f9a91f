package plan

import (
	"sync"

	"github.com/battsched/battsched/core/model"
)

// Store holds the single active charging plan. Implementations must make
// Commit atomic so that two concurrent writers cannot both succeed against
// the same prior state.
type Store interface {
	// Get returns the current active plan, or nil when none is committed.
	Get() *model.ChargingPlan
	// Commit replaces the active plan with next if the stored value still
	// matches expected. A nil expected asserts the slot is empty; a nil
	// next clears the slot. It reports whether the swap happened.
	Commit(next, expected *model.ChargingPlan) bool
}

// MemoryStore keeps the active plan in memory.
type MemoryStore struct {
	mu     sync.Mutex
	active *model.ChargingPlan
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Get() *model.ChargingPlan {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return nil
	}
	cp := *s.active
	return &cp
}

func (s *MemoryStore) Commit(next, expected *model.ChargingPlan) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !matches(s.active, expected) {
		return false
	}
	if next == nil {
		s.active = nil
		return true
	}
	cp := *next
	s.active = &cp
	return true
}

func matches(cur, expected *model.ChargingPlan) bool {
	if cur == nil || expected == nil {
		return cur == nil && expected == nil
	}
	return cur.ID == expected.ID && cur.Status == expected.Status
}
