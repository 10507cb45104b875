package pendingauth

import (
	"errors"
	"sync"
	"time"
)

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface
type InMemoryRepo struct {
	mu      sync.RWMutex
	records map[string]*Record

	nowTime func() time.Time
}

// NewInMemoryRepo creates a new in-memory pending authorization repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		records: make(map[string]*Record),
		nowTime: time.Now,
	}
}

// Put stores a pending authorization record under state, expiring after ttl
func (r *InMemoryRepo) Put(state string, record *Record, ttl time.Duration) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}
	if record == nil {
		return errors.New("record cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Create a copy to prevent external modifications
	clone := *record
	clone.CreatedAt = r.nowTime()
	clone.ExpiresAt = clone.CreatedAt.Add(ttl)
	r.records[state] = &clone

	return nil
}

// Get retrieves a pending authorization record by state. Expired records are
// removed and reported as not found.
func (r *InMemoryRepo) Get(state string) (*Record, error) {
	if state == "" {
		return nil, errors.New("state cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	record, exists := r.records[state]
	if !exists {
		return nil, errors.New("state not found")
	}
	if r.nowTime().After(record.ExpiresAt) {
		delete(r.records, state)
		return nil, errors.New("state expired")
	}

	clone := *record
	return &clone, nil
}

// Delete removes a pending authorization record
func (r *InMemoryRepo) Delete(state string) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.records, state)
	return nil
}
