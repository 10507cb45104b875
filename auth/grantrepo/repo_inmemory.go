// Package grantrepo provides grant storage backends for the auth service.
package grantrepo

import (
	stderrors "errors"
	"sync"

	"github.com/indiemcp/micropub-bridge/auth"
	"github.com/indiemcp/micropub-bridge/internal/errors"
)

var errNotFound = errors.Wrapf(errors.ErrNotFound, "grant")

// InMemoryRepo is a thread-safe in-memory implementation of auth.GrantRepo
type InMemoryRepo struct {
	mu     sync.Mutex
	grants map[string]*auth.Grant // grant ID -> grant
}

// NewInMemoryRepo creates a new in-memory grant repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		grants: make(map[string]*auth.Grant),
	}
}

var _ auth.GrantRepo = (*InMemoryRepo)(nil)

func (r *InMemoryRepo) Upsert(grant *auth.Grant) error {
	if grant == nil || grant.ID == "" {
		return stderrors.New("grant and grant ID are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	clone := cloneGrant(grant)
	r.grants[grant.ID] = clone
	return nil
}

func (r *InMemoryRepo) Get(id string) (*auth.Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	grant, ok := r.grants[id]
	if !ok {
		return nil, errNotFound
	}
	return cloneGrant(grant), nil
}

// ConsumeCode clears the stored code under the lock, so concurrent exchanges
// of the same code cannot both succeed.
func (r *InMemoryRepo) ConsumeCode(code string) (*auth.Grant, error) {
	if code == "" {
		return nil, errNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, grant := range r.grants {
		if grant.Code == code {
			grant.Code = ""
			return cloneGrant(grant), nil
		}
	}
	return nil, errNotFound
}

func (r *InMemoryRepo) GetByRefreshToken(refreshToken string) (*auth.Grant, error) {
	if refreshToken == "" {
		return nil, errNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, grant := range r.grants {
		if grant.RefreshToken == refreshToken {
			return cloneGrant(grant), nil
		}
	}
	return nil, errNotFound
}

func (r *InMemoryRepo) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.grants, id)
	return nil
}

// cloneGrant copies a grant so callers cannot mutate stored state.
func cloneGrant(grant *auth.Grant) *auth.Grant {
	clone := *grant
	clone.Scopes = append([]string(nil), grant.Scopes...)
	return &clone
}
