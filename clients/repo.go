package clients

import "sync"

type Repo interface {
	Upsert(client *Client) error
	Get(id string) (*Client, error)
}

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface
type InMemoryRepo struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewInMemoryRepo creates a new in-memory client repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		clients: make(map[string]*Client),
	}
}

var _ Repo = (*InMemoryRepo)(nil)

func (r *InMemoryRepo) Upsert(client *Client) error {
	if client == nil || client.ID == "" {
		return ErrClientNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *client
	clone.RedirectURIs = append([]string(nil), client.RedirectURIs...)
	r.clients[client.ID] = &clone
	return nil
}

func (r *InMemoryRepo) Get(id string) (*Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	client, ok := r.clients[id]
	if !ok {
		return nil, ErrClientNotFound
	}

	clone := *client
	clone.RedirectURIs = append([]string(nil), client.RedirectURIs...)
	return &clone, nil
}
