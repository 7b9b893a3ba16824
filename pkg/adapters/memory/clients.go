package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/guiche/pkg/domain"
	"github.com/aretw0/guiche/pkg/identity"
)

// Clients implements ports.IdentityStore using an in-memory map.
type Clients struct {
	mu   sync.RWMutex
	data map[string]domain.Client
}

// NewClients creates a store seeded with clients. Identifiers are normalized on the way in.
func NewClients(seed ...domain.Client) *Clients {
	c := &Clients{data: make(map[string]domain.Client, len(seed))}
	for _, client := range seed {
		client.ID = identity.Normalize(client.ID)
		c.data[client.ID] = client
	}
	return c
}

// Put inserts or replaces a client.
func (c *Clients) Put(ctx context.Context, client domain.Client) error {
	client.ID = identity.Normalize(client.ID)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[client.ID] = client
	return nil
}

// All returns every client ordered by identifier.
func (c *Clients) All(ctx context.Context) ([]domain.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Client, 0, len(c.data))
	for _, client := range c.data {
		out = append(out, client)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// FindClient returns a copy of the client.
func (c *Clients) FindClient(ctx context.Context, id string) (*domain.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	client, ok := c.data[identity.Normalize(id)]
	if !ok {
		return nil, domain.ErrClientNotFound
	}
	return &client, nil
}

// UpdateClientScore overwrites the score.
func (c *Clients) UpdateClientScore(ctx context.Context, id string, score float64) (*domain.Client, error) {
	return c.update(identity.Normalize(id), func(client *domain.Client) {
		client.Score = score
	})
}

// UpdateClientLimit overwrites the current limit.
func (c *Clients) UpdateClientLimit(ctx context.Context, id string, limit float64) (*domain.Client, error) {
	return c.update(identity.Normalize(id), func(client *domain.Client) {
		client.Limit = limit
	})
}

func (c *Clients) update(id string, fn func(*domain.Client)) (*domain.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	client, ok := c.data[id]
	if !ok {
		return nil, domain.ErrClientNotFound
	}
	fn(&client)
	c.data[id] = client
	return &client, nil
}
