package repository

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sheetsync/sheetsync/backend/go-services/internal/document"
)

// MemoryRepo is an in-memory repository used for unit tests and for running
// the service without a MongoDB instance. It returns copies so callers can
// mutate results freely.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[string]*document.Document
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]*document.Document)}
}

func (m *MemoryRepo) Get(ctx context.Context, id string) (*document.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(d), nil
}

func (m *MemoryRepo) Create(ctx context.Context, d *document.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now
	m.store[d.ID] = clone(d)
	return nil
}

func (m *MemoryRepo) UpdateContent(ctx context.Context, id string, content json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.store[id]
	if !ok {
		return ErrNotFound
	}
	d.Content = append(json.RawMessage(nil), content...)
	d.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryRepo) UpdatePermissions(ctx context.Context, in *document.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.store[in.ID]
	if !ok {
		return ErrNotFound
	}
	d.PrivacyMode = in.PrivacyMode
	d.Viewers = append([]string(nil), in.Viewers...)
	d.Editors = append([]string(nil), in.Editors...)
	d.PendingRequests = append([]string(nil), in.PendingRequests...)
	d.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryRepo) ListByOwner(ctx context.Context, ownerID string) ([]*document.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*document.Document{}
	for _, d := range m.store {
		if d.OwnerID == ownerID {
			out = append(out, clone(d))
		}
	}
	return out, nil
}

func clone(d *document.Document) *document.Document {
	c := *d
	c.Content = append(json.RawMessage(nil), d.Content...)
	c.Viewers = append([]string(nil), d.Viewers...)
	c.Editors = append([]string(nil), d.Editors...)
	c.PendingRequests = append([]string(nil), d.PendingRequests...)
	return &c
}
