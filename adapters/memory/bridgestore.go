// Package memory provides in-memory implementations for testing.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/artpar/reshape/domain/bridge"
)

// ErrNotFound is returned when a bridge is not found.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a bridge name is already taken.
var ErrDuplicate = errors.New("already exists")

// BridgeStore is an in-memory implementation of ports.BridgeStore.
type BridgeStore struct {
	mu      sync.RWMutex
	bridges map[string]bridge.Bridge // by ID
}

// NewBridgeStore creates a new in-memory bridge store.
func NewBridgeStore() *BridgeStore {
	return &BridgeStore{
		bridges: make(map[string]bridge.Bridge),
	}
}

// Get retrieves a bridge by ID.
func (s *BridgeStore) Get(ctx context.Context, id string) (bridge.Bridge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bridges[id]
	if !ok {
		return bridge.Bridge{}, ErrNotFound
	}
	return b, nil
}

// List returns all bridges ordered by version then priority.
func (s *BridgeStore) List(ctx context.Context) ([]bridge.Bridge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(bridge.Bridge) bool { return true }), nil
}

// ListEnabled returns only enabled bridges ordered by version then priority.
func (s *BridgeStore) ListEnabled(ctx context.Context) ([]bridge.Bridge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(b bridge.Bridge) bool { return b.Enabled }), nil
}

func (s *BridgeStore) collect(keep func(bridge.Bridge) bool) []bridge.Bridge {
	var result []bridge.Bridge
	for _, b := range s.bridges {
		if keep(b) {
			result = append(result, b)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Version != result[j].Version {
			return result[i].Version < result[j].Version
		}
		if result[i].Priority != result[j].Priority {
			return result[i].Priority > result[j].Priority
		}
		return result[i].Name < result[j].Name
	})
	return result
}

// Create stores a new bridge.
func (s *BridgeStore) Create(ctx context.Context, b bridge.Bridge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.bridges {
		if existing.Name == b.Name {
			return ErrDuplicate
		}
	}

	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = now
	}
	s.bridges[b.ID] = b
	return nil
}

// Update modifies an existing bridge.
func (s *BridgeStore) Update(ctx context.Context, b bridge.Bridge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bridges[b.ID]; !ok {
		return ErrNotFound
	}
	b.UpdatedAt = time.Now().UTC()
	s.bridges[b.ID] = b
	return nil
}

// Delete removes a bridge.
func (s *BridgeStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bridges[id]; !ok {
		return ErrNotFound
	}
	delete(s.bridges, id)
	return nil
}
