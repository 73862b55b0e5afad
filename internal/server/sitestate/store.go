// Package sitestate keeps the site-wide lock and shutdown decisions made by
// administrators. It only records them; enforcement is done elsewhere.
package sitestate

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/sic/internal/server/models"
)

type Store interface {
	Get(ctx context.Context) (models.SiteState, error)
	SetLocked(ctx context.Context, locked bool, by string, at time.Time) error
	RequestShutdown(ctx context.Context, by string, at time.Time) error
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu    sync.RWMutex
	state models.SiteState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get(context.Context) (models.SiteState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, nil
}

func (s *MemoryStore) SetLocked(_ context.Context, locked bool, by string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Locked = locked
	s.state.ChangedBy = by
	s.state.ChangedAt = at
	return nil
}

func (s *MemoryStore) RequestShutdown(_ context.Context, by string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ShutdownRequested = true
	s.state.ChangedBy = by
	s.state.ChangedAt = at
	return nil
}
