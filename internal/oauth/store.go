// ABOUTME: TokenStore interface for persisting the current token record.
// ABOUTME: Includes an in-memory implementation for tests and storeless setups.

package oauth

import (
	"context"
	"sync"
)

// TokenStore persists the single current token record across restarts.
// Load returns (nil, nil) when no record is stored.
type TokenStore interface {
	LoadToken(ctx context.Context) (*Token, error)
	SaveToken(ctx context.Context, token *Token) error
	ClearToken(ctx context.Context) error
}

// EventRecorder receives auth lifecycle events for auditing.
type EventRecorder interface {
	RecordAuthEvent(ctx context.Context, event, detail string) error
}

// MemoryStore is a TokenStore that keeps the record in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	token *Token
}

// NewMemoryStore creates an empty in-memory token store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) LoadToken(_ context.Context) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token.clone(), nil
}

func (s *MemoryStore) SaveToken(_ context.Context, token *Token) error {
	s.mu.Lock()
	s.token = token.clone()
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) ClearToken(_ context.Context) error {
	s.mu.Lock()
	s.token = nil
	s.mu.Unlock()
	return nil
}
