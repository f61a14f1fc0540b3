package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/FACorreiaa/inphantil-api/internal/api"
)

var _ CredentialStore = (*MemoryStore)(nil)

// MemoryStore is a CredentialStore held in process memory. Uniqueness is
// checked and the insert applied under one lock, the same guarantee the
// Postgres UNIQUE constraint gives.
type MemoryStore struct {
	mu         sync.RWMutex
	byID       map[uuid.UUID]User
	byUsername map[string]uuid.UUID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:       make(map[uuid.UUID]User),
		byUsername: make(map[string]uuid.UUID),
	}
}

func (s *MemoryStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[username]
	if !ok {
		return nil, api.ErrNotFound
	}
	u := s.byID[id]
	return &u, nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, api.ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) InsertUser(ctx context.Context, user *User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byUsername[user.Username]; exists {
		return fmt.Errorf("username already exists: %w", api.ErrConflict)
	}
	if _, exists := s.byID[user.ID]; exists {
		return fmt.Errorf("id already exists: %w", api.ErrConflict)
	}
	s.byID[user.ID] = *user
	s.byUsername[user.Username] = user.ID
	return nil
}

// Len reports how many identities are stored.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
