package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

var _ CredentialStore = (*CachedStore)(nil)

// CachedStore serves FindByID from a TTL cache. Identities are never mutated
// or deleted by this service, so a cached record cannot go stale in a way
// that matters within the TTL. Username lookups always reach the store.
type CachedStore struct {
	CredentialStore
	cache *cache.Cache
}

func NewCachedStore(store CredentialStore, ttl time.Duration) *CachedStore {
	return &CachedStore{
		CredentialStore: store,
		cache:           cache.New(ttl, 2*ttl),
	}
}

func (s *CachedStore) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	key := id.String()
	if v, ok := s.cache.Get(key); ok {
		u := v.(User)
		return &u, nil
	}
	u, err := s.CredentialStore.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(key, *u)
	return u, nil
}
