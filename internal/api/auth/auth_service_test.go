package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/inphantil-api/app/observability/metrics"
	"github.com/FACorreiaa/inphantil-api/internal/api"
)

func newTestService(t *testing.T, store CredentialStore, mutate ...func(*ServiceConfig)) (*AuthServiceImpl, *TokenCodec) {
	t.Helper()
	cfg := ServiceConfig{
		Secret:       testSecret,
		TokenTTL:     DefaultTokenTTL,
		StoreTimeout: time.Second,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	codec := NewTokenCodec()
	return NewAuthService(store, newTestHasher(t), codec, cfg, discardLogger, metrics.Noop()), codec
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		store := NewMemoryStore()
		svc, _ := newTestService(t, store)

		require.NoError(t, svc.Register(ctx, "ana", "s3gredo", "user"))

		u, err := store.FindByUsername(ctx, "ana")
		require.NoError(t, err)
		assert.Equal(t, "user", u.Role)
		assert.NotEqual(t, "s3gredo", u.PasswordHash)
		assert.NotEqual(t, uuid.Nil, u.ID)
	})

	t.Run("DuplicateRegardlessOfPasswordAndRole", func(t *testing.T) {
		svc, _ := newTestService(t, NewMemoryStore())

		require.NoError(t, svc.Register(ctx, "ana", "s3gredo", "user"))
		err := svc.Register(ctx, "ana", "other", "admin")
		assert.ErrorIs(t, err, ErrDuplicateUsername)
	})

	t.Run("UsernamesAreCaseSensitive", func(t *testing.T) {
		store := NewMemoryStore()
		svc, _ := newTestService(t, store)

		require.NoError(t, svc.Register(ctx, "ana", "s3gredo", "user"))
		require.NoError(t, svc.Register(ctx, "Ana", "s3gredo", "user"))
		assert.Equal(t, 2, store.Len())
	})

	t.Run("RoleIsFreeForm", func(t *testing.T) {
		store := NewMemoryStore()
		svc, _ := newTestService(t, store)

		require.NoError(t, svc.Register(ctx, "bia", "s3gredo", "gerente de estoque"))
		u, err := store.FindByUsername(ctx, "bia")
		require.NoError(t, err)
		assert.Equal(t, "gerente de estoque", u.Role)
	})

	t.Run("InvalidInput", func(t *testing.T) {
		svc, _ := newTestService(t, NewMemoryStore(), func(c *ServiceConfig) { c.MinPasswordLength = 6 })

		for name, args := range map[string][2]string{
			"EmptyUsername":      {"", "s3gredo"},
			"BlankUsername":      {"   ", "s3gredo"},
			"EmptyPassword":      {"ana", ""},
			"ShortPassword":      {"ana", "abc"},
			"PasswordOver72Byte": {"ana", string(make([]byte, 73))},
			"NulInUsername":      {"a\x00na", "s3gredo"},
		} {
			t.Run(name, func(t *testing.T) {
				err := svc.Register(ctx, args[0], args[1], "user")
				assert.ErrorIs(t, err, ErrInvalidInput)
			})
		}
	})

	t.Run("NulInRole", func(t *testing.T) {
		store := NewMemoryStore()
		svc, _ := newTestService(t, store)

		err := svc.Register(ctx, "ana", "s3gredo", "us\x00er")
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.Equal(t, 0, store.Len())
	})

	t.Run("MinimumLengthDisabledByDefault", func(t *testing.T) {
		svc, _ := newTestService(t, NewMemoryStore())
		assert.NoError(t, svc.Register(ctx, "ana", "x", "user"))
	})

	t.Run("LookupFailure", func(t *testing.T) {
		store := new(MockCredentialStore)
		store.On("FindByUsername", mock.Anything, "ana").Return(nil, errors.New("connection refused")).Once()
		svc, _ := newTestService(t, store)

		err := svc.Register(ctx, "ana", "s3gredo", "user")
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		store.AssertExpectations(t)
	})

	t.Run("InsertFailure", func(t *testing.T) {
		store := new(MockCredentialStore)
		store.On("FindByUsername", mock.Anything, "ana").Return(nil, api.ErrNotFound).Once()
		store.On("InsertUser", mock.Anything, mock.AnythingOfType("*auth.User")).Return(errors.New("disk full")).Once()
		svc, _ := newTestService(t, store)

		err := svc.Register(ctx, "ana", "s3gredo", "user")
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		store.AssertExpectations(t)
	})

	t.Run("StoreTimeout", func(t *testing.T) {
		svc, _ := newTestService(t, blockingStore{}, func(c *ServiceConfig) { c.StoreTimeout = 20 * time.Millisecond })

		err := svc.Register(ctx, "ana", "s3gredo", "user")
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

// blockingStore never answers before the caller's deadline.
type blockingStore struct{}

func (blockingStore) FindByUsername(ctx context.Context, _ string) (*User, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingStore) FindByID(ctx context.Context, _ uuid.UUID) (*User, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingStore) InsertUser(ctx context.Context, _ *User) error {
	<-ctx.Done()
	return ctx.Err()
}

// racingStore holds every FindByUsername until `parties` callers have all
// seen "not found", forcing them to race on InsertUser.
type racingStore struct {
	*MemoryStore
	parties int
	mu      sync.Mutex
	arrived int
	release chan struct{}
}

func (s *racingStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	u, err := s.MemoryStore.FindByUsername(ctx, username)
	s.mu.Lock()
	s.arrived++
	if s.arrived == s.parties {
		close(s.release)
	}
	s.mu.Unlock()
	select {
	case <-s.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return u, err
}

func TestRegisterForcedRace(t *testing.T) {
	ctx := context.Background()
	const parties = 4
	store := &racingStore{MemoryStore: NewMemoryStore(), parties: parties, release: make(chan struct{})}
	svc, _ := newTestService(t, store, func(c *ServiceConfig) { c.StoreTimeout = 5 * time.Second })

	var wg sync.WaitGroup
	errs := make([]error, parties)
	for i := range parties {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = svc.Register(ctx, "ana", "s3gredo", "user")
		}()
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, ErrDuplicateUsername)
		assert.ErrorIs(t, err, api.ErrConflict, "duplicate must come from the store constraint")
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, store.Len())
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		store := NewMemoryStore()
		svc, codec := newTestService(t, store)
		require.NoError(t, svc.Register(ctx, "ana", "s3gredo", "user"))

		res, err := svc.Login(ctx, "ana", "s3gredo")
		require.NoError(t, err)

		stored, err := store.FindByUsername(ctx, "ana")
		require.NoError(t, err)
		assert.Equal(t, UserSummary{ID: stored.ID.String(), Username: "ana", Role: "user"}, res.User)
		assert.WithinDuration(t, time.Now().Add(DefaultTokenTTL), res.ExpiresAt, 5*time.Second)

		claims, err := codec.Verify(res.Token, testSecret)
		require.NoError(t, err)
		assert.Equal(t, stored.ID.String(), claims.Subject)
	})

	t.Run("NoEnumerationLeak", func(t *testing.T) {
		svc, _ := newTestService(t, NewMemoryStore())
		require.NoError(t, svc.Register(ctx, "realuser", "rightpass", "user"))

		_, errGhost := svc.Login(ctx, "ghost", "x")
		_, errWrong := svc.Login(ctx, "realuser", "wrongpass")

		require.ErrorIs(t, errGhost, ErrInvalidCredentials)
		require.ErrorIs(t, errWrong, ErrInvalidCredentials)
		assert.Equal(t, errGhost.Error(), errWrong.Error())
		assert.Equal(t, KindOf(errGhost).HTTPStatus(), KindOf(errWrong).HTTPStatus())
	})

	t.Run("MissingSecret", func(t *testing.T) {
		store := new(MockCredentialStore)
		svc, _ := newTestService(t, store, func(c *ServiceConfig) { c.Secret = nil })

		_, err := svc.Login(ctx, "ana", "s3gredo")
		assert.ErrorIs(t, err, ErrServerMisconfigured)
		store.AssertNotCalled(t, "FindByUsername", mock.Anything, mock.Anything)
	})

	t.Run("LookupFailure", func(t *testing.T) {
		store := new(MockCredentialStore)
		store.On("FindByUsername", mock.Anything, "ana").Return(nil, errors.New("connection refused")).Once()
		svc, _ := newTestService(t, store)

		_, err := svc.Login(ctx, "ana", "s3gredo")
		assert.ErrorIs(t, err, ErrStoreUnavailable)
	})

	t.Run("CorruptStoredHash", func(t *testing.T) {
		store := new(MockCredentialStore)
		store.On("FindByUsername", mock.Anything, "ana").
			Return(&User{ID: uuid.New(), Username: "ana", PasswordHash: "garbage"}, nil).Once()
		svc, _ := newTestService(t, store)

		_, err := svc.Login(ctx, "ana", "s3gredo")
		assert.ErrorIs(t, err, ErrStoreUnavailable)
	})
}

func TestGetUser(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	svc, _ := newTestService(t, store)
	require.NoError(t, svc.Register(ctx, "ana", "s3gredo", "admin"))
	u, err := store.FindByUsername(ctx, "ana")
	require.NoError(t, err)

	got, err := svc.GetUser(ctx, u.ID.String())
	require.NoError(t, err)
	assert.Equal(t, &UserSummary{ID: u.ID.String(), Username: "ana", Role: "admin"}, got)

	_, err = svc.GetUser(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.GetUser(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
