package container

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/inphantil-api/app/observability/metrics"
	"github.com/FACorreiaa/inphantil-api/config"
	"github.com/FACorreiaa/inphantil-api/internal/api/auth"
)

func memoryConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Repositories.Driver = config.DriverMemory
	cfg.Repositories.StoreTimeout = time.Second
	cfg.Auth.SecretKey = "container-secret"
	cfg.Auth.TokenTTL = time.Hour
	cfg.Auth.BcryptCost = 4
	cfg.Auth.MaxConcurrentHashes = 2
	cfg.Auth.UserCacheTTL = time.Minute
	return cfg
}

func TestNewContainerMemory(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	c, err := NewContainer(ctx, memoryConfig(), logger, metrics.Noop())
	require.NoError(t, err)
	defer c.Close()

	assert.Nil(t, c.Pool)
	assert.IsType(t, &auth.CachedStore{}, c.Store)

	require.NoError(t, c.AuthService.Register(ctx, "ana", "s3gredo", "user"))
	res, err := c.AuthService.Login(ctx, "ana", "s3gredo")
	require.NoError(t, err)

	var seen string
	h := c.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.GetUserIDFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+res.Token)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, res.User.ID, seen)
}

func TestNewContainerWithoutCache(t *testing.T) {
	cfg := memoryConfig()
	cfg.Auth.UserCacheTTL = 0

	c, err := NewContainer(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), metrics.Noop())
	require.NoError(t, err)
	assert.IsType(t, &auth.MemoryStore{}, c.Store)
}

func TestNewContainerUnknownDriver(t *testing.T) {
	cfg := memoryConfig()
	cfg.Repositories.Driver = "sqlite"

	_, err := NewContainer(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), metrics.Noop())
	assert.Error(t, err)
}
