package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/inphantil-api/app/observability/metrics"
	"github.com/FACorreiaa/inphantil-api/internal/api"
)

var _ AuthService = (*AuthServiceImpl)(nil)

// AuthService registers identities and exchanges credentials for tokens.
// Every returned error is an *Error.
type AuthService interface {
	Register(ctx context.Context, username, password, role string) error
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	// GetUser resolves a verified token subject to its identity summary.
	GetUser(ctx context.Context, userID string) (*UserSummary, error)
}

// ServiceConfig is fixed at startup. An empty Secret is allowed: Login then
// fails with KindServerMisconfigured instead of signing with a guessable key.
type ServiceConfig struct {
	Secret            []byte
	TokenTTL          time.Duration
	StoreTimeout      time.Duration
	MinPasswordLength int
}

type AuthServiceImpl struct {
	logger    *slog.Logger
	repo      CredentialStore
	hasher    PasswordHasher
	codec     *TokenCodec
	cfg       ServiceConfig
	metrics   *metrics.AppMetrics
	dummyHash string
}

func NewAuthService(repo CredentialStore, hasher PasswordHasher, codec *TokenCodec, cfg ServiceConfig, logger *slog.Logger, m *metrics.AppMetrics) *AuthServiceImpl {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	s := &AuthServiceImpl{
		logger:  logger,
		repo:    repo,
		hasher:  hasher,
		codec:   codec,
		cfg:     cfg,
		metrics: m,
	}

	// Unknown usernames are verified against this hash so that "no such
	// user" costs the same as "wrong password".
	dummy, err := hasher.Hash(context.Background(), uuid.NewString())
	if err != nil {
		logger.Warn("Could not precompute dummy password hash; login timing may reveal unknown usernames", slog.Any("error", err))
	}
	s.dummyHash = dummy

	if len(cfg.Secret) == 0 {
		logger.Error("JWT secret is not configured; logins will fail until it is set")
	}
	return s
}

func (s *AuthServiceImpl) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.StoreTimeout)
}

func (s *AuthServiceImpl) record(ctx context.Context, counter metric.Int64Counter, op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = KindOf(err).String()
	}
	counter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	s.metrics.AuthDurationSeconds.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attribute.String("operation", op)))
}

func finishSpan(span trace.Span, err error, okMsg string) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, KindOf(err).String())
		return
	}
	span.SetStatus(codes.Ok, okMsg)
}

// Register creates an identity. The username lookup is only a fast path; a
// concurrent registration of the same name is caught by the store's own
// uniqueness check and reported as KindDuplicateUsername as well.
func (s *AuthServiceImpl) Register(ctx context.Context, username, password, role string) (err error) {
	const op = "Register"
	ctx, span := otel.Tracer("AuthService").Start(ctx, op)
	defer span.End()
	start := time.Now()
	defer func() {
		s.record(ctx, s.metrics.RegisterRequestsTotal, op, start, err)
		finishSpan(span, err, "User registered")
	}()

	l := s.logger.With(slog.String("method", op))

	if strings.TrimSpace(username) == "" {
		return newError(KindInvalidInput, op, errors.New("username is required"))
	}
	if password == "" {
		return newError(KindInvalidInput, op, errors.New("password is required"))
	}
	if strings.ContainsRune(username, 0) || strings.ContainsRune(role, 0) {
		// Postgres TEXT cannot store NUL
		return newError(KindInvalidInput, op, errors.New("username and role must not contain NUL"))
	}
	if s.cfg.MinPasswordLength > 0 && utf8.RuneCountInString(password) < s.cfg.MinPasswordLength {
		return newError(KindInvalidInput, op, errors.New("password is shorter than the configured minimum"))
	}

	findCtx, cancel := s.storeCtx(ctx)
	_, err = s.repo.FindByUsername(findCtx, username)
	cancel()
	switch {
	case err == nil:
		l.InfoContext(ctx, "Registration rejected: username taken")
		return newError(KindDuplicateUsername, op, nil)
	case !errors.Is(err, api.ErrNotFound):
		l.ErrorContext(ctx, "Username lookup failed", slog.Any("error", err))
		return newError(KindStoreUnavailable, op, err)
	}

	hashed, err := s.hasher.Hash(ctx, password)
	if err != nil {
		l.WarnContext(ctx, "Password hashing failed", slog.Any("error", err))
		var authErr *Error
		if errors.As(err, &authErr) {
			return newError(authErr.Kind, op, authErr.Err)
		}
		return newError(KindStoreUnavailable, op, err)
	}

	user := &User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: hashed,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}

	insertCtx, cancel := s.storeCtx(ctx)
	err = s.repo.InsertUser(insertCtx, user)
	cancel()
	if err != nil {
		if errors.Is(err, api.ErrConflict) {
			l.WarnContext(ctx, "Registration lost a race on username; store constraint rejected the duplicate")
			return newError(KindDuplicateUsername, op, err)
		}
		l.ErrorContext(ctx, "Inserting user failed", slog.Any("error", err))
		return newError(KindStoreUnavailable, op, err)
	}

	span.SetAttributes(attribute.String("auth.user.id", user.ID.String()))
	l.InfoContext(ctx, "User registered", slog.String("userID", user.ID.String()))
	return nil
}

// Login verifies credentials and issues a token. Unknown usernames and wrong
// passwords produce the same KindInvalidCredentials error.
func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (result *LoginResult, err error) {
	const op = "Login"
	ctx, span := otel.Tracer("AuthService").Start(ctx, op)
	defer span.End()
	start := time.Now()
	defer func() {
		s.record(ctx, s.metrics.LoginRequestsTotal, op, start, err)
		finishSpan(span, err, "Login successful")
	}()

	l := s.logger.With(slog.String("method", op))

	if len(s.cfg.Secret) == 0 {
		l.ErrorContext(ctx, "Cannot issue tokens: JWT secret is not configured")
		return nil, newError(KindServerMisconfigured, op, errors.New("signing secret is not configured"))
	}

	findCtx, cancel := s.storeCtx(ctx)
	user, err := s.repo.FindByUsername(findCtx, username)
	cancel()
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			if s.dummyHash != "" {
				_, _ = s.hasher.Verify(ctx, password, s.dummyHash)
			}
			l.InfoContext(ctx, "Login rejected")
			return nil, newError(KindInvalidCredentials, op, nil)
		}
		l.ErrorContext(ctx, "Username lookup failed", slog.Any("error", err))
		return nil, newError(KindStoreUnavailable, op, err)
	}

	ok, err := s.hasher.Verify(ctx, password, user.PasswordHash)
	if err != nil {
		l.ErrorContext(ctx, "Password verification could not complete", slog.Any("error", err))
		return nil, newError(KindStoreUnavailable, op, err)
	}
	if !ok {
		l.InfoContext(ctx, "Login rejected")
		return nil, newError(KindInvalidCredentials, op, nil)
	}

	token, expiresAt, err := s.codec.Issue(user.ID.String(), s.cfg.Secret, s.cfg.TokenTTL)
	if err != nil {
		l.ErrorContext(ctx, "Token issuance failed", slog.Any("error", err))
		return nil, newError(KindOf(err), op, err)
	}

	span.SetAttributes(attribute.String("auth.user.id", user.ID.String()))
	l.InfoContext(ctx, "User logged in", slog.String("userID", user.ID.String()))
	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user.Summary(),
	}, nil
}

func (s *AuthServiceImpl) GetUser(ctx context.Context, userID string) (summary *UserSummary, err error) {
	const op = "GetUser"
	ctx, span := otel.Tracer("AuthService").Start(ctx, op)
	defer span.End()
	defer func() { finishSpan(span, err, "User found") }()

	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, newError(KindInvalidToken, op, err)
	}

	findCtx, cancel := s.storeCtx(ctx)
	defer cancel()
	user, err := s.repo.FindByID(findCtx, id)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			// the token outlived its identity
			return nil, newError(KindInvalidToken, op, err)
		}
		s.logger.ErrorContext(ctx, "User lookup failed", slog.String("method", op), slog.Any("error", err))
		return nil, newError(KindStoreUnavailable, op, err)
	}
	sum := user.Summary()
	return &sum, nil
}
