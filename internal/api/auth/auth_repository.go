package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/inphantil-api/app/observability/metrics"
	"github.com/FACorreiaa/inphantil-api/internal/api"
)

// CredentialStore persists identities. InsertUser must enforce username
// uniqueness atomically and report a violation as api.ErrConflict: the
// service's lookup-before-insert is not race-free on its own.
type CredentialStore interface {
	// FindByUsername returns api.ErrNotFound when no identity has username.
	FindByUsername(ctx context.Context, username string) (*User, error)
	// FindByID returns api.ErrNotFound when no identity has id.
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	InsertUser(ctx context.Context, user *User) error
}

// DBTX is the subset of pgxpool.Pool the repository uses.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const uniqueViolation = "23505"

var _ CredentialStore = (*PostgresAuthRepo)(nil)

type PostgresAuthRepo struct {
	logger  *slog.Logger
	pgpool  DBTX
	metrics *metrics.AppMetrics
}

func NewPostgresAuthRepo(pgpool DBTX, logger *slog.Logger, m *metrics.AppMetrics) *PostgresAuthRepo {
	return &PostgresAuthRepo{
		logger:  logger,
		pgpool:  pgpool,
		metrics: m,
	}
}

func (r *PostgresAuthRepo) FindByUsername(ctx context.Context, username string) (*User, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "FindByUsername", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "usuarios"),
	))
	defer span.End()

	query := `SELECT id, usuario, senha, tipo, created_at FROM usuarios WHERE usuario = $1`
	return r.scanUser(ctx, span, "find_by_username", query, username)
}

func (r *PostgresAuthRepo) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "FindByID", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "usuarios"),
	))
	defer span.End()

	query := `SELECT id, usuario, senha, tipo, created_at FROM usuarios WHERE id = $1`
	return r.scanUser(ctx, span, "find_by_id", query, id)
}

func (r *PostgresAuthRepo) scanUser(ctx context.Context, span trace.Span, name, query string, arg any) (*User, error) {
	start := time.Now()
	var u User
	err := r.pgpool.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt)
	r.observe(ctx, name, start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "not found")
			return nil, api.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to query user", slog.String("query", name), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("database error querying user: %w", err)
	}
	span.SetStatus(codes.Ok, "user found")
	return &u, nil
}

// InsertUser writes user. The UNIQUE(usuario) constraint is what makes a
// concurrent duplicate fail.
func (r *PostgresAuthRepo) InsertUser(ctx context.Context, user *User) error {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "InsertUser", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "usuarios"),
	))
	defer span.End()

	query := `INSERT INTO usuarios (id, usuario, senha, tipo, created_at) VALUES ($1, $2, $3, $4, $5)`

	start := time.Now()
	_, err := r.pgpool.Exec(ctx, query, user.ID, user.Username, user.PasswordHash, user.Role, user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			r.observe(ctx, "insert_user", start, nil)
			r.logger.WarnContext(ctx, "Attempted to insert duplicate username")
			span.SetStatus(codes.Error, "Duplicate username")
			return fmt.Errorf("username already exists: %w", api.ErrConflict)
		}
		r.observe(ctx, "insert_user", start, err)
		r.logger.ErrorContext(ctx, "Failed to insert user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB INSERT failed")
		return fmt.Errorf("database error inserting user: %w", err)
	}
	r.observe(ctx, "insert_user", start, nil)

	span.SetAttributes(attribute.String("db.user.id", user.ID.String()))
	span.SetStatus(codes.Ok, "User inserted")
	return nil
}

func (r *PostgresAuthRepo) observe(ctx context.Context, name string, start time.Time, err error) {
	attrs := metric.WithAttributes(attribute.String("query", name))
	r.metrics.DbQueryDurationSeconds.Record(ctx, time.Since(start).Seconds(), attrs)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		r.metrics.DbQueryErrorsTotal.Add(ctx, 1, attrs)
	}
}
