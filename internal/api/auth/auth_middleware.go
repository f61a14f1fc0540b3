package auth

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/FACorreiaa/inphantil-api/app/observability/metrics"
	"github.com/FACorreiaa/inphantil-api/internal/api"
)

type contextKey string

const (
	UserIDKey contextKey = "userID"
	ClaimsKey contextKey = "claims"
)

const (
	bearerPrefix   = "Bearer "
	msgNoToken     = "Access denied. No token provided."
	decisionAdmit  = "admitted"
	decisionNoTok  = "no_token"
	decisionConfig = "misconfigured"
	decisionBadTok = "invalid_token"
)

// Authenticate guards protected routes. next is called only for a verified
// token, with its subject and claims stored in the request context.
//
// An empty secret does not stop the server: every protected request is
// answered with 500 instead.
func Authenticate(logger *slog.Logger, secret []byte, codec *TokenCodec, m *metrics.AppMetrics) func(next http.Handler) http.Handler {
	secret = bytes.Clone(secret)
	if len(secret) == 0 {
		logger.Error("JWT secret is not configured; protected routes will reject every request")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := otel.Tracer("AuthMiddleware").Start(r.Context(), "Authenticate")
			defer span.End()
			l := logger.With(slog.String("middleware", "Authenticate"))

			reject := func(decision string, status int, message string) {
				m.GateDecisionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("decision", decision)))
				span.SetStatus(codes.Error, decision)
				api.ErrorResponse(w, r, status, message)
			}

			token := extractToken(r.Header.Get("Authorization"))
			if token == "" {
				l.DebugContext(ctx, "Missing bearer token")
				reject(decisionNoTok, http.StatusUnauthorized, msgNoToken)
				return
			}

			if len(secret) == 0 {
				l.ErrorContext(ctx, "Rejecting request: JWT secret is not configured")
				reject(decisionConfig, KindServerMisconfigured.HTTPStatus(), KindServerMisconfigured.PublicMessage())
				return
			}

			claims, err := codec.Verify(token, secret)
			if err != nil {
				l.WarnContext(ctx, "Token validation failed", slog.Any("error", err))
				reject(decisionBadTok, KindInvalidToken.HTTPStatus(), KindInvalidToken.PublicMessage())
				return
			}

			m.GateDecisionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("decision", decisionAdmit)))
			span.SetStatus(codes.Ok, decisionAdmit)

			ctx = context.WithValue(ctx, UserIDKey, claims.Subject)
			ctx = context.WithValue(ctx, ClaimsKey, claims)
			l.DebugContext(ctx, "Authentication successful", slog.String("userID", claims.Subject))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken accepts "Bearer <token>" and, for older clients, a bare token.
// net/http trims "Bearer " to "Bearer", which still means no token.
func extractToken(header string) string {
	header = strings.TrimSpace(header)
	if header == strings.TrimSpace(bearerPrefix) {
		return ""
	}
	if strings.HasPrefix(header, bearerPrefix) {
		return strings.TrimSpace(header[len(bearerPrefix):])
	}
	return header
}

func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}

// GetClaimsFromContext returns the full decoded claim set of the admitted
// token, for handlers that need more than the subject.
func GetClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}
