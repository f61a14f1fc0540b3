package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/inphantil-api/internal/api"
)

type HandlerImpl struct {
	authService AuthService
	logger      *slog.Logger
}

func NewAuthHandlerImpl(authService AuthService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		authService: authService,
		logger:      logger,
	}
}

// writeError answers with the public status and message for err's kind.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := KindOf(err)
	api.ErrorResponse(w, r, kind.HTTPStatus(), kind.PublicMessage())
}

// Register godoc
// @Summary      Register a user
// @Description  Creates a user with a unique username, a password and a free-form role.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body auth.RegisterRequest true "New user"
// @Success      201 {object} api.Response "User registered"
// @Failure      400 {object} api.Response "Invalid input or duplicate username"
// @Failure      500 {object} api.Response "Store unavailable"
// @Router       /auth/register [post]
func (h *HandlerImpl) Register(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AuthHandler").Start(r.Context(), "Register", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/auth/register"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "Register"))

	var req RegisterRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		span.SetStatus(codes.Error, "Invalid request body")
		writeError(w, r, ErrInvalidInput)
		return
	}
	if req.Role == nil {
		l.WarnContext(ctx, "Register request without tipo")
		span.SetStatus(codes.Error, "Missing role")
		writeError(w, r, ErrInvalidInput)
		return
	}

	if err := h.authService.Register(ctx, req.Username, req.Password, *req.Role); err != nil {
		span.SetStatus(codes.Error, KindOf(err).String())
		writeError(w, r, err)
		return
	}

	span.SetStatus(codes.Ok, "User registered")
	api.WriteJSONResponse(w, r, http.StatusCreated, api.Response{Message: "User registered successfully!"})
}

// Login godoc
// @Summary      Log in
// @Description  Exchanges a username and password for a bearer token valid for one day.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body auth.LoginRequest true "Credentials"
// @Success      200 {object} auth.LoginResponse "Token and user summary"
// @Failure      400 {object} api.Response "Malformed body"
// @Failure      401 {object} api.Response "Invalid credentials"
// @Failure      500 {object} api.Response "Server misconfigured or store unavailable"
// @Router       /auth/login [post]
func (h *HandlerImpl) Login(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AuthHandler").Start(r.Context(), "Login", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/auth/login"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "Login"))

	var req LoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		span.SetStatus(codes.Error, "Invalid request body")
		writeError(w, r, ErrInvalidInput)
		return
	}

	res, err := h.authService.Login(ctx, req.Username, req.Password)
	if err != nil {
		span.SetStatus(codes.Error, KindOf(err).String())
		writeError(w, r, err)
		return
	}

	span.SetStatus(codes.Ok, "Login successful")
	api.WriteJSONResponse(w, r, http.StatusOK, LoginResponse{
		Token: res.Token,
		User:  res.User,
	})
}

// Me godoc
// @Summary      Current user
// @Description  Returns the identity the bearer token was issued to.
// @Tags         Auth
// @Produce      json
// @Success      200 {object} auth.UserSummary "Authenticated user"
// @Failure      401 {object} api.Response "Missing or invalid token"
// @Failure      500 {object} api.Response "Server misconfigured or store unavailable"
// @Security     BearerAuth
// @Router       /auth/me [get]
func (h *HandlerImpl) Me(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AuthHandler").Start(r.Context(), "Me", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/auth/me"),
	))
	defer span.End()

	userID, ok := GetUserIDFromContext(ctx)
	if !ok || userID == "" {
		h.logger.ErrorContext(ctx, "User ID not found in context; route is missing the Authenticate middleware")
		span.SetStatus(codes.Error, "User ID not found in context")
		writeError(w, r, ErrInvalidToken)
		return
	}

	user, err := h.authService.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			h.logger.WarnContext(ctx, "Token subject does not resolve to a user", slog.Any("error", err))
		}
		span.SetStatus(codes.Error, KindOf(err).String())
		writeError(w, r, err)
		return
	}

	span.SetStatus(codes.Ok, "User found")
	api.WriteJSONResponse(w, r, http.StatusOK, user)
}
