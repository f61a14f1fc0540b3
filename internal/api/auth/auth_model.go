package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// User is a stored identity. PasswordHash never leaves the store and the
// service layer; it has no JSON representation.
type User struct {
	ID           uuid.UUID
	Username     string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

// Summary returns the fields of u that may be shown to a client.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID.String(), Username: u.Username, Role: u.Role}
}

// UserSummary is the public view of an identity.
type UserSummary struct {
	ID       string `json:"id" example:"d290f1ee-6c54-4b01-90e6-d701748f0851"`
	Username string `json:"usuario" example:"ana"`
	Role     string `json:"tipo" example:"user"`
}

// RegisterRequest is the body of POST /auth/register.
// Role is a pointer so an omitted tipo can be told apart from "".
type RegisterRequest struct {
	Username string  `json:"usuario" validate:"required" example:"ana"`
	Password string  `json:"senha" validate:"required" example:"s3gredo"`
	Role     *string `json:"tipo" validate:"required" example:"user"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"usuario" example:"ana"`
	Password string `json:"senha" example:"s3gredo"`
}

// LoginResponse is the body of a successful login.
type LoginResponse struct {
	Token string      `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	User  UserSummary `json:"user"`
}

// LoginResult is what Login hands back to its caller.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      UserSummary
}

// Claims is the signed payload of a bearer token. Subject and UserID both
// carry the identity id; userId keeps older clients working.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}
