package api

import "errors"

// Store-level sentinel errors. Repositories wrap these; services translate
// them into their own error kinds.
var (
	ErrNotFound = errors.New("requested item not found")
	ErrConflict = errors.New("item already exists or conflict")
)

// Response is the body of every message-only response.
type Response struct {
	Message   string `json:"message" example:"Invalid token."`
	RequestID string `json:"request_id,omitempty" example:"host/abc-000001"`
}
