package auth

import (
	"errors"
	"net/http"
)

// ErrorKind is the closed set of failures the auth core reports.
type ErrorKind int

const (
	KindInvalidInput ErrorKind = iota + 1
	KindDuplicateUsername
	KindInvalidCredentials
	KindInvalidToken
	KindServerMisconfigured
	KindStoreUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindDuplicateUsername:
		return "duplicate_username"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindInvalidToken:
		return "invalid_token"
	case KindServerMisconfigured:
		return "server_misconfigured"
	case KindStoreUnavailable:
		return "store_unavailable"
	}
	return "unknown"
}

// HTTPStatus maps a kind onto the status the HTTP boundary returns.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindInvalidInput, KindDuplicateUsername:
		return http.StatusBadRequest
	case KindInvalidCredentials, KindInvalidToken:
		return http.StatusUnauthorized
	case KindServerMisconfigured, KindStoreUnavailable:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// PublicMessage is the only text about a failure a client ever sees.
func (k ErrorKind) PublicMessage() string {
	switch k {
	case KindInvalidInput:
		return "Invalid request."
	case KindDuplicateUsername:
		return "User already exists."
	case KindInvalidCredentials:
		return "Invalid credentials."
	case KindInvalidToken:
		return "Invalid token."
	case KindServerMisconfigured:
		return "Server misconfigured."
	case KindStoreUnavailable:
		return "Service temporarily unavailable."
	}
	return "Internal server error."
}

// Error is a failure of one auth operation. Err holds internal detail for
// logs; it never reaches a client.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the package sentinels work with
// errors.Is regardless of Op and Err.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrInvalidInput        = &Error{Kind: KindInvalidInput}
	ErrDuplicateUsername   = &Error{Kind: KindDuplicateUsername}
	ErrInvalidCredentials  = &Error{Kind: KindInvalidCredentials}
	ErrInvalidToken        = &Error{Kind: KindInvalidToken}
	ErrServerMisconfigured = &Error{Kind: KindServerMisconfigured}
	ErrStoreUnavailable    = &Error{Kind: KindStoreUnavailable}
)

func newError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf reports the kind of err. Errors that did not come from this package
// are treated as StoreUnavailable: the operation could not complete.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStoreUnavailable
}
