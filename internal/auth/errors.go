package auth

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateAccount      = errors.New("an account with this email already exists")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrBackendUnavailable    = errors.New("credential store unavailable")
	ErrAccountNotFound       = errors.New("account not found")
	ErrInvalidRole           = errors.New("invalid role")
	ErrEmptyPassword         = errors.New("password cannot be empty")
	ErrPasswordTooLong       = errors.New("password exceeds 72 bytes")
)

// AuthErrorKind classifies a rejected session token.
type AuthErrorKind int

const (
	AuthMissing AuthErrorKind = iota + 1
	AuthMalformed
	AuthExpiredOrInvalid
)

func (k AuthErrorKind) String() string {
	switch k {
	case AuthMissing:
		return "missing"
	case AuthMalformed:
		return "malformed"
	case AuthExpiredOrInvalid:
		return "expired_or_invalid"
	default:
		return fmt.Sprintf("AuthErrorKind(%d)", int(k))
	}
}

// AuthError is returned by session token verification.
type AuthError struct {
	Kind AuthErrorKind
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return "session token " + e.Kind.String()
	}
	return "session token " + e.Kind.String() + ": " + e.Err.Error()
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is matches any *AuthError of the same kind.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Kind == e.Kind
}
