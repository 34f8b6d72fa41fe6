package auth

import (
	"context"
	"errors"
	"runtime"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost keeps a verify around 100ms on commodity hardware.
const DefaultBcryptCost = 10

// PasswordHasher provides salted one-way password hashing.
type PasswordHasher interface {
	// Hash produces a salted hash of the password.
	Hash(ctx context.Context, password string) (string, error)

	// Verify reports whether password matches hash.
	// Returns (false, nil) on mismatch and an error only for unusable hashes.
	Verify(ctx context.Context, password, hash string) (bool, error)
}

// BcryptHasher runs bcrypt on a bounded number of slots so a burst of logins
// cannot occupy every CPU.
type BcryptHasher struct {
	cost  int
	slots chan struct{}
}

// NewBcryptHasher creates a hasher. Zero values select DefaultBcryptCost and
// GOMAXPROCS slots.
func NewBcryptHasher(cost, concurrency int) *BcryptHasher {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}
	return &BcryptHasher{
		cost:  cost,
		slots: make(chan struct{}, concurrency),
	}
}

func (h *BcryptHasher) Hash(ctx context.Context, password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	if len(password) > 72 {
		return "", ErrPasswordTooLong
	}
	if err := h.acquire(ctx); err != nil {
		return "", err
	}
	defer h.release()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (h *BcryptHasher) Verify(ctx context.Context, password, hash string) (bool, error) {
	if err := h.acquire(ctx); err != nil {
		return false, err
	}
	defer h.release()

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}

func (h *BcryptHasher) acquire(ctx context.Context) error {
	select {
	case h.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *BcryptHasher) release() {
	<-h.slots
}
