package auth

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_HashAndVerify(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost, 2)
	ctx := context.Background()

	hash, err := h.Hash(ctx, "correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, strings.HasPrefix(hash, "$2a$"))

	again, err := h.Hash(ctx, "correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "hashes must be salted")

	ok, err := h.Verify(ctx, "correct horse", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify(ctx, "wrong horse", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBcryptHasher_Limits(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost, 1)
	ctx := context.Background()

	_, err := h.Hash(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyPassword)

	_, err = h.Hash(ctx, strings.Repeat("a", 73))
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	_, err = h.Hash(ctx, strings.Repeat("a", 72))
	assert.NoError(t, err)
}

func TestBcryptHasher_UnusableHash(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost, 1)

	ok, err := h.Verify(context.Background(), "password", "not-a-bcrypt-hash")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestBcryptHasher_WaitsForSlot(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost, 1)
	require.NoError(t, h.acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.Hash(ctx, "password")
	assert.ErrorIs(t, err, context.Canceled)

	h.release()
	_, err = h.Hash(context.Background(), "password")
	assert.NoError(t, err)
}

func TestNewBcryptHasher_Defaults(t *testing.T) {
	h := NewBcryptHasher(0, 0)
	assert.Equal(t, DefaultBcryptCost, h.cost)
	assert.Positive(t, cap(h.slots))
}
