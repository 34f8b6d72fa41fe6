package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"conecta/internal/models"
)

// DefaultSessionTTL is the lifetime of a session token.
const DefaultSessionTTL = 7 * 24 * time.Hour

// Principal is the identity carried by a verified session token.
type Principal struct {
	AccountID string
	Role      models.Role
}

// Claims is the JWT payload. The account id travels in "sub".
type Claims struct {
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies session tokens. Tokens signed with any of
// the previous secrets are still accepted so a secret can be rotated without
// logging everyone out.
type TokenIssuer struct {
	secret   []byte
	previous [][]byte
	ttl      time.Duration
	now      func() time.Time
}

func NewTokenIssuer(secret string, previous []string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	t := &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, p := range previous {
		if p = strings.TrimSpace(p); p != "" && p != secret {
			t.previous = append(t.previous, []byte(p))
		}
	}
	return t, nil
}

// TTL returns the lifetime of newly issued tokens.
func (t *TokenIssuer) TTL() time.Duration {
	return t.ttl
}

// Issue signs a token for p with the current secret.
func (t *TokenIssuer) Issue(p Principal) (string, time.Time, error) {
	now := t.now().UTC()
	expiresAt := now.Add(t.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.AccountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify checks signature and expiry. It never consults the database.
func (t *TokenIssuer) Verify(tokenString string) (Principal, error) {
	if strings.TrimSpace(tokenString) == "" {
		return Principal{}, &AuthError{Kind: AuthMissing}
	}

	var lastErr error
	for _, key := range t.keys() {
		claims, err := t.parse(tokenString, key)
		if err == nil {
			if claims.Subject == "" || !claims.Role.Valid() {
				return Principal{}, &AuthError{Kind: AuthExpiredOrInvalid, Err: errors.New("incomplete claims")}
			}
			return Principal{AccountID: claims.Subject, Role: claims.Role}, nil
		}
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return Principal{}, &AuthError{Kind: AuthMalformed, Err: err}
		}
		lastErr = err
		if !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			break
		}
	}
	return Principal{}, &AuthError{Kind: AuthExpiredOrInvalid, Err: lastErr}
}

func (t *TokenIssuer) parse(tokenString string, key []byte) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (t *TokenIssuer) keys() [][]byte {
	keys := make([][]byte, 0, 1+len(t.previous))
	keys = append(keys, t.secret)
	return append(keys, t.previous...)
}
