// Package auth issues and verifies HS256 session tokens. The signing key is
// supplied by the caller on every call, so the same service serves both the
// global and the per-user signing strategy.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/sic/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the registered claims plus the admin flag.
type Claims struct {
	jwt.RegisteredClaims
	IsAdmin bool `json:"is_admin"`
}

// TokenService issues and verifies session tokens with a fixed TTL.
type TokenService struct {
	ttl time.Duration
	now func() time.Time
}

func NewTokenService(ttl time.Duration) *TokenService {
	return &TokenService{ttl: ttl, now: time.Now}
}

// Issue signs a token for subject with key.
func (s *TokenService) Issue(subject string, isAdmin bool, key []byte) (string, error) {
	if len(key) == 0 {
		return "", errors.New("empty signing key")
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		IsAdmin: isAdmin,
	})

	return token.SignedString(key)
}

// Verify checks the signature and expiry of token against key.
// It returns common.ErrTokenExpired for an expired token and
// common.ErrInvalidToken for anything else that fails.
func (s *TokenService) Verify(tokenString string, key []byte) (*Claims, error) {
	if len(key) == 0 {
		return nil, common.ErrInvalidToken
	}

	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)

	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

// PeekSubject reads the subject without checking the signature. The result
// is only a lookup hint for finding the verification key and must not be
// trusted on its own.
func PeekSubject(tokenString string) (string, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return "", common.ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", common.ErrInvalidToken
	}
	return claims.Subject, nil
}
