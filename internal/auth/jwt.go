package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/labkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the session token claims: the standard registered claims plus
// the user's role. The username travels in the subject.
type Claims struct {
	jwt.RegisteredClaims
	Role Role `json:"role"`
}

// Sessions issues and validates HS256 session tokens.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessions returns a Sessions signing with secret; tokens live for ttl.
func NewSessions(secret []byte, ttl time.Duration) *Sessions {
	return &Sessions{secret: secret, ttl: ttl, now: time.Now}
}

// Issue returns a signed token for id.
func (s *Sessions) Issue(id Identity) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Role: id.Role,
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Parse validates tokenString and returns its identity.
// Expired tokens yield common.ErrTokenExpired, anything else that does not
// verify yields common.ErrInvalidToken.
func (s *Sessions) Parse(tokenString string) (Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, common.ErrTokenExpired
		}
		return Identity{}, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return Identity{}, common.ErrInvalidToken
	}

	return Identity{Username: claims.Subject, Role: claims.Role}, nil
}
