// Package crypto issues session tokens and derives zk session key material.
package crypto

import (
	"crypto/ed25519"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "zkdash"

// ErrEmptySecret is returned when a JWTManager is created without a secret.
var ErrEmptySecret = errors.New("master secret is empty")

// SessionClaims is the token payload bound to a zk-wallet session.
type SessionClaims struct {
	Address string `json:"address"`
	Kind    string `json:"kind"`
	jwt.RegisteredClaims
}

// SessionID returns the session the token was issued for.
func (c *SessionClaims) SessionID() string { return c.Subject }

// JWTManager issues and verifies session tokens.
type JWTManager struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	ttl        time.Duration
	now        func() time.Time
}

// NewJWTManager creates a JWT manager whose Ed25519 key is derived from the
// master secret. A zero ttl issues tokens without expiry.
func NewJWTManager(masterSecret string, ttl time.Duration) (*JWTManager, error) {
	if strings.TrimSpace(masterSecret) == "" {
		return nil, ErrEmptySecret
	}
	seed := sha256.Sum256([]byte(masterSecret))
	privateKey := ed25519.NewKeyFromSeed(seed[:])

	return &JWTManager{
		privateKey: privateKey,
		publicKey:  privateKey.Public().(ed25519.PublicKey),
		ttl:        ttl,
		now:        time.Now,
	}, nil
}

// IssueToken creates a token for a session.
func (m *JWTManager) IssueToken(sessionID, address, kind string) (string, error) {
	now := m.now()
	claims := SessionClaims{
		Address: address,
		Kind:    kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	if m.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(m.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(m.privateKey)
}

// VerifyToken verifies and parses a session token.
func (m *JWTManager) VerifyToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.publicKey, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}
