package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// TokenManager seals backend session identifiers into signed cookie values.
type TokenManager struct {
	secret []byte
	issuer string
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret, issuer string) *TokenManager {
	return &TokenManager{secret: []byte(secret), issuer: issuer}
}

// Claims describes the sealed cookie payload.
type Claims struct {
	SID string `json:"sid"`
	jwt.RegisteredClaims
}

// Seal signs sid with an expiry of ttl from now.
func (tm *TokenManager) Seal(sid string, ttl time.Duration) (string, error) {
	if sid == "" {
		return "", errors.New("empty session id")
	}
	now := time.Now()
	claims := &Claims{
		SID: sid,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tm.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secret)
}

// Unseal validates a sealed value and returns the session id inside it.
func (tm *TokenManager) Unseal(tokenStr string) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	}, jwt.WithIssuer(tm.issuer))
	if err != nil {
		return "", err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.SID == "" {
		return "", errors.New("invalid session claims")
	}
	return claims.SID, nil
}
