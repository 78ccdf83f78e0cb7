package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Signer issues and checks HS256 tokens whose subject is the user id.
type Signer struct {
	key    []byte
	issuer string
}

func NewSigner(key []byte, issuer string) *Signer {
	return &Signer{key: key, issuer: issuer}
}

// GenerateToken creates a signed JWT for a specific user.
func (s *Signer) GenerateToken(userID string, duration time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    s.issuer,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
}

// ValidateToken checks signature, algorithm and expiration, then returns the user id.
func (s *Signer) ValidateToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(s.issuer))
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", jwt.ErrSignatureInvalid
	}
	return claims.Subject, nil
}
