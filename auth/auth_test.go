package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestHashAndCompare(t *testing.T) {
	req := require.New(t)
	password := "test123456"

	hash, err := HashPassword(password, CheapParams)
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))

	match, err := ComparePassword(password, hash)
	req.NoError(err)
	req.True(match)

	// Wrong password
	match, err = ComparePassword("wrong", hash)
	req.NoError(err)
	req.False(match)
}

func TestCompare_Invalid_Hash(t *testing.T) {
	_, err := ComparePassword("test123456", "$argon2id$garbage")
	require.ErrorIs(t, err, ErrInvalidHash)
}

func TestToken_RoundTrip(t *testing.T) {
	req := require.New(t)
	signer := NewSigner([]byte("secret"), "chat-stress")

	token, err := signer.GenerateToken("user-1", time.Minute)
	req.NoError(err)

	subject, err := signer.ValidateToken(token)
	req.NoError(err)
	req.Equal("user-1", subject)
}

func TestToken_Rejects_Foreign_And_Expired(t *testing.T) {
	req := require.New(t)
	signer := NewSigner([]byte("secret"), "chat-stress")
	other := NewSigner([]byte("another"), "chat-stress")

	token, err := other.GenerateToken("user-1", time.Minute)
	req.NoError(err)
	_, err = signer.ValidateToken(token)
	req.ErrorIs(err, jwt.ErrTokenSignatureInvalid)

	expired, err := signer.GenerateToken("user-1", -time.Minute)
	req.NoError(err)
	_, err = signer.ValidateToken(expired)
	req.ErrorIs(err, jwt.ErrTokenExpired)
}
