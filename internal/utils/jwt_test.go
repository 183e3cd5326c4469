package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAccessToken(t *testing.T) {
	at, err := NewAccessToken("test-secret", 42, 15)
	require.NoError(t, err)
	require.NotEmpty(t, at.Token)

	parsed, err := jwt.Parse(at.Token, func(tok *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, float64(42), claims["sub"])
	assert.InDelta(t, time.Now().Add(15*time.Minute).Unix(), claims["exp"], 5)
}

func TestNewAccessTokenWrongSecret(t *testing.T) {
	at, err := NewAccessToken("right-secret", 1, 15)
	require.NoError(t, err)

	_, err = jwt.Parse(at.Token, func(tok *jwt.Token) (interface{}, error) {
		return []byte("wrong-secret"), nil
	})
	assert.Error(t, err)
}

func TestNewRefreshToken(t *testing.T) {
	rt, err := NewRefreshToken(30)
	require.NoError(t, err)
	assert.Len(t, rt.Raw, 96) // 48 random bytes hex-encoded
	assert.True(t, rt.Exp.After(time.Now().Add(29*24*time.Hour)))

	other, err := NewRefreshToken(30)
	require.NoError(t, err)
	assert.NotEqual(t, rt.Raw, other.Raw)
}

func TestHashRefreshRaw(t *testing.T) {
	h := HashRefreshRaw("some-token")
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashRefreshRaw("some-token"))
	assert.NotEqual(t, h, HashRefreshRaw("other-token"))
}
