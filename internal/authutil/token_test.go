package authutil

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokens(t *testing.T) {
	tokens := NewTokens("s3cret", time.Hour)
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	tokens.now = func() time.Time { return now }

	raw, err := tokens.Issue("user-1")
	require.NoError(t, err)

	userID, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	t.Run("Expired", func(t *testing.T) {
		later := NewTokens("s3cret", time.Hour)
		later.now = func() time.Time { return now.Add(2 * time.Hour) }
		_, err := later.Parse(raw)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		other := NewTokens("other", time.Hour)
		other.now = tokens.now
		_, err := other.Parse(raw)
		assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
	})

	t.Run("WrongMethod", func(t *testing.T) {
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS512, &Claims{UserID: "user-1"}).SignedString([]byte("s3cret"))
		require.NoError(t, err)
		_, err = tokens.Parse(forged)
		assert.Error(t, err)
	})

	t.Run("NoUser", func(t *testing.T) {
		empty, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{}).SignedString([]byte("s3cret"))
		require.NoError(t, err)
		_, err = tokens.Parse(empty)
		assert.Error(t, err)
	})
}

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "battery staple"))
	assert.False(t, CheckPassword("not a hash", "correct horse"))
}

func TestIsAdminToken(t *testing.T) {
	assert.True(t, IsAdminToken("admin", "admin"))
	assert.False(t, IsAdminToken("admin", "Admin"))
	assert.False(t, IsAdminToken("admin", ""))
	assert.False(t, IsAdminToken("", ""))
}
