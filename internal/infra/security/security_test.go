package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBcryptHasherRoundTrip(t *testing.T) {
	h := BcryptHasher{Cost: 4}
	hash, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.NoError(t, h.Compare(hash, "correct horse"))
	assert.Error(t, h.Compare(hash, "wrong horse"))
}

func TestJWTIssuerIssueAndVerify(t *testing.T) {
	issuer, err := NewJWTIssuer("s3cret", time.Hour, "rentcar")
	require.NoError(t, err)

	token, expiresAt, err := issuer.Issue("user-1", "owner")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "owner", claims.Role)
	assert.WithinDuration(t, expiresAt, claims.ExpiresAt, time.Second)
}

func TestJWTIssuerRejectsForeignAndExpiredTokens(t *testing.T) {
	issuer, err := NewJWTIssuer("s3cret", time.Hour, "rentcar")
	require.NoError(t, err)
	other, err := NewJWTIssuer("another", time.Hour, "rentcar")
	require.NoError(t, err)

	token, _, err := other.Issue("user-1", "renter")
	require.NoError(t, err)
	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, _, err := issuer.Issue("user-1", "renter")
	require.NoError(t, err)
	issuer.now = time.Now
	_, err = issuer.Verify(stale)
	assert.ErrorIs(t, err, ErrExpiredToken)

	_, err = issuer.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewJWTIssuerRequiresSecret(t *testing.T) {
	_, err := NewJWTIssuer(" ", time.Hour, "")
	assert.ErrorIs(t, err, ErrMissingSecret)
}
