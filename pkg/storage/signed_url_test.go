package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("sec-1", "timetables/BSCS_1-A.csv")
	require.NoError(t, err)

	claims, err := signer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "sec-1", claims.Subject)
	assert.Equal(t, "timetables/BSCS_1-A.csv", claims.Key)
	assert.True(t, expiresAt.Equal(claims.ExpiresAt))
}

func TestSignedURLRejectsForgery(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("sec-1", "a.pdf")
	require.NoError(t, err)

	_, err = NewSignedURLSigner("other", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	// swap the key while keeping the original signature
	other, _, err := signer.Generate("sec-1", "b.pdf")
	require.NoError(t, err)
	forged := other[:len(other)-len(signatureOf(token))] + signatureOf(token)
	_, err = signer.Verify(forged)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	for _, bad := range []string{"", "nodots", "a.b.c", "a.b.c.d.e"} {
		_, err = signer.Verify(bad)
		assert.ErrorIs(t, err, ErrTokenInvalid, bad)
	}
}

func TestSignedURLExpiry(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	now := time.Date(2024, 8, 1, 9, 0, 0, 0, time.UTC)
	signer.now = func() time.Time { return now }

	token, _, err := signer.Generate("sec-1", "exports/timetable.csv")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	claims, err := signer.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.Equal(t, "exports/timetable.csv", claims.Key)
}

func TestSignedURLGenerateValidation(t *testing.T) {
	_, _, err := NewSignedURLSigner("secret", 0).Generate("", "k")
	assert.Error(t, err)
	_, _, err = NewSignedURLSigner("secret", 0).Generate("a.b", "k")
	assert.Error(t, err)
	_, _, err = NewSignedURLSigner("", 0).Generate("a", "k")
	assert.Error(t, err)
}

func signatureOf(token string) string {
	for i := len(token) - 1; i >= 0; i-- {
		if token[i] == '.' {
			return token[i+1:]
		}
	}
	return ""
}
