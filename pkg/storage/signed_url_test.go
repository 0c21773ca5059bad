package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("edt-secret", time.Hour)

	token, expiresAt, err := signer.Generate("job-41", "exports/occupancies_week.csv")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	jobID, relPath, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-41", jobID)
	assert.Equal(t, "exports/occupancies_week.csv", relPath)
	assert.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("edt-secret", time.Hour)
	token, _, err := signer.Generate("job-41", "exports/occupancies_week.csv")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 4)

	t.Run("swapped job id", func(t *testing.T) {
		forged := strings.Join([]string{"job-99", parts[1], parts[2], parts[3]}, ".")
		_, _, _, err := signer.Parse(forged, false)
		require.Error(t, err)
	})

	t.Run("foreign signature", func(t *testing.T) {
		other := NewSignedURLSigner("another-secret", time.Hour)
		otherToken, _, err := other.Generate("job-41", "exports/occupancies_week.csv")
		require.NoError(t, err)
		_, _, _, err = signer.Parse(otherToken, false)
		require.Error(t, err)
	})

	t.Run("truncated", func(t *testing.T) {
		_, _, _, err := signer.Parse(strings.Join(parts[:3], "."), false)
		require.Error(t, err)
	})
}

func TestSignedURLExpiry(t *testing.T) {
	signer := NewSignedURLSigner("edt-secret", 10*time.Millisecond)
	token, _, err := signer.Generate("job-41", "exports/occupancies_week.pdf")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	_, _, _, err = signer.Parse(token, false)
	require.Error(t, err, "expired token must be refused for downloads")

	jobID, relPath, _, err := signer.Parse(token, true)
	require.NoError(t, err, "cleanup still resolves expired tokens")
	assert.Equal(t, "job-41", jobID)
	assert.Equal(t, "exports/occupancies_week.pdf", relPath)
}
