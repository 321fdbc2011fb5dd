package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("dev", "loud")
	require.Error(t, err)
}

func TestNewBuildsForBothModes(t *testing.T) {
	for _, mode := range []string{"dev", "prod"} {
		log, err := New(mode, "info")
		require.NoError(t, err, mode)
		log.With("component", "test").Info("hello", "mode", mode)
	}
}

func TestRedactMasksCredentialKeys(t *testing.T) {
	out := redact([]interface{}{"access_token", "abc", "case_id", "c-1", "jwt_secret", "s"})
	assert.Equal(t, "[REDACTED]", out[1])
	assert.Equal(t, "c-1", out[3])
	assert.Equal(t, "[REDACTED]", out[5])
}
