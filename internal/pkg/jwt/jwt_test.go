package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	token, err := GenerateAccessToken("u-1", "firm-1", "amina", "credit_head", "s3cret", 5)
	require.NoError(t, err)

	claims, err := ValidateAccessToken(token, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "firm-1", claims.TenantID)
	assert.Equal(t, "credit_head", claims.Role)
	assert.Equal(t, "casedesk", claims.Issuer)
}

func TestValidateAccessToken_Failures(t *testing.T) {
	token, err := GenerateAccessToken("u-1", "firm-1", "amina", "credit_head", "s3cret", 5)
	require.NoError(t, err)

	_, err = ValidateAccessToken(token, "other")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	expired, err := GenerateAccessToken("u-1", "firm-1", "amina", "credit_head", "s3cret", -1)
	require.NoError(t, err)
	_, err = ValidateAccessToken(expired, "s3cret")
	assert.ErrorIs(t, err, ErrTokenExpired)

	noTenant, err := GenerateAccessToken("u-1", "", "amina", "credit_head", "s3cret", 5)
	require.NoError(t, err)
	_, err = ValidateAccessToken(noTenant, "s3cret")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = ValidateAccessToken("garbage", "s3cret")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
