package secrets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "eduhub/pkg/domain-errors"
)

func TestNewAdminToken(t *testing.T) {
	a, err := NewAdminToken()
	require.NoError(t, err)
	b, err := NewAdminToken()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a.String(), AdminTokenPrefix))
	assert.Len(t, strings.TrimPrefix(a.String(), AdminTokenPrefix), 43, "32 bytes in unpadded base64url")
	assert.NotEqual(t, a, b)
	assert.NotContains(t, a.String(), "=")
}

func TestHashAndVerify(t *testing.T) {
	token, err := NewAdminToken()
	require.NoError(t, err)
	hash, err := token.Hash()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$2a$"))

	assert.NoError(t, VerifyAdminToken(token.String(), hash))

	err = VerifyAdminToken(token.String()+"x", hash)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	err = VerifyAdminToken(token.String(), "not-a-bcrypt-hash")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}

func TestVerifyRefusesUnmintedValues(t *testing.T) {
	hash, err := AdminToken("ehat_s3cret").Hash()
	require.NoError(t, err)

	for _, presented := range []string{"", "s3cret", AdminTokenPrefix, "EHAT_s3cret"} {
		err := VerifyAdminToken(presented, hash)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized), presented)
	}
	assert.NoError(t, VerifyAdminToken("ehat_s3cret", hash))
}

func TestHashRejectsBadInput(t *testing.T) {
	_, err := AdminToken("").Hash()
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = AdminToken("no-prefix").Hash()
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = AdminToken(AdminTokenPrefix + strings.Repeat("x", 73)).Hash()
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
