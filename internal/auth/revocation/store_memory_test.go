package revocation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTRLRevokeAndCheck(t *testing.T) {
	trl := NewMemoryTRL()
	defer trl.Close()
	ctx := context.Background()

	revoked, err := trl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, trl.RevokeToken(ctx, "jti-1", time.Hour))

	revoked, err = trl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = trl.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked, "revocation is per token id")
}

func TestMemoryTRLExpiry(t *testing.T) {
	trl := NewMemoryTRL()
	defer trl.Close()
	ctx := context.Background()

	require.NoError(t, trl.RevokeToken(ctx, "jti-1", 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	revoked, err := trl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked, "entries lapse once the token would have expired")
}

func TestMemoryTRLRejectsBadTTL(t *testing.T) {
	trl := NewMemoryTRL()
	defer trl.Close()

	err := trl.RevokeToken(context.Background(), "jti-1", 0)
	require.Error(t, err)
}

func TestMemoryTRLEmptyJTI(t *testing.T) {
	trl := NewMemoryTRL()
	defer trl.Close()
	ctx := context.Background()

	require.NoError(t, trl.RevokeToken(ctx, "", time.Hour))
	revoked, err := trl.IsRevoked(ctx, "")
	require.NoError(t, err)
	assert.False(t, revoked)
}
