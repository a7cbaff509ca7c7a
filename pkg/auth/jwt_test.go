package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitforge/fitforge/pkg/auth"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	token, err := auth.GenerateToken(auth.Principal{ID: 7, Role: auth.RoleTrainer})
	require.NoError(t, err)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, auth.Principal{ID: 7, Role: auth.RoleTrainer}, claims.Principal())
}

func TestRefreshTokenIsNotAnAccessToken(t *testing.T) {
	refresh, err := auth.GenerateRefreshToken(auth.Principal{ID: 1, Role: auth.RoleCustomer})
	require.NoError(t, err)

	_, err = auth.ValidateToken(refresh)
	assert.ErrorIs(t, err, auth.ErrWrongTokenType)

	claims, err := auth.ValidateRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, uint(1), claims.UserID)
}

func TestTamperedTokenRejected(t *testing.T) {
	token, err := auth.GenerateToken(auth.Principal{ID: 1, Role: auth.RoleCustomer})
	require.NoError(t, err)

	_, err = auth.ValidateToken(token + "x")
	assert.Error(t, err)
}

func TestPasswordHash(t *testing.T) {
	hash, err := auth.HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword(hash, "s3cret-pass"))
	assert.False(t, auth.CheckPassword(hash, "wrong"))
}

func TestPrincipalOwnership(t *testing.T) {
	customer := auth.Principal{ID: 3, Role: auth.RoleCustomer}
	admin := auth.Principal{ID: 1, Role: auth.RoleAdmin}

	assert.True(t, customer.Owns(3))
	assert.False(t, customer.Owns(4))
	assert.True(t, admin.Owns(4))
	assert.False(t, auth.Principal{}.Owns(0))
}

func TestPrincipalContext(t *testing.T) {
	_, ok := auth.FromContext(context.Background())
	assert.False(t, ok)

	ctx := auth.WithPrincipal(context.Background(), auth.Principal{ID: 9, Role: auth.RoleAdmin})
	p, ok := auth.FromContext(ctx)
	require.True(t, ok)
	assert.True(t, p.IsAdmin())
}
