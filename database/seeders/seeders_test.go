package seeders

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitforge/fitforge/app/repositories"
	"github.com/fitforge/fitforge/app/repositories/memory"
	"github.com/fitforge/fitforge/pkg/auth"
)

func TestRunAll_IsRepeatable(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	var out bytes.Buffer
	require.NoError(t, RunAll(ctx, store, &out))
	require.NoError(t, RunAll(ctx, store, nil))
	assert.Contains(t, out.String(), "Running seeder: products")

	_, total, err := store.Products().List(ctx, repositories.ProductQuery{Page: 1, Limit: 100})
	require.NoError(t, err)
	assert.EqualValues(t, len(products), total)

	_, total, err = store.Plans().List(ctx, repositories.PlanQuery{Page: 1, Limit: 100})
	require.NoError(t, err)
	assert.EqualValues(t, len(plans), total)

	admin, err := store.Users().FindByEmail(ctx, AdminEmail)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, admin.Role)
	assert.True(t, auth.CheckPassword(admin.Password, "fitforge-secret"))
}
