package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitforge/fitforge/app/models"
	"github.com/fitforge/fitforge/app/repositories"
	"github.com/fitforge/fitforge/pkg/apperr"
	"github.com/fitforge/fitforge/pkg/auth"
)

func (f *fixture) plan(t *testing.T, seats int) models.WorkoutPlan {
	t.Helper()
	p, err := f.plans.CreatePlan(context.Background(), trainer, PlanInput{
		Name:       "12 Week Strength",
		Price:      decimal.NewFromInt(29),
		Level:      models.LevelIntermediate,
		Category:   models.PlanStrength,
		MaxMembers: seats,
	})
	require.NoError(t, err)
	return p
}

func TestJoinUntilFull(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.plan(t, 2)

	ok, err := f.plans.CanJoin(ctx, p.ID, customer)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := f.plans.Join(ctx, customer, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ActiveMembers)
	_, err = f.plans.Join(ctx, other, p.ID)
	require.NoError(t, err)

	_, err = f.plans.Join(ctx, admin, p.ID)
	e := requireKind(t, err, apperr.KindPlanFull)
	assert.Equal(t, 2, e.Details["maxMembers"])
	assert.Equal(t, 2, e.Details["activeMembers"])

	ok, err = f.plans.CanJoin(ctx, p.ID, customer)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestJoinRejectsPrivateAndInactive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	private, err := f.plans.CreatePlan(ctx, trainer, PlanInput{
		Name: "Private", Level: models.LevelBeginner, Category: models.PlanYoga,
		MaxMembers: 5, Visibility: models.VisibilityPrivate,
	})
	require.NoError(t, err)
	_, err = f.plans.Join(ctx, customer, private.ID)
	requireKind(t, err, apperr.KindForbidden)

	draft, err := f.plans.CreatePlan(ctx, trainer, PlanInput{
		Name: "Draft", Level: models.LevelBeginner, Category: models.PlanYoga,
		MaxMembers: 5, Status: models.StatusDraft,
	})
	require.NoError(t, err)
	_, err = f.plans.Join(ctx, customer, draft.ID)
	e := requireKind(t, err, apperr.KindValidation)
	assert.Equal(t, "plan_unavailable", e.Code)

	_, err = f.plans.Join(ctx, customer, 404)
	requireKind(t, err, apperr.KindNotFound)
}

func TestLeaveIsFlooredAtZero(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.plan(t, 3)

	_, err := f.plans.Join(ctx, customer, p.ID)
	require.NoError(t, err)

	got, err := f.plans.Leave(ctx, customer, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.ActiveMembers)

	got, err = f.plans.Leave(ctx, customer, p.ID)
	require.NoError(t, err, "leaving an empty plan is a no-op")
	assert.Equal(t, 0, got.ActiveMembers)
}

func TestPlanOwnership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.plan(t, 5)
	assert.Equal(t, trainer.ID, p.TrainerID)

	in := PlanInput{Name: "Renamed", Level: models.LevelAdvanced, Category: models.PlanStrength, MaxMembers: 6}

	stranger := trainer
	stranger.ID = 99
	_, err := f.plans.UpdatePlan(ctx, stranger, p.ID, in)
	requireKind(t, err, apperr.KindForbidden)

	got, err := f.plans.UpdatePlan(ctx, trainer, p.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, 6, got.MaxMembers)

	_, err = f.plans.CreatePlan(ctx, customer, in)
	requireKind(t, err, apperr.KindForbidden)
}

func TestMaxMembersCannotDropBelowActive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.plan(t, 3)
	for _, u := range []uint{10, 11} {
		_, err := f.plans.Join(ctx, auth.Principal{ID: u, Role: auth.RoleCustomer}, p.ID)
		require.NoError(t, err)
	}

	_, err := f.plans.UpdatePlan(ctx, admin, p.ID, PlanInput{
		Name: p.Name, Level: p.Level, Category: p.Category, MaxMembers: 1,
	})
	e := requireKind(t, err, apperr.KindValidation)
	assert.Equal(t, "max_members_below_active", e.Code)
}

func TestListPlansByTrainer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.plan(t, 1)
	_, err := f.plans.CreatePlan(ctx, admin, PlanInput{
		Name: "Admin plan", Level: models.LevelBeginner, Category: models.PlanCardio, MaxMembers: 1, TrainerID: 50,
	})
	require.NoError(t, err)

	items, page, err := f.plans.ListPlans(ctx, repositories.PlanQuery{TrainerID: 50})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Admin plan", items[0].Name)
	assert.EqualValues(t, 1, page.Total)
}
