package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitforge/fitforge/app/models"
	"github.com/fitforge/fitforge/app/repositories"
)

func seedProduct(t *testing.T, s *Store, sku string, stock int) models.Product {
	t.Helper()
	p := models.Product{
		Name:     "Kettlebell " + sku,
		SKU:      sku,
		Category: models.CategoryEquipment,
		Price:    decimal.NewFromInt(40),
		Stock:    stock,
		Status:   models.StatusActive,
	}
	require.NoError(t, s.Products().Create(context.Background(), &p))
	return p
}

func TestReserveAndReleaseStock(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := seedProduct(t, s, "KB-16", 5)

	require.NoError(t, s.Products().ReserveStock(ctx, p.ID, 5))
	got, err := s.Products().FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Stock)
	assert.Equal(t, 5, got.Sales)

	err = s.Products().ReserveStock(ctx, p.ID, 1)
	var short *repositories.ShortfallError
	require.ErrorAs(t, err, &short)
	assert.Equal(t, 0, short.Available)
	assert.Equal(t, 1, short.Requested)
	assert.ErrorIs(t, err, repositories.ErrInsufficientStock)

	require.NoError(t, s.Products().ReleaseStock(ctx, p.ID, 7))
	got, _ = s.Products().FindByID(ctx, p.ID)
	assert.Equal(t, 7, got.Stock)
	assert.Equal(t, 0, got.Sales, "sales never drop below zero")

	assert.ErrorIs(t, s.Products().ReserveStock(ctx, 999, 1), repositories.ErrNotFound)
}

func TestAdjustStockRefusesNegative(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := seedProduct(t, s, "KB-20", 3)

	n, err := s.Products().AdjustStock(ctx, p.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = s.Products().AdjustStock(ctx, p.ID, -8)
	assert.ErrorIs(t, err, repositories.ErrInsufficientStock)
}

func TestDuplicateSKU(t *testing.T) {
	s := New()
	seedProduct(t, s, "DUP", 1)
	p := models.Product{Name: "Other", SKU: "DUP"}
	assert.ErrorIs(t, s.Products().Create(context.Background(), &p), repositories.ErrDuplicate)
}

func TestProductListFiltersAndPages(t *testing.T) {
	ctx := context.Background()
	s := New()
	for i, sku := range []string{"A", "B", "C"} {
		p := seedProduct(t, s, sku, i)
		p.Price = decimal.NewFromInt(int64(10 * (i + 1)))
		require.NoError(t, s.Products().Update(ctx, &p))
	}

	items, total, err := s.Products().List(ctx, repositories.ProductQuery{InStock: true, Sort: repositories.SortPriceDesc})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, items, 2)
	assert.Equal(t, "C", items[0].SKU)

	items, total, err = s.Products().List(ctx, repositories.ProductQuery{Sort: repositories.SortPriceAsc, Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, items, 1)
	assert.Equal(t, "C", items[0].SKU)
}

func TestPlanMembershipBounds(t *testing.T) {
	ctx := context.Background()
	s := New()
	plan := models.WorkoutPlan{Name: "Couch to 5k", MaxMembers: 1, Status: models.StatusActive, Visibility: models.VisibilityPublic}
	require.NoError(t, s.Plans().Create(ctx, &plan))

	require.NoError(t, s.Plans().AddMember(ctx, plan.ID))
	assert.ErrorIs(t, s.Plans().AddMember(ctx, plan.ID), repositories.ErrPlanFull)

	removed, err := s.Plans().RemoveMember(ctx, plan.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = s.Plans().RemoveMember(ctx, plan.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	got, _ := s.Plans().FindByID(ctx, plan.ID)
	assert.Equal(t, 0, got.ActiveMembers)
}

func TestReviewUpsertReplaces(t *testing.T) {
	ctx := context.Background()
	s := New()
	r1 := models.Review{TargetType: models.TargetProduct, TargetID: 1, UserID: 9, Rating: 2}
	require.NoError(t, s.Reviews().Upsert(ctx, &r1))
	r2 := models.Review{TargetType: models.TargetProduct, TargetID: 1, UserID: 9, Rating: 5}
	require.NoError(t, s.Reviews().Upsert(ctx, &r2))

	list, err := s.Reviews().ListByTarget(ctx, models.TargetProduct, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 5, list[0].Rating)
	assert.Equal(t, r1.ID, list[0].ID)
}

func TestOrderStatusCAS(t *testing.T) {
	ctx := context.Background()
	s := New()
	o := models.Order{OrderNumber: "ORD-1", UserID: 1}
	require.NoError(t, s.Orders().Create(ctx, &o))

	o.Status = models.OrderConfirmed
	require.NoError(t, s.Orders().UpdateStatus(ctx, &o, models.OrderPending))
	assert.ErrorIs(t, s.Orders().UpdateStatus(ctx, &o, models.OrderPending), repositories.ErrStatusChanged)

	dup := models.Order{OrderNumber: "ORD-1", UserID: 2}
	assert.ErrorIs(t, s.Orders().Create(ctx, &dup), repositories.ErrDuplicate)

	require.NoError(t, s.Orders().Delete(ctx, o.ID))
	assert.ErrorIs(t, s.Orders().Delete(ctx, o.ID), repositories.ErrNotFound)
}

func TestOrderStats(t *testing.T) {
	ctx := context.Background()
	s := New()
	for i, status := range []models.OrderStatus{models.OrderPending, models.OrderDelivered, models.OrderDelivered} {
		o := models.Order{
			OrderNumber: "ORD-" + string(rune('A'+i)),
			UserID:      uint(i%2 + 1),
			Status:      status,
			TotalPrice:  decimal.NewFromInt(10),
		}
		require.NoError(t, s.Orders().Create(ctx, &o))
	}

	counts, revenue, err := s.Orders().Stats(ctx, repositories.StatsQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, counts[models.OrderPending])
	assert.EqualValues(t, 2, counts[models.OrderDelivered])
	assert.True(t, revenue.Equal(decimal.NewFromInt(30)))

	counts, _, err = s.Orders().Stats(ctx, repositories.StatsQuery{UserID: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 1, counts[models.OrderDelivered])

	future := time.Now().Add(time.Hour)
	counts, _, err = s.Orders().Stats(ctx, repositories.StatsQuery{From: &future})
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := seedProduct(t, s, "TX", 2)

	boom := errors.New("boom")
	err := s.Transaction(ctx, func(tx repositories.Store) error {
		if err := tx.Products().ReserveStock(ctx, p.ID, 2); err != nil {
			return err
		}
		o := models.Order{OrderNumber: "ORD-TX", UserID: 1}
		if err := tx.Orders().Create(ctx, &o); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, _ := s.Products().FindByID(ctx, p.ID)
	assert.Equal(t, 2, got.Stock)
	_, total, _ := s.Orders().List(ctx, repositories.OrderQuery{})
	assert.Zero(t, total)
}

func TestTransactionCommits(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := seedProduct(t, s, "OK", 2)

	require.NoError(t, s.Transaction(ctx, func(tx repositories.Store) error {
		return tx.Products().ReserveStock(ctx, p.ID, 1)
	}))
	got, _ := s.Products().FindByID(ctx, p.ID)
	assert.Equal(t, 1, got.Stock)
}

func TestSequencesAndHistory(t *testing.T) {
	ctx := context.Background()
	s := New()
	a, _ := s.Sequences().Next(ctx, "orders")
	b, _ := s.Sequences().Next(ctx, "orders")
	assert.Equal(t, []int64{1, 2}, []int64{a, b})

	h := NewHistory()
	now := time.Now()
	require.NoError(t, h.Record(ctx, models.StatusChange{OrderID: "x", To: models.OrderConfirmed, At: now.Add(time.Second)}))
	require.NoError(t, h.Record(ctx, models.StatusChange{OrderID: "x", To: models.OrderPending, At: now}))
	list, err := h.List(ctx, "x")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, models.OrderPending, list[0].To)
}
