package repositories_test

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fitforge/fitforge/app/models"
	"github.com/fitforge/fitforge/app/repositories"
	"github.com/fitforge/fitforge/app/services"
	_ "github.com/fitforge/fitforge/database/migrations"
	"github.com/fitforge/fitforge/pkg/apperr"
	"github.com/fitforge/fitforge/pkg/auth"
	"github.com/fitforge/fitforge/pkg/database"
	"github.com/fitforge/fitforge/pkg/event"
	"github.com/fitforge/fitforge/pkg/logger"
	"github.com/fitforge/fitforge/pkg/migration"
)

func TestMain(m *testing.M) {
	logger.Discard()
	os.Exit(m.Run())
}

// openStore migrates a private in-memory sqlite database for the test.
func openStore(t *testing.T) *repositories.GormStore {
	t.Helper()
	ctx := context.Background()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Connect(ctx, database.Options{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection keeps the shared in-memory database alive and
	// serialises writers.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migration.New(db, nil).Run(ctx))
	return repositories.NewGormStore(db)
}

type shop struct {
	store    *repositories.GormStore
	events   *event.Dispatcher
	catalog  *services.CatalogService
	orders   *services.OrderService
	plans    *services.PlanService
	admin    auth.Principal
	customer auth.Principal
	trainer  auth.Principal
}

func newShop(t *testing.T) *shop {
	t.Helper()
	store := openStore(t)
	events := event.NewDispatcher()
	t.Cleanup(events.Wait)

	catalog := services.NewCatalogService(store, nil, nil, events, 0)
	s := &shop{
		store:   store,
		events:  events,
		catalog: catalog,
		orders:  services.NewOrderService(store, nil, nil, events, catalog),
		plans:   services.NewPlanService(store),
	}
	for _, role := range []auth.Role{auth.RoleAdmin, auth.RoleCustomer, auth.RoleTrainer} {
		u := models.User{Name: string(role), Email: string(role) + "@fitforge.test", Password: "x", Role: role}
		require.NoError(t, store.Users().Create(context.Background(), &u))
		switch role {
		case auth.RoleAdmin:
			s.admin = u.Principal()
		case auth.RoleCustomer:
			s.customer = u.Principal()
		case auth.RoleTrainer:
			s.trainer = u.Principal()
		}
	}
	return s
}

func (s *shop) product(t *testing.T, sku, price string, stock int) models.Product {
	t.Helper()
	p, err := s.catalog.CreateProduct(context.Background(), services.ProductInput{
		Name:     "Product " + sku,
		SKU:      sku,
		Category: models.CategoryEquipment,
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
	})
	require.NoError(t, err)
	return p
}

func (s *shop) load(t *testing.T, id uint) models.Product {
	t.Helper()
	p, err := s.store.Products().FindByID(context.Background(), id)
	require.NoError(t, err)
	return p
}

func (s *shop) place(items ...services.CartItem) (models.Order, error) {
	return s.orders.Create(context.Background(), s.customer, services.CreateOrderInput{
		Items: items,
		Shipping: services.AddressInput{
			FullName:   "Sam Lee",
			Line1:      "1 Main St",
			City:       "Austin",
			PostalCode: "78701",
			Country:    "us",
		},
		PaymentMethod: models.PaymentCreditCard,
	})
}

func TestGormStore_OrderLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newShop(t)
	a := s.product(t, "A", "100.00", 5)
	b := s.product(t, "B", "50.00", 1)

	o, err := s.place(services.CartItem{ProductID: a.ID, Quantity: 2}, services.CartItem{ProductID: b.ID, Quantity: 1})
	require.NoError(t, err)
	assert.Regexp(t, `^ORD-\d+-0001$`, o.OrderNumber)
	assert.True(t, o.Subtotal.Equal(decimal.NewFromInt(250)), o.Subtotal.String())
	assert.True(t, o.TotalPrice.Equal(decimal.NewFromInt(250)), o.TotalPrice.String())
	assert.Len(t, o.Items, 2)
	require.NotNil(t, o.User)
	assert.Equal(t, s.customer.ID, o.User.ID)

	got := s.load(t, a.ID)
	assert.Equal(t, 3, got.Stock)
	assert.Equal(t, 2, got.Sales)

	// B is sold out, so nothing in this order may be reserved.
	_, err = s.place(services.CartItem{ProductID: a.ID, Quantity: 1}, services.CartItem{ProductID: b.ID, Quantity: 1})
	require.Error(t, err)
	e := apperr.From(err)
	assert.Equal(t, apperr.KindInsufficientStock, e.Kind)
	assert.Equal(t, 0, e.Details["available"])
	assert.Equal(t, 3, s.load(t, a.ID).Stock)
	_, total, err := s.store.Orders().List(ctx, repositories.OrderQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	cancelled, err := s.orders.Cancel(ctx, s.customer, o.ID, "changed my mind")
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)

	got = s.load(t, a.ID)
	assert.Equal(t, 5, got.Stock)
	assert.Equal(t, 0, got.Sales)
	got = s.load(t, b.ID)
	assert.Equal(t, 1, got.Stock)
	assert.Equal(t, 0, got.Sales)

	stats, err := s.orders.Stats(ctx, s.admin, repositories.StatsQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.TotalOrders)
	assert.True(t, stats.TotalRevenue.Equal(decimal.NewFromInt(250)), stats.TotalRevenue.String())
	assert.Equal(t, map[models.OrderStatus]int64{models.OrderCancelled: 1}, stats.StatusCounts)

	require.NoError(t, s.orders.Delete(ctx, s.customer, o.ID))
	_, err = s.store.Orders().FindByID(ctx, o.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestGormStore_StatusCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	s := newShop(t)
	a := s.product(t, "A", "10.00", 5)
	o, err := s.place(services.CartItem{ProductID: a.ID, Quantity: 1})
	require.NoError(t, err)

	first, stale := o, o
	first.Status = models.OrderConfirmed
	require.NoError(t, s.store.Orders().UpdateStatus(ctx, &first, models.OrderPending))

	stale.Status = models.OrderCancelled
	err = s.store.Orders().UpdateStatus(ctx, &stale, models.OrderPending)
	assert.ErrorIs(t, err, repositories.ErrStatusChanged)

	stored, err := s.store.Orders().FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderConfirmed, stored.Status)

	missing := stale
	missing.ID = uuid.New()
	assert.ErrorIs(t, s.store.Orders().UpdateStatus(ctx, &missing, models.OrderPending), repositories.ErrNotFound)
}

func TestGormStore_ReserveAndRelease(t *testing.T) {
	ctx := context.Background()
	s := newShop(t)
	p := s.product(t, "KB-16", "40.00", 2)
	products := s.store.Products()

	require.NoError(t, products.ReleaseStock(ctx, p.ID, 3))
	got := s.load(t, p.ID)
	assert.Equal(t, 5, got.Stock)
	assert.Equal(t, 0, got.Sales, "sales never drop below zero")

	err := products.ReserveStock(ctx, p.ID, 6)
	var short *repositories.ShortfallError
	require.ErrorAs(t, err, &short)
	assert.Equal(t, 5, short.Available)
	assert.Equal(t, 6, short.Requested)
	assert.Equal(t, 5, s.load(t, p.ID).Stock)

	require.NoError(t, products.ReserveStock(ctx, p.ID, 5))
	got = s.load(t, p.ID)
	assert.Equal(t, 0, got.Stock)
	assert.Equal(t, 5, got.Sales)

	_, err = products.AdjustStock(ctx, p.ID, -1)
	assert.ErrorIs(t, err, repositories.ErrInsufficientStock)
	assert.ErrorIs(t, products.ReserveStock(ctx, 999, 1), repositories.ErrNotFound)
}

func TestGormStore_ConcurrentOrdersDoNotOversell(t *testing.T) {
	s := newShop(t)
	p := s.product(t, "A", "10.00", 5)

	const buyers = 12
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = map[string]bool{}
		short   int
	)
	for range buyers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o, err := s.place(services.CartItem{ProductID: p.ID, Quantity: 1})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if apperr.IsKind(err, apperr.KindInsufficientStock) {
					short++
				}
				return
			}
			numbers[o.OrderNumber] = true
		}()
	}
	wg.Wait()

	assert.Len(t, numbers, 5, "order numbers are unique")
	assert.Equal(t, buyers-5, short)
	got := s.load(t, p.ID)
	assert.Equal(t, 0, got.Stock)
	assert.Equal(t, 5, got.Sales)
}

func TestGormStore_ReviewUpsert(t *testing.T) {
	ctx := context.Background()
	s := newShop(t)
	p := s.product(t, "MAT", "30.00", 5)

	first, err := s.catalog.AddReview(ctx, s.customer, models.TargetProduct, p.ID, services.ReviewInput{Rating: 3, Title: "ok"})
	require.NoError(t, err)
	second, err := s.catalog.AddReview(ctx, s.customer, models.TargetProduct, p.ID, services.ReviewInput{Rating: 5, Title: "great"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt))
	assert.Equal(t, 5, second.Rating)

	all, err := s.store.Reviews().ListByTarget(ctx, models.TargetProduct, p.ID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "great", all[0].Title)

	got := s.load(t, p.ID)
	assert.Equal(t, 5.0, got.AverageRating)
	assert.Equal(t, 1, got.ReviewCount)
}

func TestGormStore_Membership(t *testing.T) {
	ctx := context.Background()
	s := newShop(t)
	plan, err := s.plans.CreatePlan(ctx, s.trainer, services.PlanInput{
		Name:       "Strength 101",
		Price:      decimal.NewFromInt(20),
		Level:      models.LevelBeginner,
		Category:   models.PlanStrength,
		MaxMembers: 2,
	})
	require.NoError(t, err)

	for range 2 {
		_, err := s.plans.Join(ctx, s.customer, plan.ID)
		require.NoError(t, err)
	}
	_, err = s.plans.Join(ctx, s.customer, plan.ID)
	e := apperr.From(err)
	require.NotNil(t, e)
	assert.Equal(t, apperr.KindPlanFull, e.Kind)

	// The repository guard holds even when the service check is skipped.
	assert.ErrorIs(t, s.store.Plans().AddMember(ctx, plan.ID), repositories.ErrPlanFull)

	left, err := s.plans.Leave(ctx, s.customer, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, left.ActiveMembers)
	joined, err := s.plans.Join(ctx, s.customer, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, joined.ActiveMembers)

	for range 3 {
		_, err := s.plans.Leave(ctx, s.customer, plan.ID)
		require.NoError(t, err)
	}
	removed, err := s.store.Plans().RemoveMember(ctx, plan.ID)
	require.NoError(t, err)
	assert.False(t, removed)
	got, err := s.store.Plans().FindByID(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.ActiveMembers)
}

func TestGormStore_Sequences(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	var seeded repositories.Sequence
	require.NoError(t, store.DB().First(&seeded, "name = ?", repositories.OrderSequence).Error)
	assert.EqualValues(t, 0, seeded.Value)

	n, err := store.Sequences().Next(ctx, repositories.OrderSequence)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	for want := int64(1); want <= 3; want++ {
		n, err := store.Sequences().Next(ctx, "invoices")
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}
}

func TestGormStore_SequenceFirstUseRace(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	// Another writer creates the row between our UPDATE and INSERT.
	raced := false
	err := store.DB().Callback().Update().After("gorm:update").Register("test:sequence_race", func(tx *gorm.DB) {
		if raced || tx.Statement.Table != "sequences" || tx.RowsAffected != 0 {
			return
		}
		raced = true
		_, err := tx.Statement.ConnPool.ExecContext(tx.Statement.Context,
			"INSERT INTO sequences (name, value) VALUES (?, ?)", "refunds", 7)
		require.NoError(t, err)
	})
	require.NoError(t, err)

	n, err := store.Sequences().Next(ctx, "refunds")
	require.NoError(t, err)
	assert.True(t, raced)
	assert.EqualValues(t, 1, n)
}
