package services

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/fitforge/fitforge/app/models"
	"github.com/fitforge/fitforge/app/repositories/memory"
	"github.com/fitforge/fitforge/pkg/apperr"
	"github.com/fitforge/fitforge/pkg/auth"
	"github.com/fitforge/fitforge/pkg/event"
	"github.com/fitforge/fitforge/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Discard()
	os.Exit(m.Run())
}

var (
	admin    = auth.Principal{ID: 1, Role: auth.RoleAdmin}
	customer = auth.Principal{ID: 2, Role: auth.RoleCustomer}
	other    = auth.Principal{ID: 3, Role: auth.RoleCustomer}
	trainer  = auth.Principal{ID: 4, Role: auth.RoleTrainer}
)

// clock is a settable time source for the services' now field.
type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	store   *memory.Store
	events  *event.Dispatcher
	catalog *CatalogService
	orders  *OrderService
	plans   *PlanService
	clock   *clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	events := event.NewDispatcher()
	c := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	catalog := NewCatalogService(store, nil, nil, events, time.Minute)
	catalog.now = c.now
	orders := NewOrderService(store, memory.NewHistory(), nil, events, catalog)
	orders.now = c.now

	// admin, customer, other and trainer get ids 1 to 4.
	for _, p := range []auth.Principal{admin, customer, other, trainer} {
		u := models.User{Name: string(p.Role), Email: fmt.Sprintf("user%d@example.com", p.ID), Role: p.Role}
		require.NoError(t, store.Users().Create(context.Background(), &u))
		require.Equal(t, p.ID, u.ID)
	}

	t.Cleanup(events.Wait)
	return &fixture{store: store, events: events, catalog: catalog, orders: orders, plans: NewPlanService(store), clock: c}
}

func (f *fixture) product(t *testing.T, sku string, price string, stock int) models.Product {
	t.Helper()
	p, err := f.catalog.CreateProduct(context.Background(), ProductInput{
		Name:     "Product " + sku,
		SKU:      sku,
		Category: models.CategoryEquipment,
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) stock(t *testing.T, id uint) models.Product {
	t.Helper()
	p, err := f.store.Products().FindByID(context.Background(), id)
	require.NoError(t, err)
	return p
}

var address = AddressInput{
	FullName:   "Sam Lee",
	Line1:      "1 Main St",
	City:       "Austin",
	PostalCode: "78701",
	Country:    "us",
}

func requireKind(t *testing.T, err error, kind apperr.Kind) *apperr.Error {
	t.Helper()
	require.Error(t, err)
	e := apperr.From(err)
	require.Equal(t, kind, e.Kind, "error: %v", err)
	return e
}
