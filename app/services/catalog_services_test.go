package services

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fitforge/fitforge/app/models"
	"github.com/fitforge/fitforge/app/repositories"
	"github.com/fitforge/fitforge/pkg/apperr"
)

func TestGetAvailability(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, "BAR-20", "199.00", 3)

	ok, err := f.catalog.GetAvailability(ctx, p.ID, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.catalog.GetAvailability(ctx, p.ID, 4)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.catalog.GetAvailability(ctx, 999, 1)
	e := requireKind(t, err, apperr.KindNotFound)
	assert.Equal(t, "product_not_found", e.Code)

	_, err = f.catalog.GetAvailability(ctx, p.ID, 0)
	requireKind(t, err, apperr.KindValidation)
}

func TestIsInStockSwallowsErrors(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "MAT", "25.00", 1)

	assert.True(t, f.catalog.IsInStock(context.Background(), p.ID, 1))
	assert.False(t, f.catalog.IsInStock(context.Background(), p.ID, 2))
	assert.False(t, f.catalog.IsInStock(context.Background(), 404, 1))
	assert.False(t, f.catalog.IsInStock(context.Background(), p.ID, -1))
}

func TestReserveStockShortfall(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, "WHEY", "49.99", 2)

	err := f.catalog.ReserveStock(ctx, p.ID, 5)
	e := requireKind(t, err, apperr.KindInsufficientStock)
	assert.Equal(t, 2, e.Details["available"])
	assert.Equal(t, 5, e.Details["requested"])
	assert.Equal(t, 2, f.stock(t, p.ID).Stock, "failed reservation leaves stock unchanged")

	require.NoError(t, f.catalog.ReserveStock(ctx, p.ID, 2))
	got := f.stock(t, p.ID)
	assert.Equal(t, 0, got.Stock)
	assert.Equal(t, 2, got.Sales)
}

func TestReleaseStockFloorsSales(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, "ROPE", "12.00", 4)

	require.NoError(t, f.catalog.ReserveStock(ctx, p.ID, 1))
	require.NoError(t, f.catalog.ReleaseStock(ctx, p.ID, 3))
	got := f.stock(t, p.ID)
	assert.Equal(t, 6, got.Stock)
	assert.Equal(t, 0, got.Sales)
}

func TestConcurrentReservationsNeverOversell(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, "RACK", "899.00", 5)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if f.catalog.ReserveStock(ctx, p.ID, 1) == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, ok)
	assert.Equal(t, 0, f.stock(t, p.ID).Stock)
}

func TestAdjustStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, "PLATE", "30.00", 20)

	got, err := f.catalog.AdjustStock(ctx, p.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 25, got.Stock)

	_, err = f.catalog.AdjustStock(ctx, p.ID, -26)
	e := requireKind(t, err, apperr.KindValidation)
	assert.Equal(t, "negative_stock", e.Code)
	assert.Equal(t, 25, f.stock(t, p.ID).Stock)

	_, err = f.catalog.AdjustStock(ctx, p.ID, 0)
	requireKind(t, err, apperr.KindValidation)
}

func TestLowStockEvent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, "BAND", "9.00", 12)

	var (
		mu  sync.Mutex
		got []LowStock
	)
	f.events.Listen(EventProductLowStock, func(_ context.Context, payload any) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, payload.(LowStock))
	})

	require.NoError(t, f.catalog.ReserveStock(ctx, p.ID, 1)) // 11 left, above threshold
	f.events.Wait()
	assert.Empty(t, got)

	require.NoError(t, f.catalog.ReserveStock(ctx, p.ID, 1)) // 10 left
	f.events.Wait()
	require.Len(t, got, 1)
	assert.Equal(t, 10, got[0].Stock)
	assert.Equal(t, models.DefaultLowStockThreshold, got[0].Threshold)
}

func TestCreateProductDuplicateSKU(t *testing.T) {
	f := newFixture(t)
	f.product(t, "DUP-1", "10.00", 1)

	_, err := f.catalog.CreateProduct(context.Background(), ProductInput{
		Name: "Copy", SKU: "DUP-1", Category: models.CategoryApparel, Price: decimal.NewFromInt(5),
	})
	e := requireKind(t, err, apperr.KindConflict)
	assert.Equal(t, "sku_taken", e.Code)
}

func TestCreateProductRejectsBadSale(t *testing.T) {
	start := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, -1)
	_, err := newFixture(t).catalog.CreateProduct(context.Background(), ProductInput{
		Name: "Sale", SKU: "S", Category: models.CategoryApparel,
		Price: decimal.NewFromInt(10), SalePrice: decimal.NewFromInt(8),
		SaleStartsAt: &start, SaleEndsAt: &end,
	})
	e := requireKind(t, err, apperr.KindValidation)
	assert.Equal(t, "invalid_sale_window", e.Code)
}

func TestUpdateProductKeepsStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, "BENCH", "150.00", 7)

	got, err := f.catalog.UpdateProduct(ctx, p.ID, ProductInput{
		Name: "Flat Bench", SKU: "BENCH", Category: models.CategoryEquipment,
		Price: decimal.NewFromInt(140), Stock: 999,
	})
	require.NoError(t, err)
	assert.Equal(t, "Flat Bench", got.Name)
	assert.Equal(t, 7, f.stock(t, p.ID).Stock)
}

func TestArchiveProduct(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, "OLD", "5.00", 1)

	require.NoError(t, f.catalog.ArchiveProduct(ctx, p.ID))
	assert.Equal(t, models.StatusArchived, f.stock(t, p.ID).Status)
	requireKind(t, f.catalog.ArchiveProduct(ctx, 404), apperr.KindNotFound)
}

func TestListProductsOnSale(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	now := f.clock.t
	start, end := now.Add(-time.Hour), now.Add(time.Hour)

	_, err := f.catalog.CreateProduct(ctx, ProductInput{
		Name: "Sale shoe", SKU: "SHOE", Category: models.CategoryApparel,
		Price: decimal.NewFromInt(100), SalePrice: decimal.NewFromInt(80),
		SaleStartsAt: &start, SaleEndsAt: &end, Stock: 1,
	})
	require.NoError(t, err)
	f.product(t, "FULL", "100.00", 1)

	items, page, err := f.catalog.ListProducts(ctx, repositories.ProductQuery{OnSale: true})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "SHOE", items[0].SKU)
	assert.EqualValues(t, 1, page.Total)
	assert.Equal(t, 20, page.Limit)

	_, _, err = f.catalog.ListProducts(ctx, repositories.ProductQuery{Sort: "cheapest"})
	requireKind(t, err, apperr.KindValidation)
}

func TestAddReviewReplacesAndRecomputes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, "KB", "60.00", 1)

	_, err := f.catalog.AddReview(ctx, customer, models.TargetProduct, p.ID, ReviewInput{Rating: 2})
	require.NoError(t, err)
	_, err = f.catalog.AddReview(ctx, other, models.TargetProduct, p.ID, ReviewInput{Rating: 5})
	require.NoError(t, err)
	_, err = f.catalog.AddReview(ctx, customer, models.TargetProduct, p.ID, ReviewInput{Rating: 4, Title: "Better"})
	require.NoError(t, err)

	got, err := f.catalog.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.5, got.AverageRating)
	assert.Equal(t, 2, got.ReviewCount)
	assert.Len(t, got.Reviews, 2)

	_, err = f.catalog.AddReview(ctx, customer, models.TargetProduct, p.ID, ReviewInput{Rating: 6})
	requireKind(t, err, apperr.KindValidation)
	_, err = f.catalog.AddReview(ctx, customer, models.TargetProduct, 404, ReviewInput{Rating: 3})
	requireKind(t, err, apperr.KindNotFound)
}

func TestAddReviewToPlan(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	plan := f.plan(t, 10)

	_, err := f.catalog.AddReview(ctx, customer, models.TargetPlan, plan.ID, ReviewInput{Rating: 3})
	require.NoError(t, err)

	got, err := f.plans.GetPlan(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, 3.0, got.AverageRating)
	assert.Equal(t, 1, got.ReviewCount)
}

// mapCache is a Cache over a plain map.
type mapCache struct {
	mu   sync.Mutex
	data map[string]any
}

func (c *mapCache) Get(_ context.Context, key string, dest any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if ok {
		*dest.(*models.Product) = v.(models.Product)
	}
	return ok
}

func (c *mapCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *mapCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func TestGetProductReadsThroughCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := &mapCache{data: map[string]any{}}
	f.catalog.cache = c
	p := f.product(t, "CACHED", "10.00", 5)

	_, err := f.catalog.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Contains(t, c.data, productKey(p.ID))

	require.NoError(t, f.catalog.ReserveStock(ctx, p.ID, 1))
	assert.NotContains(t, c.data, productKey(p.ID), "stock changes invalidate the cached product")

	got, err := f.catalog.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Stock)
}

type mockDisk struct{ mock.Mock }

func (m *mockDisk) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	return m.Called(ctx, key, r, contentType).Error(0)
}

func (m *mockDisk) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockDisk) Exists(ctx context.Context, key string) bool {
	return m.Called(ctx, key).Bool(0)
}

func (m *mockDisk) URL(key string) string {
	return "https://cdn.example.com/" + key
}

func TestUploadImage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	disk := &mockDisk{}
	f.catalog.disk = disk
	p := f.product(t, "IMG", "10.00", 1)

	disk.On("Put", ctx, mock.MatchedBy(func(key string) bool {
		return len(key) > len("products/1/") && key[len(key)-4:] == ".png"
	}), mock.Anything, "image/png").Return(nil).Once()

	got, err := f.catalog.UploadImage(ctx, p.ID, "Front.PNG", "image/png", bytes.NewReader([]byte("png")))
	require.NoError(t, err)
	assert.Contains(t, got.Image, "https://cdn.example.com/products/")
	assert.Equal(t, got.Image, f.stock(t, p.ID).Image)
	disk.AssertExpectations(t)

	_, err = f.catalog.UploadImage(ctx, p.ID, "notes.txt", "text/plain", bytes.NewReader(nil))
	requireKind(t, err, apperr.KindValidation)
}
