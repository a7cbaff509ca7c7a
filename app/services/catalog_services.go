package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fitforge/fitforge/app/models"
	"github.com/fitforge/fitforge/app/repositories"
	"github.com/fitforge/fitforge/pkg/apperr"
	"github.com/fitforge/fitforge/pkg/auth"
	"github.com/fitforge/fitforge/pkg/cache"
	"github.com/fitforge/fitforge/pkg/event"
	"github.com/fitforge/fitforge/pkg/logger"
	"github.com/fitforge/fitforge/pkg/metrics"
	"github.com/fitforge/fitforge/pkg/orm"
	"github.com/fitforge/fitforge/pkg/storage"
)

// ProductInput is the writable part of a product.
type ProductInput struct {
	Name              string                 `json:"name"              validate:"required,max=255"`
	Description       string                 `json:"description"`
	SKU               string                 `json:"sku"               validate:"required,max=100"`
	Category          models.ProductCategory `json:"category"          validate:"required,in=supplements,equipment,apparel,accessories,nutrition"`
	Brand             string                 `json:"brand"             validate:"nullable,max=120"`
	Price             decimal.Decimal        `json:"price"             validate:"gte=0"`
	SalePrice         decimal.Decimal        `json:"salePrice"         validate:"gte=0"`
	SaleStartsAt      *time.Time             `json:"saleStartsAt"`
	SaleEndsAt        *time.Time             `json:"saleEndsAt"`
	Stock             int                    `json:"stock"             validate:"gte=0"`
	LowStockThreshold *int                   `json:"lowStockThreshold" validate:"nullable,gte=0"`
	Image             string                 `json:"image"             validate:"nullable,url"`
	Status            models.CatalogStatus   `json:"status"            validate:"nullable,in=active,inactive,draft,archived"`
}

func (in ProductInput) check() error {
	if in.SaleStartsAt != nil && in.SaleEndsAt != nil && in.SaleEndsAt.Before(*in.SaleStartsAt) {
		return apperr.Validation("invalid_sale_window", "saleEndsAt must not be before saleStartsAt")
	}
	if in.SalePrice.IsPositive() && in.SalePrice.GreaterThan(in.Price) {
		return apperr.Validation("invalid_sale_price", "salePrice must not exceed price")
	}
	return nil
}

// apply copies the descriptive fields onto p. Stock is only taken on create.
func (in ProductInput) apply(p *models.Product) {
	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.SKU = strings.TrimSpace(in.SKU)
	p.Category = in.Category
	p.Brand = in.Brand
	p.Price = in.Price.Round(2)
	p.SalePrice = in.SalePrice.Round(2)
	p.SaleStartsAt = in.SaleStartsAt
	p.SaleEndsAt = in.SaleEndsAt
	if in.LowStockThreshold != nil {
		p.LowStockThreshold = *in.LowStockThreshold
	}
	if in.Image != "" {
		p.Image = in.Image
	}
	if in.Status != "" {
		p.Status = in.Status
	}
}

// ReviewInput is one user's rating of a product or plan.
type ReviewInput struct {
	Rating  int    `json:"rating"  validate:"required,min=1,max=5"`
	Title   string `json:"title"   validate:"nullable,max=200"`
	Comment string `json:"comment" validate:"nullable,max=5000"`
}

// CatalogService owns products, their stock and reviews.
type CatalogService struct {
	store  repositories.Store
	cache  cache.Cache
	disk   storage.Disk
	events *event.Dispatcher
	ttl    time.Duration
	now    func() time.Time
}

func NewCatalogService(store repositories.Store, c cache.Cache, disk storage.Disk, events *event.Dispatcher, ttl time.Duration) *CatalogService {
	if c == nil {
		c = cache.Noop{}
	}
	if events == nil {
		events = event.NewDispatcher()
	}
	return &CatalogService{store: store, cache: c, disk: disk, events: events, ttl: ttl, now: time.Now}
}

func productKey(id uint) string { return fmt.Sprintf("product:%d", id) }

// Invalidate drops the cached copy of a product.
func (s *CatalogService) Invalidate(ctx context.Context, ids ...uint) {
	if len(ids) == 0 {
		return
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = productKey(id)
	}
	if err := s.cache.Del(ctx, keys...); err != nil {
		logger.WithCtx(ctx).Warn("catalog: cache invalidate failed", "keys", keys, "error", err)
	}
}

// GetProduct returns the product with its reviews, read through the cache.
func (s *CatalogService) GetProduct(ctx context.Context, id uint) (models.Product, error) {
	var p models.Product
	if s.cache.Get(ctx, productKey(id), &p) {
		metrics.CacheHits.WithLabelValues("product").Inc()
		return p, nil
	}
	metrics.CacheMisses.WithLabelValues("product").Inc()

	p, err := s.store.Products().FindByID(ctx, id)
	if err != nil {
		return models.Product{}, productErr("catalog: get product", id, err)
	}
	reviews, err := s.store.Reviews().ListByTarget(ctx, models.TargetProduct, id)
	if err != nil {
		return models.Product{}, storeErr("catalog: list reviews", err)
	}
	p.Reviews = reviews

	if err := s.cache.Set(ctx, productKey(id), p, s.ttl); err != nil {
		logger.WithCtx(ctx).Warn("catalog: cache set failed", "product_id", id, "error", err)
	}
	return p, nil
}

// ListProducts returns one page of products matching q.
func (s *CatalogService) ListProducts(ctx context.Context, q repositories.ProductQuery) ([]models.Product, orm.Pagination, error) {
	switch q.Sort {
	case "":
		q.Sort = repositories.SortNewest
	case repositories.SortNewest, repositories.SortPriceAsc, repositories.SortPriceDesc,
		repositories.SortRating, repositories.SortPopular:
	default:
		return nil, orm.Pagination{}, apperr.Validation("invalid_sort", "sort must be one of %s", repositories.ProductSorts)
	}
	if q.MinPrice != nil && q.MaxPrice != nil && q.MinPrice.GreaterThan(*q.MaxPrice) {
		return nil, orm.Pagination{}, apperr.Validation("invalid_price_range", "minPrice must not exceed maxPrice")
	}
	q.Page, q.Limit = orm.Normalize(q.Page, q.Limit)
	if q.Now.IsZero() {
		q.Now = s.now()
	}

	items, total, err := s.store.Products().List(ctx, q)
	if err != nil {
		return nil, orm.Pagination{}, storeErr("catalog: list products", err)
	}
	return items, orm.NewPagination(q.Page, q.Limit, total), nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (models.Product, error) {
	if err := in.check(); err != nil {
		return models.Product{}, err
	}
	p := models.Product{
		Stock:             in.Stock,
		LowStockThreshold: models.DefaultLowStockThreshold,
		Status:            models.StatusActive,
	}
	in.apply(&p)

	if err := s.store.Products().Create(ctx, &p); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return models.Product{}, apperr.Conflict("sku_taken", "a product with SKU %q already exists", p.SKU)
		}
		return models.Product{}, storeErr("catalog: create product", err)
	}
	logger.WithCtx(ctx).Info("catalog: product created", "product_id", p.ID, "sku", p.SKU)
	return p, nil
}

// UpdateProduct rewrites the descriptive fields. Stock, sales and ratings
// are never touched here.
func (s *CatalogService) UpdateProduct(ctx context.Context, id uint, in ProductInput) (models.Product, error) {
	if err := in.check(); err != nil {
		return models.Product{}, err
	}
	p, err := s.store.Products().FindByID(ctx, id)
	if err != nil {
		return models.Product{}, productErr("catalog: update product", id, err)
	}
	in.apply(&p)

	if err := s.store.Products().Update(ctx, &p); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return models.Product{}, apperr.Conflict("sku_taken", "a product with SKU %q already exists", p.SKU)
		}
		return models.Product{}, productErr("catalog: update product", id, err)
	}
	s.Invalidate(ctx, id)
	return p, nil
}

// ArchiveProduct hides a product from new orders. Products are never
// removed because order snapshots point at them.
func (s *CatalogService) ArchiveProduct(ctx context.Context, id uint) error {
	p, err := s.store.Products().FindByID(ctx, id)
	if err != nil {
		return productErr("catalog: archive product", id, err)
	}
	if p.Status == models.StatusArchived {
		return nil
	}
	p.Status = models.StatusArchived
	if err := s.store.Products().Update(ctx, &p); err != nil {
		return productErr("catalog: archive product", id, err)
	}
	s.Invalidate(ctx, id)
	logger.WithCtx(ctx).Info("catalog: product archived", "product_id", id)
	return nil
}

// GetAvailability reports whether quantity units of the product are in
// stock right now.
func (s *CatalogService) GetAvailability(ctx context.Context, productID uint, quantity int) (bool, error) {
	if quantity < 1 {
		return false, apperr.Validation("invalid_quantity", "quantity must be at least 1")
	}
	p, err := s.store.Products().FindByID(ctx, productID)
	if err != nil {
		return false, productErr("catalog: availability", productID, err)
	}
	return p.IsInStock(quantity), nil
}

// IsInStock is GetAvailability with every error read as "no".
func (s *CatalogService) IsInStock(ctx context.Context, productID uint, quantity int) bool {
	ok, err := s.GetAvailability(ctx, productID, quantity)
	return err == nil && ok
}

// ReserveStock takes quantity units or fails with InsufficientStock,
// leaving stock unchanged.
func (s *CatalogService) ReserveStock(ctx context.Context, productID uint, quantity int) error {
	if quantity < 1 {
		return apperr.Validation("invalid_quantity", "quantity must be at least 1")
	}
	if err := reserve(ctx, s.store, productID, quantity, ""); err != nil {
		return err
	}
	s.Invalidate(ctx, productID)
	s.checkLowStock(ctx, productID)
	return nil
}

// ReleaseStock returns quantity units to the shelf.
func (s *CatalogService) ReleaseStock(ctx context.Context, productID uint, quantity int) error {
	if quantity < 1 {
		return apperr.Validation("invalid_quantity", "quantity must be at least 1")
	}
	if err := s.store.Products().ReleaseStock(ctx, productID, quantity); err != nil {
		return productErr("catalog: release stock", productID, err)
	}
	s.Invalidate(ctx, productID)
	return nil
}

// reserve runs one conditional reservation against store (which may be a
// transaction) and translates a shortfall.
func reserve(ctx context.Context, store repositories.Store, productID uint, quantity int, name string) error {
	err := store.Products().ReserveStock(ctx, productID, quantity)
	if err == nil {
		return nil
	}
	var short *repositories.ShortfallError
	if errors.As(err, &short) {
		metrics.StockReservationFailures.Inc()
		if name == "" {
			name = fmt.Sprintf("product %d", productID)
		}
		return apperr.InsufficientStock(productID, name, short.Available, short.Requested)
	}
	return productErr("catalog: reserve stock", productID, err)
}

// AdjustStock adds delta to the product's stock. The result may not go
// below zero.
func (s *CatalogService) AdjustStock(ctx context.Context, productID uint, delta int) (models.Product, error) {
	if delta == 0 {
		return models.Product{}, apperr.Validation("invalid_delta", "delta must not be zero")
	}
	_, err := s.store.Products().AdjustStock(ctx, productID, delta)
	if err != nil {
		var short *repositories.ShortfallError
		if errors.As(err, &short) {
			return models.Product{}, apperr.Validation("negative_stock",
				"cannot remove %d units, only %d in stock", short.Requested, short.Available).
				With("available", short.Available)
		}
		return models.Product{}, productErr("catalog: adjust stock", productID, err)
	}
	s.Invalidate(ctx, productID)

	p, err := s.store.Products().FindByID(ctx, productID)
	if err != nil {
		return models.Product{}, productErr("catalog: adjust stock", productID, err)
	}
	logger.WithCtx(ctx).Info("catalog: stock adjusted", "product_id", productID, "delta", delta, "stock", p.Stock)
	if delta < 0 {
		s.lowStock(ctx, p)
	}
	return p, nil
}

func (s *CatalogService) checkLowStock(ctx context.Context, productID uint) {
	p, err := s.store.Products().FindByID(ctx, productID)
	if err != nil {
		return
	}
	s.lowStock(ctx, p)
}

func (s *CatalogService) lowStock(ctx context.Context, p models.Product) {
	if !p.IsLowStock() {
		return
	}
	s.events.FireAsync(ctx, EventProductLowStock, LowStock{
		ProductID: p.ID,
		Name:      p.Name,
		SKU:       p.SKU,
		Stock:     p.Stock,
		Threshold: p.LowStockThreshold,
	})
}

// UploadImage stores the image on the configured disk and points the
// product at it.
func (s *CatalogService) UploadImage(ctx context.Context, productID uint, filename, contentType string, r io.Reader) (models.Product, error) {
	if s.disk == nil {
		return models.Product{}, apperr.Store("catalog: upload image", errors.New("no storage disk configured"))
	}
	if !strings.HasPrefix(contentType, "image/") {
		return models.Product{}, apperr.Validation("invalid_image", "file must be an image, got %q", contentType)
	}
	p, err := s.store.Products().FindByID(ctx, productID)
	if err != nil {
		return models.Product{}, productErr("catalog: upload image", productID, err)
	}

	key := fmt.Sprintf("products/%d/%s%s", productID, uuid.NewString(), strings.ToLower(path.Ext(filename)))
	if err := s.disk.Put(ctx, key, r, contentType); err != nil {
		return models.Product{}, storeErr("catalog: put image", err)
	}
	url := s.disk.URL(key)
	if err := s.store.Products().SetImage(ctx, productID, url); err != nil {
		_ = s.disk.Delete(ctx, key)
		return models.Product{}, productErr("catalog: set image", productID, err)
	}
	s.Invalidate(ctx, productID)
	p.Image = url
	return p, nil
}

// AddReview upserts the caller's review of a product or plan and refreshes
// the target's rating aggregate in the same transaction.
func (s *CatalogService) AddReview(ctx context.Context, caller auth.Principal, target models.ReviewTarget, targetID uint, in ReviewInput) (models.Review, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return models.Review{}, apperr.Validation("invalid_rating", "rating must be between 1 and 5")
	}
	review := models.Review{
		TargetType: target,
		TargetID:   targetID,
		UserID:     caller.ID,
		Rating:     in.Rating,
		Title:      strings.TrimSpace(in.Title),
		Comment:    strings.TrimSpace(in.Comment),
	}

	err := s.store.Transaction(ctx, func(tx repositories.Store) error {
		switch target {
		case models.TargetProduct:
			if _, err := tx.Products().FindByID(ctx, targetID); err != nil {
				return productErr("catalog: review target", targetID, err)
			}
		case models.TargetPlan:
			if _, err := tx.Plans().FindByID(ctx, targetID); err != nil {
				return planErr("catalog: review target", targetID, err)
			}
		default:
			return apperr.Validation("invalid_target", "cannot review %q", target)
		}

		if err := tx.Reviews().Upsert(ctx, &review); err != nil {
			return storeErr("catalog: upsert review", err)
		}
		all, err := tx.Reviews().ListByTarget(ctx, target, targetID)
		if err != nil {
			return storeErr("catalog: list reviews", err)
		}
		summary := models.Summarize(all)
		if target == models.TargetProduct {
			err = tx.Products().SetRating(ctx, targetID, summary)
		} else {
			err = tx.Plans().SetRating(ctx, targetID, summary)
		}
		return storeErr("catalog: set rating", err)
	})
	if err != nil {
		return models.Review{}, err
	}
	if target == models.TargetProduct {
		s.Invalidate(ctx, targetID)
	}
	return review, nil
}
