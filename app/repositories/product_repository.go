package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/fitforge/fitforge/app/models"
	"github.com/fitforge/fitforge/pkg/orm"
)

type productRepository struct {
	db *gorm.DB
}

func (r *productRepository) FindByID(ctx context.Context, id uint) (models.Product, error) {
	var p models.Product
	err := r.db.WithContext(ctx).First(&p, id).Error
	return p, notFound(err)
}

var productOrder = map[ProductSort]string{
	SortNewest:    "created_at DESC, id DESC",
	SortPriceAsc:  "price ASC, id ASC",
	SortPriceDesc: "price DESC, id ASC",
	SortRating:    "average_rating DESC, review_count DESC, id ASC",
	SortPopular:   "sales DESC, id ASC",
}

func (r *productRepository) List(ctx context.Context, q ProductQuery) ([]models.Product, int64, error) {
	tx := r.db.WithContext(ctx).Model(&models.Product{})
	if q.Category != "" {
		tx = tx.Where("category = ?", q.Category)
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	if q.MinPrice != nil {
		tx = tx.Where("price >= ?", *q.MinPrice)
	}
	if q.MaxPrice != nil {
		tx = tx.Where("price <= ?", *q.MaxPrice)
	}
	if q.Search != "" {
		pat := like(q.Search)
		tx = tx.Where("LOWER(name) LIKE ? OR LOWER(brand) LIKE ? OR LOWER(sku) LIKE ?", pat, pat, pat)
	}
	if q.InStock {
		tx = tx.Where("stock > 0")
	}
	if q.OnSale {
		tx = tx.Where("sale_price > 0 AND sale_starts_at <= ? AND sale_ends_at >= ?", q.Now, q.Now)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("products: count: %w", err)
	}

	order, ok := productOrder[q.Sort]
	if !ok {
		order = productOrder[SortNewest]
	}
	var items []models.Product
	if err := tx.Order(order).Scopes(orm.Paginate(q.Page, q.Limit)).Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("products: list: %w", err)
	}
	return items, total, nil
}

func (r *productRepository) Create(ctx context.Context, p *models.Product) error {
	return duplicate(r.db.WithContext(ctx).Create(p).Error)
}

func (r *productRepository) Update(ctx context.Context, p *models.Product) error {
	res := r.db.WithContext(ctx).Model(&models.Product{ID: p.ID}).
		Select("name", "description", "sku", "category", "brand", "price", "sale_price",
			"sale_starts_at", "sale_ends_at", "low_stock_threshold", "image", "status", "updated_at").
		Updates(p)
	if res.Error != nil {
		return duplicate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *productRepository) ReserveStock(ctx context.Context, id uint, qty int) error {
	res := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND stock >= ?", id, qty).
		Updates(map[string]any{
			"stock": gorm.Expr("stock - ?", qty),
			"sales": gorm.Expr("sales + ?", qty),
		})
	if res.Error != nil {
		return fmt.Errorf("products: reserve %d: %w", id, res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}
	return r.shortfall(ctx, id, qty)
}

// shortfall explains a conditional update that matched no row.
func (r *productRepository) shortfall(ctx context.Context, id uint, requested int) error {
	p, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return &ShortfallError{ProductID: id, Available: p.Stock, Requested: requested}
}

func (r *productRepository) ReleaseStock(ctx context.Context, id uint, qty int) error {
	res := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"stock": gorm.Expr("stock + ?", qty),
			"sales": gorm.Expr("CASE WHEN sales >= ? THEN sales - ? ELSE 0 END", qty, qty),
		})
	if res.Error != nil {
		return fmt.Errorf("products: release %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *productRepository) AdjustStock(ctx context.Context, id uint, delta int) (int, error) {
	tx := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id)
	if delta < 0 {
		tx = tx.Where("stock >= ?", -delta)
	}
	res := tx.Update("stock", gorm.Expr("stock + ?", delta))
	if res.Error != nil {
		return 0, fmt.Errorf("products: adjust %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, r.shortfall(ctx, id, -delta)
	}
	p, err := r.FindByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return p.Stock, nil
}

func (r *productRepository) SetRating(ctx context.Context, id uint, s models.RatingSummary) error {
	return r.set(ctx, id, map[string]any{"average_rating": s.Average, "review_count": s.Count})
}

func (r *productRepository) SetImage(ctx context.Context, id uint, url string) error {
	return r.set(ctx, id, map[string]any{"image": url})
}

func (r *productRepository) set(ctx context.Context, id uint, cols map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, id); errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
	}
	return nil
}
