package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fitforge/fitforge/app/models"
	"github.com/fitforge/fitforge/pkg/orm"
)

type orderRepository struct {
	db *gorm.DB
}

func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (models.Order, error) {
	var o models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("User").
		First(&o, "id = ?", id).Error
	return o, notFound(err)
}

func (r *orderRepository) filtered(ctx context.Context, userID uint, status models.OrderStatus, q StatsQuery) *gorm.DB {
	tx := r.db.WithContext(ctx).Model(&models.Order{})
	if userID != 0 {
		tx = tx.Where("user_id = ?", userID)
	}
	if status != "" {
		tx = tx.Where("status = ?", status)
	}
	if q.From != nil {
		tx = tx.Where("created_at >= ?", *q.From)
	}
	if q.To != nil {
		tx = tx.Where("created_at <= ?", *q.To)
	}
	return tx
}

func (r *orderRepository) List(ctx context.Context, q OrderQuery) ([]models.Order, int64, error) {
	tx := r.filtered(ctx, q.UserID, q.Status, StatsQuery{From: q.From, To: q.To})

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("orders: count: %w", err)
	}
	var items []models.Order
	err := tx.Preload("Items").
		Order("created_at DESC, order_number DESC").
		Scopes(orm.Paginate(q.Page, q.Limit)).
		Find(&items).Error
	if err != nil {
		return nil, 0, fmt.Errorf("orders: list: %w", err)
	}
	return items, total, nil
}

// Create inserts the order and its items. The owner association is never
// written.
func (r *orderRepository) Create(ctx context.Context, o *models.Order) error {
	return duplicate(r.db.WithContext(ctx).Omit("User").Create(o).Error)
}

func (r *orderRepository) UpdateStatus(ctx context.Context, o *models.Order, from models.OrderStatus) error {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", o.ID, from).
		Updates(map[string]any{
			"status":              o.Status,
			"delivered_at":        o.DeliveredAt,
			"cancelled_at":        o.CancelledAt,
			"cancellation_reason": o.CancellationReason,
		})
	if res.Error != nil {
		return fmt.Errorf("orders: update status %s: %w", o.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, o.ID); err != nil {
			return err
		}
		return ErrStatusChanged
	}
	return nil
}

func (r *orderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
		return fmt.Errorf("orders: delete items %s: %w", id, err)
	}
	res := db.Delete(&models.Order{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("orders: delete %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *orderRepository) Stats(ctx context.Context, q StatsQuery) (map[models.OrderStatus]int64, decimal.Decimal, error) {
	var rows []struct {
		Status  models.OrderStatus
		N       int64
		Revenue decimal.Decimal
	}
	err := r.filtered(ctx, q.UserID, "", q).
		Select("status, COUNT(*) AS n, COALESCE(SUM(total_price), 0) AS revenue").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("orders: stats: %w", err)
	}

	counts := make(map[models.OrderStatus]int64, len(rows))
	revenue := decimal.Zero
	for _, row := range rows {
		counts[row.Status] = row.N
		revenue = revenue.Add(row.Revenue)
	}
	return counts, revenue, nil
}
