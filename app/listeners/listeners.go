// Package listeners wires the side effects of domain events: order history
// entries, the owner's websocket feed and low-stock warnings.
package listeners

import (
	"context"
	"time"

	"github.com/fitforge/fitforge/app/models"
	"github.com/fitforge/fitforge/app/repositories"
	"github.com/fitforge/fitforge/app/services"
	"github.com/fitforge/fitforge/pkg/event"
	"github.com/fitforge/fitforge/pkg/logger"
)

// Publisher pushes an event to one user's live connections.
type Publisher interface {
	Publish(userID uint, eventType string, data any)
}

// StatusUpdate is what the order feed receives.
type StatusUpdate struct {
	OrderID     string             `json:"orderId"`
	OrderNumber string             `json:"orderNumber"`
	From        models.OrderStatus `json:"from,omitempty"`
	To          models.OrderStatus `json:"to"`
	At          time.Time          `json:"at"`
}

// Register attaches every listener to d. pub and history may be nil.
func Register(d *event.Dispatcher, pub Publisher, history repositories.OrderHistory) {
	d.Listen(services.EventOrderCreated, func(ctx context.Context, payload any) {
		e, ok := payload.(services.OrderCreated)
		if !ok {
			return
		}
		o := e.Order
		record(ctx, history, models.StatusChange{
			OrderID:     o.ID.String(),
			OrderNumber: o.OrderNumber,
			To:          o.Status,
			ActorID:     o.UserID,
			At:          o.CreatedAt,
		})
		if pub != nil {
			pub.Publish(o.UserID, services.EventOrderCreated, StatusUpdate{
				OrderID:     o.ID.String(),
				OrderNumber: o.OrderNumber,
				To:          o.Status,
				At:          o.CreatedAt,
			})
		}
	})

	d.Listen(services.EventOrderStatusChanged, func(ctx context.Context, payload any) {
		e, ok := payload.(services.OrderStatusChanged)
		if !ok {
			return
		}
		record(ctx, history, e.Change)
		if pub != nil {
			pub.Publish(e.Order.UserID, services.EventOrderStatusChanged, StatusUpdate{
				OrderID:     e.Change.OrderID,
				OrderNumber: e.Change.OrderNumber,
				From:        e.Change.From,
				To:          e.Change.To,
				At:          e.Change.At,
			})
		}
	})

	d.Listen(services.EventProductLowStock, func(ctx context.Context, payload any) {
		e, ok := payload.(services.LowStock)
		if !ok {
			return
		}
		logger.WithCtx(ctx).Warn("catalog: low stock",
			"product_id", e.ProductID,
			"sku", e.SKU,
			"stock", e.Stock,
			"threshold", e.Threshold,
		)
	})
}

func record(ctx context.Context, history repositories.OrderHistory, c models.StatusChange) {
	if history == nil {
		return
	}
	if err := history.Record(ctx, c); err != nil {
		logger.WithCtx(ctx).Error("orders: history record failed", "order_id", c.OrderID, "to", c.To, "error", err)
	}
}
