// Package services holds FitForge's business rules. Services take a
// repositories.Store, translate repository sentinels into apperr kinds and
// fire domain events once their transaction has committed.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/fitforge/fitforge/app/models"
	"github.com/fitforge/fitforge/app/repositories"
	"github.com/fitforge/fitforge/pkg/apperr"
)

// Domain events.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
	EventProductLowStock    = "product.low_stock"
)

// OrderCreated is the payload of EventOrderCreated.
type OrderCreated struct {
	Order models.Order
}

// OrderStatusChanged is the payload of EventOrderStatusChanged.
type OrderStatusChanged struct {
	Order  models.Order
	Change models.StatusChange
}

// LowStock is the payload of EventProductLowStock.
type LowStock struct {
	ProductID uint
	Name      string
	SKU       string
	Stock     int
	Threshold int
}

// storeErr passes classified errors through and turns everything else into
// a store failure for op.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae
	}
	return apperr.Store(op, err)
}

func productErr(op string, id uint, err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return apperr.NotFound("product_not_found", "product %d not found", id)
	}
	return storeErr(op, err)
}

func planErr(op string, id uint, err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return apperr.NotFound("plan_not_found", "workout plan %d not found", id)
	}
	return storeErr(op, err)
}

func orderErr(op string, id fmt.Stringer, err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return apperr.NotFound("order_not_found", "order %s not found", id)
	}
	return storeErr(op, err)
}

// Sequencer hands out the numbers embedded in order numbers.
type Sequencer interface {
	Next(ctx context.Context) (int64, error)
}

// StoreSequencer draws from the store's sequences table.
type StoreSequencer struct {
	Store repositories.Store
	Name  string
}

func (s StoreSequencer) Next(ctx context.Context) (int64, error) {
	return s.Store.Sequences().Next(ctx, s.Name)
}

// FallbackSequencer uses Primary and switches to Secondary for any call
// where Primary fails.
type FallbackSequencer struct {
	Primary   Sequencer
	Secondary Sequencer
}

func (f FallbackSequencer) Next(ctx context.Context) (int64, error) {
	if f.Primary != nil {
		if n, err := f.Primary.Next(ctx); err == nil {
			return n, nil
		}
	}
	return f.Secondary.Next(ctx)
}
