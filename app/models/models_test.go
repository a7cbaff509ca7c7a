package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOrderStatus_TransitionGraph(t *testing.T) {
	allowed := map[OrderStatus]map[OrderStatus]bool{
		OrderPending:    {OrderConfirmed: true, OrderCancelled: true},
		OrderConfirmed:  {OrderProcessing: true, OrderCancelled: true},
		OrderProcessing: {OrderShipped: true, OrderCancelled: true},
		OrderShipped:    {OrderDelivered: true},
		OrderDelivered:  {OrderReturned: true},
	}

	edges := 0
	for _, from := range AllOrderStatuses {
		for _, to := range AllOrderStatuses {
			want := allowed[from][to]
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
			if want {
				edges++
			}
		}
	}
	assert.Equal(t, 8, edges)
	assert.False(t, OrderStatus("lost").Valid())
}

func TestOrderStatus_AllowedTransitionsIsACopy(t *testing.T) {
	got := OrderPending.AllowedTransitions()
	got[0] = OrderReturned
	assert.Equal(t, []OrderStatus{OrderConfirmed, OrderCancelled}, OrderPending.AllowedTransitions())
}

func TestOrder_RecomputeTotals(t *testing.T) {
	o := Order{
		Items: []OrderItem{
			{Price: decimal.NewFromInt(100), Quantity: 2},
			{Price: decimal.NewFromInt(50), Quantity: 1},
		},
		Tax:          decimal.RequireFromString("12.50"),
		ShippingCost: decimal.NewFromInt(5),
		Discount:     decimal.NewFromInt(10),
	}
	o.RecomputeTotals()

	assert.True(t, o.Items[0].LineTotal.Equal(decimal.NewFromInt(200)))
	assert.True(t, o.Subtotal.Equal(decimal.NewFromInt(250)))
	assert.True(t, o.TotalPrice.Equal(decimal.RequireFromString("257.50")), o.TotalPrice.String())
}

func TestOrder_CanBeCancelled(t *testing.T) {
	for _, s := range AllOrderStatuses {
		want := s == OrderPending || s == OrderConfirmed || s == OrderProcessing
		assert.Equal(t, want, Order{Status: s}.CanBeCancelled(), s)
	}
}

func TestOrder_CanBeReturned(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time { ts := now.Add(-d); return &ts }

	assert.True(t, Order{Status: OrderDelivered, DeliveredAt: at(29 * 24 * time.Hour)}.CanBeReturned(now))
	assert.True(t, Order{Status: OrderDelivered, DeliveredAt: at(ReturnWindow)}.CanBeReturned(now))
	assert.False(t, Order{Status: OrderDelivered, DeliveredAt: at(ReturnWindow + time.Second)}.CanBeReturned(now))
	assert.False(t, Order{Status: OrderDelivered}.CanBeReturned(now), "deliveredAt must be set")
	assert.False(t, Order{Status: OrderShipped, DeliveredAt: at(time.Hour)}.CanBeReturned(now))
}

func TestOrder_CanBeDeleted(t *testing.T) {
	assert.True(t, Order{Status: OrderPending}.CanBeDeleted())
	assert.True(t, Order{Status: OrderCancelled}.CanBeDeleted())
	assert.False(t, Order{Status: OrderShipped}.CanBeDeleted())
}

func TestOrder_Quantities(t *testing.T) {
	o := Order{Items: []OrderItem{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: 1}, {ProductID: 1, Quantity: 3}}}
	assert.Equal(t, map[uint]int{1: 5, 2: 1}, o.Quantities())
}

func TestNewOrderStats(t *testing.T) {
	empty := NewOrderStats(nil, decimal.Zero)
	assert.Zero(t, empty.TotalOrders)
	assert.True(t, empty.AverageOrderValue.IsZero())
	assert.NotNil(t, empty.StatusCounts)
	assert.Empty(t, empty.StatusCounts)

	stats := NewOrderStats(map[OrderStatus]int64{OrderPending: 2, OrderDelivered: 1, OrderShipped: 0}, decimal.NewFromInt(100))
	assert.Equal(t, int64(3), stats.TotalOrders)
	assert.Equal(t, "33.33", stats.AverageOrderValue.StringFixed(2))
	assert.Equal(t, map[OrderStatus]int64{OrderPending: 2, OrderDelivered: 1}, stats.StatusCounts)
}

func TestProduct_OnSaleNeedsBothBounds(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	before, after := now.Add(-time.Hour), now.Add(time.Hour)
	past := now.Add(-2 * time.Hour)

	p := Product{Price: decimal.NewFromInt(40), SalePrice: decimal.NewFromInt(30), SaleStartsAt: &before, SaleEndsAt: &after}
	assert.True(t, p.OnSale(now))
	assert.True(t, p.EffectivePrice(now).Equal(decimal.NewFromInt(30)))

	p.SaleEndsAt = &past
	assert.False(t, p.OnSale(now), "ended sales are not on sale")
	assert.True(t, p.EffectivePrice(now).Equal(decimal.NewFromInt(40)))

	p.SaleEndsAt = nil
	assert.False(t, p.OnSale(now))

	p.SaleEndsAt = &after
	p.SalePrice = decimal.Zero
	assert.False(t, p.OnSale(now))
}

func TestProduct_Stock(t *testing.T) {
	p := Product{Stock: 10, LowStockThreshold: 10}
	assert.True(t, p.IsInStock(10))
	assert.False(t, p.IsInStock(11))
	assert.False(t, p.IsInStock(0))
	assert.True(t, p.IsLowStock())
	p.Stock = 11
	assert.False(t, p.IsLowStock())
}

func TestWorkoutPlan_CanJoin(t *testing.T) {
	p := WorkoutPlan{Status: StatusActive, Visibility: VisibilityPublic, MaxMembers: 2, ActiveMembers: 1}
	assert.True(t, p.CanJoin())
	assert.Equal(t, 1, p.SeatsLeft())

	full := p
	full.ActiveMembers = 2
	assert.False(t, full.CanJoin())

	private := p
	private.Visibility = VisibilityPrivate
	assert.False(t, private.CanJoin())

	members := p
	members.Visibility = VisibilityMembersOnly
	assert.True(t, members.CanJoin())

	draft := p
	draft.Status = StatusDraft
	assert.False(t, draft.CanJoin())
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, RatingSummary{}, Summarize(nil))
	assert.Equal(t, RatingSummary{Average: 4.33, Count: 3}, Summarize([]Review{{Rating: 5}, {Rating: 4}, {Rating: 4}}))
}
