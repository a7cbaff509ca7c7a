package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderConfirmed  OrderStatus = "confirmed"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
	OrderReturned   OrderStatus = "returned"
)

// OrderStatuses is the validate "in" list for OrderStatus.
const OrderStatuses = "pending,confirmed,processing,shipped,delivered,cancelled,returned"

// AllOrderStatuses in lifecycle order.
var AllOrderStatuses = []OrderStatus{
	OrderPending, OrderConfirmed, OrderProcessing, OrderShipped,
	OrderDelivered, OrderCancelled, OrderReturned,
}

// transitions is the status graph. It has no cycles and no self edges.
var transitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderConfirmed, OrderCancelled},
	OrderConfirmed:  {OrderProcessing, OrderCancelled},
	OrderProcessing: {OrderShipped, OrderCancelled},
	OrderShipped:    {OrderDelivered},
	OrderDelivered:  {OrderReturned},
	OrderCancelled:  {},
	OrderReturned:   {},
}

func (s OrderStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// AllowedTransitions returns a copy of the statuses reachable from s.
func (s OrderStatus) AllowedTransitions() []OrderStatus {
	return slices.Clone(transitions[s])
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return slices.Contains(transitions[s], next)
}

// ReturnWindow is how long after delivery a return is accepted.
const ReturnWindow = 30 * 24 * time.Hour

type PaymentMethod string

const (
	PaymentCreditCard     PaymentMethod = "credit_card"
	PaymentDebitCard      PaymentMethod = "debit_card"
	PaymentPayPal         PaymentMethod = "paypal"
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
)

const PaymentMethods = "credit_card,debit_card,paypal,cash_on_delivery"

// Address is stored inline on the order, once per role.
type Address struct {
	FullName   string `gorm:"size:120" json:"fullName"`
	Line1      string `gorm:"size:255" json:"line1"`
	Line2      string `gorm:"size:255" json:"line2,omitempty"`
	City       string `gorm:"size:120" json:"city"`
	State      string `gorm:"size:120" json:"state,omitempty"`
	PostalCode string `gorm:"size:20" json:"postalCode"`
	Country    string `gorm:"size:2" json:"country"`
	Phone      string `gorm:"size:32" json:"phone,omitempty"`
}

func (a Address) IsZero() bool { return a == Address{} }

// Order is a placed purchase. Item snapshots are never resynchronised with
// the live product.
type Order struct {
	ID                 uuid.UUID       `gorm:"type:varchar(36);primaryKey" json:"id"`
	OrderNumber        string          `gorm:"size:40;uniqueIndex;not null" json:"orderNumber"`
	UserID             uint            `gorm:"not null;index" json:"userId"`
	User               *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Items              []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	Shipping           Address         `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping"`
	Billing            Address         `gorm:"embedded;embeddedPrefix:billing_" json:"billing"`
	PaymentMethod      PaymentMethod   `gorm:"size:24;not null" json:"paymentMethod"`
	Status             OrderStatus     `gorm:"size:16;not null;default:pending;index" json:"status"`
	Subtotal           decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"subtotal"`
	Tax                decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"tax"`
	ShippingCost       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"shippingCost"`
	Discount           decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"discount"`
	TotalPrice         decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"totalPrice"`
	Notes              string          `gorm:"type:text" json:"notes,omitempty"`
	IsGift             bool            `gorm:"not null;default:false" json:"isGift"`
	GiftMessage        string          `gorm:"size:500" json:"giftMessage,omitempty"`
	DeliveredAt        *time.Time      `json:"deliveredAt,omitempty"`
	CancelledAt        *time.Time      `json:"cancelledAt,omitempty"`
	CancellationReason string          `gorm:"size:500" json:"cancellationReason,omitempty"`
	CreatedAt          time.Time       `gorm:"index" json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// OrderItem is one product line with its snapshot at purchase time.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"type:varchar(36);primaryKey" json:"id"`
	OrderID   uuid.UUID       `gorm:"type:varchar(36);not null;index" json:"-"`
	ProductID uint            `gorm:"not null;index" json:"productId"`
	Name      string          `gorm:"size:255;not null" json:"name"`
	SKU       string          `gorm:"size:100" json:"sku"`
	Image     string          `gorm:"size:512" json:"image,omitempty"`
	Category  ProductCategory `gorm:"size:32" json:"category"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	LineTotal decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"lineTotal"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// RecomputeTotals derives line totals, Subtotal and TotalPrice. Call it
// after any change to items, tax, shipping or discount.
func (o *Order) RecomputeTotals() {
	subtotal := decimal.Zero
	for i := range o.Items {
		it := &o.Items[i]
		it.LineTotal = it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		subtotal = subtotal.Add(it.LineTotal)
	}
	o.Subtotal = subtotal
	o.TotalPrice = subtotal.Add(o.Tax).Add(o.ShippingCost).Sub(o.Discount)
}

// CanBeCancelled is true before the order ships.
func (o Order) CanBeCancelled() bool {
	switch o.Status {
	case OrderPending, OrderConfirmed, OrderProcessing:
		return true
	}
	return false
}

// CanBeReturned is true within ReturnWindow of delivery.
func (o Order) CanBeReturned(now time.Time) bool {
	if o.Status != OrderDelivered || o.DeliveredAt == nil {
		return false
	}
	return now.Sub(*o.DeliveredAt) <= ReturnWindow
}

// CanBeDeleted keeps every order that progressed for audit.
func (o Order) CanBeDeleted() bool {
	return o.Status == OrderPending || o.Status == OrderCancelled
}

// Quantities sums the requested quantity per product.
func (o Order) Quantities() map[uint]int {
	out := make(map[uint]int, len(o.Items))
	for _, it := range o.Items {
		out[it.ProductID] += it.Quantity
	}
	return out
}

// OrderStats aggregates a set of orders.
type OrderStats struct {
	TotalOrders       int64                 `json:"totalOrders"`
	TotalRevenue      decimal.Decimal       `json:"totalRevenue"`
	AverageOrderValue decimal.Decimal       `json:"averageOrderValue"`
	StatusCounts      map[OrderStatus]int64 `json:"statusCounts"`
}

// NewOrderStats builds stats from per-status counts and revenue.
func NewOrderStats(counts map[OrderStatus]int64, revenue decimal.Decimal) OrderStats {
	stats := OrderStats{
		TotalRevenue:      revenue,
		AverageOrderValue: decimal.Zero,
		StatusCounts:      map[OrderStatus]int64{},
	}
	for s, n := range counts {
		if n == 0 {
			continue
		}
		stats.StatusCounts[s] = n
		stats.TotalOrders += n
	}
	if stats.TotalOrders > 0 {
		stats.AverageOrderValue = revenue.Div(decimal.NewFromInt(stats.TotalOrders)).Round(2)
	}
	return stats
}

// StatusChange is one entry of an order's audit history.
type StatusChange struct {
	OrderID     string      `bson:"order_id" json:"orderId"`
	OrderNumber string      `bson:"order_number" json:"orderNumber"`
	From        OrderStatus `bson:"from" json:"from"`
	To          OrderStatus `bson:"to" json:"to"`
	ActorID     uint        `bson:"actor_id" json:"actorId"`
	Reason      string      `bson:"reason,omitempty" json:"reason,omitempty"`
	At          time.Time   `bson:"at" json:"at"`
}
