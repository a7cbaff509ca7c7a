package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fitforge/fitforge/app/models"
	"github.com/fitforge/fitforge/app/repositories"
	"github.com/fitforge/fitforge/pkg/apperr"
	"github.com/fitforge/fitforge/pkg/auth"
	"github.com/fitforge/fitforge/pkg/event"
	"github.com/fitforge/fitforge/pkg/logger"
	"github.com/fitforge/fitforge/pkg/metrics"
	"github.com/fitforge/fitforge/pkg/orm"
)

type CartItem struct {
	ProductID uint `json:"productId" validate:"required"`
	Quantity  int  `json:"quantity"  validate:"required,gte=1"`
}

type AddressInput struct {
	FullName   string `json:"fullName"   validate:"required,max=120"`
	Line1      string `json:"line1"      validate:"required,max=255"`
	Line2      string `json:"line2"      validate:"nullable,max=255"`
	City       string `json:"city"       validate:"required,max=120"`
	State      string `json:"state"      validate:"nullable,max=120"`
	PostalCode string `json:"postalCode" validate:"required,max=20"`
	Country    string `json:"country"    validate:"required,min=2,max=2"`
	Phone      string `json:"phone"      validate:"nullable,max=32"`
}

func (a AddressInput) model() models.Address {
	return models.Address{
		FullName:   strings.TrimSpace(a.FullName),
		Line1:      strings.TrimSpace(a.Line1),
		Line2:      strings.TrimSpace(a.Line2),
		City:       strings.TrimSpace(a.City),
		State:      strings.TrimSpace(a.State),
		PostalCode: strings.TrimSpace(a.PostalCode),
		Country:    strings.ToUpper(strings.TrimSpace(a.Country)),
		Phone:      strings.TrimSpace(a.Phone),
	}
}

type CreateOrderInput struct {
	Items         []CartItem           `json:"items"         validate:"required,dive"`
	Shipping      AddressInput         `json:"shipping"`
	Billing       *AddressInput        `json:"billing"       validate:"nullable"`
	PaymentMethod models.PaymentMethod `json:"paymentMethod" validate:"required,in=credit_card,debit_card,paypal,cash_on_delivery"`
	Notes         string               `json:"notes"         validate:"nullable,max=1000"`
	IsGift        bool                 `json:"isGift"`
	GiftMessage   string               `json:"giftMessage"   validate:"nullable,max=500"`

	// Tax, ShippingCost and Discount are honoured for admins only.
	Tax          decimal.Decimal `json:"tax"          validate:"gte=0"`
	ShippingCost decimal.Decimal `json:"shippingCost" validate:"gte=0"`
	Discount     decimal.Decimal `json:"discount"     validate:"gte=0"`
}

type StatusInput struct {
	Status models.OrderStatus `json:"status" validate:"required,in=pending,confirmed,processing,shipped,delivered,cancelled,returned"`
	Reason string             `json:"reason" validate:"nullable,max=500"`
}

// OrderService runs the order lifecycle: placement with all-or-nothing
// stock reservation, the status graph, cancellation and returns.
type OrderService struct {
	store   repositories.Store
	history repositories.OrderHistory
	seq     Sequencer
	events  *event.Dispatcher
	catalog *CatalogService
	now     func() time.Time
}

func NewOrderService(store repositories.Store, history repositories.OrderHistory, seq Sequencer, events *event.Dispatcher, catalog *CatalogService) *OrderService {
	if seq == nil {
		seq = StoreSequencer{Store: store, Name: repositories.OrderSequence}
	}
	if events == nil {
		events = event.NewDispatcher()
	}
	return &OrderService{store: store, history: history, seq: seq, events: events, catalog: catalog, now: time.Now}
}

// numberAttempts bounds how many sequence values Create draws when the
// resulting order number is already taken.
const numberAttempts = 3

var errNumberTaken = &apperr.Error{Kind: apperr.KindConflict, Code: "order_number_taken"}

func orderNumber(at time.Time, seq int64) string {
	return fmt.Sprintf("ORD-%d-%04d", at.UnixMilli(), seq)
}

type line struct {
	productID uint
	quantity  int
}

// mergeLines sums quantities per product, keeping first-seen order.
func mergeLines(items []CartItem) ([]line, error) {
	var lines []line
	index := map[uint]int{}
	for i, it := range items {
		if it.Quantity < 1 {
			return nil, apperr.Validation("invalid_quantity", "items[%d].quantity must be at least 1", i)
		}
		if it.ProductID == 0 {
			return nil, apperr.Validation("invalid_product", "items[%d].productId is required", i)
		}
		if j, ok := index[it.ProductID]; ok {
			lines[j].quantity += it.Quantity
			continue
		}
		index[it.ProductID] = len(lines)
		lines = append(lines, line{productID: it.ProductID, quantity: it.Quantity})
	}
	return lines, nil
}

// Create places an order for caller. Every reservation and the order
// insert share one transaction, so a failure leaves stock untouched.
func (s *OrderService) Create(ctx context.Context, caller auth.Principal, in CreateOrderInput) (models.Order, error) {
	if len(in.Items) == 0 {
		return models.Order{}, apperr.Validation("empty_order", "an order needs at least one item")
	}
	lines, err := mergeLines(in.Items)
	if err != nil {
		return models.Order{}, err
	}

	now := s.now()
	o := models.Order{
		ID:            uuid.New(),
		UserID:        caller.ID,
		Shipping:      in.Shipping.model(),
		PaymentMethod: in.PaymentMethod,
		Status:        models.OrderPending,
		Tax:           decimal.Zero,
		ShippingCost:  decimal.Zero,
		Discount:      decimal.Zero,
		Notes:         strings.TrimSpace(in.Notes),
		IsGift:        in.IsGift,
		CreatedAt:     now,
	}
	o.Billing = o.Shipping
	if in.Billing != nil {
		o.Billing = in.Billing.model()
	}
	if o.IsGift {
		o.GiftMessage = strings.TrimSpace(in.GiftMessage)
	}
	if caller.IsAdmin() {
		o.Tax, o.ShippingCost, o.Discount = in.Tax.Round(2), in.ShippingCost.Round(2), in.Discount.Round(2)
	}

	var touched []models.Product
	place := func(tx repositories.Store) error {
		touched = touched[:0]
		o.Items = o.Items[:0]
		products := make(map[uint]models.Product, len(lines))
		for _, l := range lines {
			p, err := tx.Products().FindByID(ctx, l.productID)
			if err != nil {
				return productErr("orders: load product", l.productID, err)
			}
			if !p.Orderable() {
				return apperr.Validation("product_unavailable", "%q is not available for ordering", p.Name).
					With("productId", p.ID)
			}
			if !p.IsInStock(l.quantity) {
				metrics.StockReservationFailures.Inc()
				return apperr.InsufficientStock(p.ID, p.Name, p.Stock, l.quantity)
			}
			products[p.ID] = p
			o.Items = append(o.Items, models.OrderItem{
				ID:        uuid.New(),
				OrderID:   o.ID,
				ProductID: p.ID,
				Name:      p.Name,
				SKU:       p.SKU,
				Image:     p.Image,
				Category:  p.Category,
				Price:     p.EffectivePrice(now),
				Quantity:  l.quantity,
			})
		}

		// Reserve in id order so concurrent placements lock rows consistently.
		ids := make([]uint, 0, len(products))
		for id := range products {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		for _, id := range ids {
			p := products[id]
			qty := quantityOf(lines, id)
			if err := reserve(ctx, tx, id, qty, p.Name); err != nil {
				return err
			}
			p.Stock -= qty
			touched = append(touched, p)
		}

		o.RecomputeTotals()
		if o.TotalPrice.IsNegative() {
			return apperr.Validation("invalid_discount", "discount exceeds the order value")
		}
		if err := tx.Orders().Create(ctx, &o); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				return apperr.Conflict("order_number_taken", "order number %s already exists", o.OrderNumber)
			}
			return storeErr("orders: create", err)
		}
		return nil
	}

	// The Redis and store counters are independent, so a number drawn after
	// a fallback may already be taken. Each retry draws a fresh value.
	for attempt := 1; ; attempt++ {
		seq, err := s.seq.Next(ctx)
		if err != nil {
			return models.Order{}, storeErr("orders: next sequence", err)
		}
		o.OrderNumber = orderNumber(now, seq)
		err = s.store.Transaction(ctx, place)
		if err == nil {
			break
		}
		if attempt >= numberAttempts || !errors.Is(err, errNumberTaken) {
			return models.Order{}, err
		}
		logger.WithCtx(ctx).Warn("orders: order number taken, retrying",
			"order_number", o.OrderNumber, "attempt", attempt)
	}

	metrics.OrdersCreated.Inc()
	for _, p := range touched {
		if s.catalog != nil {
			s.catalog.Invalidate(ctx, p.ID)
			s.catalog.lowStock(ctx, p)
		}
	}

	placed, err := s.store.Orders().FindByID(ctx, o.ID)
	if err != nil {
		return models.Order{}, orderErr("orders: reload", o.ID, err)
	}
	logger.WithCtx(ctx).Info("orders: placed",
		"order_id", placed.ID,
		"order_number", placed.OrderNumber,
		"user_id", placed.UserID,
		"total", placed.TotalPrice.StringFixed(2),
	)
	s.events.FireAsync(ctx, EventOrderCreated, OrderCreated{Order: placed})
	return placed, nil
}

func quantityOf(lines []line, productID uint) int {
	for _, l := range lines {
		if l.productID == productID {
			return l.quantity
		}
	}
	return 0
}

// load fetches the order and checks caller may act on it.
func (s *OrderService) load(ctx context.Context, caller auth.Principal, id uuid.UUID) (models.Order, error) {
	o, err := s.store.Orders().FindByID(ctx, id)
	if err != nil {
		return models.Order{}, orderErr("orders: get", id, err)
	}
	if !caller.Owns(o.UserID) {
		return models.Order{}, apperr.Forbidden("you may not access order %s", id)
	}
	return o, nil
}

func (s *OrderService) Get(ctx context.Context, caller auth.Principal, id uuid.UUID) (models.Order, error) {
	return s.load(ctx, caller, id)
}

// List returns a page of orders. Non-admin callers only ever see their own.
func (s *OrderService) List(ctx context.Context, caller auth.Principal, q repositories.OrderQuery) ([]models.Order, orm.Pagination, error) {
	if !caller.IsAdmin() {
		q.UserID = caller.ID
	}
	if q.Status != "" && !q.Status.Valid() {
		return nil, orm.Pagination{}, apperr.Validation("invalid_status", "status must be one of %s", models.OrderStatuses)
	}
	q.Page, q.Limit = orm.Normalize(q.Page, q.Limit)
	items, total, err := s.store.Orders().List(ctx, q)
	if err != nil {
		return nil, orm.Pagination{}, storeErr("orders: list", err)
	}
	return items, orm.NewPagination(q.Page, q.Limit, total), nil
}

// UpdateStatus moves an order along the status graph. Admin only.
func (s *OrderService) UpdateStatus(ctx context.Context, caller auth.Principal, id uuid.UUID, in StatusInput) (models.Order, error) {
	if !caller.IsAdmin() {
		return models.Order{}, apperr.Forbidden("only admins may change order status")
	}
	if !in.Status.Valid() {
		return models.Order{}, apperr.Validation("invalid_status", "status must be one of %s", models.OrderStatuses)
	}
	o, err := s.load(ctx, caller, id)
	if err != nil {
		return models.Order{}, err
	}
	if !o.Status.CanTransitionTo(in.Status) {
		return models.Order{}, invalidTransition(o.Status, in.Status)
	}
	return s.transition(ctx, caller, o, in.Status, strings.TrimSpace(in.Reason))
}

// Cancel cancels an order that has not shipped and puts its stock back.
func (s *OrderService) Cancel(ctx context.Context, caller auth.Principal, id uuid.UUID, reason string) (models.Order, error) {
	o, err := s.load(ctx, caller, id)
	if err != nil {
		return models.Order{}, err
	}
	if !o.CanBeCancelled() {
		return models.Order{}, invalidTransition(o.Status, models.OrderCancelled)
	}
	return s.transition(ctx, caller, o, models.OrderCancelled, strings.TrimSpace(reason))
}

// Return marks a delivered order returned within the return window. Stock
// is not restored.
func (s *OrderService) Return(ctx context.Context, caller auth.Principal, id uuid.UUID, reason string) (models.Order, error) {
	o, err := s.load(ctx, caller, id)
	if err != nil {
		return models.Order{}, err
	}
	if !o.CanBeReturned(s.now()) {
		if o.Status != models.OrderDelivered {
			return models.Order{}, apperr.Validation("return_window", "only delivered orders can be returned, order is %s", o.Status)
		}
		return models.Order{}, apperr.Validation("return_window", "the %d day return window has closed", int(models.ReturnWindow.Hours()/24))
	}
	return s.transition(ctx, caller, o, models.OrderReturned, strings.TrimSpace(reason))
}

// transition writes next with a compare-and-swap on the current status.
// Entering cancelled releases every line in the same transaction.
func (s *OrderService) transition(ctx context.Context, caller auth.Principal, o models.Order, next models.OrderStatus, reason string) (models.Order, error) {
	from := o.Status
	now := s.now()
	o.Status = next
	switch next {
	case models.OrderDelivered:
		o.DeliveredAt = &now
	case models.OrderCancelled:
		o.CancelledAt = &now
		o.CancellationReason = reason
	}
	release := next == models.OrderCancelled

	err := s.store.Transaction(ctx, func(tx repositories.Store) error {
		if err := tx.Orders().UpdateStatus(ctx, &o, from); err != nil {
			if errors.Is(err, repositories.ErrStatusChanged) {
				return lostRace(ctx, tx, o.ID, next)
			}
			return orderErr("orders: update status", o.ID, err)
		}
		if !release {
			return nil
		}
		for _, it := range o.Items {
			if err := tx.Products().ReleaseStock(ctx, it.ProductID, it.Quantity); err != nil {
				return productErr("orders: release stock", it.ProductID, err)
			}
		}
		return nil
	})
	if err != nil {
		return models.Order{}, err
	}

	if release && s.catalog != nil {
		for id := range o.Quantities() {
			s.catalog.Invalidate(ctx, id)
		}
	}
	metrics.OrderTransitions.WithLabelValues(string(from), string(next)).Inc()
	logger.WithCtx(ctx).Info("orders: status changed",
		"order_id", o.ID,
		"from", from,
		"to", next,
		"actor_id", caller.ID,
	)
	s.events.FireAsync(ctx, EventOrderStatusChanged, OrderStatusChanged{
		Order: o,
		Change: models.StatusChange{
			OrderID:     o.ID.String(),
			OrderNumber: o.OrderNumber,
			From:        from,
			To:          next,
			ActorID:     caller.ID,
			Reason:      reason,
			At:          now,
		},
	})
	return o, nil
}

// lostRace reports a transition that another writer beat us to.
func lostRace(ctx context.Context, tx repositories.Store, id uuid.UUID, next models.OrderStatus) error {
	cur, err := tx.Orders().FindByID(ctx, id)
	if err != nil {
		return orderErr("orders: reload", id, err)
	}
	return invalidTransition(cur.Status, next).With("reason", "status changed concurrently")
}

func invalidTransition(from, to models.OrderStatus) *apperr.Error {
	allowed := from.AllowedTransitions()
	names := make([]string, len(allowed))
	for i, s := range allowed {
		names[i] = string(s)
	}
	return apperr.InvalidTransition(string(from), string(to), names)
}

// Delete removes a pending or cancelled order. A pending order is first
// claimed by a status swap, then its stock is released, all in one
// transaction.
func (s *OrderService) Delete(ctx context.Context, caller auth.Principal, id uuid.UUID) error {
	o, err := s.load(ctx, caller, id)
	if err != nil {
		return err
	}
	if !o.CanBeDeleted() {
		return apperr.Validation("not_deletable", "only pending or cancelled orders can be deleted, order is %s", o.Status)
	}

	pending := o.Status == models.OrderPending
	err = s.store.Transaction(ctx, func(tx repositories.Store) error {
		if pending {
			claimed := o
			claimed.Status = models.OrderCancelled
			if err := tx.Orders().UpdateStatus(ctx, &claimed, models.OrderPending); err != nil {
				if errors.Is(err, repositories.ErrStatusChanged) {
					return apperr.Validation("not_deletable", "order %s changed status while deleting", id)
				}
				return orderErr("orders: claim for delete", id, err)
			}
			for _, it := range o.Items {
				if err := tx.Products().ReleaseStock(ctx, it.ProductID, it.Quantity); err != nil {
					return productErr("orders: release stock", it.ProductID, err)
				}
			}
		}
		return orderErr("orders: delete", id, tx.Orders().Delete(ctx, id))
	})
	if err != nil {
		return err
	}

	if pending && s.catalog != nil {
		for pid := range o.Quantities() {
			s.catalog.Invalidate(ctx, pid)
		}
	}
	logger.WithCtx(ctx).Info("orders: deleted", "order_id", id, "status", o.Status, "actor_id", caller.ID)
	return nil
}

// Stats aggregates the orders in range. Non-admin callers are limited to
// their own orders.
func (s *OrderService) Stats(ctx context.Context, caller auth.Principal, q repositories.StatsQuery) (models.OrderStats, error) {
	if !caller.IsAdmin() {
		q.UserID = caller.ID
	}
	if q.From != nil && q.To != nil && q.To.Before(*q.From) {
		return models.OrderStats{}, apperr.Validation("invalid_range", "to must not be before from")
	}
	counts, revenue, err := s.store.Orders().Stats(ctx, q)
	if err != nil {
		return models.OrderStats{}, storeErr("orders: stats", err)
	}
	return models.NewOrderStats(counts, revenue), nil
}

// History lists the recorded status changes of an order, oldest first.
func (s *OrderService) History(ctx context.Context, caller auth.Principal, id uuid.UUID) ([]models.StatusChange, error) {
	if _, err := s.load(ctx, caller, id); err != nil {
		return nil, err
	}
	if s.history == nil {
		return []models.StatusChange{}, nil
	}
	changes, err := s.history.List(ctx, id.String())
	if err != nil {
		return nil, storeErr("orders: history", err)
	}
	return changes, nil
}
