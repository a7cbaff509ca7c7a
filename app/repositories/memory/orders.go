package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fitforge/fitforge/app/models"
	"github.com/fitforge/fitforge/app/repositories"
)

type orderRepo struct{ s *Store }

// withOwner attaches the owning user the way the SQL store preloads it.
func (r *orderRepo) withOwner(o models.Order) models.Order {
	o = cloneOrder(o)
	if u, ok := r.s.cur().users[o.UserID]; ok {
		o.User = &u
	}
	return o
}

func (r *orderRepo) FindByID(_ context.Context, id uuid.UUID) (models.Order, error) {
	defer r.s.lock()()
	o, ok := r.s.cur().orders[id]
	if !ok {
		return models.Order{}, repositories.ErrNotFound
	}
	return r.withOwner(o), nil
}

func matches(o models.Order, userID uint, status models.OrderStatus, from, to *time.Time) bool {
	switch {
	case userID != 0 && o.UserID != userID,
		status != "" && o.Status != status,
		from != nil && o.CreatedAt.Before(*from),
		to != nil && o.CreatedAt.After(*to):
		return false
	}
	return true
}

func (r *orderRepo) List(_ context.Context, q repositories.OrderQuery) ([]models.Order, int64, error) {
	defer r.s.lock()()

	var out []models.Order
	for _, o := range r.s.cur().orders {
		if matches(o, q.UserID, q.Status, q.From, q.To) {
			c := cloneOrder(o)
			c.User = nil
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b models.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.OrderNumber, a.OrderNumber)
	})
	return page(out, q.Page, q.Limit), int64(len(out)), nil
}

func (r *orderRepo) Create(_ context.Context, o *models.Order) error {
	defer r.s.lock()()
	st := r.s.cur()
	for _, existing := range st.orders {
		if existing.OrderNumber == o.OrderNumber {
			return repositories.ErrDuplicate
		}
	}
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if _, ok := st.orders[o.ID]; ok {
		return repositories.ErrDuplicate
	}
	for i := range o.Items {
		if o.Items[i].ID == uuid.Nil {
			o.Items[i].ID = uuid.New()
		}
		o.Items[i].OrderID = o.ID
	}
	if o.Status == "" {
		o.Status = models.OrderPending
	}
	now := time.Now()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now

	stored := cloneOrder(*o)
	stored.User = nil
	st.orders[o.ID] = stored
	return nil
}

func (r *orderRepo) UpdateStatus(_ context.Context, o *models.Order, from models.OrderStatus) error {
	defer r.s.lock()()
	st := r.s.cur()
	cur, ok := st.orders[o.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	if cur.Status != from {
		return repositories.ErrStatusChanged
	}
	cur.Status = o.Status
	cur.DeliveredAt = o.DeliveredAt
	cur.CancelledAt = o.CancelledAt
	cur.CancellationReason = o.CancellationReason
	cur.UpdatedAt = time.Now()
	st.orders[o.ID] = cur
	return nil
}

func (r *orderRepo) Delete(_ context.Context, id uuid.UUID) error {
	defer r.s.lock()()
	st := r.s.cur()
	if _, ok := st.orders[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(st.orders, id)
	return nil
}

func (r *orderRepo) Stats(_ context.Context, q repositories.StatsQuery) (map[models.OrderStatus]int64, decimal.Decimal, error) {
	defer r.s.lock()()
	counts := map[models.OrderStatus]int64{}
	revenue := decimal.Zero
	for _, o := range r.s.cur().orders {
		if !matches(o, q.UserID, "", q.From, q.To) {
			continue
		}
		counts[o.Status]++
		revenue = revenue.Add(o.TotalPrice)
	}
	return counts, revenue, nil
}
