package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/fitforge/fitforge/app/models"
	"github.com/fitforge/fitforge/app/repositories"
	"github.com/fitforge/fitforge/pkg/orm"
)

type productRepo struct{ s *Store }

func (r *productRepo) FindByID(_ context.Context, id uint) (models.Product, error) {
	defer r.s.lock()()
	p, ok := r.s.cur().products[id]
	if !ok {
		return models.Product{}, repositories.ErrNotFound
	}
	return p, nil
}

func contains(field, search string) bool {
	return strings.Contains(strings.ToLower(field), strings.ToLower(strings.TrimSpace(search)))
}

func (r *productRepo) List(_ context.Context, q repositories.ProductQuery) ([]models.Product, int64, error) {
	defer r.s.lock()()

	var out []models.Product
	for _, p := range r.s.cur().products {
		switch {
		case q.Category != "" && p.Category != q.Category,
			q.Status != "" && p.Status != q.Status,
			q.MinPrice != nil && p.Price.LessThan(*q.MinPrice),
			q.MaxPrice != nil && p.Price.GreaterThan(*q.MaxPrice),
			q.InStock && p.Stock <= 0,
			q.OnSale && !p.OnSale(q.Now):
			continue
		}
		if q.Search != "" && !contains(p.Name, q.Search) && !contains(p.Brand, q.Search) && !contains(p.SKU, q.Search) {
			continue
		}
		out = append(out, p)
	}
	sortProducts(out, q.Sort)
	return page(out, q.Page, q.Limit), int64(len(out)), nil
}

func sortProducts(ps []models.Product, by repositories.ProductSort) {
	slices.SortStableFunc(ps, func(a, b models.Product) int {
		switch by {
		case repositories.SortPriceAsc:
			if c := a.Price.Cmp(b.Price); c != 0 {
				return c
			}
		case repositories.SortPriceDesc:
			if c := b.Price.Cmp(a.Price); c != 0 {
				return c
			}
		case repositories.SortRating:
			if a.AverageRating != b.AverageRating {
				if a.AverageRating > b.AverageRating {
					return -1
				}
				return 1
			}
			if a.ReviewCount != b.ReviewCount {
				return b.ReviewCount - a.ReviewCount
			}
		case repositories.SortPopular:
			if a.Sales != b.Sales {
				return b.Sales - a.Sales
			}
		default:
			if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
				return c
			}
			return int(b.ID) - int(a.ID)
		}
		return int(a.ID) - int(b.ID)
	})
}

// page returns one page of items.
func page[T any](items []T, p, limit int) []T {
	off := orm.Offset(p, limit)
	_, limit = orm.Normalize(p, limit)
	if off >= len(items) {
		return []T{}
	}
	end := min(off+limit, len(items))
	return items[off:end]
}

func (r *productRepo) skuTaken(sku string, except uint) bool {
	for _, p := range r.s.cur().products {
		if p.SKU == sku && p.ID != except {
			return true
		}
	}
	return false
}

func (r *productRepo) Create(_ context.Context, p *models.Product) error {
	defer r.s.lock()()
	st := r.s.cur()
	if r.skuTaken(p.SKU, 0) {
		return repositories.ErrDuplicate
	}
	st.nextProduct++
	p.ID = st.nextProduct
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	if p.Status == "" {
		p.Status = models.StatusActive
	}
	stored := *p
	stored.Reviews = nil
	st.products[p.ID] = stored
	return nil
}

func (r *productRepo) Update(_ context.Context, p *models.Product) error {
	defer r.s.lock()()
	st := r.s.cur()
	cur, ok := st.products[p.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	if r.skuTaken(p.SKU, p.ID) {
		return repositories.ErrDuplicate
	}
	cur.Name, cur.Description, cur.SKU = p.Name, p.Description, p.SKU
	cur.Category, cur.Brand = p.Category, p.Brand
	cur.Price, cur.SalePrice = p.Price, p.SalePrice
	cur.SaleStartsAt, cur.SaleEndsAt = p.SaleStartsAt, p.SaleEndsAt
	cur.LowStockThreshold, cur.Image, cur.Status = p.LowStockThreshold, p.Image, p.Status
	cur.UpdatedAt = time.Now()
	st.products[p.ID] = cur
	return nil
}

func (r *productRepo) ReserveStock(_ context.Context, id uint, qty int) error {
	defer r.s.lock()()
	st := r.s.cur()
	p, ok := st.products[id]
	if !ok {
		return repositories.ErrNotFound
	}
	if p.Stock < qty {
		return &repositories.ShortfallError{ProductID: id, Available: p.Stock, Requested: qty}
	}
	p.Stock -= qty
	p.Sales += qty
	st.products[id] = p
	return nil
}

func (r *productRepo) ReleaseStock(_ context.Context, id uint, qty int) error {
	defer r.s.lock()()
	st := r.s.cur()
	p, ok := st.products[id]
	if !ok {
		return repositories.ErrNotFound
	}
	p.Stock += qty
	p.Sales = max(p.Sales-qty, 0)
	st.products[id] = p
	return nil
}

func (r *productRepo) AdjustStock(_ context.Context, id uint, delta int) (int, error) {
	defer r.s.lock()()
	st := r.s.cur()
	p, ok := st.products[id]
	if !ok {
		return 0, repositories.ErrNotFound
	}
	if p.Stock+delta < 0 {
		return 0, &repositories.ShortfallError{ProductID: id, Available: p.Stock, Requested: -delta}
	}
	p.Stock += delta
	st.products[id] = p
	return p.Stock, nil
}

func (r *productRepo) SetRating(_ context.Context, id uint, s models.RatingSummary) error {
	return r.mutate(id, func(p *models.Product) { p.AverageRating, p.ReviewCount = s.Average, s.Count })
}

func (r *productRepo) SetImage(_ context.Context, id uint, url string) error {
	return r.mutate(id, func(p *models.Product) { p.Image = url })
}

func (r *productRepo) mutate(id uint, fn func(*models.Product)) error {
	defer r.s.lock()()
	st := r.s.cur()
	p, ok := st.products[id]
	if !ok {
		return repositories.ErrNotFound
	}
	fn(&p)
	p.UpdatedAt = time.Now()
	st.products[id] = p
	return nil
}
