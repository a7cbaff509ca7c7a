// Package orm holds the small query helpers shared by the gorm repositories.
package orm

import (
	"math"

	"gorm.io/gorm"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Pagination describes one page of a listing.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// Normalize clamps page and limit into their valid ranges.
func Normalize(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

// NewPagination builds page metadata for total matching rows.
func NewPagination(page, limit int, total int64) Pagination {
	page, limit = Normalize(page, limit)
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(limit))),
	}
}

// Offset returns the number of rows to skip for page.
func Offset(page, limit int) int {
	page, limit = Normalize(page, limit)
	return (page - 1) * limit
}

// Paginate is a gorm scope applying LIMIT/OFFSET for page and limit.
//
//	db.Scopes(orm.Paginate(q.Page, q.Limit)).Find(&rows)
func Paginate(page, limit int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		p, l := Normalize(page, limit)
		return db.Offset(Offset(p, l)).Limit(l)
	}
}
