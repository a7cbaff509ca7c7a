// Package repositories is the persistence layer. Store groups the
// repositories so services can run several of them in one transaction.
// The gorm implementation lives here; package memory holds an in-process
// one for tests and DB_DRIVER=memory.
package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fitforge/fitforge/app/models"
)

var (
	ErrNotFound          = errors.New("repositories: not found")
	ErrInsufficientStock = errors.New("repositories: insufficient stock")
	ErrPlanFull          = errors.New("repositories: plan full")
	ErrDuplicate         = errors.New("repositories: duplicate key")
	// ErrStatusChanged means a compare-and-swap status write lost a race.
	ErrStatusChanged = errors.New("repositories: status changed concurrently")
)

// ShortfallError reports how much stock a failed reservation was missing.
type ShortfallError struct {
	ProductID uint
	Available int
	Requested int
}

func (e *ShortfallError) Error() string {
	return fmt.Sprintf("product %d: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

func (e *ShortfallError) Unwrap() error { return ErrInsufficientStock }

// ProductSort enumerates the listing orders.
type ProductSort string

const (
	SortNewest    ProductSort = "newest"
	SortPriceAsc  ProductSort = "price_asc"
	SortPriceDesc ProductSort = "price_desc"
	SortRating    ProductSort = "rating"
	SortPopular   ProductSort = "popular"
)

const ProductSorts = "newest,price_asc,price_desc,rating,popular"

// ProductQuery is the complete set of product listing filters.
type ProductQuery struct {
	Category models.ProductCategory
	Status   models.CatalogStatus
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Search   string
	InStock  bool
	OnSale   bool
	Sort     ProductSort
	Page     int
	Limit    int
	Now      time.Time // reference time for OnSale
}

type PlanQuery struct {
	Category   models.PlanCategory
	Level      models.PlanLevel
	Status     models.CatalogStatus
	Visibility models.Visibility
	TrainerID  uint
	Search     string
	Page       int
	Limit      int
}

type OrderQuery struct {
	UserID uint // 0 matches every user
	Status models.OrderStatus
	From   *time.Time
	To     *time.Time
	Page   int
	Limit  int
}

type StatsQuery struct {
	UserID uint
	From   *time.Time
	To     *time.Time
}

type ProductRepository interface {
	FindByID(ctx context.Context, id uint) (models.Product, error)
	List(ctx context.Context, q ProductQuery) ([]models.Product, int64, error)
	Create(ctx context.Context, p *models.Product) error
	// Update writes descriptive fields only. Stock, sales and ratings are
	// left untouched.
	Update(ctx context.Context, p *models.Product) error
	// ReserveStock atomically takes qty units or fails with a
	// *ShortfallError leaving the row unchanged.
	ReserveStock(ctx context.Context, id uint, qty int) error
	ReleaseStock(ctx context.Context, id uint, qty int) error
	// AdjustStock adds delta and returns the new stock. It refuses to go
	// below zero.
	AdjustStock(ctx context.Context, id uint, delta int) (int, error)
	SetRating(ctx context.Context, id uint, s models.RatingSummary) error
	SetImage(ctx context.Context, id uint, url string) error
}

type PlanRepository interface {
	FindByID(ctx context.Context, id uint) (models.WorkoutPlan, error)
	List(ctx context.Context, q PlanQuery) ([]models.WorkoutPlan, int64, error)
	Create(ctx context.Context, p *models.WorkoutPlan) error
	// Update writes descriptive fields and MaxMembers, which may not drop
	// below ActiveMembers.
	Update(ctx context.Context, p *models.WorkoutPlan) error
	// AddMember increments ActiveMembers if a seat is free, else ErrPlanFull.
	AddMember(ctx context.Context, id uint) error
	// RemoveMember decrements ActiveMembers if positive and reports
	// whether it did.
	RemoveMember(ctx context.Context, id uint) (bool, error)
	SetRating(ctx context.Context, id uint, s models.RatingSummary) error
}

type ReviewRepository interface {
	// Upsert replaces the user's existing review of the target.
	Upsert(ctx context.Context, r *models.Review) error
	ListByTarget(ctx context.Context, target models.ReviewTarget, id uint) ([]models.Review, error)
}

type OrderRepository interface {
	// FindByID loads the order with its items and owner.
	FindByID(ctx context.Context, id uuid.UUID) (models.Order, error)
	List(ctx context.Context, q OrderQuery) ([]models.Order, int64, error)
	Create(ctx context.Context, o *models.Order) error
	// UpdateStatus writes o's status and audit fields only if the stored
	// status is still from, else ErrStatusChanged.
	UpdateStatus(ctx context.Context, o *models.Order, from models.OrderStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context, q StatsQuery) (map[models.OrderStatus]int64, decimal.Decimal, error)
}

type UserRepository interface {
	FindByID(ctx context.Context, id uint) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	Create(ctx context.Context, u *models.User) error
}

// SequenceRepository hands out named monotonically increasing counters.
type SequenceRepository interface {
	Next(ctx context.Context, name string) (int64, error)
}

// Store is the unit-of-work boundary.
type Store interface {
	Products() ProductRepository
	Plans() PlanRepository
	Reviews() ReviewRepository
	Orders() OrderRepository
	Users() UserRepository
	Sequences() SequenceRepository

	// Transaction runs fn against a Store bound to one transaction. A
	// non-nil error from fn rolls every write back.
	Transaction(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}

// OrderHistory is the append-only audit log of order status changes.
type OrderHistory interface {
	Record(ctx context.Context, c models.StatusChange) error
	List(ctx context.Context, orderID string) ([]models.StatusChange, error)
}
