package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductCategory string

const (
	CategorySupplements ProductCategory = "supplements"
	CategoryEquipment   ProductCategory = "equipment"
	CategoryApparel     ProductCategory = "apparel"
	CategoryAccessories ProductCategory = "accessories"
	CategoryNutrition   ProductCategory = "nutrition"
)

// ProductCategories is the validate "in" list for ProductCategory.
const ProductCategories = "supplements,equipment,apparel,accessories,nutrition"

// DefaultLowStockThreshold applies when a product is created without one.
const DefaultLowStockThreshold = 10

// Product is a sellable catalog item. Stock and Sales only change through
// the repository's conditional updates.
type Product struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	Name              string          `gorm:"size:255;not null;index" json:"name"`
	Description       string          `gorm:"type:text" json:"description"`
	SKU               string          `gorm:"size:100;uniqueIndex;not null" json:"sku"`
	Category          ProductCategory `gorm:"size:32;not null;index" json:"category"`
	Brand             string          `gorm:"size:120;index" json:"brand"`
	Price             decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"price"`
	SalePrice         decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"salePrice"`
	SaleStartsAt      *time.Time      `json:"saleStartsAt,omitempty"`
	SaleEndsAt        *time.Time      `json:"saleEndsAt,omitempty"`
	Stock             int             `gorm:"not null;default:0" json:"stock"`
	LowStockThreshold int             `gorm:"not null;default:10" json:"lowStockThreshold"`
	Sales             int             `gorm:"not null;default:0" json:"sales"`
	Image             string          `gorm:"size:512" json:"image"`
	Status            CatalogStatus   `gorm:"size:16;not null;default:active;index" json:"status"`
	AverageRating     float64         `gorm:"not null;default:0" json:"averageRating"`
	ReviewCount       int             `gorm:"not null;default:0" json:"reviewCount"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`

	Reviews []Review `gorm:"-" json:"reviews,omitempty"`
}

// IsInStock reports whether quantity units can be reserved right now.
func (p Product) IsInStock(quantity int) bool {
	return quantity > 0 && p.Stock >= quantity
}

// IsLowStock reports whether stock is at or under the restock threshold.
func (p Product) IsLowStock() bool {
	return p.Stock <= p.LowStockThreshold
}

// OnSale requires a positive sale price and now inside both sale bounds.
func (p Product) OnSale(now time.Time) bool {
	if !p.SalePrice.IsPositive() || p.SaleStartsAt == nil || p.SaleEndsAt == nil {
		return false
	}
	return !now.Before(*p.SaleStartsAt) && !now.After(*p.SaleEndsAt)
}

// EffectivePrice is the price an order line snapshots.
func (p Product) EffectivePrice(now time.Time) decimal.Decimal {
	if p.OnSale(now) {
		return p.SalePrice
	}
	return p.Price
}

// Orderable reports whether the product may be added to a new order.
func (p Product) Orderable() bool {
	return p.Status == StatusActive
}
