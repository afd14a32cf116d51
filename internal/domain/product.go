package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents an inventory item
type Product struct {
	ProductID     string              `json:"productId" db:"product_id"`
	Name          string              `json:"name" db:"name"`
	Price         decimal.Decimal     `json:"price" db:"price"`
	Rating        decimal.NullDecimal `json:"rating" db:"rating"`
	StockQuantity int                 `json:"stockQuantity" db:"stock_quantity"`
	CategoryID    string              `json:"categoryId" db:"category_id"`
	Photo         *string             `json:"photo" db:"photo"`
	Location      *string             `json:"location" db:"location"`
	SKU           *string             `json:"sku" db:"sku"`
	Supplier      *string             `json:"supplier" db:"supplier"`
	UpdatedAt     time.Time           `json:"updatedAt" db:"updated_at"`

	// Category is resolved on reads only.
	Category *Category `json:"category,omitempty" db:"-"`
}

// HasPhoto reports whether the product references a stored photo
func (p *Product) HasPhoto() bool {
	return p.Photo != nil && *p.Photo != ""
}

// Category represents a product category
type Category struct {
	CategoryID string `json:"categoryId" db:"category_id"`
	Name       string `json:"name" db:"name"`
}

// ProductFilter narrows a product listing
type ProductFilter struct {
	Search     string
	CategoryID string
}
