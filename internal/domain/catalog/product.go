package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/shared"
)

// Product is the authoritative catalog entry for price and stock lookups.
// The checkout pipeline re-reads prices from here at order-creation time;
// caller-supplied unit prices are treated as advisory only.
type Product struct {
	shared.BaseAggregateRoot
	Name       string
	Code       string          `gorm:"uniqueIndex"`
	Price      decimal.Decimal `gorm:"type:decimal(20,2)"`
	Stock      int64
	Variations string // comma-separated variation selectors, empty when none
	Active     bool
}

// NewProduct creates a new catalog product
func NewProduct(name, code string, price decimal.Decimal, stock int64) (*Product, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name cannot be empty")
	}
	if code == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT_CODE", "Product code cannot be empty")
	}
	if price.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Product price cannot be negative")
	}
	if stock < 0 {
		return nil, shared.NewDomainError("INVALID_STOCK", "Product stock cannot be negative")
	}

	return &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Code:              code,
		Price:             price,
		Stock:             stock,
		Active:            true,
	}, nil
}

// InStock returns true if at least quantity units are available
func (p *Product) InStock(quantity int64) bool {
	return p.Active && p.Stock >= quantity
}
