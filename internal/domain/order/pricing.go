package order

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/shared"
)

// CartLine is one line of a cart snapshot. UnitPrice carries the price the
// caller was quoted; the coordinator replaces it with the catalog price
// before anything durable happens.
type CartLine struct {
	ProductID uuid.UUID
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int64
	Variation string
}

// CartSnapshot is an ordered sequence of cart lines
type CartSnapshot struct {
	Items []CartLine
}

// IsEmpty returns true when the cart has no lines
func (c CartSnapshot) IsEmpty() bool {
	return len(c.Items) == 0
}

// Breakdown is the deterministic price breakdown of a cart.
// Invariants: Total = Subtotal + TaxAmount and
// TaxAmount = round(Subtotal * TaxRate) half-up to the minor currency unit.
type Breakdown struct {
	Subtotal  decimal.Decimal
	TaxRate   decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
}

// WithinTolerance reports whether another total agrees with this breakdown
// within the configured tolerance.
func (b Breakdown) WithinTolerance(total decimal.Decimal, tolerance decimal.Decimal) bool {
	return b.Total.Sub(total).Abs().LessThanOrEqual(tolerance)
}

// PricingEngine computes price breakdowns from cart snapshots.
// It is pure: no side effects, no I/O. The tax rate is a configuration
// value, never user input.
type PricingEngine struct {
	taxRate decimal.Decimal
}

// NewPricingEngine creates a pricing engine with the configured tax rate
func NewPricingEngine(taxRate decimal.Decimal) (PricingEngine, error) {
	if taxRate.IsNegative() || taxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return PricingEngine{}, shared.NewDomainError("INVALID_TAX_RATE", "Tax rate must be in [0, 1)")
	}
	return PricingEngine{taxRate: taxRate}, nil
}

// TaxRate returns the configured tax rate
func (e PricingEngine) TaxRate() decimal.Decimal {
	return e.taxRate
}

// Quote computes the breakdown for a cart snapshot.
// Rounding is half-up to the minor currency unit (decimal.Round is
// half-away-from-zero, identical for the non-negative amounts here).
func (e PricingEngine) Quote(cart CartSnapshot) (Breakdown, error) {
	if cart.IsEmpty() {
		return Breakdown{}, shared.NewDomainError("VALIDATION_ERROR", "Cart cannot be empty")
	}

	subtotal := decimal.Zero
	for _, line := range cart.Items {
		if line.Quantity <= 0 {
			return Breakdown{}, shared.NewDomainError("VALIDATION_ERROR", "Line quantity must be positive")
		}
		if line.UnitPrice.IsNegative() {
			return Breakdown{}, shared.NewDomainError("VALIDATION_ERROR", "Unit price cannot be negative")
		}
		subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(line.Quantity)))
	}

	subtotal = subtotal.Round(2)
	taxAmount := subtotal.Mul(e.taxRate).Round(2)

	return Breakdown{
		Subtotal:  subtotal,
		TaxRate:   e.taxRate,
		TaxAmount: taxAmount,
		Total:     subtotal.Add(taxAmount),
	}, nil
}
