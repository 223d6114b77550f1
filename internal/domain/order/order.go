package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/shared"
)

// OrderStatus represents the fulfillment status of an order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// IsTerminal returns true for statuses that accept no further transition
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo checks if the status can transition to the target status.
// The only path is pending -> processing -> shipped -> delivered, with
// pending -> cancelled as the single exception.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return target == OrderStatusProcessing || target == OrderStatusCancelled
	case OrderStatusProcessing:
		return target == OrderStatusShipped
	case OrderStatusShipped:
		return target == OrderStatusDelivered
	case OrderStatusDelivered, OrderStatusCancelled:
		return false
	}
	return false
}

// rank orders statuses along the fulfillment path for milestone projection.
// Cancelled has no rank on the path.
func (s OrderStatus) rank() int {
	switch s {
	case OrderStatusPending:
		return 0
	case OrderStatusProcessing:
		return 1
	case OrderStatusShipped:
		return 2
	case OrderStatusDelivered:
		return 3
	}
	return -1
}

// PaymentStatus represents the reconciled payment state of an order
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// IsTerminal returns true once payment has been finalized either way.
// Terminal payment statuses never change again; later signals are no-ops.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed
}

// Address is the shipping address captured on the order
type Address struct {
	FullName   string `gorm:"column:full_name"`
	Phone      string
	Email      string
	Line1      string
	City       string
	PostalCode string `gorm:"column:postal_code"`
	Country    string
}

// Validate checks that the address is complete enough to ship to
func (a Address) Validate() error {
	if strings.TrimSpace(a.FullName) == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "Recipient name is required")
	}
	if strings.TrimSpace(a.Phone) == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "Recipient phone is required")
	}
	if strings.TrimSpace(a.Line1) == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "Address line is required")
	}
	if strings.TrimSpace(a.City) == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "City is required")
	}
	if strings.TrimSpace(a.Country) == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "Country is required")
	}
	return nil
}

// LineItem is an immutable snapshot of a cart line at order-creation time
type LineItem struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Name      string
	UnitPrice decimal.Decimal `gorm:"type:decimal(20,2)"`
	Quantity  int64
	Variation string
	Amount    decimal.Decimal `gorm:"type:decimal(20,2)"` // UnitPrice * Quantity
	CreatedAt time.Time
}

// Order is the aggregate root for a checkout attempt that became durable.
// It is created exactly once per checkout, mutated only through the
// reconciliation path (payment/status fields) and a single owner-initiated
// cancellation while pending.
type Order struct {
	shared.BaseAggregateRoot
	OwnerID           uuid.UUID `gorm:"type:uuid;not null;index"`
	ExternalReference string    `gorm:"uniqueIndex;not null"`
	Items             []LineItem
	Subtotal          decimal.Decimal `gorm:"type:decimal(20,2)"`
	TaxRate           decimal.Decimal `gorm:"type:decimal(8,4)"`
	TaxAmount         decimal.Decimal `gorm:"type:decimal(20,2)"`
	Total             decimal.Decimal `gorm:"type:decimal(20,2)"`
	ShippingAddress   Address         `gorm:"embedded;embeddedPrefix:ship_"`
	Status            OrderStatus
	PaymentStatus     PaymentStatus
	TransactionID     string
	PaidAt            *time.Time
	ShippedAt         *time.Time
	DeliveredAt       *time.Time
	CancelledAt       *time.Time
}

// NewOrder creates a new pending order from a priced cart snapshot.
// The breakdown must come from the pricing engine over catalog-verified
// prices, never from caller input.
func NewOrder(ownerID uuid.UUID, reference string, cart CartSnapshot, breakdown Breakdown, address Address) (*Order, error) {
	if ownerID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Owner ID cannot be empty")
	}
	if reference == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "External reference cannot be empty")
	}
	if len(cart.Items) == 0 {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Cart cannot be empty")
	}
	if err := address.Validate(); err != nil {
		return nil, err
	}

	order := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OwnerID:           ownerID,
		ExternalReference: reference,
		Items:             make([]LineItem, 0, len(cart.Items)),
		Subtotal:          breakdown.Subtotal,
		TaxRate:           breakdown.TaxRate,
		TaxAmount:         breakdown.TaxAmount,
		Total:             breakdown.Total,
		ShippingAddress:   address,
		Status:            OrderStatusPending,
		PaymentStatus:     PaymentStatusPending,
	}

	for _, line := range cart.Items {
		if line.Quantity <= 0 {
			return nil, shared.NewDomainError("VALIDATION_ERROR", "Line quantity must be positive")
		}
		order.Items = append(order.Items, LineItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: line.ProductID,
			Name:      line.Name,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
			Variation: line.Variation,
			Amount:    line.UnitPrice.Mul(decimal.NewFromInt(line.Quantity)),
			CreatedAt: order.CreatedAt,
		})
	}

	return order, nil
}

// ApplyPaymentOutcome finalizes the payment status from an authoritative
// provider signal. A terminal payment status is never re-applied: repeated
// deliveries return applied=false with no state change.
func (o *Order) ApplyPaymentOutcome(status PaymentStatus, transactionID string) (applied bool, err error) {
	if !status.IsTerminal() {
		return false, shared.NewDomainError("VALIDATION_ERROR", fmt.Sprintf("Cannot apply non-terminal payment status %s", status))
	}
	if o.PaymentStatus.IsTerminal() {
		return false, nil
	}

	now := time.Now()
	o.PaymentStatus = status
	o.TransactionID = transactionID
	o.UpdatedAt = now

	if status == PaymentStatusCompleted {
		o.PaidAt = &now
		// Paid orders begin fulfillment; failed payments leave the order
		// pending so the owner may retry.
		if o.Status == OrderStatusPending {
			o.Status = OrderStatusProcessing
		}
	}

	return true, nil
}

// Ship marks the order as shipped
func (o *Order) Ship() error {
	if !o.Status.CanTransitionTo(OrderStatusShipped) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot ship order in %s status", o.Status))
	}

	now := time.Now()
	o.Status = OrderStatusShipped
	o.ShippedAt = &now
	o.UpdatedAt = now
	return nil
}

// Deliver marks the order as delivered (terminal)
func (o *Order) Deliver() error {
	if !o.Status.CanTransitionTo(OrderStatusDelivered) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot deliver order in %s status", o.Status))
	}

	now := time.Now()
	o.Status = OrderStatusDelivered
	o.DeliveredAt = &now
	o.UpdatedAt = now
	return nil
}

// Cancel cancels the order. Allowed only while pending; no payment has
// completed at that point so there is nothing to compensate.
func (o *Order) Cancel() error {
	if !o.Status.CanTransitionTo(OrderStatusCancelled) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel order in %s status", o.Status))
	}

	now := time.Now()
	o.Status = OrderStatusCancelled
	o.CancelledAt = &now
	o.UpdatedAt = now
	return nil
}

// IsOwnedBy returns true if the order belongs to the given user
func (o *Order) IsOwnedBy(userID uuid.UUID) bool {
	return o.OwnerID == userID
}

// ItemCount returns the number of line items
func (o *Order) ItemCount() int {
	return len(o.Items)
}
