package order

import (
	"context"

	"github.com/google/uuid"

	"github.com/storefront/backend/internal/domain/shared"
)

// ErrDuplicateReference is returned by Create when the uniqueness
// constraint on external_reference rejects the insert. Callers treat it as
// "order already exists" and load the existing row.
var ErrDuplicateReference = shared.NewDomainError("DUPLICATE_ORDER", "An order with this reference already exists")

// OutcomeResult describes what a conditional payment update did
type OutcomeResult int

const (
	// OutcomeApplied means the payment status transitioned to terminal
	OutcomeApplied OutcomeResult = iota
	// OutcomeAlreadyFinal means the payment status was already terminal (no-op)
	OutcomeAlreadyFinal
	// OutcomeUnknownReference means no order carries the reference
	OutcomeUnknownReference
)

// String returns the outcome name
func (r OutcomeResult) String() string {
	switch r {
	case OutcomeApplied:
		return "applied"
	case OutcomeAlreadyFinal:
		return "already_final"
	case OutcomeUnknownReference:
		return "unknown_reference"
	default:
		return "unknown"
	}
}

// OrderRepository defines the interface for order persistence.
//
// The mutating operations are single conditional updates rather than
// read-then-write sequences so they stay safe under concurrent
// at-least-once webhook delivery.
type OrderRepository interface {
	// Create persists a new order with its line items.
	// A duplicate external reference yields ErrDuplicateReference.
	Create(ctx context.Context, order *Order) error

	// FindByID finds an order by ID with its line items
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByReference finds an order by external reference
	FindByReference(ctx context.Context, reference string) (*Order, error)

	// FindByOwner lists orders for an owner, newest first
	FindByOwner(ctx context.Context, ownerID uuid.UUID, filter shared.Filter) ([]Order, int64, error)

	// ApplyPaymentOutcome finalizes the payment status for the order with
	// the given reference in one conditional update: the terminal status,
	// transaction ID, and (on completion) the pending->processing order
	// transition are applied only if the payment status is still pending.
	ApplyPaymentOutcome(ctx context.Context, reference string, status PaymentStatus, transactionID string) (OutcomeResult, error)

	// CancelPending transitions an order to cancelled only while it is
	// pending and owned by ownerID. Returns true when a row transitioned.
	CancelPending(ctx context.Context, id, ownerID uuid.UUID) (bool, error)

	// AdvanceFulfillment performs one fulfillment edge (processing->shipped
	// or shipped->delivered) as a conditional update. Returns true when a
	// row transitioned.
	AdvanceFulfillment(ctx context.Context, id uuid.UUID, from, to OrderStatus) (bool, error)
}
