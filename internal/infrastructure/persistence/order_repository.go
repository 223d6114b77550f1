package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
)

// GormOrderRepository implements order.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Create persists a new order with its line items.
// The unique index on external_reference is the final duplicate-order
// guard; a violation is reported as ErrDuplicateReference so the caller
// can resolve to the already-created order.
func (r *GormOrderRepository) Create(ctx context.Context, o *order.Order) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(o).Error
	})
	if err != nil {
		if isDuplicateKey(err) {
			return order.ErrDuplicateReference
		}
		return err
	}
	return nil
}

// FindByID finds an order by ID with its line items
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var o order.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&o, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// FindByReference finds an order by external reference
func (r *GormOrderRepository) FindByReference(ctx context.Context, reference string) (*order.Order, error) {
	var o order.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&o, "external_reference = ?", reference).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// FindByOwner lists orders for an owner with pagination
func (r *GormOrderRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID, filter shared.Filter) ([]order.Order, int64, error) {
	filter = filter.Normalize()

	var total int64
	base := r.db.WithContext(ctx).Model(&order.Order{}).Where("owner_id = ?", ownerID)
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []order.Order
	if err := base.
		Preload("Items").
		Order(orderClause(filter)).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// ApplyPaymentOutcome finalizes the payment status for the order with the
// given reference in a single conditional update, safe under concurrent
// at-least-once webhook delivery. On completion the pending order also
// moves to processing inside the same statement.
func (r *GormOrderRepository) ApplyPaymentOutcome(ctx context.Context, reference string, status order.PaymentStatus, transactionID string) (order.OutcomeResult, error) {
	if !status.IsTerminal() {
		return order.OutcomeAlreadyFinal, shared.ErrInvalidState
	}

	now := time.Now()
	updates := map[string]any{
		"payment_status": status,
		"transaction_id": transactionID,
		"updated_at":     now,
		"version":        gorm.Expr("version + 1"),
	}
	if status == order.PaymentStatusCompleted {
		updates["paid_at"] = now
		updates["status"] = gorm.Expr(
			"CASE WHEN status = ? THEN ? ELSE status END",
			order.OrderStatusPending, order.OrderStatusProcessing,
		)
	}

	result := r.db.WithContext(ctx).Model(&order.Order{}).
		Where("external_reference = ? AND payment_status = ?", reference, order.PaymentStatusPending).
		Updates(updates)
	if result.Error != nil {
		return order.OutcomeAlreadyFinal, result.Error
	}
	if result.RowsAffected > 0 {
		return order.OutcomeApplied, nil
	}

	// Nothing matched: either the payment already finalized or the
	// reference is unknown.
	var count int64
	if err := r.db.WithContext(ctx).Model(&order.Order{}).
		Where("external_reference = ?", reference).
		Count(&count).Error; err != nil {
		return order.OutcomeAlreadyFinal, err
	}
	if count == 0 {
		return order.OutcomeUnknownReference, nil
	}
	return order.OutcomeAlreadyFinal, nil
}

// CancelPending cancels an order only while it is pending and owned by
// ownerID, as one conditional update.
func (r *GormOrderRepository) CancelPending(ctx context.Context, id, ownerID uuid.UUID) (bool, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&order.Order{}).
		Where("id = ? AND owner_id = ? AND status = ?", id, ownerID, order.OrderStatusPending).
		Updates(map[string]any{
			"status":       order.OrderStatusCancelled,
			"cancelled_at": now,
			"updated_at":   now,
			"version":      gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// AdvanceFulfillment performs one fulfillment edge as a conditional update
func (r *GormOrderRepository) AdvanceFulfillment(ctx context.Context, id uuid.UUID, from, to order.OrderStatus) (bool, error) {
	if !from.CanTransitionTo(to) {
		return false, shared.ErrInvalidState
	}

	now := time.Now()
	updates := map[string]any{
		"status":     to,
		"updated_at": now,
		"version":    gorm.Expr("version + 1"),
	}
	switch to {
	case order.OrderStatusShipped:
		updates["shipped_at"] = now
	case order.OrderStatusDelivered:
		updates["delivered_at"] = now
	}

	result := r.db.WithContext(ctx).Model(&order.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func orderClause(filter shared.Filter) string {
	column := "created_at"
	switch filter.OrderBy {
	case "created_at", "updated_at", "total", "status":
		column = filter.OrderBy
	}
	dir := "desc"
	if strings.EqualFold(filter.OrderDir, "asc") {
		dir = "asc"
	}
	return column + " " + dir
}

// isDuplicateKey recognizes unique-constraint violations across the
// production driver (postgres) and the test driver (sqlite).
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key value")
}
