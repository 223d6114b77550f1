package checkout

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
)

// ConfirmationSender delivers order confirmations. Delivery is best effort:
// the coordinator never fails an order because a confirmation did not send.
type ConfirmationSender interface {
	SendOrderConfirmation(ctx context.Context, o *order.Order) error
}

// OrderServiceConfig carries the checkout tunables
type OrderServiceConfig struct {
	// PriceTolerance is the maximum accepted difference between the quoted
	// total and the re-verified total.
	PriceTolerance decimal.Decimal
	// InvoicePrefix prefixes generated order references
	InvoicePrefix string
	// SessionTTL bounds how long a checkout session key gates resubmission
	SessionTTL time.Duration
	// NotifyTimeout bounds the detached confirmation send
	NotifyTimeout time.Duration
}

// OrderService coordinates checkout: it re-verifies prices against the
// catalog, persists the order exactly once, and exposes the owner-scoped
// order operations.
type OrderService struct {
	orderRepo   order.OrderRepository
	productRepo catalog.ProductRepository
	pricing     order.PricingEngine
	gate        shared.IdempotencyStore
	sender      ConfirmationSender
	logger      *zap.Logger

	tolerance     decimal.Decimal
	invoicePrefix string
	sessionTTL    time.Duration
	notifyTimeout time.Duration
}

// NewOrderService creates a new OrderService
func NewOrderService(
	orderRepo order.OrderRepository,
	productRepo catalog.ProductRepository,
	pricing order.PricingEngine,
	gate shared.IdempotencyStore,
	logger *zap.Logger,
	cfg OrderServiceConfig,
) *OrderService {
	prefix := cfg.InvoicePrefix
	if prefix == "" {
		prefix = "INV"
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	notifyTimeout := cfg.NotifyTimeout
	if notifyTimeout <= 0 {
		notifyTimeout = 10 * time.Second
	}
	tolerance := cfg.PriceTolerance
	if tolerance.IsNegative() {
		tolerance = decimal.Zero
	}
	return &OrderService{
		orderRepo:     orderRepo,
		productRepo:   productRepo,
		pricing:       pricing,
		gate:          gate,
		logger:        logger,
		tolerance:     tolerance,
		invoicePrefix: prefix,
		sessionTTL:    ttl,
		notifyTimeout: notifyTimeout,
	}
}

// SetConfirmationSender sets the optional confirmation mailer
func (s *OrderService) SetConfirmationSender(sender ConfirmationSender) {
	s.sender = sender
}

// Create runs the checkout pipeline for one submission: session gate,
// catalog re-verification, pricing, tolerance check, durable insert.
// Repeated submissions with the same session key (or the same generated
// reference) resolve to the already-created order.
func (s *OrderService) Create(ctx context.Context, ownerID uuid.UUID, req CreateOrderRequest) (*OrderResponse, error) {
	if ownerID == uuid.Nil {
		return nil, shared.ErrUnauthorized
	}
	if len(req.Items) == 0 {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Cart cannot be empty")
	}

	reference := s.generateReference()

	gateKey := ""
	if req.SessionKey != "" && s.gate != nil {
		gateKey = fmt.Sprintf("checkout:%s:%s", ownerID, req.SessionKey)
		stored, created, err := s.gate.Remember(ctx, gateKey, reference, s.sessionTTL)
		if err != nil {
			// The gate is cooperative only; the uniqueness constraint on
			// the reference still guards correctness.
			s.logger.Warn("idempotency gate unavailable, relying on unique reference",
				zap.String("session_key", req.SessionKey),
				zap.Error(err))
			gateKey = ""
		} else if !created {
			existing, err := s.orderRepo.FindByReference(ctx, stored)
			if err == nil {
				response := ToOrderResponse(existing)
				return &response, nil
			}
			if !errors.Is(err, shared.ErrNotFound) {
				return nil, err
			}
			// Gate was claimed but the insert never landed; this attempt
			// takes over the stored reference.
			reference = stored
		}
	}

	verified, err := s.verifyCart(ctx, req.Items)
	if err != nil {
		s.releaseGate(ctx, gateKey)
		return nil, err
	}

	breakdown, err := s.pricing.Quote(verified)
	if err != nil {
		s.releaseGate(ctx, gateKey)
		return nil, err
	}

	if req.QuotedTotal != nil {
		if !breakdown.WithinTolerance(*req.QuotedTotal, s.tolerance) {
			s.releaseGate(ctx, gateKey)
			s.logger.Info("checkout rejected on price mismatch",
				zap.String("owner_id", ownerID.String()),
				zap.String("quoted", req.QuotedTotal.String()),
				zap.String("verified", breakdown.Total.String()))
			return nil, shared.ErrPriceMismatch
		}
	}

	newOrder, err := order.NewOrder(ownerID, reference, verified, breakdown, toAddress(req.Address))
	if err != nil {
		s.releaseGate(ctx, gateKey)
		return nil, err
	}

	if err := s.orderRepo.Create(ctx, newOrder); err != nil {
		if errors.Is(err, order.ErrDuplicateReference) {
			existing, ferr := s.orderRepo.FindByReference(ctx, reference)
			if ferr != nil {
				return nil, ferr
			}
			response := ToOrderResponse(existing)
			return &response, nil
		}
		s.releaseGate(ctx, gateKey)
		return nil, err
	}

	s.logger.Info("order created",
		zap.String("order_id", newOrder.ID.String()),
		zap.String("reference", newOrder.ExternalReference),
		zap.String("total", newOrder.Total.String()))

	s.sendConfirmation(newOrder)

	response := ToOrderResponse(newOrder)
	return &response, nil
}

// GetByID retrieves an order, scoped to its owner
func (s *OrderService) GetByID(ctx context.Context, ownerID, orderID uuid.UUID) (*OrderResponse, error) {
	o, err := s.ownedOrder(ctx, ownerID, orderID)
	if err != nil {
		return nil, err
	}
	response := ToOrderResponse(o)
	return &response, nil
}

// GetByReference retrieves an order by external reference, scoped to its owner
func (s *OrderService) GetByReference(ctx context.Context, ownerID uuid.UUID, reference string) (*OrderResponse, error) {
	o, err := s.orderRepo.FindByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !o.IsOwnedBy(ownerID) {
		return nil, shared.ErrForbidden
	}
	response := ToOrderResponse(o)
	return &response, nil
}

// List retrieves the owner's orders with pagination, newest first
func (s *OrderService) List(ctx context.Context, ownerID uuid.UUID, filter OrderListFilter) ([]OrderListItemResponse, int64, error) {
	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
	}
	domainFilter = domainFilter.Normalize()

	orders, total, err := s.orderRepo.FindByOwner(ctx, ownerID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToOrderListItemResponses(orders), total, nil
}

// Cancel cancels a pending order on behalf of its owner.
// The transition happens as one conditional update; when it does not apply
// the reason (missing, foreign, already advanced) is reported separately.
func (s *OrderService) Cancel(ctx context.Context, ownerID, orderID uuid.UUID) (*OrderResponse, error) {
	applied, err := s.orderRepo.CancelPending(ctx, orderID, ownerID)
	if err != nil {
		return nil, err
	}
	if !applied {
		o, err := s.orderRepo.FindByID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if !o.IsOwnedBy(ownerID) {
			return nil, shared.ErrForbidden
		}
		return nil, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel order in %s status", o.Status))
	}

	o, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("order cancelled",
		zap.String("order_id", orderID.String()),
		zap.String("reference", o.ExternalReference))
	response := ToOrderResponse(o)
	return &response, nil
}

// MarkShipped advances a processing order to shipped
func (s *OrderService) MarkShipped(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	return s.advance(ctx, orderID, order.OrderStatusProcessing, order.OrderStatusShipped)
}

// MarkDelivered advances a shipped order to delivered
func (s *OrderService) MarkDelivered(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	return s.advance(ctx, orderID, order.OrderStatusShipped, order.OrderStatusDelivered)
}

// Tracking projects the milestone timeline for an order at the current time
func (s *OrderService) Tracking(ctx context.Context, ownerID, orderID uuid.UUID) (*TrackingResponse, error) {
	o, err := s.ownedOrder(ctx, ownerID, orderID)
	if err != nil {
		return nil, err
	}
	milestones := order.Project(o, time.Now())
	response := ToTrackingResponse(o, milestones)
	return &response, nil
}

func (s *OrderService) advance(ctx context.Context, orderID uuid.UUID, from, to order.OrderStatus) (*OrderResponse, error) {
	applied, err := s.orderRepo.AdvanceFulfillment(ctx, orderID, from, to)
	if err != nil {
		return nil, err
	}

	o, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot move order from %s to %s", o.Status, to))
	}
	response := ToOrderResponse(o)
	return &response, nil
}

func (s *OrderService) ownedOrder(ctx context.Context, ownerID, orderID uuid.UUID) (*order.Order, error) {
	o, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.IsOwnedBy(ownerID) {
		return nil, shared.ErrForbidden
	}
	return o, nil
}

// verifyCart replaces every caller-quoted line with the catalog truth:
// authoritative name and unit price, with an active-product and stock check.
func (s *OrderService) verifyCart(ctx context.Context, items []CartItemInput) (order.CartSnapshot, error) {
	verified := order.CartSnapshot{Items: make([]order.CartLine, 0, len(items))}
	for _, item := range items {
		if item.Quantity <= 0 {
			return order.CartSnapshot{}, shared.NewDomainError("VALIDATION_ERROR", "Line quantity must be positive")
		}

		product, err := s.productRepo.FindByID(ctx, item.ProductID)
		if err != nil {
			return order.CartSnapshot{}, err
		}
		if !product.InStock(item.Quantity) {
			return order.CartSnapshot{}, shared.NewDomainError("INSUFFICIENT_STOCK",
				fmt.Sprintf("Insufficient stock for %s", product.Name))
		}

		verified.Items = append(verified.Items, order.CartLine{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  item.Quantity,
			Variation: item.Variation,
		})
	}
	return verified, nil
}

// sendConfirmation dispatches the confirmation in a detached goroutine with
// its own deadline. Failures are logged and never surfaced to the caller.
func (s *OrderService) sendConfirmation(o *order.Order) {
	if s.sender == nil || o.ShippingAddress.Email == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()
		if err := s.sender.SendOrderConfirmation(ctx, o); err != nil {
			s.logger.Warn("order confirmation not sent",
				zap.String("reference", o.ExternalReference),
				zap.Error(err))
		}
	}()
}

func (s *OrderService) releaseGate(ctx context.Context, key string) {
	if key == "" || s.gate == nil {
		return
	}
	if err := s.gate.Forget(ctx, key); err != nil {
		s.logger.Warn("failed to release checkout gate", zap.String("key", key), zap.Error(err))
	}
}

func (s *OrderService) generateReference() string {
	return fmt.Sprintf("%s-%d-%06d", s.invoicePrefix, time.Now().UnixMilli(), rand.Intn(1000000))
}
