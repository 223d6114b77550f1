package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/storefront/backend/internal/application/checkout"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/infrastructure/payment"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// PaymentGateway is the widget gateway surface the checkout endpoints use
type PaymentGateway interface {
	State() payment.State
	Retry(ctx context.Context) error
	InitSession(ctx context.Context, params payment.SessionParams) (*payment.WidgetSession, error)
	DisplayStatus(reference string) (order.AdvisoryOutcome, bool)
}

// CheckoutHandler handles payment widget and advisory endpoints
type CheckoutHandler struct {
	BaseHandler
	orderService *checkout.OrderService
	recon        *checkout.ReconciliationService
	gateway      PaymentGateway
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(orderService *checkout.OrderService, recon *checkout.ReconciliationService, gateway PaymentGateway) *CheckoutHandler {
	return &CheckoutHandler{
		orderService: orderService,
		recon:        recon,
		gateway:      gateway,
	}
}

// RegisterRoutes registers checkout routes
func (h *CheckoutHandler) RegisterRoutes(rg *gin.RouterGroup) {
	co := rg.Group("/checkout")
	{
		co.POST("/session", h.CreateSession)
		co.POST("/advisory", h.ReportAdvisory)
		co.GET("/advisory/:reference", h.DisplayStatus)
		co.GET("/gateway", h.GatewayState)
		co.POST("/gateway/retry", h.RetryGateway)
	}
}

// SessionRequest asks for a widget session for an existing order
type SessionRequest struct {
	Reference string `json:"reference" binding:"required"`
}

// CreateSession handles POST /checkout/session.
// The order must already be durable; the widget is only ever offered for a
// persisted reference, and only while payment is still open.
func (h *CheckoutHandler) CreateSession(c *gin.Context) {
	ownerID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	o, err := h.orderService.GetByReference(c.Request.Context(), ownerID, req.Reference)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	if o.PaymentStatus != order.PaymentStatusPending.String() {
		h.ErrorWithCode(c, dto.ErrCodeInvalidState, "Payment has already been finalized for this order")
		return
	}

	session, err := h.gateway.InitSession(c.Request.Context(), payment.SessionParams{
		Reference:  o.ExternalReference,
		Amount:     o.Total,
		PayerName:  o.Address.FullName,
		PayerPhone: o.Address.Phone,
	})
	if err != nil {
		h.handleGatewayError(c, err)
		return
	}

	h.Success(c, session)
}

// ReportAdvisory handles POST /checkout/advisory.
// Client-observed widget outcomes update display state only.
func (h *CheckoutHandler) ReportAdvisory(c *gin.Context) {
	if _, err := getUserID(c); err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req checkout.AdvisoryReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	signal := order.AdvisorySignal{
		Ref:     req.Reference,
		Outcome: order.AdvisoryOutcome(req.Outcome),
	}
	if err := h.recon.RecordAdvisory(c.Request.Context(), signal); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, gin.H{"reference": req.Reference, "outcome": req.Outcome})
}

// DisplayStatus handles GET /checkout/advisory/:reference
func (h *CheckoutHandler) DisplayStatus(c *gin.Context) {
	if _, err := getUserID(c); err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	reference := c.Param("reference")
	outcome, ok := h.gateway.DisplayStatus(reference)
	if !ok {
		h.NotFound(c, "No advisory outcome recorded for this reference")
		return
	}

	h.Success(c, gin.H{"reference": reference, "outcome": outcome})
}

// GatewayState handles GET /checkout/gateway
func (h *CheckoutHandler) GatewayState(c *gin.Context) {
	h.Success(c, gin.H{"state": h.gateway.State()})
}

// RetryGateway handles POST /checkout/gateway/retry
func (h *CheckoutHandler) RetryGateway(c *gin.Context) {
	if err := h.gateway.Retry(c.Request.Context()); err != nil {
		h.handleGatewayError(c, err)
		return
	}
	h.Success(c, gin.H{"state": h.gateway.State()})
}

func (h *CheckoutHandler) handleGatewayError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, payment.ErrNotReady):
		h.ErrorWithCode(c, dto.ErrCodeGatewayNotReady, "Payment widget has not been loaded yet")
	case errors.Is(err, payment.ErrUnavailable):
		h.ErrorWithCode(c, dto.ErrCodeGatewayUnavailable, "Payment widget is unavailable, retry the gateway")
	case errors.Is(err, payment.ErrClosed):
		h.ErrorWithCode(c, dto.ErrCodeGatewayUnavailable, "Payment gateway has been shut down")
	default:
		h.HandleDomainError(c, err)
	}
}
