package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/storefront/backend/internal/application/checkout"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/infrastructure/payment"
	"github.com/storefront/backend/internal/interfaces/http/dto"
)

// SignatureHeader carries the provider's HMAC of the webhook body
const SignatureHeader = "X-Webhook-Signature"

// WebhookVerifier authenticates a provider delivery and parses it into an
// authoritative outcome signal.
type WebhookVerifier interface {
	VerifyWebhook(payload []byte, signature string) (order.AuthoritativeSignal, error)
}

// WebhookHandler handles provider webhook deliveries
type WebhookHandler struct {
	BaseHandler
	recon    *checkout.ReconciliationService
	verifier WebhookVerifier
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(recon *checkout.ReconciliationService, verifier WebhookVerifier) *WebhookHandler {
	return &WebhookHandler{
		recon:    recon,
		verifier: verifier,
	}
}

// RegisterRoutes registers webhook routes
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/webhooks/payment", h.PaymentWebhook)
}

// PaymentWebhook handles POST /webhooks/payment.
// Duplicate and unknown-reference deliveries are acknowledged with 200 so the
// provider stops retrying; only verification and parse failures are client
// errors, and only an application failure returns 5xx.
func (h *WebhookHandler) PaymentWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		h.BadRequest(c, "Unable to read webhook body")
		return
	}

	signal, err := h.verifier.VerifyWebhook(payload, c.GetHeader(SignatureHeader))
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrInvalidSignature):
			h.ErrorWithCode(c, dto.ErrCodeInvalidSignature, "Webhook signature verification failed")
		case errors.Is(err, payment.ErrMalformedPayload):
			h.BadRequest(c, "Malformed webhook payload")
		default:
			h.BadRequest(c, "Webhook rejected")
		}
		return
	}

	result, err := h.recon.ApplyAuthoritative(c.Request.Context(), signal)
	if err != nil {
		h.InternalError(c, "Failed to apply payment outcome")
		return
	}

	h.Success(c, gin.H{
		"reference": signal.Ref,
		"result":    result.String(),
	})
}
