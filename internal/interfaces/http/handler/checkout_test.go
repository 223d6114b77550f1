package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/application/checkout"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/storefront/backend/internal/infrastructure/payment"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// fakeGateway implements PaymentGateway for testing
type fakeGateway struct {
	state      payment.State
	initErr    error
	retryErr   error
	display    map[string]order.AdvisoryOutcome
	lastParams payment.SessionParams
	retried    bool
	signals    []order.AdvisorySignal
}

func (g *fakeGateway) State() payment.State { return g.state }

func (g *fakeGateway) Retry(ctx context.Context) error {
	g.retried = true
	if g.retryErr != nil {
		return g.retryErr
	}
	g.state = payment.StateReady
	return nil
}

func (g *fakeGateway) InitSession(ctx context.Context, params payment.SessionParams) (*payment.WidgetSession, error) {
	if g.initErr != nil {
		return nil, g.initErr
	}
	g.lastParams = params
	return &payment.WidgetSession{
		Reference:   params.Reference,
		ChannelID:   "channel-1",
		Amount:      valueobject.NewMoneyKES(params.Amount),
		PayerName:   params.PayerName,
		PayerPhone:  params.PayerPhone,
		ScriptURL:   "https://cdn.example.com/widget.js",
		SuccessURL:  "https://shop.example.com/checkout/success",
		FailureURL:  "https://shop.example.com/checkout/failure",
		CallbackURL: "https://shop.example.com/api/v1/webhooks/payment",
		CreatedAt:   time.Now(),
	}, nil
}

func (g *fakeGateway) DisplayStatus(reference string) (order.AdvisoryOutcome, bool) {
	outcome, ok := g.display[reference]
	return outcome, ok
}

func (g *fakeGateway) ReportAdvisory(signal order.AdvisorySignal) {
	g.signals = append(g.signals, signal)
}

func setupCheckoutTestRouter(ownerID uuid.UUID, gateway *fakeGateway) (*gin.Engine, *MockOrderRepository) {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()

	orderRepo := new(MockOrderRepository)
	productRepo := new(MockProductRepository)
	orderService := newOrderService(orderRepo, productRepo)
	recon := checkout.NewReconciliationService(orderRepo, zap.NewNop())
	recon.SetAdvisoryPublisher(gateway)
	handler := NewCheckoutHandler(orderService, recon, gateway)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		if ownerID != uuid.Nil {
			c.Set(middleware.JWTUserIDKey, ownerID.String())
		}
		c.Next()
	})

	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	return router, orderRepo
}

func TestCheckoutHandler_CreateSession(t *testing.T) {
	ownerID := uuid.New()

	t.Run("creates a widget session for a pending owned order", func(t *testing.T) {
		gateway := &fakeGateway{state: payment.StateReady}
		router, orderRepo := setupCheckoutTestRouter(ownerID, gateway)
		o := pendingOrder(t, ownerID, "INV-1")

		orderRepo.On("FindByReference", mock.Anything, "INV-1").Return(o, nil)

		w := performJSON(router, http.MethodPost, "/api/v1/checkout/session", gin.H{"reference": "INV-1"})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "INV-1", gateway.lastParams.Reference)
		assert.Contains(t, w.Body.String(), "channel-1")
	})

	t.Run("passes the payer from the order's shipping address", func(t *testing.T) {
		gateway := &fakeGateway{state: payment.StateReady}
		router, orderRepo := setupCheckoutTestRouter(ownerID, gateway)
		o := pendingOrder(t, ownerID, "INV-1")

		orderRepo.On("FindByReference", mock.Anything, "INV-1").Return(o, nil)

		w := performJSON(router, http.MethodPost, "/api/v1/checkout/session", gin.H{"reference": "INV-1"})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Jane Wanjiku", gateway.lastParams.PayerName)
		assert.Equal(t, "+254700000001", gateway.lastParams.PayerPhone)
		assert.True(t, gateway.lastParams.Amount.Equal(o.Total))
		assert.Contains(t, w.Body.String(), "success_url")
		assert.Contains(t, w.Body.String(), "callback_url")
	})

	t.Run("refuses when the widget never loaded", func(t *testing.T) {
		gateway := &fakeGateway{state: payment.StateNotReady, initErr: payment.ErrNotReady}
		router, orderRepo := setupCheckoutTestRouter(ownerID, gateway)
		o := pendingOrder(t, ownerID, "INV-1")

		orderRepo.On("FindByReference", mock.Anything, "INV-1").Return(o, nil)

		w := performJSON(router, http.MethodPost, "/api/v1/checkout/session", gin.H{"reference": "INV-1"})

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "GATEWAY_NOT_READY")
	})

	t.Run("refuses once payment is finalized", func(t *testing.T) {
		gateway := &fakeGateway{state: payment.StateReady}
		router, orderRepo := setupCheckoutTestRouter(ownerID, gateway)
		o := pendingOrder(t, ownerID, "INV-1")
		_, err := o.ApplyPaymentOutcome(order.PaymentStatusCompleted, "txn-1")
		assert.NoError(t, err)

		orderRepo.On("FindByReference", mock.Anything, "INV-1").Return(o, nil)

		w := performJSON(router, http.MethodPost, "/api/v1/checkout/session", gin.H{"reference": "INV-1"})

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Empty(t, gateway.lastParams.Reference)
	})

	t.Run("hides a foreign order", func(t *testing.T) {
		gateway := &fakeGateway{state: payment.StateReady}
		router, orderRepo := setupCheckoutTestRouter(ownerID, gateway)
		o := pendingOrder(t, uuid.New(), "INV-9")

		orderRepo.On("FindByReference", mock.Anything, "INV-9").Return(o, nil)

		w := performJSON(router, http.MethodPost, "/api/v1/checkout/session", gin.H{"reference": "INV-9"})

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestCheckoutHandler_Advisory(t *testing.T) {
	ownerID := uuid.New()

	t.Run("forwards a client-observed outcome to the gateway", func(t *testing.T) {
		gateway := &fakeGateway{state: payment.StateReady}
		router, _ := setupCheckoutTestRouter(ownerID, gateway)

		w := performJSON(router, http.MethodPost, "/api/v1/checkout/advisory",
			gin.H{"reference": "INV-1", "outcome": "SUCCESS"})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, gateway.signals, 1)
		assert.Equal(t, order.AdvisorySuccess, gateway.signals[0].Outcome)
	})

	t.Run("rejects an unknown outcome value", func(t *testing.T) {
		gateway := &fakeGateway{state: payment.StateReady}
		router, _ := setupCheckoutTestRouter(ownerID, gateway)

		w := performJSON(router, http.MethodPost, "/api/v1/checkout/advisory",
			gin.H{"reference": "INV-1", "outcome": "MAYBE"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, gateway.signals)
	})

	t.Run("returns the recorded display status", func(t *testing.T) {
		gateway := &fakeGateway{
			state:   payment.StateReady,
			display: map[string]order.AdvisoryOutcome{"INV-1": order.AdvisoryFailure},
		}
		router, _ := setupCheckoutTestRouter(ownerID, gateway)

		w := performJSON(router, http.MethodGet, "/api/v1/checkout/advisory/INV-1", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "FAILURE")
	})

	t.Run("returns 404 when nothing was reported", func(t *testing.T) {
		gateway := &fakeGateway{state: payment.StateReady}
		router, _ := setupCheckoutTestRouter(ownerID, gateway)

		w := performJSON(router, http.MethodGet, "/api/v1/checkout/advisory/INV-unknown", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestCheckoutHandler_Gateway(t *testing.T) {
	ownerID := uuid.New()

	t.Run("reports the gateway state", func(t *testing.T) {
		gateway := &fakeGateway{state: payment.StateUnavailable}
		router, _ := setupCheckoutTestRouter(ownerID, gateway)

		w := performJSON(router, http.MethodGet, "/api/v1/checkout/gateway", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "UNAVAILABLE")
	})

	t.Run("retry re-probes the script", func(t *testing.T) {
		gateway := &fakeGateway{state: payment.StateUnavailable}
		router, _ := setupCheckoutTestRouter(ownerID, gateway)

		w := performJSON(router, http.MethodPost, "/api/v1/checkout/gateway/retry", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, gateway.retried)
		assert.Contains(t, w.Body.String(), "READY")
	})

	t.Run("failed retry surfaces unavailability", func(t *testing.T) {
		gateway := &fakeGateway{state: payment.StateUnavailable, retryErr: payment.ErrUnavailable}
		router, _ := setupCheckoutTestRouter(ownerID, gateway)

		w := performJSON(router, http.MethodPost, "/api/v1/checkout/gateway/retry", nil)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "GATEWAY_UNAVAILABLE")
	})
}
