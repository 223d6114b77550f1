package payment

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// State is the lifecycle state of the widget gateway
type State string

const (
	// StateNotReady means the widget script has not been loaded yet
	StateNotReady State = "NOT_READY"
	// StateReady means the widget script probe succeeded
	StateReady State = "READY"
	// StateUnavailable means the probe failed; an explicit Retry is required
	StateUnavailable State = "UNAVAILABLE"
)

// Gateway runtime errors
var (
	// ErrNotReady is returned when a session is requested before the
	// widget script has been loaded.
	ErrNotReady = errors.New("widget: script not loaded")
	// ErrUnavailable is returned when the script probe failed and the
	// gateway is waiting for an explicit retry.
	ErrUnavailable = errors.New("widget: script unavailable")
	// ErrClosed is returned after the adapter has been shut down
	ErrClosed = errors.New("widget: adapter closed")
	// ErrInvalidSignature is returned when a webhook signature does not
	// match the shared secret.
	ErrInvalidSignature = errors.New("widget: invalid webhook signature")
	// ErrMalformedPayload is returned when a webhook body cannot be parsed
	ErrMalformedPayload = errors.New("widget: malformed webhook payload")
)

// SessionParams identifies the order a widget session collects for and
// the customer paying it. The payer fields come from the order's
// shipping address; the provider shows them inside the widget.
type SessionParams struct {
	Reference  string
	Amount     decimal.Decimal
	PayerName  string
	PayerPhone string
}

// WidgetSession is the material the client needs to mount the hosted
// payment widget for an existing order: the order reference and amount,
// the payer, and the three destinations the widget is configured with.
type WidgetSession struct {
	Reference   string            `json:"reference"`
	ChannelID   string            `json:"channel_id"`
	Amount      valueobject.Money `json:"amount"`
	PayerName   string            `json:"payer_name"`
	PayerPhone  string            `json:"payer_phone"`
	ScriptURL   string            `json:"script_url"`
	SuccessURL  string            `json:"success_url"`
	FailureURL  string            `json:"failure_url"`
	CallbackURL string            `json:"callback_url"`
	CreatedAt   time.Time         `json:"created_at"`
}

// webhookEvent is the provider's webhook body
type webhookEvent struct {
	Reference     string `json:"reference"`
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
}
