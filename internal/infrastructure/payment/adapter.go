package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

const advisoryBuffer = 8

// WidgetAdapter fronts the provider's hosted payment widget.
//
// It owns three concerns: the script availability lifecycle (probe,
// terminal unavailable state, explicit retry), widget session creation
// for existing orders, and the advisory signal channel fed by
// client-observed widget outcomes. Webhook verification also lives here
// because it needs the provider shared secret.
type WidgetAdapter struct {
	config     *Config
	httpClient *http.Client
	logger     *zap.Logger

	mu          sync.Mutex
	state       State
	closed      bool
	nextSubID   int
	subscribers map[int]chan order.AdvisorySignal
	display     map[string]order.AdvisoryOutcome
}

// NewWidgetAdapter creates a new widget gateway adapter.
// Configuration errors are surfaced here, before any checkout runs.
func NewWidgetAdapter(config *Config, logger *zap.Logger) (*WidgetAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &WidgetAdapter{
		config:      config,
		httpClient:  &http.Client{Timeout: config.LoadTimeout},
		logger:      logger.Named("widget"),
		state:       StateNotReady,
		subscribers: make(map[int]chan order.AdvisorySignal),
		display:     make(map[string]order.AdvisoryOutcome),
	}, nil
}

// State returns the current gateway state
func (a *WidgetAdapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Load probes the provider script once. A failed probe leaves the
// gateway unavailable until Retry; it never flaps back by itself.
func (a *WidgetAdapter) Load(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrClosed
	}
	a.mu.Unlock()

	probeCtx, cancel := context.WithTimeout(ctx, a.config.LoadTimeout)
	defer cancel()

	err := a.probe(probeCtx)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.state = StateUnavailable
		a.logger.Warn("widget script probe failed", zap.String("url", a.config.ScriptURL), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	a.state = StateReady
	a.logger.Info("widget script loaded", zap.String("url", a.config.ScriptURL))
	return nil
}

// Retry re-runs the script probe after a failure
func (a *WidgetAdapter) Retry(ctx context.Context) error {
	return a.Load(ctx)
}

func (a *WidgetAdapter) probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.config.ScriptURL, nil)
	if err != nil {
		return err
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("script endpoint returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// InitSession creates a widget session for an existing order.
// The order must be durable before the widget is offered; callers pass
// the persisted order's reference, total and payer. The redirect and
// callback destinations come from the gateway configuration.
func (a *WidgetAdapter) InitSession(ctx context.Context, params SessionParams) (*WidgetSession, error) {
	if params.Reference == "" {
		return nil, fmt.Errorf("%w: session requires an order reference", ErrNotReady)
	}

	a.mu.Lock()
	state := a.state
	closed := a.closed
	a.mu.Unlock()

	if closed {
		return nil, ErrClosed
	}
	switch state {
	case StateNotReady:
		return nil, ErrNotReady
	case StateUnavailable:
		return nil, ErrUnavailable
	}

	money, err := valueobject.NewMoney(params.Amount, valueobject.Currency(a.config.CurrencyCode))
	if err != nil {
		return nil, fmt.Errorf("widget: %w", err)
	}

	return &WidgetSession{
		Reference:   params.Reference,
		ChannelID:   a.config.ChannelID,
		Amount:      money,
		PayerName:   params.PayerName,
		PayerPhone:  params.PayerPhone,
		ScriptURL:   a.config.ScriptURL,
		SuccessURL:  a.config.SuccessURL,
		FailureURL:  a.config.FailureURL,
		CallbackURL: a.config.CallbackURL,
		CreatedAt:   time.Now(),
	}, nil
}

// Subscribe registers an advisory signal consumer. The returned cancel
// function removes the subscription; Close removes all of them.
func (a *WidgetAdapter) Subscribe() (<-chan order.AdvisorySignal, func()) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ch := make(chan order.AdvisorySignal, advisoryBuffer)
	if a.closed {
		close(ch)
		return ch, func() {}
	}

	id := a.nextSubID
	a.nextSubID++
	a.subscribers[id] = ch

	cancel := func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if sub, ok := a.subscribers[id]; ok {
			delete(a.subscribers, id)
			close(sub)
		}
	}
	return ch, cancel
}

// ReportAdvisory records a client-observed widget outcome and fans it
// out to subscribers. The fan-out never blocks: a subscriber that has
// fallen behind misses the signal rather than wedging the adapter.
func (a *WidgetAdapter) ReportAdvisory(signal order.AdvisorySignal) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}

	a.display[signal.Ref] = signal.Outcome

	for id, ch := range a.subscribers {
		select {
		case ch <- signal:
		default:
			a.logger.Warn("advisory subscriber lagging, signal dropped",
				zap.Int("subscriber", id),
				zap.String("reference", signal.Ref))
		}
	}
}

// DisplayStatus returns the last advisory outcome reported for a
// reference. Display state only; the persisted payment status is owned
// by the reconciliation path.
func (a *WidgetAdapter) DisplayStatus(reference string) (order.AdvisoryOutcome, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	outcome, ok := a.display[reference]
	return outcome, ok
}

// VerifyWebhook authenticates a provider webhook delivery and parses it
// into an authoritative outcome signal. The signature is an HMAC-SHA256
// hex digest of the raw body under the shared secret.
func (a *WidgetAdapter) VerifyWebhook(payload []byte, signature string) (order.AuthoritativeSignal, error) {
	mac := hmac.New(sha256.New, []byte(a.config.SharedSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return order.AuthoritativeSignal{}, ErrInvalidSignature
	}

	var event webhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return order.AuthoritativeSignal{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if event.Reference == "" {
		return order.AuthoritativeSignal{}, fmt.Errorf("%w: missing reference", ErrMalformedPayload)
	}

	return order.AuthoritativeSignal{
		Ref:            event.Reference,
		ProviderStatus: event.Status,
		TransactionID:  event.TransactionID,
	}, nil
}

// Sign computes the webhook signature for a payload. Used by tests and
// by tooling that replays deliveries.
func (a *WidgetAdapter) Sign(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(a.config.SharedSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Close tears down every advisory subscription deterministically
func (a *WidgetAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true

	for id, ch := range a.subscribers {
		delete(a.subscribers, id)
		close(ch)
	}
	return nil
}
