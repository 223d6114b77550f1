package checkout

import (
	"context"

	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/order"
)

// AdvisoryPublisher forwards client-observed widget outcomes to whatever
// tracks display state (the gateway adapter). Advisory outcomes never touch
// the database.
type AdvisoryPublisher interface {
	ReportAdvisory(signal order.AdvisorySignal)
}

// ReconciliationService applies payment outcome signals to orders.
// Authoritative (webhook) signals finalize the persisted payment status via
// one conditional update; advisory (client) signals only update display
// state. The split makes at-least-once webhook delivery safe.
type ReconciliationService struct {
	orderRepo order.OrderRepository
	advisory  AdvisoryPublisher
	logger    *zap.Logger
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(orderRepo order.OrderRepository, logger *zap.Logger) *ReconciliationService {
	return &ReconciliationService{
		orderRepo: orderRepo,
		logger:    logger,
	}
}

// SetAdvisoryPublisher sets the sink for advisory outcome signals
func (s *ReconciliationService) SetAdvisoryPublisher(publisher AdvisoryPublisher) {
	s.advisory = publisher
}

// ApplyAuthoritative finalizes the payment status from a verified provider
// webhook. Repeated and late deliveries are no-ops; an unknown reference is
// logged and acknowledged so the provider stops retrying.
func (s *ReconciliationService) ApplyAuthoritative(ctx context.Context, signal order.AuthoritativeSignal) (order.OutcomeResult, error) {
	status := signal.PaymentStatus()
	if !status.IsTerminal() {
		// Non-final provider notifications (e.g. "processing") carry no
		// state change for us.
		s.logger.Debug("ignoring non-terminal provider status",
			zap.String("reference", signal.Ref),
			zap.String("provider_status", signal.ProviderStatus))
		return order.OutcomeAlreadyFinal, nil
	}

	result, err := s.orderRepo.ApplyPaymentOutcome(ctx, signal.Ref, status, signal.TransactionID)
	if err != nil {
		return result, err
	}

	switch result {
	case order.OutcomeApplied:
		s.logger.Info("payment outcome applied",
			zap.String("reference", signal.Ref),
			zap.String("payment_status", status.String()),
			zap.String("transaction_id", signal.TransactionID))
	case order.OutcomeAlreadyFinal:
		s.logger.Info("duplicate payment outcome ignored",
			zap.String("reference", signal.Ref),
			zap.String("payment_status", status.String()))
	case order.OutcomeUnknownReference:
		s.logger.Warn("payment outcome for unknown reference",
			zap.String("reference", signal.Ref),
			zap.String("provider_status", signal.ProviderStatus))
	}

	return result, nil
}

// RecordAdvisory records a client-observed widget outcome. It is forwarded
// for display purposes only, whatever the persisted payment status says.
func (s *ReconciliationService) RecordAdvisory(ctx context.Context, signal order.AdvisorySignal) error {
	s.logger.Info("advisory payment outcome recorded",
		zap.String("reference", signal.Ref),
		zap.String("outcome", string(signal.Outcome)))

	if s.advisory != nil {
		s.advisory.ReportAdvisory(signal)
	}
	return nil
}
