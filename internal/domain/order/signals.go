package order

import "strings"

// AdvisoryOutcome is the client-reported result of the hosted payment widget
type AdvisoryOutcome string

const (
	AdvisorySuccess AdvisoryOutcome = "SUCCESS"
	AdvisoryFailure AdvisoryOutcome = "FAILURE"
)

// OutcomeSignal is a tagged variant over the two payment outcome channels.
// Only authoritative signals may change persisted state; advisory signals
// inform display state only.
type OutcomeSignal interface {
	// Reference is the external order reference the signal is about
	Reference() string
	// Authoritative reports whether the signal may mutate persisted state
	Authoritative() bool
}

// AdvisorySignal is a client-observed widget outcome. It is never trusted:
// it updates display status only, regardless of arrival order relative to
// the provider webhook.
type AdvisorySignal struct {
	Ref     string
	Outcome AdvisoryOutcome
}

// Reference returns the external order reference
func (s AdvisorySignal) Reference() string { return s.Ref }

// Authoritative always returns false for advisory signals
func (s AdvisorySignal) Authoritative() bool { return false }

// AuthoritativeSignal is a server-verified webhook delivery from the
// payment provider, the only source allowed to finalize PaymentStatus.
type AuthoritativeSignal struct {
	Ref            string
	ProviderStatus string
	TransactionID  string
}

// Reference returns the external order reference
func (s AuthoritativeSignal) Reference() string { return s.Ref }

// Authoritative always returns true for webhook signals
func (s AuthoritativeSignal) Authoritative() bool { return true }

// PaymentStatus maps the provider status vocabulary onto the order's
// payment state machine. Unknown values map to pending (not applied).
func (s AuthoritativeSignal) PaymentStatus() PaymentStatus {
	switch strings.ToLower(s.ProviderStatus) {
	case "completed", "complete", "success", "paid":
		return PaymentStatusCompleted
	case "failed", "failure", "cancelled", "declined":
		return PaymentStatusFailed
	default:
		return PaymentStatusPending
	}
}
