package order

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAddress() Address {
	return Address{
		FullName: "Jane Wanjiku",
		Phone:    "+254700000001",
		Email:    "jane@example.com",
		Line1:    "12 Riverside Drive",
		City:     "Nairobi",
		Country:  "KE",
	}
}

func testBreakdown() Breakdown {
	return Breakdown{
		Subtotal:  decimal.RequireFromString("2500"),
		TaxRate:   decimal.RequireFromString("0.16"),
		TaxAmount: decimal.RequireFromString("400"),
		Total:     decimal.RequireFromString("2900"),
	}
}

func createTestOrder(t *testing.T) *Order {
	t.Helper()
	cart := testCart(line("1000", 2), line("500", 1))
	order, err := NewOrder(uuid.New(), "INV-1756400000000-000001", cart, testBreakdown(), testAddress())
	require.NoError(t, err)
	return order
}

// ============================================
// OrderStatus Tests
// ============================================

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from     OrderStatus
		to       OrderStatus
		canTrans bool
	}{
		// From PENDING
		{OrderStatusPending, OrderStatusProcessing, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusShipped, false},
		{OrderStatusPending, OrderStatusDelivered, false},
		// From PROCESSING
		{OrderStatusProcessing, OrderStatusShipped, true},
		{OrderStatusProcessing, OrderStatusCancelled, false},
		{OrderStatusProcessing, OrderStatusPending, false},
		{OrderStatusProcessing, OrderStatusDelivered, false},
		// From SHIPPED
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusCancelled, false},
		{OrderStatusShipped, OrderStatusPending, false},
		// From DELIVERED (terminal)
		{OrderStatusDelivered, OrderStatusPending, false},
		{OrderStatusDelivered, OrderStatusProcessing, false},
		{OrderStatusDelivered, OrderStatusShipped, false},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		// From CANCELLED (terminal)
		{OrderStatusCancelled, OrderStatusPending, false},
		{OrderStatusCancelled, OrderStatusProcessing, false},
		{OrderStatusCancelled, OrderStatusShipped, false},
		{OrderStatusCancelled, OrderStatusDelivered, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.canTrans, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestOrderStatus_IsTerminal(t *testing.T) {
	assert.False(t, OrderStatusPending.IsTerminal())
	assert.False(t, OrderStatusProcessing.IsTerminal())
	assert.False(t, OrderStatusShipped.IsTerminal())
	assert.True(t, OrderStatusDelivered.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
}

func TestPaymentStatus_IsTerminal(t *testing.T) {
	assert.False(t, PaymentStatusPending.IsTerminal())
	assert.True(t, PaymentStatusCompleted.IsTerminal())
	assert.True(t, PaymentStatusFailed.IsTerminal())
}

// ============================================
// NewOrder Tests
// ============================================

func TestNewOrder(t *testing.T) {
	t.Run("creates pending order with snapshot items", func(t *testing.T) {
		order := createTestOrder(t)

		assert.Equal(t, OrderStatusPending, order.Status)
		assert.Equal(t, PaymentStatusPending, order.PaymentStatus)
		assert.Len(t, order.Items, 2)
		assert.True(t, order.Total.Equal(decimal.RequireFromString("2900")))
		assert.True(t, order.Items[0].Amount.Equal(decimal.RequireFromString("2000")))
		assert.Empty(t, order.TransactionID)
		assert.Nil(t, order.PaidAt)
	})

	t.Run("rejects empty cart", func(t *testing.T) {
		_, err := NewOrder(uuid.New(), "INV-1", CartSnapshot{}, testBreakdown(), testAddress())
		assert.Error(t, err)
	})

	t.Run("rejects empty owner", func(t *testing.T) {
		_, err := NewOrder(uuid.Nil, "INV-1", testCart(line("10", 1)), testBreakdown(), testAddress())
		assert.Error(t, err)
	})

	t.Run("rejects empty reference", func(t *testing.T) {
		_, err := NewOrder(uuid.New(), "", testCart(line("10", 1)), testBreakdown(), testAddress())
		assert.Error(t, err)
	})

	t.Run("rejects incomplete address", func(t *testing.T) {
		addr := testAddress()
		addr.City = ""
		_, err := NewOrder(uuid.New(), "INV-1", testCart(line("10", 1)), testBreakdown(), addr)
		assert.Error(t, err)
	})
}

// ============================================
// Payment outcome Tests
// ============================================

func TestOrder_ApplyPaymentOutcome(t *testing.T) {
	t.Run("completed payment advances order to processing", func(t *testing.T) {
		order := createTestOrder(t)

		applied, err := order.ApplyPaymentOutcome(PaymentStatusCompleted, "txn-123")
		require.NoError(t, err)
		assert.True(t, applied)
		assert.Equal(t, PaymentStatusCompleted, order.PaymentStatus)
		assert.Equal(t, OrderStatusProcessing, order.Status)
		assert.Equal(t, "txn-123", order.TransactionID)
		require.NotNil(t, order.PaidAt)
	})

	t.Run("failed payment leaves order pending for retry", func(t *testing.T) {
		order := createTestOrder(t)

		applied, err := order.ApplyPaymentOutcome(PaymentStatusFailed, "txn-456")
		require.NoError(t, err)
		assert.True(t, applied)
		assert.Equal(t, PaymentStatusFailed, order.PaymentStatus)
		assert.Equal(t, OrderStatusPending, order.Status)
	})

	t.Run("terminal payment status never changes again", func(t *testing.T) {
		order := createTestOrder(t)

		applied, err := order.ApplyPaymentOutcome(PaymentStatusCompleted, "txn-1")
		require.NoError(t, err)
		require.True(t, applied)

		// duplicate delivery
		applied, err = order.ApplyPaymentOutcome(PaymentStatusCompleted, "txn-1")
		require.NoError(t, err)
		assert.False(t, applied)

		// conflicting later signal is a no-op too
		applied, err = order.ApplyPaymentOutcome(PaymentStatusFailed, "txn-2")
		require.NoError(t, err)
		assert.False(t, applied)
		assert.Equal(t, PaymentStatusCompleted, order.PaymentStatus)
		assert.Equal(t, "txn-1", order.TransactionID)
	})

	t.Run("rejects non-terminal target status", func(t *testing.T) {
		order := createTestOrder(t)
		_, err := order.ApplyPaymentOutcome(PaymentStatusPending, "txn")
		assert.Error(t, err)
	})
}

// ============================================
// Fulfillment & cancellation Tests
// ============================================

func TestOrder_Fulfillment(t *testing.T) {
	order := createTestOrder(t)

	_, err := order.ApplyPaymentOutcome(PaymentStatusCompleted, "txn-1")
	require.NoError(t, err)

	require.NoError(t, order.Ship())
	assert.Equal(t, OrderStatusShipped, order.Status)
	require.NotNil(t, order.ShippedAt)

	require.NoError(t, order.Deliver())
	assert.Equal(t, OrderStatusDelivered, order.Status)
	require.NotNil(t, order.DeliveredAt)

	// delivered is terminal
	assert.Error(t, order.Ship())
	assert.Error(t, order.Cancel())
}

func TestOrder_Cancel(t *testing.T) {
	t.Run("cancels while pending", func(t *testing.T) {
		order := createTestOrder(t)
		require.NoError(t, order.Cancel())
		assert.Equal(t, OrderStatusCancelled, order.Status)
		require.NotNil(t, order.CancelledAt)

		// cancelled is terminal
		assert.Error(t, order.Cancel())
	})

	t.Run("cannot cancel once processing", func(t *testing.T) {
		order := createTestOrder(t)
		_, err := order.ApplyPaymentOutcome(PaymentStatusCompleted, "txn-1")
		require.NoError(t, err)

		assert.Error(t, order.Cancel())
		assert.Equal(t, OrderStatusProcessing, order.Status)
	})
}

func TestOrder_IsOwnedBy(t *testing.T) {
	order := createTestOrder(t)
	assert.True(t, order.IsOwnedBy(order.OwnerID))
	assert.False(t, order.IsOwnedBy(uuid.New()))
}

// ============================================
// OutcomeSignal Tests
// ============================================

func TestOutcomeSignals(t *testing.T) {
	advisory := AdvisorySignal{Ref: "INV-1", Outcome: AdvisoryFailure}
	assert.False(t, advisory.Authoritative())
	assert.Equal(t, "INV-1", advisory.Reference())

	authoritative := AuthoritativeSignal{Ref: "INV-1", ProviderStatus: "completed", TransactionID: "txn"}
	assert.True(t, authoritative.Authoritative())
}

func TestAuthoritativeSignal_PaymentStatus(t *testing.T) {
	tests := []struct {
		provider string
		want     PaymentStatus
	}{
		{"completed", PaymentStatusCompleted},
		{"COMPLETED", PaymentStatusCompleted},
		{"success", PaymentStatusCompleted},
		{"paid", PaymentStatusCompleted},
		{"failed", PaymentStatusFailed},
		{"cancelled", PaymentStatusFailed},
		{"declined", PaymentStatusFailed},
		{"processing", PaymentStatusPending},
		{"", PaymentStatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			sig := AuthoritativeSignal{Ref: "r", ProviderStatus: tt.provider}
			assert.Equal(t, tt.want, sig.PaymentStatus())
		})
	}
}
