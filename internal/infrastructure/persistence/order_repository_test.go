package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&catalog.Product{}, &order.Order{}, &order.LineItem{})
	require.NoError(t, err)

	return db
}

func buildOrder(t *testing.T, ownerID uuid.UUID, reference string) *order.Order {
	t.Helper()
	cart := order.CartSnapshot{Items: []order.CartLine{
		{ProductID: uuid.New(), Name: "Ceramic Mug", UnitPrice: decimal.RequireFromString("1000"), Quantity: 2},
		{ProductID: uuid.New(), Name: "Tea Towel", UnitPrice: decimal.RequireFromString("500"), Quantity: 1},
	}}
	breakdown := order.Breakdown{
		Subtotal:  decimal.RequireFromString("2500"),
		TaxRate:   decimal.RequireFromString("0.16"),
		TaxAmount: decimal.RequireFromString("400"),
		Total:     decimal.RequireFromString("2900"),
	}
	address := order.Address{
		FullName: "Jane Wanjiku",
		Phone:    "+254700000001",
		Line1:    "12 Riverside Drive",
		City:     "Nairobi",
		Country:  "KE",
	}
	o, err := order.NewOrder(ownerID, reference, cart, breakdown, address)
	require.NoError(t, err)
	return o
}

func TestGormOrderRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("persists order with line items", func(t *testing.T) {
		repo := NewGormOrderRepository(setupTestDB(t))
		ownerID := uuid.New()
		o := buildOrder(t, ownerID, "INV-100-000001")

		require.NoError(t, repo.Create(ctx, o))

		loaded, err := repo.FindByID(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, "INV-100-000001", loaded.ExternalReference)
		assert.Equal(t, ownerID, loaded.OwnerID)
		assert.Len(t, loaded.Items, 2)
		assert.True(t, loaded.Total.Equal(decimal.RequireFromString("2900")))
		assert.Equal(t, order.OrderStatusPending, loaded.Status)
		assert.Equal(t, order.PaymentStatusPending, loaded.PaymentStatus)
	})

	t.Run("reports duplicate external reference", func(t *testing.T) {
		repo := NewGormOrderRepository(setupTestDB(t))
		ownerID := uuid.New()

		require.NoError(t, repo.Create(ctx, buildOrder(t, ownerID, "INV-dup")))

		err := repo.Create(ctx, buildOrder(t, ownerID, "INV-dup"))
		assert.ErrorIs(t, err, order.ErrDuplicateReference)
	})
}

func TestGormOrderRepository_FindByReference(t *testing.T) {
	ctx := context.Background()
	repo := NewGormOrderRepository(setupTestDB(t))

	o := buildOrder(t, uuid.New(), "INV-ref-1")
	require.NoError(t, repo.Create(ctx, o))

	loaded, err := repo.FindByReference(ctx, "INV-ref-1")
	require.NoError(t, err)
	assert.Equal(t, o.ID, loaded.ID)
	assert.Len(t, loaded.Items, 2)

	_, err = repo.FindByReference(ctx, "INV-missing")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormOrderRepository_FindByOwner(t *testing.T) {
	ctx := context.Background()
	repo := NewGormOrderRepository(setupTestDB(t))
	ownerID := uuid.New()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, buildOrder(t, ownerID, "INV-own-"+uuid.NewString()[:8])))
	}
	// another owner's order must not leak in
	require.NoError(t, repo.Create(ctx, buildOrder(t, uuid.New(), "INV-other")))

	orders, total, err := repo.FindByOwner(ctx, ownerID, shared.Filter{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, orders, 2)

	orders, total, err = repo.FindByOwner(ctx, ownerID, shared.Filter{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, orders, 1)
}

func TestGormOrderRepository_ApplyPaymentOutcome(t *testing.T) {
	ctx := context.Background()

	t.Run("completed outcome finalizes payment and starts fulfillment", func(t *testing.T) {
		repo := NewGormOrderRepository(setupTestDB(t))
		o := buildOrder(t, uuid.New(), "INV-pay-1")
		require.NoError(t, repo.Create(ctx, o))

		result, err := repo.ApplyPaymentOutcome(ctx, "INV-pay-1", order.PaymentStatusCompleted, "txn-1")
		require.NoError(t, err)
		assert.Equal(t, order.OutcomeApplied, result)

		loaded, err := repo.FindByID(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, order.PaymentStatusCompleted, loaded.PaymentStatus)
		assert.Equal(t, order.OrderStatusProcessing, loaded.Status)
		assert.Equal(t, "txn-1", loaded.TransactionID)
		require.NotNil(t, loaded.PaidAt)
		assert.Equal(t, 2, loaded.Version)
	})

	t.Run("failed outcome leaves the order pending for retry", func(t *testing.T) {
		repo := NewGormOrderRepository(setupTestDB(t))
		o := buildOrder(t, uuid.New(), "INV-pay-2")
		require.NoError(t, repo.Create(ctx, o))

		result, err := repo.ApplyPaymentOutcome(ctx, "INV-pay-2", order.PaymentStatusFailed, "txn-2")
		require.NoError(t, err)
		assert.Equal(t, order.OutcomeApplied, result)

		loaded, err := repo.FindByID(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, order.PaymentStatusFailed, loaded.PaymentStatus)
		assert.Equal(t, order.OrderStatusPending, loaded.Status)
		assert.Nil(t, loaded.PaidAt)
	})

	t.Run("repeated delivery is a no-op", func(t *testing.T) {
		repo := NewGormOrderRepository(setupTestDB(t))
		o := buildOrder(t, uuid.New(), "INV-pay-3")
		require.NoError(t, repo.Create(ctx, o))

		result, err := repo.ApplyPaymentOutcome(ctx, "INV-pay-3", order.PaymentStatusCompleted, "txn-3")
		require.NoError(t, err)
		require.Equal(t, order.OutcomeApplied, result)

		// duplicate webhook
		result, err = repo.ApplyPaymentOutcome(ctx, "INV-pay-3", order.PaymentStatusCompleted, "txn-3")
		require.NoError(t, err)
		assert.Equal(t, order.OutcomeAlreadyFinal, result)

		// conflicting late signal must not overwrite
		result, err = repo.ApplyPaymentOutcome(ctx, "INV-pay-3", order.PaymentStatusFailed, "txn-9")
		require.NoError(t, err)
		assert.Equal(t, order.OutcomeAlreadyFinal, result)

		loaded, err := repo.FindByID(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, order.PaymentStatusCompleted, loaded.PaymentStatus)
		assert.Equal(t, "txn-3", loaded.TransactionID)
	})

	t.Run("unknown reference is reported, not an error", func(t *testing.T) {
		repo := NewGormOrderRepository(setupTestDB(t))

		result, err := repo.ApplyPaymentOutcome(ctx, "INV-ghost", order.PaymentStatusCompleted, "txn")
		require.NoError(t, err)
		assert.Equal(t, order.OutcomeUnknownReference, result)
	})
}

func TestGormOrderRepository_CancelPending(t *testing.T) {
	ctx := context.Background()

	t.Run("cancels a pending order for its owner", func(t *testing.T) {
		repo := NewGormOrderRepository(setupTestDB(t))
		ownerID := uuid.New()
		o := buildOrder(t, ownerID, "INV-cancel-1")
		require.NoError(t, repo.Create(ctx, o))

		applied, err := repo.CancelPending(ctx, o.ID, ownerID)
		require.NoError(t, err)
		assert.True(t, applied)

		loaded, err := repo.FindByID(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, order.OrderStatusCancelled, loaded.Status)
		require.NotNil(t, loaded.CancelledAt)
	})

	t.Run("refuses once payment completed", func(t *testing.T) {
		repo := NewGormOrderRepository(setupTestDB(t))
		ownerID := uuid.New()
		o := buildOrder(t, ownerID, "INV-cancel-2")
		require.NoError(t, repo.Create(ctx, o))

		_, err := repo.ApplyPaymentOutcome(ctx, "INV-cancel-2", order.PaymentStatusCompleted, "txn")
		require.NoError(t, err)

		applied, err := repo.CancelPending(ctx, o.ID, ownerID)
		require.NoError(t, err)
		assert.False(t, applied)
	})

	t.Run("refuses a foreign owner", func(t *testing.T) {
		repo := NewGormOrderRepository(setupTestDB(t))
		o := buildOrder(t, uuid.New(), "INV-cancel-3")
		require.NoError(t, repo.Create(ctx, o))

		applied, err := repo.CancelPending(ctx, o.ID, uuid.New())
		require.NoError(t, err)
		assert.False(t, applied)
	})
}

func TestGormOrderRepository_AdvanceFulfillment(t *testing.T) {
	ctx := context.Background()
	repo := NewGormOrderRepository(setupTestDB(t))
	o := buildOrder(t, uuid.New(), "INV-ship-1")
	require.NoError(t, repo.Create(ctx, o))

	// not yet processing
	applied, err := repo.AdvanceFulfillment(ctx, o.ID, order.OrderStatusProcessing, order.OrderStatusShipped)
	require.NoError(t, err)
	assert.False(t, applied)

	_, err = repo.ApplyPaymentOutcome(ctx, "INV-ship-1", order.PaymentStatusCompleted, "txn")
	require.NoError(t, err)

	applied, err = repo.AdvanceFulfillment(ctx, o.ID, order.OrderStatusProcessing, order.OrderStatusShipped)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = repo.AdvanceFulfillment(ctx, o.ID, order.OrderStatusShipped, order.OrderStatusDelivered)
	require.NoError(t, err)
	assert.True(t, applied)

	loaded, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderStatusDelivered, loaded.Status)
	require.NotNil(t, loaded.ShippedAt)
	require.NotNil(t, loaded.DeliveredAt)

	// illegal edge is rejected outright
	_, err = repo.AdvanceFulfillment(ctx, o.ID, order.OrderStatusDelivered, order.OrderStatusShipped)
	assert.Error(t, err)
}

func TestGormProductRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormProductRepository(setupTestDB(t))

	product, err := catalog.NewProduct("Ceramic Mug", "MUG-01", decimal.RequireFromString("1000"), 25)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, product))

	t.Run("finds product with authoritative price and stock", func(t *testing.T) {
		loaded, err := repo.FindByID(ctx, product.ID)
		require.NoError(t, err)
		assert.Equal(t, "MUG-01", loaded.Code)
		assert.True(t, loaded.Price.Equal(decimal.RequireFromString("1000")))
		assert.Equal(t, int64(25), loaded.Stock)
		assert.True(t, loaded.Active)
	})

	t.Run("missing product maps to not found", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
