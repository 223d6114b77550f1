package checkout

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/order"
)

// ==================== Checkout DTOs ====================

// CartItemInput is one line of the submitted cart. The unit price is the
// price the client was quoted; the coordinator re-reads the catalog price
// before anything durable happens.
type CartItemInput struct {
	ProductID uuid.UUID       `json:"product_id" binding:"required"`
	UnitPrice decimal.Decimal `json:"unit_price" binding:"omitempty,decimalgt0"`
	Quantity  int64           `json:"quantity" binding:"required,min=1"`
	Variation string          `json:"variation"`
}

// AddressInput is the shipping address submitted with the checkout
type AddressInput struct {
	FullName   string `json:"full_name" binding:"required,min=1,max=200"`
	Phone      string `json:"phone" binding:"required,min=7,max=20"`
	Email      string `json:"email" binding:"omitempty,email"`
	Line1      string `json:"line1" binding:"required,min=1,max=300"`
	City       string `json:"city" binding:"required,min=1,max=100"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country" binding:"required,min=2,max=2"`
}

// CreateOrderRequest represents a checkout submission
type CreateOrderRequest struct {
	Items       []CartItemInput  `json:"items" binding:"required,min=1"`
	QuotedTotal *decimal.Decimal `json:"quoted_total" binding:"omitempty,decimalgt0"`
	Address     AddressInput     `json:"address" binding:"required"`
	// SessionKey is the client checkout session identifier used to gate
	// duplicate submissions. Optional; the uniqueness constraint on the
	// order reference remains the authoritative guard.
	SessionKey string `json:"session_key" binding:"omitempty,max=128"`
}

// OrderListFilter represents filter options for the owner's order list
type OrderListFilter struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// AdvisoryReportRequest is the client-observed widget outcome
type AdvisoryReportRequest struct {
	Reference string `json:"reference" binding:"required"`
	Outcome   string `json:"outcome" binding:"required,oneof=SUCCESS FAILURE"`
}

// ==================== Response DTOs ====================

// LineItemResponse represents an order line in API responses
type LineItemResponse struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int64           `json:"quantity"`
	Variation string          `json:"variation,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
}

// AddressResponse represents the shipping address in API responses
type AddressResponse struct {
	FullName   string `json:"full_name"`
	Phone      string `json:"phone"`
	Email      string `json:"email,omitempty"`
	Line1      string `json:"line1"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID                uuid.UUID          `json:"id"`
	ExternalReference string             `json:"external_reference"`
	Items             []LineItemResponse `json:"items"`
	Subtotal          decimal.Decimal    `json:"subtotal"`
	TaxRate           decimal.Decimal    `json:"tax_rate"`
	TaxAmount         decimal.Decimal    `json:"tax_amount"`
	Total             decimal.Decimal    `json:"total"`
	Address           AddressResponse    `json:"address"`
	Status            string             `json:"status"`
	PaymentStatus     string             `json:"payment_status"`
	TransactionID     string             `json:"transaction_id,omitempty"`
	PaidAt            *time.Time         `json:"paid_at,omitempty"`
	ShippedAt         *time.Time         `json:"shipped_at,omitempty"`
	DeliveredAt       *time.Time         `json:"delivered_at,omitempty"`
	CancelledAt       *time.Time         `json:"cancelled_at,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
	Version           int                `json:"version"`
}

// OrderListItemResponse represents an order in list responses (less detail)
type OrderListItemResponse struct {
	ID                uuid.UUID       `json:"id"`
	ExternalReference string          `json:"external_reference"`
	ItemCount         int             `json:"item_count"`
	Total             decimal.Decimal `json:"total"`
	Status            string          `json:"status"`
	PaymentStatus     string          `json:"payment_status"`
	CreatedAt         time.Time       `json:"created_at"`
}

// MilestoneResponse represents one tracking milestone in API responses
type MilestoneResponse struct {
	Label     string    `json:"label"`
	Target    time.Time `json:"target"`
	Completed bool      `json:"completed"`
}

// TrackingResponse represents the milestone timeline for an order
type TrackingResponse struct {
	OrderID    uuid.UUID           `json:"order_id"`
	Reference  string              `json:"reference"`
	Status     string              `json:"status"`
	Progress   int                 `json:"progress"`
	Milestones []MilestoneResponse `json:"milestones"`
}

func toAddress(in AddressInput) order.Address {
	return order.Address{
		FullName:   in.FullName,
		Phone:      in.Phone,
		Email:      in.Email,
		Line1:      in.Line1,
		City:       in.City,
		PostalCode: in.PostalCode,
		Country:    in.Country,
	}
}

// ToOrderResponse converts a domain order to an API response
func ToOrderResponse(o *order.Order) OrderResponse {
	items := make([]LineItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, LineItemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			Variation: item.Variation,
			Amount:    item.Amount,
		})
	}

	return OrderResponse{
		ID:                o.ID,
		ExternalReference: o.ExternalReference,
		Items:             items,
		Subtotal:          o.Subtotal,
		TaxRate:           o.TaxRate,
		TaxAmount:         o.TaxAmount,
		Total:             o.Total,
		Address: AddressResponse{
			FullName:   o.ShippingAddress.FullName,
			Phone:      o.ShippingAddress.Phone,
			Email:      o.ShippingAddress.Email,
			Line1:      o.ShippingAddress.Line1,
			City:       o.ShippingAddress.City,
			PostalCode: o.ShippingAddress.PostalCode,
			Country:    o.ShippingAddress.Country,
		},
		Status:        o.Status.String(),
		PaymentStatus: o.PaymentStatus.String(),
		TransactionID: o.TransactionID,
		PaidAt:        o.PaidAt,
		ShippedAt:     o.ShippedAt,
		DeliveredAt:   o.DeliveredAt,
		CancelledAt:   o.CancelledAt,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
		Version:       o.Version,
	}
}

// ToOrderListItemResponses converts domain orders to list responses
func ToOrderListItemResponses(orders []order.Order) []OrderListItemResponse {
	responses := make([]OrderListItemResponse, 0, len(orders))
	for i := range orders {
		o := &orders[i]
		responses = append(responses, OrderListItemResponse{
			ID:                o.ID,
			ExternalReference: o.ExternalReference,
			ItemCount:         o.ItemCount(),
			Total:             o.Total,
			Status:            o.Status.String(),
			PaymentStatus:     o.PaymentStatus.String(),
			CreatedAt:         o.CreatedAt,
		})
	}
	return responses
}

// ToTrackingResponse converts a projected timeline to an API response
func ToTrackingResponse(o *order.Order, milestones []order.TrackingMilestone) TrackingResponse {
	out := make([]MilestoneResponse, 0, len(milestones))
	for _, m := range milestones {
		out = append(out, MilestoneResponse{
			Label:     m.Label,
			Target:    m.Target,
			Completed: m.Completed,
		})
	}
	return TrackingResponse{
		OrderID:    o.ID,
		Reference:  o.ExternalReference,
		Status:     o.Status.String(),
		Progress:   order.Progress(milestones),
		Milestones: out,
	}
}
