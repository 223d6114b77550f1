package catalog

import (
	"context"

	"github.com/google/uuid"
)

// ProductRepository is the catalog surface the checkout pipeline consults.
// The product row is the authoritative source for name, price, stock and
// availability; callers never trust client-quoted values.
type ProductRepository interface {
	// FindByID finds a product by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
}
