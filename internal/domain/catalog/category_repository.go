package catalog

import (
	"context"

	"github.com/google/uuid"
)

// CategoryRepository defines the interface for category persistence
type CategoryRepository interface {
	// FindAllForMerchant returns the merchant's whole category set
	FindAllForMerchant(ctx context.Context, merchantID uuid.UUID) ([]Category, error)

	// FindByIDForMerchant finds a category by ID within a merchant
	FindByIDForMerchant(ctx context.Context, merchantID, id uuid.UUID) (*Category, error)

	// Create inserts a new category. A slug collision returns VALIDATION_ERROR.
	Create(ctx context.Context, category *Category) error

	// SaveAll updates every category in one transaction. Each row is
	// matched on its previous version; any mismatch rolls the whole batch
	// back with CONCURRENCY_CONFLICT.
	SaveAll(ctx context.Context, categories []*Category) error

	// DeleteAll deletes every category in one transaction with the same
	// version checks as SaveAll.
	DeleteAll(ctx context.Context, categories []*Category) error
}

// ProductCatalog is the read-only view of the product catalog
type ProductCatalog interface {
	// CountProducts returns how many products are assigned to a category
	CountProducts(ctx context.Context, merchantID, categoryID uuid.UUID) (int64, error)

	// CountProductsByCategory returns product counts keyed by category for a merchant
	CountProductsByCategory(ctx context.Context, merchantID uuid.UUID) (map[uuid.UUID]int64, error)
}
