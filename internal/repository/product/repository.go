package product

import (
	"context"

	"tienda-barrio/internal/domain"
)

// ListFilter narrows a catalog listing. Empty fields do not filter.
type ListFilter struct {
	CategorySlug  string
	AvailableOnly bool
	Search        string
}

type Repository interface {
	List(ctx context.Context, f ListFilter) ([]domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	SlugTaken(ctx context.Context, slug, exceptID string) (bool, error)
	Create(ctx context.Context, p domain.Product) (*domain.Product, error)
	Update(ctx context.Context, p domain.Product) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
	// UpsertBySlug inserts or refreshes a product keyed by slug. Used by the
	// seed and the CSV importer.
	UpsertBySlug(ctx context.Context, p domain.Product) (*domain.Product, error)

	CreateVariant(ctx context.Context, v domain.Variant) (*domain.Variant, error)
	UpdateVariant(ctx context.Context, v domain.Variant) (*domain.Variant, error)
	DeleteVariant(ctx context.Context, productID, variantID string) error
	UpsertVariant(ctx context.Context, v domain.Variant) (*domain.Variant, error)
}
