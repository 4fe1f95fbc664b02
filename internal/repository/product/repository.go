package product

import (
	"context"

	"storefront/internal/domain"
)

type Repository interface {
	GetVariants(ctx context.Context, ids []string) (map[string]domain.Variant, error)
	GetVariantBySKU(ctx context.Context, sku string) (*domain.Variant, error)
}
