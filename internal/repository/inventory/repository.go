package inventory

import (
	"context"

	"storefront/internal/domain"
)

type Repository interface {
	GetLevels(ctx context.Context, variantIDs []string) (map[string]domain.InventoryLevel, error)
	Decrement(ctx context.Context, demand domain.StockDemand) (*domain.InventoryLevel, error)
	SetLevel(ctx context.Context, level domain.InventoryLevel) error
}
