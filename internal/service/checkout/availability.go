package checkout

import (
	"context"

	"storefront/internal/domain"
)

type inventoryReader interface {
	GetLevels(ctx context.Context, variantIDs []string) (map[string]domain.InventoryLevel, error)
}

// AvailabilityChecker confirms a cart can be served from unreserved stock.
type AvailabilityChecker struct {
	levels inventoryReader
}

func NewAvailabilityChecker(levels inventoryReader) *AvailabilityChecker {
	return &AvailabilityChecker{levels: levels}
}

// Check reads every demanded variant in one batch and fails on the first variant whose
// demand exceeds on_hand - committed. A variant without an inventory row has nothing available.
func (c *AvailabilityChecker) Check(ctx context.Context, demands []domain.StockDemand) error {
	ids := make([]string, len(demands))
	for i, d := range demands {
		ids[i] = d.VariantID
	}
	levels, err := c.levels.GetLevels(ctx, ids)
	if err != nil {
		return err
	}
	for _, d := range demands {
		available := levels[d.VariantID].Available()
		if d.Quantity > available {
			return &domain.InsufficientStockError{
				VariantID:   d.VariantID,
				ProductName: d.ProductName,
				SKU:         d.SKU,
				Requested:   d.Quantity,
				Available:   available,
			}
		}
	}
	return nil
}

// AggregateDemands sums quantities of lines that share a variant, keeping first-seen order.
// Names are left empty for the caller to fill from the catalog.
func AggregateDemands(lines []domain.CartLine) []domain.StockDemand {
	index := make(map[string]int, len(lines))
	var demands []domain.StockDemand
	for _, line := range lines {
		if i, ok := index[line.VariantID]; ok {
			demands[i].Quantity += line.Quantity
			continue
		}
		index[line.VariantID] = len(demands)
		demands = append(demands, domain.StockDemand{
			VariantID: line.VariantID,
			Quantity:  line.Quantity,
		})
	}
	return demands
}
