package checkout

import (
	"context"
	"log"

	"storefront/internal/domain"
)

type inventoryWriter interface {
	Decrement(ctx context.Context, demand domain.StockDemand) (*domain.InventoryLevel, error)
}

// DecrementApplier reduces on-hand stock after an order has committed. A failure here
// cannot undo the order, so it is reported for manual reconciliation instead.
type DecrementApplier struct {
	inventory inventoryWriter
	logger    *log.Logger
}

func NewDecrementApplier(inventory inventoryWriter, logger *log.Logger) *DecrementApplier {
	return &DecrementApplier{inventory: inventory, logger: logger}
}

// Apply returns the demands that could not be applied.
func (a *DecrementApplier) Apply(ctx context.Context, orderID string, demands []domain.StockDemand) []domain.StockDemand {
	var failed []domain.StockDemand
	for _, d := range demands {
		if _, err := a.inventory.Decrement(ctx, d); err != nil {
			a.logger.Printf("CRITICAL: order %s committed but stock decrement failed for variant %s (sku=%s qty=%d): %v. Manual correction needed.",
				orderID, d.VariantID, d.SKU, d.Quantity, err)
			reconciliationFailures.Inc()
			failed = append(failed, d)
		}
	}
	return failed
}
