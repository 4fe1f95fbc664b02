package checkout

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checkoutsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_checkouts_total",
			Help: "Checkout attempts by outcome",
		},
		[]string{"result"},
	)

	reconciliationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_inventory_reconciliation_failures_total",
			Help: "Stock decrements that failed after their order committed",
		},
	)
)
