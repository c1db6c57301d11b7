/*
This file contains the Prometheus collectors for the engine. Gauges carry
float64 approximations of the fixed-point state; they are for dashboards and
alerting only, never for accounting.
*/

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rsm",
		Name:      "operations_total",
		Help:      "Engine operations by type and outcome.",
	}, []string{"op", "status"})

	debtRatio = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "rsm",
		Name:      "debt_ratio",
		Help:      "Current debt ratio (stable supply valued in reserve / reserve pool).",
	})

	reservePool = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "rsm",
		Name:      "reserve_pool_units",
		Help:      "Reserve pool size in whole reserve units.",
	})

	floorPrice = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "rsm",
		Name:      "min_funding_buy_price",
		Help:      "Active minimum funding buy price, zero when no floor is set.",
	})
)

// ObserveOperation counts one engine call.
func ObserveOperation(op string, success bool) {
	status := "ok"
	if !success {
		status = "error"
	}
	operationsTotal.WithLabelValues(op, status).Inc()
}

// SetDebtRatio publishes the post-operation debt ratio.
func SetDebtRatio(v float64) { debtRatio.Set(v) }

// SetReservePool publishes the pool size.
func SetReservePool(v float64) { reservePool.Set(v) }

// SetFloorPrice publishes the active funding-price floor.
func SetFloorPrice(v float64) { floorPrice.Set(v) }
