// Package metrics wires the lending module's pool-level activity into
// Prometheus counters and gauges, mirroring
// observability/metrics.go lazy-registry pattern.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type poolMetrics struct {
	deposits      *prometheus.CounterVec
	withdrawals   *prometheus.CounterVec
	borrows       *prometheus.CounterVec
	repayments    *prometheus.CounterVec
	liquidations  *prometheus.CounterVec
	rebalances    *prometheus.CounterVec
	protocolFees  *prometheus.GaugeVec
}

var (
	poolMetricsOnce sync.Once
	poolRegistry    *poolMetrics
)

// Pool returns the lazily-initialised, process-wide pool metrics registry.
func Pool() *poolMetrics {
	poolMetricsOnce.Do(func() {
		poolRegistry = &poolMetrics{
			deposits: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lending",
				Subsystem: "pool",
				Name:      "deposits_total",
				Help:      "Total deposits segmented by coin key and side.",
			}, []string{"coin", "side"}),
			withdrawals: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lending",
				Subsystem: "pool",
				Name:      "withdrawals_total",
				Help:      "Total withdrawals segmented by coin key and side.",
			}, []string{"coin", "side"}),
			borrows: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lending",
				Subsystem: "pool",
				Name:      "borrows_total",
				Help:      "Total borrows segmented by coin key and side.",
			}, []string{"coin", "side"}),
			repayments: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lending",
				Subsystem: "pool",
				Name:      "repayments_total",
				Help:      "Total repayments segmented by coin key and side.",
			}, []string{"coin", "side"}),
			liquidations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lending",
				Subsystem: "pool",
				Name:      "liquidations_total",
				Help:      "Total liquidations segmented by coin key and side.",
			}, []string{"coin", "side"}),
			rebalances: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lending",
				Subsystem: "pool",
				Name:      "rebalances_total",
				Help:      "Total shadow-collateral rebalances segmented by source and destination coin.",
			}, []string{"from_coin", "to_coin"}),
			protocolFees: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "lending",
				Subsystem: "pool",
				Name:      "protocol_fees_outstanding",
				Help:      "Unharvested protocol fees per coin key, in the coin's native unit.",
			}, []string{"coin"}),
		}
		prometheus.MustRegister(
			poolRegistry.deposits,
			poolRegistry.withdrawals,
			poolRegistry.borrows,
			poolRegistry.repayments,
			poolRegistry.liquidations,
			poolRegistry.rebalances,
			poolRegistry.protocolFees,
		)
	})
	return poolRegistry
}

// RecordDeposit increments the deposit counter for a coin/side pair.
func (m *poolMetrics) RecordDeposit(coin, side string) {
	if m == nil {
		return
	}
	m.deposits.WithLabelValues(coin, side).Inc()
}

// RecordWithdrawal increments the withdrawal counter for a coin/side pair.
func (m *poolMetrics) RecordWithdrawal(coin, side string) {
	if m == nil {
		return
	}
	m.withdrawals.WithLabelValues(coin, side).Inc()
}

// RecordBorrow increments the borrow counter for a coin/side pair.
func (m *poolMetrics) RecordBorrow(coin, side string) {
	if m == nil {
		return
	}
	m.borrows.WithLabelValues(coin, side).Inc()
}

// RecordRepay increments the repayment counter for a coin/side pair.
func (m *poolMetrics) RecordRepay(coin, side string) {
	if m == nil {
		return
	}
	m.repayments.WithLabelValues(coin, side).Inc()
}

// RecordLiquidation increments the liquidation counter for a coin/side pair.
func (m *poolMetrics) RecordLiquidation(coin, side string) {
	if m == nil {
		return
	}
	m.liquidations.WithLabelValues(coin, side).Inc()
}

// RecordRebalance increments the rebalance counter for a from/to coin pair.
func (m *poolMetrics) RecordRebalance(fromCoin, toCoin string) {
	if m == nil {
		return
	}
	m.rebalances.WithLabelValues(fromCoin, toCoin).Inc()
}

// SetProtocolFees updates the outstanding protocol fee gauge for a coin,
// expressed as a float64 in the coin's native unit (precision loss here is
// acceptable: the gauge is observational, never used for accounting).
func (m *poolMetrics) SetProtocolFees(coin string, amount float64) {
	if m == nil {
		return
	}
	m.protocolFees.WithLabelValues(coin).Set(amount)
}
