// FILE: metrics.go
// Package main – Prometheus metrics for the engine.
//
// Counters and gauges are package-level and registered in init(); the rest of
// the code calls the small helper setters so call sites stay one line. The
// /metrics endpoint is mounted by main.go next to /healthz.

package main

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	mtxOrdersPlaced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "volume_engine_orders_placed_total",
			Help: "Maker orders submitted, by side and leg.",
		},
		[]string{"side", "leg"},
	)

	mtxAdjustments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "volume_engine_reprices_total",
			Help: "Cancel-then-replace adjustments, by leg.",
		},
		[]string{"leg"},
	)

	mtxLegFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "volume_engine_leg_failures_total",
			Help: "Legs abandoned or aborted, by leg.",
		},
		[]string{"leg"},
	)

	mtxCycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "volume_engine_cycles_total",
			Help: "Completed round trips, by direction and result.",
		},
		[]string{"direction", "result"},
	)

	mtxCooldowns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "volume_engine_cooldowns_total",
			Help: "Loss-streak cooldowns served.",
		},
	)

	mtxVolume = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "volume_engine_notional_volume_total",
			Help: "Notional volume generated across both legs, quote currency.",
		},
	)

	mtxTakerFees = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "volume_engine_taker_fees_total",
			Help: "Taker fees detected by the post-cycle audit, quote currency.",
		},
	)

	mtxEquity = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "volume_engine_equity",
			Help: "Last reported account balance, quote currency.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		mtxOrdersPlaced,
		mtxAdjustments,
		mtxLegFailures,
		mtxCycles,
		mtxCooldowns,
		mtxVolume,
		mtxTakerFees,
		mtxEquity,
	)
}

// IncOrderPlaced counts one submitted maker order.
func IncOrderPlaced(side, leg string) { mtxOrdersPlaced.WithLabelValues(side, leg).Inc() }

// IncAdjustment counts one cancel-then-replace re-price.
func IncAdjustment(leg string) { mtxAdjustments.WithLabelValues(leg).Inc() }

// IncLegFailure counts one abandoned or aborted leg.
func IncLegFailure(leg string) { mtxLegFailures.WithLabelValues(leg).Inc() }

// IncCycle counts one finished cycle; result is "win", "loss", or "failed".
func IncCycle(direction, result string) { mtxCycles.WithLabelValues(direction, result).Inc() }

// IncCooldown counts one served cooldown.
func IncCooldown() { mtxCooldowns.Inc() }

// AddVolume accumulates notional volume.
func AddVolume(v float64) {
	if v > 0 {
		mtxVolume.Add(v)
	}
}

// AddTakerFees accumulates audited taker fees.
func AddTakerFees(f float64) {
	if f > 0 {
		mtxTakerFees.Add(f)
	}
}

// SetEquity publishes the latest account balance.
func SetEquity(b float64) { mtxEquity.Set(b) }
