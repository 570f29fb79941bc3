// FILE: stats.go
// Package main – Session accounting and the end-of-run recap.
//
// SessionStats accumulates completed cycle records, failures, and audited
// taker fees across one session. PrintRecap renders the closing summary the
// operator reads after a run: volume generated, win/loss split, fee audit,
// cooldowns served, and the balance delta against the exchange.

package main

import (
	"log"
	"time"
)

// SessionStats collects per-cycle outcomes for one session. Not safe for
// concurrent use; the engine is single-threaded.
type SessionStats struct {
	StartedAt    time.Time
	StartBalance float64

	Cycles       []CycleRecord
	FailedCycles int
	TakerFees    float64
}

// NewSessionStats starts accounting from the given opening balance.
func NewSessionStats(startBalance float64) *SessionStats {
	return &SessionStats{StartedAt: time.Now(), StartBalance: startBalance}
}

// RecordCycle appends one completed round trip.
func (s *SessionStats) RecordCycle(rec CycleRecord) {
	s.Cycles = append(s.Cycles, rec)
	s.TakerFees += rec.FeesPaid
}

// RecordFailure counts a cycle that did not complete both legs.
func (s *SessionStats) RecordFailure() { s.FailedCycles++ }

// TotalVolume is the notional traded across all completed cycles.
func (s *SessionStats) TotalVolume() float64 {
	var v float64
	for _, c := range s.Cycles {
		v += c.Volume()
	}
	return v
}

// TotalPnl is the summed realized P&L of all completed cycles.
func (s *SessionStats) TotalPnl() float64 {
	var p float64
	for _, c := range s.Cycles {
		p += c.RealizedPnl
	}
	return p
}

// Wins counts cycles with non-negative realized P&L.
func (s *SessionStats) Wins() int {
	n := 0
	for _, c := range s.Cycles {
		if c.RealizedPnl >= 0 {
			n++
		}
	}
	return n
}

// Losses counts cycles with negative realized P&L.
func (s *SessionStats) Losses() int { return len(s.Cycles) - s.Wins() }

// TotalAdjustments is the number of re-prices across all completed cycles.
func (s *SessionStats) TotalAdjustments() int {
	n := 0
	for _, c := range s.Cycles {
		n += c.EntryAdjustments + c.ExitAdjustments
	}
	return n
}

// PrintRecap logs the end-of-session summary. endBalance is the final account
// balance as reported by the exchange; trend carries the cooldown and
// direction-flip tallies.
func (s *SessionStats) PrintRecap(endBalance float64, trend *TrendTracker) {
	elapsed := time.Since(s.StartedAt)
	log.Printf("[RECAP] ==================================================")
	log.Printf("[RECAP] SESSION COMPLETE (%s)", elapsed.Round(time.Second))
	log.Printf("[RECAP] cycles completed: %d | failed: %d", len(s.Cycles), s.FailedCycles)
	log.Printf("[RECAP] volume generated: %.2f USDT", s.TotalVolume())
	log.Printf("[RECAP] wins: %d | losses: %d", s.Wins(), s.Losses())
	log.Printf("[RECAP] re-prices: %d", s.TotalAdjustments())
	if n := len(s.Cycles); n > 0 {
		log.Printf("[RECAP] win rate: %.1f%% | avg pnl/cycle: %+.4f | avg volume/cycle: %.2f",
			100*float64(s.Wins())/float64(n), s.TotalPnl()/float64(n), s.TotalVolume()/float64(n))
	}
	if hours := elapsed.Hours(); hours > 0 {
		log.Printf("[RECAP] volume/hour: %.2f USDT", s.TotalVolume()/hours)
	}
	log.Printf("[RECAP] realized pnl (cycles): %+.4f USDT", s.TotalPnl())
	log.Printf("[RECAP] balance: %.4f -> %.4f (%+.4f)", s.StartBalance, endBalance, endBalance-s.StartBalance)
	if s.TakerFees > 0 {
		log.Printf("[RECAP] WARNING: taker fees paid: %.6f USDT", s.TakerFees)
	} else {
		log.Printf("[RECAP] taker fees paid: 0 (all maker)")
	}
	if trend != nil {
		log.Printf("[RECAP] cooldowns served: %d | direction flips: %d",
			trend.TotalCooldowns(), trend.DirectionFlips())
	}
	log.Printf("[RECAP] ==================================================")
}
