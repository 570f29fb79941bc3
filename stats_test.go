// FILE: stats_test.go
package main

import (
	"math"
	"testing"
	"time"
)

func TestSessionStatsAggregation(t *testing.T) {
	s := NewSessionStats(1000)

	s.RecordCycle(CycleRecord{
		Direction: DirLong, EntryPrice: 2500, ExitPrice: 2501, Quantity: 0.4,
		RealizedPnl: 0.40, EntryAdjustments: 1, ExitAdjustments: 2, CompletedAt: time.Now(),
	})
	s.RecordCycle(CycleRecord{
		Direction: DirShort, EntryPrice: 2501, ExitPrice: 2503, Quantity: 0.4,
		RealizedPnl: -0.80, ExitAdjustments: 4, FeesPaid: 0.45, CompletedAt: time.Now(),
	})
	s.RecordFailure()

	if s.Wins() != 1 || s.Losses() != 1 {
		t.Fatalf("wins/losses = %d/%d, want 1/1", s.Wins(), s.Losses())
	}
	if s.FailedCycles != 1 {
		t.Fatalf("FailedCycles = %d, want 1", s.FailedCycles)
	}
	wantVolume := (2500.0+2501.0)*0.4 + (2501.0+2503.0)*0.4
	if math.Abs(s.TotalVolume()-wantVolume) > 1e-9 {
		t.Fatalf("TotalVolume = %.4f, want %.4f", s.TotalVolume(), wantVolume)
	}
	if math.Abs(s.TotalPnl()-(-0.40)) > 1e-9 {
		t.Fatalf("TotalPnl = %.4f, want -0.40", s.TotalPnl())
	}
	if s.TotalAdjustments() != 7 {
		t.Fatalf("TotalAdjustments = %d, want 7", s.TotalAdjustments())
	}
	if math.Abs(s.TakerFees-0.45) > 1e-9 {
		t.Fatalf("TakerFees = %.4f, want 0.45", s.TakerFees)
	}
}

func TestZeroPnlCountsAsWin(t *testing.T) {
	s := NewSessionStats(1000)
	s.RecordCycle(CycleRecord{Quantity: 0.4, RealizedPnl: 0})
	if s.Wins() != 1 || s.Losses() != 0 {
		t.Fatalf("wins/losses = %d/%d, want 1/0", s.Wins(), s.Losses())
	}
}
