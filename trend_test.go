// FILE: trend_test.go
package main

import (
	"testing"
	"time"
)

func addSeries(t *TrendTracker, base time.Time, prices ...float64) {
	for i, p := range prices {
		t.addAt(base.Add(time.Duration(i)*time.Second), p)
	}
}

func TestIsDowntrend(t *testing.T) {
	base := time.Now()
	tests := []struct {
		name   string
		prices []float64
		want   bool
	}{
		{"too few points", []float64{2500, 2499}, false},
		{"three decreasing", []float64{2500, 2499, 2498}, true},
		{"five decreasing", []float64{2500, 2499, 2498, 2497, 2496}, true},
		{"one up tick breaks it", []float64{2500, 2499, 2499.5, 2498, 2497}, false},
		{"flat pair breaks it", []float64{2500, 2499, 2499, 2498, 2497}, false},
		{"rising", []float64{2496, 2497, 2498, 2499, 2500}, false},
		{"only last five matter", []float64{2000, 2500, 2499, 2498, 2497, 2496, 2495}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tr := NewTrendTracker()
			addSeries(tr, base, tc.prices...)
			if got := tr.IsDowntrend(); got != tc.want {
				t.Fatalf("IsDowntrend(%v) = %v, want %v", tc.prices, got, tc.want)
			}
		})
	}
}

func TestTrendWindowPrunesOldPoints(t *testing.T) {
	tr := NewTrendTracker()
	base := time.Now()
	// A decreasing run that has aged out entirely, then two fresh points.
	addSeries(tr, base.Add(-45*time.Minute), 2510, 2509, 2508)
	addSeries(tr, base, 2500, 2499)
	if tr.IsDowntrend() {
		t.Fatal("stale points must not contribute to the trend")
	}
}

func TestLossStreakDemandsCooldown(t *testing.T) {
	tr := NewTrendTracker()

	tr.RecordResult(-0.60)
	tr.RecordResult(-0.80)
	if tr.ShouldCooldown() {
		t.Fatal("two losses must not trigger a cooldown")
	}
	tr.RecordResult(-1.20)
	if !tr.ShouldCooldown() {
		t.Fatal("three straight losses must trigger a cooldown")
	}

	until := time.Now().Add(time.Minute)
	tr.BeginCooldown(until)
	if tr.TotalCooldowns() != 1 {
		t.Fatalf("TotalCooldowns = %d, want 1", tr.TotalCooldowns())
	}
	tr.EndCooldown()
	if tr.ShouldCooldown() {
		t.Fatal("cooldown must reset the loss counter")
	}
}

func TestSmallLossDoesNotCount(t *testing.T) {
	tr := NewTrendTracker()
	tr.RecordResult(-0.30)
	tr.RecordResult(-0.49)
	if tr.ConsecutiveLosses() != 0 {
		t.Fatalf("losses above the threshold must not count, got %d", tr.ConsecutiveLosses())
	}
}

func TestWinResetsLossStreak(t *testing.T) {
	tr := NewTrendTracker()
	tr.RecordResult(-0.60)
	tr.RecordResult(-0.70)
	tr.RecordResult(0.10)
	if tr.ConsecutiveLosses() != 0 {
		t.Fatalf("a win must reset the streak, got %d", tr.ConsecutiveLosses())
	}
	if tr.ShouldCooldown() {
		t.Fatal("no cooldown after a reset streak")
	}
}

func TestDirectionSwitchingMode(t *testing.T) {
	tr := NewDirectionTracker()
	if tr.Direction() != DirLong {
		t.Fatalf("initial direction = %s, want LONG", tr.Direction())
	}

	if flipped := tr.RecordResult(-0.60); !flipped {
		t.Fatal("a qualifying loss must flip the direction")
	}
	if tr.Direction() != DirShort {
		t.Fatalf("direction = %s, want SHORT after one loss", tr.Direction())
	}

	if flipped := tr.RecordResult(0.50); flipped {
		t.Fatal("a win must not flip the direction")
	}
	if flipped := tr.RecordResult(-0.90); !flipped || tr.Direction() != DirLong {
		t.Fatalf("flipped=%v direction=%s, want flip back to LONG", flipped, tr.Direction())
	}
	if tr.DirectionFlips() != 2 {
		t.Fatalf("DirectionFlips = %d, want 2", tr.DirectionFlips())
	}

	// Switching mode never demands a cooldown, however long the streak.
	tr.RecordResult(-1.0)
	tr.RecordResult(-1.0)
	if tr.ShouldCooldown() {
		t.Fatal("switching mode must not cool down")
	}
}
