// FILE: trend.go
// Package main – Market trend tracking, loss streaks, and cooldown state.
//
// TrendTracker keeps a rolling 30-minute window of observed prices and
// classifies the short-term trend from the last five points. It also owns the
// consecutive-loss counter and reacts to cycle results in one of two modes:
//   • loss-prevention (default): three straight losses worse than −$0.50
//     demand a 10-minute cooldown before new cycles start
//   • direction-switching: a single loss worse than −$0.50 flips the active
//     trading direction LONG ↔ SHORT instead
//
// The tracker is an injected, explicitly owned object: the cycle controller
// and session thread it through rather than sharing globals, so tests get a
// fresh instance each time.

package main

import (
	"log"
	"time"
)

const (
	trendWindow       = 30 * time.Minute
	trendSamplePoints = 5
	trendMinPoints    = 3
	lossThreshold     = -0.50
	cooldownLossCount = 3
)

type pricePoint struct {
	At    time.Time
	Price float64
}

// TrendTracker tracks recent prices and the loss streak. Not safe for
// concurrent use; the engine is single-threaded by design.
type TrendTracker struct {
	history []pricePoint

	consecutiveLosses int
	totalCooldowns    int
	inCooldown        bool
	cooldownUntil     time.Time

	direction       Direction
	switchDirection bool
	directionFlips  int
}

// NewTrendTracker returns a tracker in loss-prevention mode.
func NewTrendTracker() *TrendTracker {
	return &TrendTracker{direction: DirLong}
}

// NewDirectionTracker returns a tracker that flips LONG ↔ SHORT on losses
// instead of counting toward a cooldown.
func NewDirectionTracker() *TrendTracker {
	return &TrendTracker{direction: DirLong, switchDirection: true}
}

// AddPricePoint records an observed price now and prunes the window.
func (t *TrendTracker) AddPricePoint(price float64) {
	t.addAt(time.Now(), price)
}

func (t *TrendTracker) addAt(at time.Time, price float64) {
	t.history = append(t.history, pricePoint{At: at, Price: price})
	cutoff := at.Add(-trendWindow)
	i := 0
	for i < len(t.history) && !t.history[i].At.After(cutoff) {
		i++
	}
	if i > 0 {
		t.history = t.history[i:]
	}
}

// IsDowntrend reports whether the last five recorded prices are strictly
// decreasing. At least three points must exist before a trend is called.
func (t *TrendTracker) IsDowntrend() bool {
	if len(t.history) < trendMinPoints {
		return false
	}
	start := len(t.history) - trendSamplePoints
	if start < 0 {
		start = 0
	}
	recent := t.history[start:]
	if len(recent) < trendMinPoints {
		return false
	}
	down := 0
	for i := 1; i < len(recent); i++ {
		if recent[i].Price < recent[i-1].Price {
			down++
		}
	}
	return down >= len(recent)-1
}

// RecordResult feeds a realized cycle P&L back into the tracker. Returns true
// when the active direction flipped (direction-switching mode only).
func (t *TrendTracker) RecordResult(pnl float64) bool {
	if pnl < lossThreshold {
		t.consecutiveLosses++
		if t.switchDirection {
			t.direction = t.direction.Flip()
			t.directionFlips++
			log.Printf("[TREND] loss %.2f, flipped direction to %s", pnl, t.direction)
			return true
		}
		log.Printf("[TREND] loss #%d detected (pnl %.2f)", t.consecutiveLosses, pnl)
		return false
	}
	if t.consecutiveLosses > 0 {
		log.Printf("[TREND] profitable cycle, resetting loss counter")
	}
	t.consecutiveLosses = 0
	return false
}

// ShouldCooldown reports whether the loss streak demands a trading pause.
// Always false in direction-switching mode, which absorbs losses by flipping.
func (t *TrendTracker) ShouldCooldown() bool {
	return !t.switchDirection && t.consecutiveLosses >= cooldownLossCount
}

// BeginCooldown marks the tracker as paused until the given deadline.
func (t *TrendTracker) BeginCooldown(until time.Time) {
	t.inCooldown = true
	t.cooldownUntil = until
	t.totalCooldowns++
}

// EndCooldown clears cooldown state and resets the loss counter.
func (t *TrendTracker) EndCooldown() {
	t.inCooldown = false
	t.cooldownUntil = time.Time{}
	t.consecutiveLosses = 0
}

// Direction is the active trading direction for the next cycle.
func (t *TrendTracker) Direction() Direction { return t.direction }

// ConsecutiveLosses is the current loss streak length.
func (t *TrendTracker) ConsecutiveLosses() int { return t.consecutiveLosses }

// TotalCooldowns is the number of cooldowns served this session.
func (t *TrendTracker) TotalCooldowns() int { return t.totalCooldowns }

// DirectionFlips is the number of LONG ↔ SHORT switches this session.
func (t *TrendTracker) DirectionFlips() int { return t.directionFlips }
