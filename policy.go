// FILE: policy.go
// Package main – Maker pricing policies for opening and closing legs.
//
// Two pure policies:
//   • Open: rest behind the touch (below best bid for a buy, above best ask
//     for a sell), wider in a downtrend, creeping toward the touch on each
//     re-price.
//   • Close: offset from the touch chosen by an ordered table of potential
//     P&L bands, each with its own decay schedule and floor. Wide offsets
//     harvest profit when the market moved our way; offsets collapse toward
//     one tick as losses deepen so the position closes instead of lingering.
//
// A forced-exit override (leg resting past the maximum wait) prices one tick
// outside the touch regardless of band.

package main

import "math"

// PricingPolicy holds the venue tick size; everything else is table-driven.
type PricingPolicy struct {
	TickSize float64
}

// NewPricingPolicy returns a policy for the given tick size (0 defaults to 0.01).
func NewPricingPolicy(tick float64) PricingPolicy {
	if tick <= 0 {
		tick = 0.01
	}
	return PricingPolicy{TickSize: tick}
}

const (
	openOffsetTicks          = 20
	openOffsetTicksDowntrend = 30
)

// Open prices an opening-leg maker order. adjustments is the number of
// re-prices already performed for this leg (0 on initial placement).
//
// Re-price schedule: the offset shrinks 0.20 → 0.15 → 0.10 → 0.05 over the
// first three adjustments, sits one tick off the touch through the sixth,
// then rests at the touch itself (still maker so long as it does not cross).
func (p PricingPolicy) Open(side Side, q Quote, downtrend bool, adjustments int) float64 {
	offset := p.openOffset(downtrend, adjustments)
	if side == SideBuy {
		return roundToTick(q.Bid-offset, p.TickSize)
	}
	return roundToTick(q.Ask+offset, p.TickSize)
}

func (p PricingPolicy) openOffset(downtrend bool, adjustments int) float64 {
	switch {
	case adjustments <= 0:
		if downtrend {
			return p.TickSize * openOffsetTicksDowntrend
		}
		return p.TickSize * openOffsetTicks
	case adjustments <= 3:
		return math.Max(0.20-float64(adjustments)*0.05, 0.05)
	case adjustments <= 6:
		return p.TickSize
	default:
		return 0
	}
}

// closeBand is one row of the closing-offset table: for potential P&L at or
// above Min, start at Initial and shed Decay per adjustment down to Floor.
type closeBand struct {
	Min     float64
	Initial float64
	Decay   float64
	Floor   float64
}

// Ordered top-down by Min; evaluation takes the first matching row.
var closeBands = []closeBand{
	{Min: 3.0, Initial: 1.50, Decay: 0.15, Floor: 0.50},
	{Min: 1.5, Initial: 0.80, Decay: 0.10, Floor: 0.30},
	{Min: 0.5, Initial: 0.30, Decay: 0.05, Floor: 0.15},
	{Min: 0.0, Initial: 0.20, Decay: 0.03, Floor: 0.05},
	{Min: -1.0, Initial: 0.10, Decay: 0.02, Floor: 0.02},
	{Min: math.Inf(-1), Initial: 0.05, Decay: 0.04, Floor: 0.01},
}

// closeOffset returns the maker offset for a closing leg given the potential
// P&L at the current touch and the number of re-prices already performed.
func closeOffset(potentialPnl float64, adjustments int) float64 {
	for _, band := range closeBands {
		if potentialPnl >= band.Min {
			off := band.Initial - float64(adjustments)*band.Decay
			if off < band.Floor {
				off = band.Floor
			}
			return off
		}
	}
	// unreachable: the last band's Min is -Inf
	return 0.01
}

// PotentialPnl is the unrealized profit if the close executed at the current
// touch reference: best ask for a long close, best bid for a short close.
func PotentialPnl(dir Direction, q Quote, entryPrice, quantity float64) float64 {
	if dir == DirLong {
		return (q.Ask - entryPrice) * quantity
	}
	return (entryPrice - q.Bid) * quantity
}

// Close prices a closing-leg maker order for a position opened at entryPrice.
// A long close rests above the best ask; a short close mirrors below the best
// bid. forceExit overrides every band with a one-tick offset so the order
// fills on the next touch move while staying maker.
func (p PricingPolicy) Close(dir Direction, q Quote, entryPrice, quantity float64, adjustments int, forceExit bool) (price, potentialPnl float64) {
	potentialPnl = PotentialPnl(dir, q, entryPrice, quantity)

	if forceExit {
		if dir == DirLong {
			return roundToTick(q.Ask+p.TickSize, p.TickSize), potentialPnl
		}
		return roundToTick(q.Bid-p.TickSize, p.TickSize), potentialPnl
	}

	offset := closeOffset(potentialPnl, adjustments)
	if dir == DirLong {
		price = q.Ask + offset
		// Near break-even the initial placement refuses to lock in a loss.
		if adjustments == 0 && potentialPnl >= 0 && potentialPnl < 0.5 {
			price = math.Max(price, entryPrice+0.10)
		}
		return roundToTick(price, p.TickSize), potentialPnl
	}

	price = q.Bid - offset
	if adjustments == 0 && potentialPnl >= 0 && potentialPnl < 0.5 {
		price = math.Min(price, entryPrice-0.10)
	}
	return roundToTick(price, p.TickSize), potentialPnl
}

// roundToTick snaps price to the venue tick grid.
func roundToTick(price, tick float64) float64 {
	if tick <= 0 {
		return price
	}
	return math.Round(price/tick) * tick
}
