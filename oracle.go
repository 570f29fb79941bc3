// FILE: oracle.go
// Package main – Robust price estimation from a noisy order book.
//
// The oracle turns a raw depth snapshot into a (bid, ask) pair the pricing
// policy can trust:
//   1) best-of-book per side as the simple reference
//   2) median-based outlier filter (stale/erroneous resting orders)
//   3) size-weighted average of the top 3 surviving levels per side
//   4) replace a suspect best-of-book with the weighted reference
//   5) inversion repair: weighted refs, then median-of-top-5, then give up
//
// estimateQuote is pure; Quote wraps it with the gateway fetch.

package main

import (
	"context"
	"log"
	"math"
	"sort"
	"time"
)

const (
	// Max deviation from the side median before a level is discarded.
	outlierMaxDeviationPct = 1.5
	// Max deviation of best-of-book from the weighted reference before the
	// raw best is treated as suspect.
	bestDeviationLimit = 0.01
	weightedTopLevels  = 3
)

// PriceOracle fetches depth for one symbol and derives robust quotes.
type PriceOracle struct {
	gw          ExchangeGateway
	symbol      string
	depth       int
	granularity float64
}

// NewPriceOracle builds an oracle over gw for symbol at the given depth.
func NewPriceOracle(gw ExchangeGateway, symbol string, depth int, granularity float64) *PriceOracle {
	if depth <= 0 {
		depth = 10
	}
	return &PriceOracle{gw: gw, symbol: symbol, depth: depth, granularity: granularity}
}

// Quote fetches the book and estimates a repaired (bid, ask) pair.
// Returns ErrBookUnavailable (or a *GatewayError) on any failure; both are
// transient and the caller retries after a short delay.
func (o *PriceOracle) Quote(ctx context.Context) (Quote, error) {
	book, err := o.gw.GetOrderBook(ctx, o.symbol, o.depth, o.granularity)
	if err != nil {
		log.Printf("[ORACLE] order book fetch failed: %v", err)
		return Quote{}, err
	}
	return estimateQuote(book)
}

// estimateQuote derives a repaired (bid, ask) pair from raw depth.
func estimateQuote(book OrderBookSnapshot) (Quote, error) {
	if len(book.Bids) == 0 || len(book.Asks) == 0 {
		return Quote{}, ErrBookUnavailable
	}

	simpleBid := book.Bids[0].Price
	simpleAsk := book.Asks[0].Price

	weightedBid := weightedReference(book.Bids)
	weightedAsk := weightedReference(book.Asks)

	bid := repairBest(simpleBid, weightedBid, "bid")
	ask := repairBest(simpleAsk, weightedAsk, "ask")

	// Inversion repair: prefer the weighted references, then the median of
	// the top levels. If even the median pair is inverted the book is not
	// usable; surfacing Unavailable beats handing out a crossed quote.
	if bid >= ask {
		log.Printf("[ORACLE] inverted estimate bid=%.2f ask=%.2f, falling back to weighted refs", bid, ask)
		bid, ask = weightedBid, weightedAsk
		if bid >= ask {
			log.Printf("[ORACLE] still inverted, falling back to side medians")
			bid = sideMedian(book.Bids)
			ask = sideMedian(book.Asks)
			if bid >= ask {
				log.Printf("[ORACLE] book unusable: median bid=%.2f >= ask=%.2f", bid, ask)
				return Quote{}, ErrBookUnavailable
			}
		}
	}

	if bid <= 0 || ask <= 0 {
		return Quote{}, ErrBookUnavailable
	}
	return Quote{Bid: bid, Ask: ask, ObservedAt: time.Now().UTC()}, nil
}

// repairBest keeps the raw best-of-book unless it strays more than 1% from
// the weighted reference, in which case the reference wins.
func repairBest(simple, weighted float64, side string) float64 {
	if weighted <= 0 {
		return simple
	}
	if math.Abs(simple-weighted)/weighted > bestDeviationLimit {
		log.Printf("[ORACLE] best %s %.2f deviates from weighted %.2f, using weighted", side, simple, weighted)
		return weighted
	}
	return simple
}

// weightedReference is the size-weighted average price of the top surviving
// levels after outlier filtering.
func weightedReference(levels []BookLevel) float64 {
	kept := filterOutlierLevels(levels)
	n := weightedTopLevels
	if n > len(kept) {
		n = len(kept)
	}
	var notional, size float64
	for _, lv := range kept[:n] {
		notional += lv.Price * lv.Size
		size += lv.Size
	}
	if size <= 0 {
		return kept[0].Price
	}
	return notional / size
}

// filterOutlierLevels drops levels whose price deviates from the side median
// by more than outlierMaxDeviationPct. Sides with two or fewer levels pass
// through untouched, and the filter never empties the list: if every level is
// an outlier the best level is kept alone.
func filterOutlierLevels(levels []BookLevel) []BookLevel {
	if len(levels) <= 2 {
		return levels
	}
	prices := make([]float64, len(levels))
	for i, lv := range levels {
		prices[i] = lv.Price
	}
	med := median(prices)
	maxDev := med * outlierMaxDeviationPct / 100

	kept := levels[:0:0]
	dropped := 0
	for _, lv := range levels {
		if math.Abs(lv.Price-med) <= maxDev {
			kept = append(kept, lv)
		} else {
			dropped++
		}
	}
	if dropped > 0 {
		log.Printf("[ORACLE] filtered %d outlier level(s) (median %.2f)", dropped, med)
	}
	if len(kept) == 0 {
		return levels[:1]
	}
	return kept
}

// sideMedian is the last-resort reference: median of the top 5 levels, the
// second level when fewer than 3 exist, the first when only one exists.
func sideMedian(levels []BookLevel) float64 {
	switch {
	case len(levels) >= 3:
		n := 5
		if n > len(levels) {
			n = len(levels)
		}
		prices := make([]float64, n)
		for i := 0; i < n; i++ {
			prices[i] = levels[i].Price
		}
		return median(prices)
	case len(levels) == 2:
		return levels[1].Price
	default:
		return levels[0].Price
	}
}

// median returns the middle value (or midpoint of the two middle values).
func median(xs []float64) float64 {
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	n := len(s)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}
