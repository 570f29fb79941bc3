// FILE: model.go
// Package main – Domain types shared across the engine.
//
// This file defines the data the core passes around:
//   • Side / Direction enums
//   • Quote: a repaired (bid, ask) pair from the oracle
//   • BookLevel / OrderBookSnapshot: raw depth from the gateway
//   • WorkingOrder: the single resting order a leg owns
//   • LegResult: outcome of one open or close leg
//   • CycleRecord: immutable record of one completed round trip

package main

import "time"

// Side is the side of an order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Direction is the direction of a round-trip cycle.
type Direction string

const (
	DirLong  Direction = "LONG"
	DirShort Direction = "SHORT"
)

// Flip returns the opposite cycle direction.
func (d Direction) Flip() Direction {
	if d == DirLong {
		return DirShort
	}
	return DirLong
}

// OpenSide is the order side that opens a position in this direction.
func (d Direction) OpenSide() Side {
	if d == DirLong {
		return SideBuy
	}
	return SideSell
}

// CloseSide is the order side that closes a position in this direction.
func (d Direction) CloseSide() Side { return d.OpenSide().Opposite() }

// Quote is a robust (bid, ask) pair produced by the PriceOracle.
// Invariant: 0 < Bid < Ask.
type Quote struct {
	Bid        float64
	Ask        float64
	ObservedAt time.Time
}

// Spread is the quoted bid/ask spread.
func (q Quote) Spread() float64 { return q.Ask - q.Bid }

// BookLevel is one resting price level of an order book side.
type BookLevel struct {
	Price float64
	Size  float64
}

// OrderBookSnapshot is raw depth as returned by the gateway: bids descending
// from the best bid, asks ascending from the best ask. Read-only to the core.
type OrderBookSnapshot struct {
	Symbol string
	Bids   []BookLevel
	Asks   []BookLevel
}

// WorkingOrder is the single resting order a leg owns. It lives from placement
// until fill or final cancel; at most one exists per leg at any time.
type WorkingOrder struct {
	ID          string
	Side        Side
	Symbol      string
	Quantity    float64
	Price       float64
	PlacedAt    time.Time
	Adjustments int
}

// LegResult is the outcome of one completed leg.
type LegResult struct {
	FillPrice   float64
	OrderID     string
	Adjustments int
	Elapsed     time.Duration
}

// CycleRecord is the immutable record of one completed round trip.
type CycleRecord struct {
	Direction        Direction
	EntryPrice       float64
	ExitPrice        float64
	Quantity         float64
	RealizedPnl      float64
	EntryAdjustments int
	ExitAdjustments  int
	FeesPaid         float64
	CompletedAt      time.Time
}

// Volume is the notional traded across both legs of the cycle.
func (r CycleRecord) Volume() float64 {
	return (r.EntryPrice + r.ExitPrice) * r.Quantity
}

// Position is an open exchange position as reported by the account snapshot.
type Position struct {
	Symbol        string
	Direction     Direction
	Quantity      float64
	OpenPrice     float64
	UnrealizedPnl float64
}

// AccountInfo is a fresh account snapshot. Never cached across steps; the
// exchange account is authoritative and re-fetched for every read.
type AccountInfo struct {
	Balance      float64
	Positions    []Position
	MakerFeeRate float64
	TakerFeeRate float64
}

// PositionFor returns the open position for symbol, if any.
func (a AccountInfo) PositionFor(symbol string) (Position, bool) {
	for _, p := range a.Positions {
		if p.Symbol == symbol {
			return p, true
		}
	}
	return Position{}, false
}

// OrderDetails is the gateway's view of one order.
type OrderDetails struct {
	OrderID  string
	Status   string
	Price    float64
	Quantity float64
}

// AccountTrade is one executed fill from the account trade history, newest
// first. A non-zero Fee means the fill executed as taker.
type AccountTrade struct {
	Symbol    string
	Side      Side
	Price     float64
	Quantity  float64
	Fee       float64
	Timestamp time.Time
}
