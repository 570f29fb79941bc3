// FILE: gateway.go
// Package main – Exchange gateway abstraction shared by all backends.
//
// This file defines the minimal interface the engine needs to talk to the
// venue (simulated or real):
//   • ExchangeGateway interface: order book, limit/market placement, cancel,
//     order status, account snapshot, trade history
//   • Error taxonomy: GatewayError (transient reads), RejectedOrderError
//     (placement refused)
//
// Two concrete implementations live in separate files:
//   • gateway_paper.go   – in-memory simulated venue (no external calls)
//   • gateway_hibachi.go – REST client for the exchange API
package main

import (
	"context"
	"errors"
	"fmt"
)

// ExchangeGateway is the only boundary the core crosses. All calls are
// remote-procedure semantics; the account is never cached by callers.
type ExchangeGateway interface {
	Name() string

	// GetOrderBook returns raw depth for symbol. Failures are transient.
	GetOrderBook(ctx context.Context, symbol string, depth int, granularity float64) (OrderBookSnapshot, error)

	// PlaceLimitOrder submits a resting limit order with a fee ceiling that
	// keeps it maker-qualifying. A *RejectedOrderError aborts the current
	// attempt only, never the session.
	PlaceLimitOrder(ctx context.Context, symbol string, quantity, price float64, side Side, maxFeePercent float64) (nonce uint64, orderID string, err error)

	// PlaceMarketOrder executes immediately. Used only by the emergency
	// close-all utility, never by the steady-state engine.
	PlaceMarketOrder(ctx context.Context, symbol string, quantity float64, side Side, maxFeePercent float64) (nonce uint64, orderID string, err error)

	// CancelOrder is best-effort: the order may already be filled or gone.
	CancelOrder(ctx context.Context, orderID string) error

	// CancelAllOrders removes every resting order on the account.
	CancelAllOrders(ctx context.Context) error

	// GetOrderDetails reports order status. A status containing "FILLED"
	// signals completion; anything else means still resting.
	GetOrderDetails(ctx context.Context, orderID string) (OrderDetails, error)

	// GetAccountInfo returns balance, positions, and fee rates, always fresh.
	GetAccountInfo(ctx context.Context) (AccountInfo, error)

	// GetAccountTrades returns recent fills, newest first.
	GetAccountTrades(ctx context.Context) ([]AccountTrade, error)
}

// GatewayError wraps a transient network/decode failure on a gateway read.
// Callers retry after a short delay within their own time budget.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string { return fmt.Sprintf("gateway %s: %v", e.Op, e.Err) }
func (e *GatewayError) Unwrap() error { return e.Err }

// RejectedOrderError means the venue refused a placement (price crosses the
// book, quantity below minimum). Fatal for this attempt, not for the session.
type RejectedOrderError struct {
	Reason string
}

func (e *RejectedOrderError) Error() string { return "order rejected: " + e.Reason }

// ErrBookUnavailable is returned by the oracle when no usable (bid, ask) pair
// can be derived. Treated as transient: retry after a short delay.
var ErrBookUnavailable = errors.New("order book unavailable")

// isTransient reports whether err is worth a blind retry after a pause.
func isTransient(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge) || errors.Is(err, ErrBookUnavailable)
}
