// FILE: closeall.go
// Package main – Emergency flatten: cancel everything, market-close positions.
//
// runCloseAll is the -close-all utility: it cancels every resting order, then
// market-closes each open position and re-verifies until the account is flat
// or attempts run out. Market orders pay taker fees; this path exists for
// recovery after a failed close leg, never for steady-state operation.

package main

import (
	"context"
	"fmt"
	"log"
	"time"
)

const closeAllAttempts = 3

// runCloseAll flattens the account. Returns an error if positions remain
// after all attempts.
func runCloseAll(ctx context.Context, gw ExchangeGateway, cfg Config) error {
	log.Printf("[CLOSE-ALL] cancelling all resting orders")
	if err := gw.CancelAllOrders(ctx); err != nil {
		log.Printf("[CLOSE-ALL] cancel-all: %v", err)
	}

	for attempt := 1; attempt <= closeAllAttempts; attempt++ {
		acct, err := gw.GetAccountInfo(ctx)
		if err != nil {
			log.Printf("[CLOSE-ALL] account snapshot: %v", err)
			if err := sleepCtx(ctx, 2*time.Second); err != nil {
				return err
			}
			continue
		}
		if len(acct.Positions) == 0 {
			log.Printf("[CLOSE-ALL] account flat, balance %.4f", acct.Balance)
			return nil
		}

		log.Printf("[CLOSE-ALL] attempt %d/%d: %d open position(s)", attempt, closeAllAttempts, len(acct.Positions))
		for _, pos := range acct.Positions {
			side := pos.Direction.CloseSide()
			log.Printf("[CLOSE-ALL] market %s %.4f %s (opened @ %.2f)", side, pos.Quantity, pos.Symbol, pos.OpenPrice)
			if _, id, err := gw.PlaceMarketOrder(ctx, pos.Symbol, pos.Quantity, side, cfg.MaxFeePercent); err != nil {
				log.Printf("[CLOSE-ALL] market order failed: %v", err)
			} else {
				log.Printf("[CLOSE-ALL] market order placed: %s", id)
			}
		}
		if err := sleepCtx(ctx, cfg.PostFillDelay); err != nil {
			return err
		}
	}

	acct, err := gw.GetAccountInfo(ctx)
	if err != nil {
		return fmt.Errorf("close-all: final verification: %w", err)
	}
	if len(acct.Positions) > 0 {
		return fmt.Errorf("close-all: %d position(s) still open after %d attempts", len(acct.Positions), closeAllAttempts)
	}
	log.Printf("[CLOSE-ALL] account flat, balance %.4f", acct.Balance)
	return nil
}
