// FILE: cycle.go
// Package main – One round-trip cycle: open leg, pause, close leg, settle.
//
// CycleController owns a single cycle end to end:
//   1. fresh account snapshot, balance floor check
//   2. opening maker leg (lifecycle.go)
//   3. post-fill settle + position verification
//   4. inter-leg pause (volume cadence, not a market signal)
//   5. closing maker leg priced off the opening fill
//   6. realized P&L from the exchange balance delta, taker-fee audit
//
// Realized P&L is the balance delta reported by the exchange, never the
// price-difference arithmetic; the arithmetic is a fallback when the final
// snapshot cannot be fetched. A failed open leaves nothing behind (verified);
// a failed close leaves the position open and is flagged loudly.

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"
)

// errBalanceFloor ends the session: the account fell below the configured
// minimum and no further cycles may start.
var errBalanceFloor = errors.New("balance below configured minimum")

// errCycleFailed means the current cycle did not complete. The session backs
// off and continues. The two wrappers distinguish which leg gave up: a failed
// open leaves the account flat, a failed close leaves a position behind.
var (
	errCycleFailed = errors.New("cycle failed")
	errOpenFailed  = fmt.Errorf("open leg: %w", errCycleFailed)
	errCloseFailed = fmt.Errorf("close leg: %w", errCycleFailed)
)

// CycleController drives complete round trips and feeds results back into the
// trend tracker and session stats.
type CycleController struct {
	gw        ExchangeGateway
	lifecycle *OrderLifecycle
	trend     *TrendTracker
	stats     *SessionStats
	cfg       Config
}

// NewCycleController wires a controller over an already-built lifecycle.
func NewCycleController(gw ExchangeGateway, lc *OrderLifecycle, trend *TrendTracker, stats *SessionStats, cfg Config) *CycleController {
	return &CycleController{gw: gw, lifecycle: lc, trend: trend, stats: stats, cfg: cfg}
}

// RunCycle executes round trip number n in the tracker's active direction.
// Returns nil on a completed cycle, errBalanceFloor to end the session, or
// errCycleFailed when either leg could not complete.
func (c *CycleController) RunCycle(ctx context.Context, n int) error {
	dir := c.trend.Direction()
	log.Printf("[CYCLE] ===== cycle #%d (%s) =====", n, dir)
	startedAt := time.Now()

	acct, err := c.gw.GetAccountInfo(ctx)
	if err != nil {
		log.Printf("[CYCLE] account snapshot failed: %v", err)
		return errOpenFailed
	}
	if acct.Balance < c.cfg.MinBalance {
		log.Printf("[CYCLE] balance %.4f below minimum %.4f", acct.Balance, c.cfg.MinBalance)
		return errBalanceFloor
	}
	balanceBefore := acct.Balance
	log.Printf("[CYCLE] balance before: %.4f USDT", balanceBefore)

	open, err := c.lifecycle.OpenLeg(ctx, dir)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		log.Printf("[CYCLE] open leg failed: %v", err)
		c.abortCycle(ctx, dir, false)
		return errOpenFailed
	}
	log.Printf("[CYCLE] opened %s @ %.2f (%d re-prices)", dir, open.FillPrice, open.Adjustments)

	if err := sleepCtx(ctx, c.cfg.PostFillDelay); err != nil {
		return err
	}
	if err := c.confirmOpenPosition(ctx); err != nil {
		if ctx.Err() != nil {
			return err
		}
		log.Printf("[CYCLE] open verification failed: %v", err)
		c.abortCycle(ctx, dir, false)
		return errOpenFailed
	}

	log.Printf("[CYCLE] holding %ds before close leg", int(c.cfg.InterLegWait.Seconds()))
	if err := pauseWithProgress(ctx, c.cfg.InterLegWait, "[CYCLE] hold:"); err != nil {
		return err
	}

	closed, err := c.lifecycle.CloseLeg(ctx, dir, open.FillPrice)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		log.Printf("[CYCLE] close leg failed: %v", err)
		c.abortCycle(ctx, dir, true)
		return errCloseFailed
	}
	log.Printf("[CYCLE] closed %s @ %.2f (%d re-prices)", dir, closed.FillPrice, closed.Adjustments)

	if err := sleepCtx(ctx, c.cfg.PostFillDelay); err != nil {
		return err
	}
	c.verifyFlat(ctx)

	pnl, balanceAfter := c.realizedPnl(ctx, balanceBefore, dir, open.FillPrice, closed.FillPrice)
	fees := c.auditTakerFees(ctx, startedAt)

	rec := CycleRecord{
		Direction:        dir,
		EntryPrice:       open.FillPrice,
		ExitPrice:        closed.FillPrice,
		Quantity:         c.cfg.Quantity,
		RealizedPnl:      pnl,
		EntryAdjustments: open.Adjustments,
		ExitAdjustments:  closed.Adjustments,
		FeesPaid:         fees,
		CompletedAt:      time.Now(),
	}
	c.stats.RecordCycle(rec)

	result := "win"
	if pnl < 0 {
		result = "loss"
	}
	IncCycle(string(dir), result)
	AddVolume(rec.Volume())
	SetEquity(balanceAfter)

	flipped := c.trend.RecordResult(pnl)
	log.Printf("[CYCLE] #%d done: pnl %+.4f | volume %.2f | balance %.4f", n, pnl, rec.Volume(), balanceAfter)
	if flipped {
		log.Printf("[CYCLE] next cycle runs %s", c.trend.Direction())
	}
	return nil
}

// realizedPnl derives the cycle's P&L from the exchange balance delta. When
// the final snapshot cannot be fetched it falls back to fill-price arithmetic.
func (c *CycleController) realizedPnl(ctx context.Context, balanceBefore float64, dir Direction, entry, exit float64) (pnl, balanceAfter float64) {
	acct, err := c.gw.GetAccountInfo(ctx)
	if err != nil {
		log.Printf("[CYCLE] final snapshot failed, using fill-price pnl: %v", err)
		if dir == DirLong {
			pnl = (exit - entry) * c.cfg.Quantity
		} else {
			pnl = (entry - exit) * c.cfg.Quantity
		}
		return pnl, balanceBefore + pnl
	}
	return acct.Balance - balanceBefore, acct.Balance
}

// confirmOpenPosition re-reads the account until the opening fill shows up as
// a position. The snapshot can lag the fill, so a few retries are allowed; if
// the position never appears the cycle must not place a closing order, since
// closing a position that does not exist opens a fresh one on the other side.
func (c *CycleController) confirmOpenPosition(ctx context.Context) error {
	const attempts = 3
	for i := 1; i <= attempts; i++ {
		acct, err := c.gw.GetAccountInfo(ctx)
		if err != nil {
			log.Printf("[CYCLE] position check error (%d/%d): %v", i, attempts, err)
		} else if pos, ok := acct.PositionFor(c.cfg.Symbol); ok {
			log.Printf("[CYCLE] position confirmed: %s %.4f @ %.2f", pos.Direction, pos.Quantity, pos.OpenPrice)
			return nil
		}
		if i < attempts {
			if err := sleepCtx(ctx, c.cfg.RefreshRetryDelay); err != nil {
				return err
			}
		}
	}
	return errors.New("open fill reported but no position on the account")
}

// verifyFlat checks that nothing is left on the book after the closing fill.
// Advisory only: the balance delta stays authoritative for the cycle result.
func (c *CycleController) verifyFlat(ctx context.Context) {
	acct, err := c.gw.GetAccountInfo(ctx)
	if err != nil {
		log.Printf("[CYCLE] position check skipped: %v", err)
		return
	}
	if pos, ok := acct.PositionFor(c.cfg.Symbol); ok && math.Abs(pos.Quantity) > 1e-9 {
		log.Printf("[CYCLE] WARNING: residual position after close: %s %.4f", pos.Direction, pos.Quantity)
	}
}

// auditTakerFees sums fees on fills executed since the cycle started. Any
// non-zero fee means an order executed as taker, which the engine must never
// do; it is logged loudly and carried into the cycle record.
func (c *CycleController) auditTakerFees(ctx context.Context, since time.Time) float64 {
	trades, err := c.gw.GetAccountTrades(ctx)
	if err != nil {
		log.Printf("[FEES] audit skipped: %v", err)
		return 0
	}
	var fees float64
	for _, t := range trades {
		if t.Timestamp.Before(since) {
			continue
		}
		if t.Fee > 0 {
			fees += t.Fee
			log.Printf("[FEES] WARNING: taker fee %.6f on %s %s %.4f @ %.2f",
				t.Fee, t.Side, t.Symbol, t.Quantity, t.Price)
		}
	}
	if fees > 0 {
		AddTakerFees(fees)
	}
	return fees
}

// abortCycle cleans up after a failed leg. afterOpen distinguishes a failed
// close (position remains on the book) from a failed open (nothing should).
func (c *CycleController) abortCycle(ctx context.Context, dir Direction, afterOpen bool) {
	if err := c.gw.CancelAllOrders(ctx); err != nil {
		log.Printf("[CYCLE] cancel-all during abort: %v", err)
	}
	c.stats.RecordFailure()
	IncCycle(string(dir), "failed")

	acct, err := c.gw.GetAccountInfo(ctx)
	if err != nil {
		log.Printf("[CYCLE] abort verification failed: %v", err)
		return
	}
	pos, ok := acct.PositionFor(c.cfg.Symbol)
	if !ok {
		if afterOpen {
			log.Printf("[CYCLE] position already flat after failed close")
		}
		return
	}
	if afterOpen {
		log.Printf("[CYCLE] ALERT: %s position %.4f @ %.2f left open after failed close; run -close-all or intervene manually",
			pos.Direction, pos.Quantity, pos.OpenPrice)
		return
	}
	log.Printf("[CYCLE] WARNING: unexpected %s position %.4f after failed open", pos.Direction, pos.Quantity)
}
