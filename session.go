// FILE: session.go
// Package main – The session loop: cycles, pacing, cooldowns, recap.
//
// runSession wires the oracle, policy, trend tracker, lifecycle, and cycle
// controller over one gateway and runs cycles until the duration budget is
// spent, the balance floor is hit, or the context is cancelled. Between
// cycles it serves cooldowns demanded by the loss streak and applies backoff
// after failures. It always prints the recap and cancels stray orders on the
// way out.

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// sleepCtx sleeps for d or until ctx is cancelled, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// pauseWithProgress sleeps for d in short slices, logging the remaining time
// about once per minute so long pauses stay visible in the log.
func pauseWithProgress(ctx context.Context, d time.Duration, tag string) error {
	const slice = 10 * time.Second
	deadline := time.Now().Add(d)
	lastLog := time.Now()
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ctx.Err()
		}
		step := slice
		if step > remaining {
			step = remaining
		}
		if err := sleepCtx(ctx, step); err != nil {
			return err
		}
		if time.Since(lastLog) >= time.Minute {
			log.Printf("%s %s remaining", tag, time.Until(deadline).Round(time.Second))
			lastLog = time.Now()
		}
	}
}

// runSession executes one full trading session against gw.
func runSession(ctx context.Context, gw ExchangeGateway, cfg Config) error {
	var trend *TrendTracker
	if cfg.SwitchDirection {
		trend = NewDirectionTracker()
		log.Printf("[BOOT] loss handling: direction switching")
	} else {
		trend = NewTrendTracker()
		log.Printf("[BOOT] loss handling: cooldown after %d losses", cooldownLossCount)
	}

	oracle := NewPriceOracle(gw, cfg.Symbol, cfg.BookDepth, cfg.BookGranularity)
	policy := NewPricingPolicy(cfg.TickSize)
	lifecycle := NewOrderLifecycle(gw, oracle, policy, trend, cfg)

	acct, err := gw.GetAccountInfo(ctx)
	for attempt := 1; err != nil && isTransient(err) && attempt <= 3; attempt++ {
		log.Printf("[BOOT] account snapshot retry %d: %v", attempt, err)
		if serr := sleepCtx(ctx, 2*time.Second); serr != nil {
			return serr
		}
		acct, err = gw.GetAccountInfo(ctx)
	}
	if err != nil {
		return err
	}
	log.Printf("[BOOT] gateway=%s symbol=%s qty=%.4f balance=%.4f maker=%.5f taker=%.5f",
		gw.Name(), cfg.Symbol, cfg.Quantity, acct.Balance, acct.MakerFeeRate, acct.TakerFeeRate)
	if acct.Balance < cfg.MinBalance {
		return fmt.Errorf("starting balance %.4f below minimum %.4f", acct.Balance, cfg.MinBalance)
	}
	SetEquity(acct.Balance)

	stats := NewSessionStats(acct.Balance)
	controller := NewCycleController(gw, lifecycle, trend, stats, cfg)

	deadline := time.Now().Add(cfg.RunDuration)
	log.Printf("[BOOT] session runs until %s", deadline.Format(time.RFC3339))

	cycleNum := 0
	for time.Now().Before(deadline) && ctx.Err() == nil {
		if trend.ShouldCooldown() {
			serveCooldown(ctx, trend, cfg.CooldownDuration)
			continue
		}

		cycleNum++
		log.Printf("[SESSION] %s left in the session budget", time.Until(deadline).Round(time.Second))
		err := controller.RunCycle(ctx, cycleNum)
		if errors.Is(err, errBalanceFloor) {
			log.Printf("[SESSION] stopping: %v", err)
			break
		}
		if ctx.Err() != nil {
			break
		}
		if err != nil {
			if !errors.Is(err, errCycleFailed) {
				log.Printf("[SESSION] cycle error: %v", err)
			}
			log.Printf("[SESSION] backing off %ds", int(cfg.FailureBackoff.Seconds()))
			if sleepCtx(ctx, cfg.FailureBackoff) != nil {
				break
			}
			continue
		}
		if sleepCtx(ctx, cfg.InterCyclePause) != nil {
			break
		}
	}

	teardown(gw, cfg)

	endBalance := stats.StartBalance + stats.TotalPnl()
	if acct, err := gw.GetAccountInfo(context.Background()); err == nil {
		endBalance = acct.Balance
		for _, pos := range acct.Positions {
			log.Printf("[SESSION] ALERT: open position at shutdown: %s %s %.4f @ %.2f",
				pos.Symbol, pos.Direction, pos.Quantity, pos.OpenPrice)
		}
	}
	stats.PrintRecap(endBalance, trend)
	return nil
}

// serveCooldown pauses trading after a loss streak and resets the counter.
func serveCooldown(ctx context.Context, trend *TrendTracker, d time.Duration) {
	until := time.Now().Add(d)
	trend.BeginCooldown(until)
	IncCooldown()
	log.Printf("[SESSION] %d consecutive losses, cooling down until %s",
		trend.ConsecutiveLosses(), until.Format("15:04:05"))
	_ = pauseWithProgress(ctx, d, "[SESSION] cooldown:")
	trend.EndCooldown()
	log.Printf("[SESSION] cooldown over, resuming cycles")
}

// teardown cancels stray orders with a short independent deadline so shutdown
// cleanup still runs after the session context is cancelled.
func teardown(gw ExchangeGateway, cfg Config) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := gw.CancelAllOrders(ctx); err != nil {
		log.Printf("[SESSION] teardown cancel-all: %v", err)
		return
	}
	log.Printf("[SESSION] open orders cancelled")
}
