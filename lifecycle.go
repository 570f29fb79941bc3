// FILE: lifecycle.go
// Package main – Order lifecycle: place, poll, re-price, fill.
//
// One leg = one maker order worked until it fills:
//   Placing → Resting → {Filled | Adjusting → Resting} → Terminal
//
// Resting polls order status every PollInterval. Adjusting triggers when the
// time since the last price-set exceeds the leg's adjustment interval (60s
// opening, 30s closing) or the closing leg hits its forced-exit deadline:
// cancel best-effort, re-query the oracle, recompute via the pricing policy,
// re-submit. The leg abandons only after repeated quote-refresh failures.
//
// Invariant: at most one order per leg rests at a time; a replacement is
// never submitted before the prior order's cancel has been attempted.

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

// maxRefreshFailures is how many consecutive failed quote refreshes a leg
// tolerates during adjustment before reporting Abandoned.
const maxRefreshFailures = 5

// errLegAbandoned means the leg gave up after repeated refresh failures. The
// exchange-side state is unknown; the caller must re-verify via the account.
var errLegAbandoned = errors.New("leg abandoned after repeated refresh failures")

// OrderLifecycle works one maker order per leg against the gateway.
type OrderLifecycle struct {
	gw     ExchangeGateway
	oracle *PriceOracle
	policy PricingPolicy
	trend  *TrendTracker
	cfg    Config
}

// NewOrderLifecycle wires the leg runner with its collaborators.
func NewOrderLifecycle(gw ExchangeGateway, oracle *PriceOracle, policy PricingPolicy, trend *TrendTracker, cfg Config) *OrderLifecycle {
	return &OrderLifecycle{gw: gw, oracle: oracle, policy: policy, trend: trend, cfg: cfg}
}

// legPlan describes one leg to the shared runner.
type legPlan struct {
	side       Side
	dir        Direction
	closing    bool
	entryPrice float64 // closing legs only
}

func (s legPlan) name() string {
	if s.closing {
		return "close"
	}
	return "open"
}

// OpenLeg works the opening maker order for a cycle in dir.
func (l *OrderLifecycle) OpenLeg(ctx context.Context, dir Direction) (LegResult, error) {
	return l.runLeg(ctx, legPlan{side: dir.OpenSide(), dir: dir})
}

// CloseLeg works the closing maker order, pricing off the opening fill.
func (l *OrderLifecycle) CloseLeg(ctx context.Context, dir Direction, entryPrice float64) (LegResult, error) {
	return l.runLeg(ctx, legPlan{side: dir.CloseSide(), dir: dir, closing: true, entryPrice: entryPrice})
}

// trackPoint feeds the trend window with the touch the leg prices against.
func (l *OrderLifecycle) trackPoint(side Side, q Quote) {
	if side == SideBuy {
		l.trend.AddPricePoint(q.Bid)
	} else {
		l.trend.AddPricePoint(q.Ask)
	}
}

// priceFor computes the working price for the leg at the given re-price count.
func (l *OrderLifecycle) priceFor(plan legPlan, q Quote, adjustments int, forced bool) float64 {
	if !plan.closing {
		return l.policy.Open(plan.side, q, l.trend.IsDowntrend(), adjustments)
	}
	price, potential := l.policy.Close(plan.dir, q, plan.entryPrice, l.cfg.Quantity, adjustments, forced)
	log.Printf("[LEG] potential pnl at touch: %+.2f -> %s close @ %.2f", potential, plan.dir, price)
	return price
}

// runLeg drives one leg to Filled or failure.
func (l *OrderLifecycle) runLeg(ctx context.Context, plan legPlan) (LegResult, error) {
	adjustInterval := l.cfg.OpenAdjustInterval
	if plan.closing {
		adjustInterval = l.cfg.CloseAdjustInterval
	}

	q, err := l.oracle.Quote(ctx)
	if err != nil {
		return LegResult{}, fmt.Errorf("%s leg initial quote: %w", plan.name(), err)
	}
	l.trackPoint(plan.side, q)
	if !plan.closing && l.trend.IsDowntrend() {
		log.Printf("[LEG] downtrend detected, widening %s offset", plan.side)
	}
	log.Printf("[LEG] market: bid %.2f | ask %.2f | spread %.2f", q.Bid, q.Ask, q.Spread())

	price := l.priceFor(plan, q, 0, false)
	log.Printf("[LEG] placing maker %s %s %.4f %s @ %.2f", plan.name(), plan.side, l.cfg.Quantity, l.cfg.Symbol, price)

	_, id, err := l.gw.PlaceLimitOrder(ctx, l.cfg.Symbol, l.cfg.Quantity, price, plan.side, l.cfg.MaxFeePercent)
	if err != nil {
		return LegResult{}, fmt.Errorf("%s leg placement: %w", plan.name(), err)
	}
	order := WorkingOrder{
		ID:       id,
		Side:     plan.side,
		Symbol:   l.cfg.Symbol,
		Quantity: l.cfg.Quantity,
		Price:    price,
		PlacedAt: time.Now(),
	}
	IncOrderPlaced(string(plan.side), plan.name())
	log.Printf("[LEG] maker order placed: %s", order.ID)

	start := order.PlacedAt
	lastStatus := start
	refreshFailures := 0

	for {
		if err := sleepCtx(ctx, l.cfg.PollInterval); err != nil {
			return LegResult{}, err
		}
		elapsed := time.Since(start)

		statusDue := time.Since(lastStatus) >= l.cfg.StatusLogInterval
		if statusDue {
			next := adjustInterval - time.Since(order.PlacedAt)
			if next < 0 {
				next = 0
			}
			log.Printf("[LEG] [%ds] waiting for maker %s fill... (next re-price in %ds)",
				int(elapsed.Seconds()), plan.name(), int(next.Seconds()))
			lastStatus = time.Now()
		}

		od, err := l.gw.GetOrderDetails(ctx, order.ID)
		if err == nil && strings.Contains(od.Status, "FILLED") {
			log.Printf("[LEG] maker %s %s FILLED in %ds @ %.2f (no fees)",
				plan.name(), plan.side, int(elapsed.Seconds()), order.Price)
			return LegResult{FillPrice: order.Price, OrderID: order.ID, Adjustments: order.Adjustments, Elapsed: elapsed}, nil
		}
		if err != nil && statusDue {
			log.Printf("[LEG] status check error: %v", err)
		}

		forced := plan.closing && l.cfg.MaxCloseWait > 0 && elapsed >= l.cfg.MaxCloseWait
		if time.Since(order.PlacedAt) < adjustInterval && !forced {
			continue
		}

		// Adjusting: cancel-then-replace, never two live orders per leg.
		order.Adjustments++
		if forced {
			log.Printf("[LEG] MAX WAIT reached (%ds) - forcing exit price", int(elapsed.Seconds()))
		}
		log.Printf("[LEG] re-pricing %s order (#%d)", plan.name(), order.Adjustments)
		if err := l.gw.CancelOrder(ctx, order.ID); err != nil {
			// The order may already be filled or gone; the next status poll
			// settles which.
			log.Printf("[LEG] cancel error (ignored): %v", err)
		}
		if err := sleepCtx(ctx, l.cfg.CancelSettleDelay); err != nil {
			return LegResult{}, err
		}

		q, err = l.oracle.Quote(ctx)
		if err != nil {
			refreshFailures++
			log.Printf("[LEG] could not refresh quote (%d/%d): %v", refreshFailures, maxRefreshFailures, err)
			if refreshFailures >= maxRefreshFailures {
				IncLegFailure(plan.name())
				return LegResult{Adjustments: order.Adjustments}, errLegAbandoned
			}
			if err := sleepCtx(ctx, l.cfg.RefreshRetryDelay); err != nil {
				return LegResult{}, err
			}
			continue
		}
		refreshFailures = 0
		l.trackPoint(plan.side, q)
		log.Printf("[LEG] market now: bid %.2f | ask %.2f", q.Bid, q.Ask)

		price = l.priceFor(plan, q, order.Adjustments, forced)
		_, newID, err := l.gw.PlaceLimitOrder(ctx, l.cfg.Symbol, l.cfg.Quantity, price, plan.side, l.cfg.MaxFeePercent)
		if err != nil {
			log.Printf("[LEG] re-placement error: %v", err)
			if err := sleepCtx(ctx, l.cfg.RefreshRetryDelay); err != nil {
				return LegResult{}, err
			}
			continue
		}
		order.ID = newID
		order.Price = price
		order.PlacedAt = time.Now()
		IncOrderPlaced(string(plan.side), plan.name())
		IncAdjustment(plan.name())
		log.Printf("[LEG] new maker order placed: %s @ %.2f", order.ID, order.Price)
	}
}
