// FILE: cycle_test.go
package main

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

func newTestController(gw ExchangeGateway, cfg Config, trend *TrendTracker) (*CycleController, *SessionStats) {
	oracle := NewPriceOracle(gw, cfg.Symbol, cfg.BookDepth, cfg.BookGranularity)
	lc := NewOrderLifecycle(gw, oracle, NewPricingPolicy(cfg.TickSize), trend, cfg)
	stats := NewSessionStats(1000)
	return NewCycleController(gw, lc, trend, stats, cfg), stats
}

func TestRunCycleCompletesRoundTrip(t *testing.T) {
	gw := NewPaperGateway(1000)
	gw.SetFillAfterPolls(1)
	cfg := testConfig()
	trend := NewTrendTracker()
	c, stats := newTestController(gw, cfg, trend)

	if err := c.RunCycle(context.Background(), 1); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if len(stats.Cycles) != 1 {
		t.Fatalf("recorded cycles = %d, want 1", len(stats.Cycles))
	}

	rec := stats.Cycles[0]
	// Open buy rests at 2499.80, close sell at ask+0.20 = 2500.22; realized
	// P&L comes from the exchange balance delta, which must match.
	if !almostEqual(rec.EntryPrice, 2499.80) || !almostEqual(rec.ExitPrice, 2500.22) {
		t.Fatalf("entry/exit = %.2f/%.2f, want 2499.80/2500.22", rec.EntryPrice, rec.ExitPrice)
	}
	wantPnl := (2500.22 - 2499.80) * 0.4
	if math.Abs(rec.RealizedPnl-wantPnl) > 1e-6 {
		t.Fatalf("realized pnl = %.6f, want %.6f", rec.RealizedPnl, wantPnl)
	}
	wantVolume := (2499.80 + 2500.22) * 0.4
	if math.Abs(rec.Volume()-wantVolume) > 1e-6 {
		t.Fatalf("volume = %.4f, want %.4f", rec.Volume(), wantVolume)
	}
	if rec.FeesPaid != 0 {
		t.Fatalf("maker-only cycle must pay no fees, got %.6f", rec.FeesPaid)
	}

	// Both legs done: the account must be flat again.
	acct, _ := gw.GetAccountInfo(context.Background())
	if _, ok := acct.PositionFor(cfg.Symbol); ok {
		t.Fatal("position must be flat after a completed cycle")
	}
	if math.Abs(acct.Balance-(1000+wantPnl)) > 1e-6 {
		t.Fatalf("balance = %.6f, want %.6f", acct.Balance, 1000+wantPnl)
	}
}

func TestRunCycleShortDirection(t *testing.T) {
	gw := NewPaperGateway(1000)
	gw.SetFillAfterPolls(1)
	cfg := testConfig()
	trend := NewDirectionTracker()
	trend.direction = DirShort
	c, stats := newTestController(gw, cfg, trend)

	if err := c.RunCycle(context.Background(), 1); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	rec := stats.Cycles[0]
	if rec.Direction != DirShort {
		t.Fatalf("direction = %s, want SHORT", rec.Direction)
	}
	// Short opens with a sell above the ask and closes with a buy below the
	// bid, so the entry must sit above the exit's reference side.
	if rec.EntryPrice <= rec.ExitPrice-1.0 {
		t.Fatalf("implausible short fills: entry %.2f exit %.2f", rec.EntryPrice, rec.ExitPrice)
	}
}

func TestRunCycleBalanceFloor(t *testing.T) {
	gw := NewPaperGateway(0.5)
	cfg := testConfig()
	c, _ := newTestController(gw, cfg, NewTrendTracker())

	if err := c.RunCycle(context.Background(), 1); !errors.Is(err, errBalanceFloor) {
		t.Fatalf("err = %v, want errBalanceFloor", err)
	}
}

func TestRunCycleFailedOpenCountsFailure(t *testing.T) {
	gw := NewPaperGateway(1000)
	gw.SetBooks(OrderBookSnapshot{}) // oracle can never price the book
	cfg := testConfig()
	c, stats := newTestController(gw, cfg, NewTrendTracker())

	if err := c.RunCycle(context.Background(), 1); !errors.Is(err, errCycleFailed) {
		t.Fatalf("err = %v, want errCycleFailed", err)
	}
	if stats.FailedCycles != 1 {
		t.Fatalf("FailedCycles = %d, want 1", stats.FailedCycles)
	}
	if len(stats.Cycles) != 0 {
		t.Fatalf("failed cycle must not record a round trip, got %d", len(stats.Cycles))
	}
}

// flatAccountGateway simulates a venue whose account snapshots never show a
// position, as if the reported fill evaporated.
type flatAccountGateway struct {
	*PaperGateway
}

func (g *flatAccountGateway) GetAccountInfo(ctx context.Context) (AccountInfo, error) {
	acct, err := g.PaperGateway.GetAccountInfo(ctx)
	acct.Positions = nil
	return acct, err
}

func TestRunCycleAbortsWhenOpenPositionMissing(t *testing.T) {
	gw := NewPaperGateway(1000)
	gw.SetFillAfterPolls(1)
	cfg := testConfig()
	c, stats := newTestController(&flatAccountGateway{gw}, cfg, NewTrendTracker())

	if err := c.RunCycle(context.Background(), 1); !errors.Is(err, errCycleFailed) {
		t.Fatalf("err = %v, want errCycleFailed", err)
	}
	if stats.FailedCycles != 1 {
		t.Fatalf("FailedCycles = %d, want 1", stats.FailedCycles)
	}
	if len(stats.Cycles) != 0 {
		t.Fatalf("unverified cycle must not record a round trip, got %d", len(stats.Cycles))
	}

	// With the position unconfirmed the close leg must never run: selling
	// against a position the venue denies would open a fresh short instead.
	gw.mu.Lock()
	for _, o := range gw.orders {
		if o.side == SideSell {
			gw.mu.Unlock()
			t.Fatal("closing sell placed despite the missing position")
		}
	}
	gw.mu.Unlock()
}

func TestAuditDetectsTakerFees(t *testing.T) {
	gw := NewPaperGateway(1000)
	cfg := testConfig()
	c, _ := newTestController(gw, cfg, NewTrendTracker())
	ctx := context.Background()

	// A market order executes as taker and pays the taker rate.
	if _, _, err := gw.PlaceMarketOrder(ctx, cfg.Symbol, 0.4, SideBuy, cfg.MaxFeePercent); err != nil {
		t.Fatalf("market order: %v", err)
	}

	fees := c.auditTakerFees(ctx, time.Now().Add(-time.Minute))
	wantFee := 2500.02 * 0.4 * 0.00045
	if math.Abs(fees-wantFee) > 1e-9 {
		t.Fatalf("audited fees = %.8f, want %.8f", fees, wantFee)
	}

	// Fills before the audit window are ignored.
	if got := c.auditTakerFees(ctx, time.Now().Add(time.Minute)); got != 0 {
		t.Fatalf("audit outside the window = %.8f, want 0", got)
	}
}

func TestCycleResultFeedsTrendTracker(t *testing.T) {
	gw := NewPaperGateway(1000)
	gw.SetFillAfterPolls(1)
	cfg := testConfig()
	trend := NewTrendTracker()
	c, _ := newTestController(gw, cfg, trend)

	// Seed an existing loss streak; the profitable cycle must clear it.
	trend.RecordResult(-0.60)
	trend.RecordResult(-0.70)
	if err := c.RunCycle(context.Background(), 1); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if trend.ConsecutiveLosses() != 0 {
		t.Fatalf("profitable cycle must reset the streak, got %d", trend.ConsecutiveLosses())
	}
}
