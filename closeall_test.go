// FILE: closeall_test.go
package main

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestRunCloseAllFlattensPositions(t *testing.T) {
	gw := NewPaperGateway(1000)
	cfg := testConfig()
	ctx := context.Background()

	// Leave a long position and a resting order behind, as a failed close
	// leg would.
	if _, _, err := gw.PlaceMarketOrder(ctx, cfg.Symbol, 0.4, SideBuy, cfg.MaxFeePercent); err != nil {
		t.Fatalf("seed position: %v", err)
	}
	if _, _, err := gw.PlaceLimitOrder(ctx, cfg.Symbol, 0.4, 2499.50, SideBuy, cfg.MaxFeePercent); err != nil {
		t.Fatalf("seed order: %v", err)
	}

	if err := runCloseAll(ctx, gw, cfg); err != nil {
		t.Fatalf("runCloseAll: %v", err)
	}

	acct, _ := gw.GetAccountInfo(ctx)
	if len(acct.Positions) != 0 {
		t.Fatalf("positions remain after close-all: %d", len(acct.Positions))
	}

	// The round trip crossed the spread twice and paid taker fees both ways.
	spreadCost := (2500.02 - 2500.00) * 0.4
	fees := 2500.02*0.4*0.00045 + 2500.00*0.4*0.00045
	wantBalance := 1000 - spreadCost - fees
	if math.Abs(acct.Balance-wantBalance) > 1e-6 {
		t.Fatalf("balance = %.6f, want %.6f", acct.Balance, wantBalance)
	}
}

func TestRunCloseAllOnFlatAccount(t *testing.T) {
	gw := NewPaperGateway(1000)
	if err := runCloseAll(context.Background(), gw, testConfig()); err != nil {
		t.Fatalf("runCloseAll on a flat account: %v", err)
	}
}

// snapshotErrGateway fails every account snapshot.
type snapshotErrGateway struct {
	*PaperGateway
}

func (g *snapshotErrGateway) GetAccountInfo(ctx context.Context) (AccountInfo, error) {
	return AccountInfo{}, &GatewayError{Op: "account-info", Err: errors.New("venue unavailable")}
}

func TestRunCloseAllStopsWhenSnapshotsFail(t *testing.T) {
	gw := &snapshotErrGateway{NewPaperGateway(1000)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The retry pause between failed snapshots must honor cancellation rather
	// than spin through all attempts.
	if err := runCloseAll(ctx, gw, testConfig()); err == nil {
		t.Fatal("cancelled context with failing snapshots must surface an error")
	}
}
