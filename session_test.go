// FILE: session_test.go
package main

import (
	"context"
	"testing"
	"time"
)

func TestSleepCtx(t *testing.T) {
	ctx := context.Background()
	if err := sleepCtx(ctx, 0); err != nil {
		t.Fatalf("zero sleep: %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := sleepCtx(cancelled, time.Hour); err == nil {
		t.Fatal("cancelled context must interrupt the sleep")
	}
}

func TestRunSessionCompletesCycles(t *testing.T) {
	gw := NewPaperGateway(1000)
	gw.SetFillAfterPolls(1)
	cfg := testConfig()
	cfg.RunDuration = 100 * time.Millisecond

	if err := runSession(context.Background(), gw, cfg); err != nil {
		t.Fatalf("runSession: %v", err)
	}

	// Cycles ran against the paper venue; every completed round trip leaves
	// the balance slightly up and the book flat.
	acct, _ := gw.GetAccountInfo(context.Background())
	if acct.Balance <= 1000 {
		t.Fatalf("balance = %.4f, want above the 1000 start after maker cycles", acct.Balance)
	}
	if len(acct.Positions) != 0 {
		t.Fatalf("positions must be flat after the session, got %d", len(acct.Positions))
	}
}

func TestRunSessionRefusesLowStartingBalance(t *testing.T) {
	gw := NewPaperGateway(0.5)
	cfg := testConfig()
	cfg.RunDuration = time.Second

	if err := runSession(context.Background(), gw, cfg); err == nil {
		t.Fatal("a balance below the minimum must abort the session at boot")
	}
}

func TestRunSessionHonorsCancellation(t *testing.T) {
	gw := NewPaperGateway(1000)
	gw.SetFillAfterPolls(1 << 30) // legs never fill, session spins until cancelled
	cfg := testConfig()
	cfg.RunDuration = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runSession(ctx, gw, cfg) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runSession after cancel: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop after cancellation")
	}
}
