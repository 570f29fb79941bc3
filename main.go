// FILE: main.go
// Package main – Program entrypoint and HTTP/metrics server.
//
// Boot sequence:
//   1) loadBotEnv()               – read .env (no shell exports required)
//   2) cfg := loadConfigFromEnv() – build runtime Config
//   3) wire gateway (paper or hibachi)
//   4) start Prometheus /healthz server on cfg.Port
//   5) runSession or runCloseAll based on flags
//
// Flags:
//   -close-all        Flatten the account (cancel orders, market-close) and exit
//   -duration <min>   Override RUN_DURATION_MIN for this run
//
// Example:
//   go run . -duration 60
//
// Notes:
//   - GATEWAY=paper (default) runs the in-memory venue; no keys needed.
//   - GATEWAY=hibachi requires HIBACHI_API_KEY/SECRET/ACCOUNT_ID in .env.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// ---- Flags ----
	var closeAll bool
	var durationMin int
	flag.BoolVar(&closeAll, "close-all", false, "Cancel all orders, market-close all positions, then exit")
	flag.IntVar(&durationMin, "duration", 0, "Session duration in minutes (overrides RUN_DURATION_MIN)")
	flag.Parse()

	// ---- Environment & Config ----
	loadBotEnv()
	cfg := loadConfigFromEnv()
	if durationMin > 0 {
		cfg.RunDuration = time.Duration(durationMin) * time.Minute
	}

	// ---- Gateway wiring ----
	var gw ExchangeGateway
	switch strings.ToLower(cfg.Gateway) {
	case "hibachi":
		hg, err := NewHibachiGatewayFromEnv()
		if err != nil {
			log.Fatalf("hibachi gateway init: %v", err)
		}
		gw = hg
	default:
		gw = NewPaperGateway(getEnvFloat("PAPER_BALANCE", 1000))
	}

	// ---- HTTP metrics/health ----
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Port), Handler: mux}
	go func() {
		log.Printf("serving metrics on :%d/metrics", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	// ---- Run selected mode ----
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var runErr error
	if closeAll {
		runErr = runCloseAll(ctx, gw, cfg)
	} else {
		runErr = runSession(ctx, gw, cfg)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Printf("run: %v", runErr)
	}

	// ---- Graceful shutdown for HTTP server ----
	shutdownCtx, c := context.WithTimeout(context.Background(), 2*time.Second)
	defer c()
	_ = srv.Shutdown(shutdownCtx)
}
