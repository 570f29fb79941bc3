// FILE: config.go
// Package main – Runtime configuration model and loader.
//
// Config carries every knob the engine uses. The .env file is read by
// loadBotEnv() (see env.go), so behavior is tunable without exports or a
// recompile. All intervals are time.Duration fields so tests can compress
// the clock to milliseconds.
//
// Typical flow (see main.go):
//   loadBotEnv()
//   cfg := loadConfigFromEnv()

package main

import "time"

// Config holds all runtime knobs for one trading session.
type Config struct {
	// Trading target
	Symbol          string  // e.g. "ETH/USDT-P"
	Quantity        float64 // base quantity per cycle
	BookDepth       int     // order book levels requested per side
	BookGranularity float64 // price aggregation step for depth requests
	TickSize        float64 // minimum price increment

	// Maker guarantee: fee ceiling passed on every placement, set to the
	// venue's maker-qualifying minimum.
	MaxFeePercent float64

	// Session limits
	RunDuration time.Duration // total session budget
	MinBalance  float64       // abort/stop threshold (quote currency)

	// Leg cadence
	PollInterval        time.Duration // fill-status poll
	StatusLogInterval   time.Duration // "still waiting" log cadence
	OpenAdjustInterval  time.Duration // re-price cadence, opening legs
	CloseAdjustInterval time.Duration // re-price cadence, closing legs
	MaxCloseWait        time.Duration // forced-exit deadline for closing legs
	CancelSettleDelay   time.Duration // pause after cancel before re-quote
	RefreshRetryDelay   time.Duration // pause after a failed quote refresh

	// Cycle pacing
	InterLegWait    time.Duration // pause between open fill and close placement
	PostFillDelay   time.Duration // settle pause before verification reads
	InterCyclePause time.Duration // pause between cycles
	FailureBackoff  time.Duration // pause after a failed cycle

	// Loss prevention
	CooldownDuration time.Duration // pause after a loss streak
	SwitchDirection  bool          // flip LONG↔SHORT on losses instead

	// Ops
	Port    int    // /metrics + /healthz listen port
	Gateway string // "paper" or "hibachi"
}

// loadConfigFromEnv reads the process env (already hydrated by loadBotEnv())
// and returns a Config with the engine's stock defaults for missing keys.
func loadConfigFromEnv() Config {
	return Config{
		Symbol:          getEnv("SYMBOL", "ETH/USDT-P"),
		Quantity:        getEnvFloat("QUANTITY", 0.4),
		BookDepth:       getEnvInt("BOOK_DEPTH", 10),
		BookGranularity: getEnvFloat("BOOK_GRANULARITY", 0.01),
		TickSize:        getEnvFloat("TICK_SIZE", 0.01),

		MaxFeePercent: getEnvFloat("MAX_FEE_PERCENT", 0.00045),

		RunDuration: time.Duration(getEnvInt("RUN_DURATION_MIN", 2000)) * time.Minute,
		MinBalance:  getEnvFloat("MIN_BALANCE", 1.0),

		PollInterval:        getEnvSeconds("POLL_INTERVAL_SEC", 5*time.Second),
		StatusLogInterval:   getEnvSeconds("STATUS_LOG_INTERVAL_SEC", 15*time.Second),
		OpenAdjustInterval:  getEnvSeconds("OPEN_ADJUST_INTERVAL_SEC", 60*time.Second),
		CloseAdjustInterval: getEnvSeconds("CLOSE_ADJUST_INTERVAL_SEC", 30*time.Second),
		MaxCloseWait:        getEnvSeconds("MAX_CLOSE_WAIT_SEC", 20*time.Minute),
		CancelSettleDelay:   getEnvSeconds("CANCEL_SETTLE_SEC", 1*time.Second),
		RefreshRetryDelay:   getEnvSeconds("REFRESH_RETRY_SEC", 5*time.Second),

		InterLegWait:    getEnvSeconds("INTER_LEG_WAIT_SEC", 120*time.Second),
		PostFillDelay:   getEnvSeconds("POST_FILL_DELAY_SEC", 2*time.Second),
		InterCyclePause: getEnvSeconds("INTER_CYCLE_PAUSE_SEC", 10*time.Second),
		FailureBackoff:  getEnvSeconds("FAILURE_BACKOFF_SEC", 30*time.Second),

		CooldownDuration: getEnvSeconds("COOLDOWN_SEC", 10*time.Minute),
		SwitchDirection:  getEnvBool("SWITCH_DIRECTION", false),

		Port:    getEnvInt("PORT", 8080),
		Gateway: getEnv("GATEWAY", "paper"),
	}
}
