// FILE: gateway_hibachi.go
// Package main – REST gateway for the Hibachi perpetuals API.
//
// Auth: api key header plus an HMAC-SHA256 signature of the request payload
// keyed by the account secret. Decimals travel as strings on the wire and are
// parsed with the hc* helpers. Order nonces are unix nanos, monotonic per
// process. Transport failures and HTTP >= 500 surface as *GatewayError
// (transient); HTTP 4xx on placement surfaces as *RejectedOrderError.

package main

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// HibachiGateway implements ExchangeGateway over the exchange REST API.
type HibachiGateway struct {
	client    *http.Client
	tradeURL  string
	dataURL   string
	apiKey    string
	apiSecret string
	accountID string

	lastNonce atomic.Uint64
}

// NewHibachiGatewayFromEnv builds the gateway from HIBACHI_* env vars.
func NewHibachiGatewayFromEnv() (*HibachiGateway, error) {
	apiKey := os.Getenv("HIBACHI_API_KEY")
	apiSecret := os.Getenv("HIBACHI_API_SECRET")
	accountID := os.Getenv("HIBACHI_ACCOUNT_ID")
	if apiKey == "" || apiSecret == "" || accountID == "" {
		return nil, errors.New("HIBACHI_API_KEY, HIBACHI_API_SECRET and HIBACHI_ACCOUNT_ID must be set")
	}
	tradeURL := getEnv("HIBACHI_API_URL", "https://api.hibachi.xyz")
	dataURL := getEnv("HIBACHI_DATA_URL", "https://data-api.hibachi.xyz")
	return &HibachiGateway{
		client:    &http.Client{Timeout: 15 * time.Second},
		tradeURL:  strings.TrimRight(tradeURL, "/"),
		dataURL:   strings.TrimRight(dataURL, "/"),
		apiKey:    apiKey,
		apiSecret: apiSecret,
		accountID: accountID,
	}, nil
}

func (g *HibachiGateway) Name() string { return "hibachi" }

// nextNonce returns a strictly increasing nonce based on unix nanos.
func (g *HibachiGateway) nextNonce() uint64 {
	for {
		now := uint64(time.Now().UnixNano())
		last := g.lastNonce.Load()
		if now <= last {
			now = last + 1
		}
		if g.lastNonce.CompareAndSwap(last, now) {
			return now
		}
	}
}

// ---- interface methods ----

func (g *HibachiGateway) GetOrderBook(ctx context.Context, symbol string, depth int, granularity float64) (OrderBookSnapshot, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("depth", strconv.Itoa(depth))
	q.Set("granularity", hcTrimDec(granularity))

	data, err := g.doReq(ctx, http.MethodGet, g.dataURL, "/market/data/orderbook?"+q.Encode(), nil)
	if err != nil {
		return OrderBookSnapshot{}, &GatewayError{Op: "orderbook", Err: err}
	}

	var resp struct {
		Ask struct {
			Levels []hcLevel `json:"levels"`
		} `json:"ask"`
		Bid struct {
			Levels []hcLevel `json:"levels"`
		} `json:"bid"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return OrderBookSnapshot{}, &GatewayError{Op: "orderbook", Err: fmt.Errorf("decode: %w", err)}
	}

	return OrderBookSnapshot{
		Symbol: symbol,
		Bids:   hcLevels(resp.Bid.Levels),
		Asks:   hcLevels(resp.Ask.Levels),
	}, nil
}

func (g *HibachiGateway) PlaceLimitOrder(ctx context.Context, symbol string, quantity, price float64, side Side, maxFeePercent float64) (uint64, string, error) {
	return g.placeOrder(ctx, symbol, quantity, price, side, maxFeePercent, "LIMIT")
}

func (g *HibachiGateway) PlaceMarketOrder(ctx context.Context, symbol string, quantity float64, side Side, maxFeePercent float64) (uint64, string, error) {
	return g.placeOrder(ctx, symbol, quantity, 0, side, maxFeePercent, "MARKET")
}

func (g *HibachiGateway) placeOrder(ctx context.Context, symbol string, quantity, price float64, side Side, maxFeePercent float64, orderType string) (uint64, string, error) {
	nonce := g.nextNonce()
	body := map[string]any{
		"accountId":      g.accountID,
		"symbol":         symbol,
		"orderType":      orderType,
		"side":           string(side),
		"quantity":       hcTrimDec(quantity),
		"maxFeesPercent": hcTrimDec(maxFeePercent),
		"nonce":          nonce,
		"clientOrderId":  uuid.NewString(),
	}
	if orderType == "LIMIT" {
		body["price"] = hcTrimDec(price)
	}

	data, err := g.doReq(ctx, http.MethodPost, g.tradeURL, "/trade/order", body)
	if err != nil {
		var re *RejectedOrderError
		if errors.As(err, &re) {
			return 0, "", re
		}
		return 0, "", &GatewayError{Op: "place-order", Err: err}
	}

	var resp struct {
		OrderID string `json:"orderId"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return 0, "", &GatewayError{Op: "place-order", Err: fmt.Errorf("decode: %w", err)}
	}
	if resp.OrderID == "" {
		return 0, "", &GatewayError{Op: "place-order", Err: errors.New("no orderId in response")}
	}
	return nonce, resp.OrderID, nil
}

func (g *HibachiGateway) CancelOrder(ctx context.Context, orderID string) error {
	body := map[string]any{
		"accountId": g.accountID,
		"orderId":   orderID,
		"nonce":     g.nextNonce(),
	}
	if _, err := g.doReq(ctx, http.MethodDelete, g.tradeURL, "/trade/order", body); err != nil {
		return &GatewayError{Op: "cancel", Err: err}
	}
	return nil
}

func (g *HibachiGateway) CancelAllOrders(ctx context.Context) error {
	body := map[string]any{
		"accountId": g.accountID,
		"nonce":     g.nextNonce(),
	}
	if _, err := g.doReq(ctx, http.MethodDelete, g.tradeURL, "/trade/orders", body); err != nil {
		return &GatewayError{Op: "cancel-all", Err: err}
	}
	return nil
}

func (g *HibachiGateway) GetOrderDetails(ctx context.Context, orderID string) (OrderDetails, error) {
	q := url.Values{}
	q.Set("accountId", g.accountID)
	q.Set("orderId", orderID)

	data, err := g.doReq(ctx, http.MethodGet, g.tradeURL, "/trade/order?"+q.Encode(), nil)
	if err != nil {
		return OrderDetails{}, &GatewayError{Op: "order-details", Err: err}
	}

	var resp struct {
		OrderID  string `json:"orderId"`
		Status   string `json:"status"`
		Price    string `json:"price"`
		Quantity string `json:"quantity"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return OrderDetails{}, &GatewayError{Op: "order-details", Err: fmt.Errorf("decode: %w", err)}
	}
	price, _ := hcParseDec(resp.Price)
	qty, _ := hcParseDec(resp.Quantity)
	return OrderDetails{
		OrderID:  resp.OrderID,
		Status:   strings.ToUpper(resp.Status),
		Price:    price,
		Quantity: qty,
	}, nil
}

func (g *HibachiGateway) GetAccountInfo(ctx context.Context) (AccountInfo, error) {
	data, err := g.doReq(ctx, http.MethodGet, g.tradeURL, "/trade/account/info?accountId="+url.QueryEscape(g.accountID), nil)
	if err != nil {
		return AccountInfo{}, &GatewayError{Op: "account-info", Err: err}
	}

	var resp struct {
		Balance           string `json:"balance"`
		TradeMakerFeeRate string `json:"tradeMakerFeeRate"`
		TradeTakerFeeRate string `json:"tradeTakerFeeRate"`
		Positions         []struct {
			Symbol        string `json:"symbol"`
			Direction     string `json:"direction"`
			Quantity      string `json:"quantity"`
			OpenPrice     string `json:"openPrice"`
			UnrealizedPnl string `json:"unrealizedPnl"`
		} `json:"positions"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return AccountInfo{}, &GatewayError{Op: "account-info", Err: fmt.Errorf("decode: %w", err)}
	}

	balance, _ := hcParseDec(resp.Balance)
	maker, _ := hcParseDec(resp.TradeMakerFeeRate)
	taker, _ := hcParseDec(resp.TradeTakerFeeRate)

	positions := make([]Position, 0, len(resp.Positions))
	for _, p := range resp.Positions {
		qty, _ := hcParseDec(p.Quantity)
		if qty == 0 {
			continue
		}
		open, _ := hcParseDec(p.OpenPrice)
		upnl, _ := hcParseDec(p.UnrealizedPnl)
		dir := DirLong
		if strings.EqualFold(p.Direction, "Short") || strings.EqualFold(p.Direction, "SELL") {
			dir = DirShort
		}
		positions = append(positions, Position{
			Symbol:        p.Symbol,
			Direction:     dir,
			Quantity:      qty,
			OpenPrice:     open,
			UnrealizedPnl: upnl,
		})
	}

	return AccountInfo{
		Balance:      balance,
		Positions:    positions,
		MakerFeeRate: maker,
		TakerFeeRate: taker,
	}, nil
}

func (g *HibachiGateway) GetAccountTrades(ctx context.Context) ([]AccountTrade, error) {
	data, err := g.doReq(ctx, http.MethodGet, g.tradeURL, "/trade/account/trades?accountId="+url.QueryEscape(g.accountID), nil)
	if err != nil {
		return nil, &GatewayError{Op: "account-trades", Err: err}
	}

	var resp struct {
		Trades []struct {
			Symbol    string `json:"symbol"`
			Side      string `json:"side"`
			Price     string `json:"price"`
			Quantity  string `json:"quantity"`
			Fee       string `json:"fee"`
			Timestamp int64  `json:"timestamp"`
		} `json:"trades"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &GatewayError{Op: "account-trades", Err: fmt.Errorf("decode: %w", err)}
	}

	out := make([]AccountTrade, 0, len(resp.Trades))
	for _, t := range resp.Trades {
		price, _ := hcParseDec(t.Price)
		qty, _ := hcParseDec(t.Quantity)
		fee, _ := hcParseDec(t.Fee)
		side := SideBuy
		if strings.EqualFold(t.Side, "SELL") {
			side = SideSell
		}
		out = append(out, AccountTrade{
			Symbol:    t.Symbol,
			Side:      side,
			Price:     price,
			Quantity:  qty,
			Fee:       fee,
			Timestamp: time.Unix(t.Timestamp, 0),
		})
	}
	return out, nil
}

// ---- internal HTTP helpers ----

// doReq sends one request and returns the raw body. Write requests carry the
// api key header and an HMAC signature of the JSON payload.
func (g *HibachiGateway) doReq(ctx context.Context, method, base, path string, body map[string]any) ([]byte, error) {
	var rdr io.Reader
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rdr = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, base+path, rdr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", g.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Signature", g.sign(payload))
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()
	data, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("hibachi %s %s: HTTP %d: %s", method, path, resp.StatusCode, string(data))
	}
	if resp.StatusCode >= 400 {
		// Placement refusals come back as 4xx with a reason in the body.
		if method == http.MethodPost {
			return nil, &RejectedOrderError{Reason: strings.TrimSpace(string(data))}
		}
		return nil, fmt.Errorf("hibachi %s %s: HTTP %d: %s", method, path, resp.StatusCode, string(data))
	}
	return data, nil
}

func (g *HibachiGateway) sign(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(g.apiSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// ---- wire helpers (file-local names to avoid collisions) ----

type hcLevel struct {
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
}

func hcLevels(levels []hcLevel) []BookLevel {
	out := make([]BookLevel, 0, len(levels))
	for _, l := range levels {
		price, err := hcParseDec(l.Price)
		if err != nil || price <= 0 {
			continue
		}
		size, _ := hcParseDec(l.Quantity)
		out = append(out, BookLevel{Price: price, Size: size})
	}
	return out
}

func hcParseDec(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty")
	}
	return strconv.ParseFloat(s, 64)
}

func hcTrimDec(f float64) string {
	s := fmt.Sprintf("%.12f", f)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" {
		return "0"
	}
	return s
}
