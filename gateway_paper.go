// FILE: gateway_paper.go
// Package main – In-memory simulated venue.
//
// PaperGateway implements ExchangeGateway without network calls:
//   • scripted order books (SetBooks) with a sane default around 2500
//   • post-only validation: a limit that crosses the touch is rejected
//   • resting orders fill after a configurable number of status polls
//   • position and balance bookkeeping with maker fills fee-free and
//     market orders paying the taker rate
//
// Used by the -gateway=paper mode for dry runs and by the test suite.

package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type paperOrder struct {
	details OrderDetails
	symbol  string
	side    Side
	polls   int
}

// PaperGateway is a deterministic simulated exchange. Safe for concurrent use.
type PaperGateway struct {
	mu sync.Mutex

	balance      float64
	makerFeeRate float64
	takerFeeRate float64

	books          []OrderBookSnapshot
	bookIdx        int
	fillAfterPolls int

	orders    map[string]*paperOrder
	positions map[string]Position
	trades    []AccountTrade
	nonce     uint64
}

// NewPaperGateway returns a simulated venue seeded with the given balance and
// a flat synthetic book. Resting orders fill after two status polls.
func NewPaperGateway(balance float64) *PaperGateway {
	return &PaperGateway{
		balance:        balance,
		makerFeeRate:   0.00015,
		takerFeeRate:   0.00045,
		books:          []OrderBookSnapshot{defaultBook()},
		fillAfterPolls: 2,
		orders:         make(map[string]*paperOrder),
		positions:      make(map[string]Position),
	}
}

func defaultBook() OrderBookSnapshot {
	return OrderBookSnapshot{
		Symbol: "ETH/USDT-P",
		Bids: []BookLevel{
			{Price: 2500.00, Size: 1.2},
			{Price: 2499.98, Size: 0.8},
			{Price: 2499.95, Size: 2.5},
			{Price: 2499.90, Size: 1.0},
			{Price: 2499.85, Size: 3.1},
		},
		Asks: []BookLevel{
			{Price: 2500.02, Size: 0.9},
			{Price: 2500.05, Size: 1.4},
			{Price: 2500.08, Size: 2.2},
			{Price: 2500.12, Size: 1.7},
			{Price: 2500.20, Size: 4.0},
		},
	}
}

// SetBooks scripts the depth snapshots returned by successive GetOrderBook
// calls. The last snapshot repeats once the script is exhausted.
func (g *PaperGateway) SetBooks(books ...OrderBookSnapshot) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.books = books
	g.bookIdx = 0
}

// SetFillAfterPolls sets how many status polls a resting order survives
// before it reports FILLED. Zero fills on the first poll.
func (g *PaperGateway) SetFillAfterPolls(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fillAfterPolls = n
}

func (g *PaperGateway) Name() string { return "paper" }

// currentBook returns the scripted snapshot without advancing.
func (g *PaperGateway) currentBook() OrderBookSnapshot {
	if len(g.books) == 0 {
		return OrderBookSnapshot{}
	}
	if g.bookIdx >= len(g.books) {
		return g.books[len(g.books)-1]
	}
	return g.books[g.bookIdx]
}

func (g *PaperGateway) GetOrderBook(ctx context.Context, symbol string, depth int, granularity float64) (OrderBookSnapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	book := g.currentBook()
	if g.bookIdx < len(g.books)-1 {
		g.bookIdx++
	}
	book.Symbol = symbol
	return book, nil
}

func (g *PaperGateway) PlaceLimitOrder(ctx context.Context, symbol string, quantity, price float64, side Side, maxFeePercent float64) (uint64, string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	book := g.currentBook()
	if side == SideBuy && len(book.Asks) > 0 && price >= book.Asks[0].Price {
		return 0, "", &RejectedOrderError{Reason: fmt.Sprintf("post-only buy @ %.2f crosses ask %.2f", price, book.Asks[0].Price)}
	}
	if side == SideSell && len(book.Bids) > 0 && price <= book.Bids[0].Price {
		return 0, "", &RejectedOrderError{Reason: fmt.Sprintf("post-only sell @ %.2f crosses bid %.2f", price, book.Bids[0].Price)}
	}

	g.nonce++
	id := uuid.NewString()
	g.orders[id] = &paperOrder{
		details: OrderDetails{OrderID: id, Status: "NEW", Price: price, Quantity: quantity},
		symbol:  symbol,
		side:    side,
	}
	return g.nonce, id, nil
}

func (g *PaperGateway) PlaceMarketOrder(ctx context.Context, symbol string, quantity float64, side Side, maxFeePercent float64) (uint64, string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	book := g.currentBook()
	var price float64
	if side == SideBuy {
		if len(book.Asks) == 0 {
			return 0, "", &GatewayError{Op: "market-order", Err: fmt.Errorf("no asks for %s", symbol)}
		}
		price = book.Asks[0].Price
	} else {
		if len(book.Bids) == 0 {
			return 0, "", &GatewayError{Op: "market-order", Err: fmt.Errorf("no bids for %s", symbol)}
		}
		price = book.Bids[0].Price
	}

	fee := price * quantity * g.takerFeeRate
	g.applyFill(symbol, side, price, quantity, fee)

	g.nonce++
	id := uuid.NewString()
	g.orders[id] = &paperOrder{
		details: OrderDetails{OrderID: id, Status: "FILLED", Price: price, Quantity: quantity},
		symbol:  symbol,
		side:    side,
	}
	return g.nonce, id, nil
}

func (g *PaperGateway) CancelOrder(ctx context.Context, orderID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	o, ok := g.orders[orderID]
	if !ok {
		return &GatewayError{Op: "cancel", Err: fmt.Errorf("unknown order %s", orderID)}
	}
	if o.details.Status == "FILLED" {
		return &GatewayError{Op: "cancel", Err: fmt.Errorf("order %s already filled", orderID)}
	}
	o.details.Status = "CANCELLED"
	return nil
}

func (g *PaperGateway) CancelAllOrders(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, o := range g.orders {
		if o.details.Status == "NEW" {
			o.details.Status = "CANCELLED"
		}
	}
	return nil
}

func (g *PaperGateway) GetOrderDetails(ctx context.Context, orderID string) (OrderDetails, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	o, ok := g.orders[orderID]
	if !ok {
		return OrderDetails{}, &GatewayError{Op: "order-details", Err: fmt.Errorf("unknown order %s", orderID)}
	}
	if o.details.Status == "NEW" {
		o.polls++
		if o.polls > g.fillAfterPolls {
			o.details.Status = "FILLED"
			g.applyFill(o.symbol, o.side, o.details.Price, o.details.Quantity, 0)
		}
	}
	return o.details, nil
}

func (g *PaperGateway) GetAccountInfo(ctx context.Context) (AccountInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	positions := make([]Position, 0, len(g.positions))
	for _, p := range g.positions {
		positions = append(positions, p)
	}
	return AccountInfo{
		Balance:      g.balance,
		Positions:    positions,
		MakerFeeRate: g.makerFeeRate,
		TakerFeeRate: g.takerFeeRate,
	}, nil
}

func (g *PaperGateway) GetAccountTrades(ctx context.Context) ([]AccountTrade, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]AccountTrade, len(g.trades))
	for i, t := range g.trades {
		out[len(g.trades)-1-i] = t
	}
	return out, nil
}

// applyFill books one executed fill: opening fills create or extend the
// position, closing fills realize P&L into the balance. Callers hold g.mu.
func (g *PaperGateway) applyFill(symbol string, side Side, price, quantity, fee float64) {
	pos, ok := g.positions[symbol]
	if ok && pos.Direction.CloseSide() == side {
		var pnl float64
		if pos.Direction == DirLong {
			pnl = (price - pos.OpenPrice) * quantity
		} else {
			pnl = (pos.OpenPrice - price) * quantity
		}
		g.balance += pnl - fee
		if quantity >= pos.Quantity {
			delete(g.positions, symbol)
		} else {
			pos.Quantity -= quantity
			g.positions[symbol] = pos
		}
	} else {
		dir := DirLong
		if side == SideSell {
			dir = DirShort
		}
		if ok {
			// same-side add: average in
			total := pos.Quantity + quantity
			pos.OpenPrice = (pos.OpenPrice*pos.Quantity + price*quantity) / total
			pos.Quantity = total
			g.positions[symbol] = pos
		} else {
			g.positions[symbol] = Position{Symbol: symbol, Direction: dir, Quantity: quantity, OpenPrice: price}
		}
		g.balance -= fee
	}

	g.trades = append(g.trades, AccountTrade{
		Symbol:    symbol,
		Side:      side,
		Price:     price,
		Quantity:  quantity,
		Fee:       fee,
		Timestamp: time.Now(),
	})
}
