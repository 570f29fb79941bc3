// FILE: oracle_test.go
package main

import (
	"errors"
	"math"
	"testing"
)

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestEstimateQuoteHealthyBook(t *testing.T) {
	book := OrderBookSnapshot{
		Bids: []BookLevel{{Price: 99.98, Size: 1}, {Price: 99.95, Size: 2}, {Price: 99.90, Size: 1}},
		Asks: []BookLevel{{Price: 100.02, Size: 1}, {Price: 100.05, Size: 2}, {Price: 100.10, Size: 1}},
	}
	q, err := estimateQuote(book)
	if err != nil {
		t.Fatalf("estimateQuote: %v", err)
	}
	if !almostEqual(q.Bid, 99.98) || !almostEqual(q.Ask, 100.02) {
		t.Fatalf("got bid=%.4f ask=%.4f, want best-of-book 99.98/100.02", q.Bid, q.Ask)
	}
	if q.Spread() <= 0 {
		t.Fatalf("spread must be positive, got %.4f", q.Spread())
	}
}

func TestEstimateQuoteExcludesDeepOutlier(t *testing.T) {
	// The 80.00 level is a stale order far from the rest of the side. If it
	// leaked into the weighted reference it would drag it below 90 and the
	// sane best bid of 99.98 would be replaced.
	book := OrderBookSnapshot{
		Bids: []BookLevel{{Price: 99.98, Size: 1}, {Price: 99.50, Size: 2}, {Price: 80.00, Size: 5}},
		Asks: []BookLevel{{Price: 100.02, Size: 1}, {Price: 100.05, Size: 2}, {Price: 100.10, Size: 1}},
	}
	q, err := estimateQuote(book)
	if err != nil {
		t.Fatalf("estimateQuote: %v", err)
	}
	if !almostEqual(q.Bid, 99.98) {
		t.Fatalf("got bid=%.4f, want 99.98 (outlier must not drag the reference)", q.Bid)
	}
}

func TestEstimateQuoteRepairsSuspectBest(t *testing.T) {
	// Best bid 105 sits far above the rest of the side; the size-weighted
	// reference of the surviving levels should replace it.
	book := OrderBookSnapshot{
		Bids: []BookLevel{{Price: 105.00, Size: 0.1}, {Price: 100.00, Size: 5}, {Price: 99.90, Size: 5}, {Price: 99.80, Size: 5}},
		Asks: []BookLevel{{Price: 106.00, Size: 1}, {Price: 106.10, Size: 1}, {Price: 106.20, Size: 1}},
	}
	q, err := estimateQuote(book)
	if err != nil {
		t.Fatalf("estimateQuote: %v", err)
	}
	if !almostEqual(q.Bid, 99.9) {
		t.Fatalf("got bid=%.4f, want weighted reference 99.90", q.Bid)
	}
}

func TestEstimateQuoteInversionFallsBackToWeighted(t *testing.T) {
	// Raw best bid 100.20 crosses raw best ask 100.10; both survive their own
	// side's repair, so the weighted references must take over.
	book := OrderBookSnapshot{
		Bids: []BookLevel{{Price: 100.20, Size: 1}, {Price: 100.10, Size: 1}, {Price: 100.00, Size: 1}},
		Asks: []BookLevel{{Price: 100.10, Size: 1}, {Price: 100.40, Size: 1}, {Price: 100.50, Size: 1}},
	}
	q, err := estimateQuote(book)
	if err != nil {
		t.Fatalf("estimateQuote: %v", err)
	}
	if !almostEqual(q.Bid, 100.10) {
		t.Fatalf("got bid=%.4f, want weighted bid 100.10", q.Bid)
	}
	wantAsk := (100.10 + 100.40 + 100.50) / 3
	if !almostEqual(q.Ask, wantAsk) {
		t.Fatalf("got ask=%.4f, want weighted ask %.4f", q.Ask, wantAsk)
	}
	if q.Bid >= q.Ask {
		t.Fatalf("quote still inverted: bid=%.4f ask=%.4f", q.Bid, q.Ask)
	}
}

func TestEstimateQuoteInversionFallsBackToMedians(t *testing.T) {
	// Heavy crossed levels dominate both weighted references; only the plain
	// side medians produce an uncrossed pair.
	book := OrderBookSnapshot{
		Bids: []BookLevel{{Price: 100.30, Size: 10}, {Price: 99.00, Size: 0.1}, {Price: 98.90, Size: 0.1}},
		Asks: []BookLevel{{Price: 100.20, Size: 10}, {Price: 101.50, Size: 0.1}, {Price: 101.60, Size: 0.1}},
	}
	q, err := estimateQuote(book)
	if err != nil {
		t.Fatalf("estimateQuote: %v", err)
	}
	if !almostEqual(q.Bid, 99.00) || !almostEqual(q.Ask, 101.50) {
		t.Fatalf("got bid=%.4f ask=%.4f, want side medians 99.00/101.50", q.Bid, q.Ask)
	}
}

func TestEstimateQuoteUnusableBook(t *testing.T) {
	book := OrderBookSnapshot{
		Bids: []BookLevel{{Price: 100.00, Size: 1}, {Price: 99.90, Size: 1}, {Price: 99.80, Size: 1}},
		Asks: []BookLevel{{Price: 99.00, Size: 1}, {Price: 98.90, Size: 1}, {Price: 98.80, Size: 1}},
	}
	if _, err := estimateQuote(book); !errors.Is(err, ErrBookUnavailable) {
		t.Fatalf("got err=%v, want ErrBookUnavailable", err)
	}
}

func TestEstimateQuoteEmptySide(t *testing.T) {
	book := OrderBookSnapshot{Asks: []BookLevel{{Price: 100.02, Size: 1}}}
	if _, err := estimateQuote(book); !errors.Is(err, ErrBookUnavailable) {
		t.Fatalf("got err=%v, want ErrBookUnavailable", err)
	}
}

func TestFilterOutlierLevels(t *testing.T) {
	t.Run("thin side passes through", func(t *testing.T) {
		levels := []BookLevel{{Price: 100, Size: 1}, {Price: 50, Size: 1}}
		if got := filterOutlierLevels(levels); len(got) != 2 {
			t.Fatalf("two-level side must not be filtered, got %d levels", len(got))
		}
	})
	t.Run("never empties the side", func(t *testing.T) {
		// Median lands between clusters so every level deviates past the cap;
		// the best level must survive alone.
		levels := []BookLevel{
			{Price: 110, Size: 1}, {Price: 109, Size: 1},
			{Price: 90, Size: 1}, {Price: 89, Size: 1},
		}
		got := filterOutlierLevels(levels)
		if len(got) != 1 || !almostEqual(got[0].Price, 110) {
			t.Fatalf("got %v, want the best level kept alone", got)
		}
	})
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name string
		xs   []float64
		want float64
	}{
		{"odd", []float64{3, 1, 2}, 2},
		{"even", []float64{4, 1, 3, 2}, 2.5},
		{"single", []float64{7}, 7},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := median(tc.xs); !almostEqual(got, tc.want) {
				t.Fatalf("median(%v) = %v, want %v", tc.xs, got, tc.want)
			}
		})
	}
}
