package book

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fenrir/internal/currency"
	"fenrir/internal/domain"
)

func testSymbol() currency.Symbol {
	sym, _ := currency.NewSymbol(currency.BTC, currency.USDT)
	return sym
}

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func restingEntry(id string, user int64, side domain.Side, price, qty string) domain.OrderBookEntry {
	return domain.OrderBookEntry{
		OrderID:      id,
		User:         user,
		Side:         side,
		Price:        d(price),
		RemainingQty: d(qty),
		ArrivalTime:  time.Now(),
	}
}

func TestAdd_SortsBidsDescendingAsksAscending(t *testing.T) {
	ob := New(testSymbol())

	require.NoError(t, ob.Add(restingEntry("b1", 1, domain.Buy, "99", "1"), domain.Buy))
	require.NoError(t, ob.Add(restingEntry("b2", 1, domain.Buy, "100", "1"), domain.Buy))
	require.NoError(t, ob.Add(restingEntry("a1", 2, domain.Sell, "102", "1"), domain.Sell))
	require.NoError(t, ob.Add(restingEntry("a2", 2, domain.Sell, "101", "1"), domain.Sell))

	bestBid, ok := ob.BestBid()
	require.True(t, ok)
	assert.True(t, bestBid.Equal(d("100")))

	bestAsk, ok := ob.BestAsk()
	require.True(t, ok)
	assert.True(t, bestAsk.Equal(d("101")))
}

func TestAdd_DuplicateOrderIDRejected(t *testing.T) {
	ob := New(testSymbol())
	require.NoError(t, ob.Add(restingEntry("b1", 1, domain.Buy, "99", "1"), domain.Buy))
	err := ob.Add(restingEntry("b1", 1, domain.Buy, "99", "1"), domain.Buy)
	assert.ErrorIs(t, err, ErrOrderExists)
}

func TestRemove_EmptiesLevel(t *testing.T) {
	ob := New(testSymbol())
	require.NoError(t, ob.Add(restingEntry("b1", 1, domain.Buy, "99", "1"), domain.Buy))

	entry, ok := ob.Remove("b1")
	require.True(t, ok)
	assert.Equal(t, "b1", entry.OrderID)

	_, ok = ob.BestBid()
	assert.False(t, ok, "level should be gone after removing its only order")

	_, ok = ob.Remove("b1")
	assert.False(t, ok, "removing twice should report not-found")
}

// TestMatch_PricePriority: resting asks at 50100 then 50000; an incoming buy
// crosses both, but must fill at the better (lower) price first.
func TestMatch_PricePriority(t *testing.T) {
	ob := New(testSymbol())
	require.NoError(t, ob.Add(restingEntry("a1", 2, domain.Sell, "50100", "1"), domain.Sell))
	require.NoError(t, ob.Add(restingEntry("a2", 2, domain.Sell, "50000", "1"), domain.Sell))

	price := d("50200")
	fills, remaining := ob.Match(MatchInput{
		OrderID: "buy1", User: 1, Side: domain.Buy,
		LimitPrice: &price, Qty: d("1"), ArrivalTime: time.Now(), AllowSelf: true,
	})

	require.Len(t, fills, 1)
	assert.Equal(t, "a2", fills[0].RestingOrderID)
	assert.True(t, fills[0].Price.Equal(d("50000")))
	assert.True(t, remaining.IsZero())
}

// TestMatch_TimePriority: two asks at the same price; earlier arrival fills first.
func TestMatch_TimePriority(t *testing.T) {
	ob := New(testSymbol())
	t1 := time.Now()
	t2 := t1.Add(time.Second)
	require.NoError(t, ob.Add(domain.OrderBookEntry{
		OrderID: "a1", User: 2, Side: domain.Sell, Price: d("50000"), RemainingQty: d("1"), ArrivalTime: t1,
	}, domain.Sell))
	require.NoError(t, ob.Add(domain.OrderBookEntry{
		OrderID: "a2", User: 2, Side: domain.Sell, Price: d("50000"), RemainingQty: d("1"), ArrivalTime: t2,
	}, domain.Sell))

	price := d("50000")
	fills, _ := ob.Match(MatchInput{
		OrderID: "buy1", User: 1, Side: domain.Buy,
		LimitPrice: &price, Qty: d("1"), ArrivalTime: time.Now(), AllowSelf: true,
	})

	require.Len(t, fills, 1)
	assert.Equal(t, "a1", fills[0].RestingOrderID)
}

// TestMatch_PartialFillOfIncoming: a 0.3 BTC resting ask against a 1.0 BTC
// incoming buy fills 0.3 and leaves 0.7 unfilled for the caller to rest.
func TestMatch_PartialFillOfIncoming(t *testing.T) {
	ob := New(testSymbol())
	require.NoError(t, ob.Add(restingEntry("a1", 2, domain.Sell, "50000", "0.3"), domain.Sell))

	price := d("50000")
	fills, remaining := ob.Match(MatchInput{
		OrderID: "buy1", User: 1, Side: domain.Buy,
		LimitPrice: &price, Qty: d("1.0"), ArrivalTime: time.Now(), AllowSelf: true,
	})

	require.Len(t, fills, 1)
	assert.True(t, fills[0].Qty.Equal(d("0.3")))
	assert.True(t, remaining.Equal(d("0.7")))

	require.NoError(t, ob.RestIncoming(MatchInput{
		OrderID: "buy1", User: 1, Side: domain.Buy, LimitPrice: &price, ArrivalTime: time.Now(),
	}, remaining))

	bids, _ := ob.Snapshot()
	require.Len(t, bids, 1)
	assert.True(t, bids[0].Qty.Equal(d("0.7")))
}

// TestMatch_PartialFillOfResting: a 1.0 BTC resting ask against a 0.4 BTC
// incoming buy leaves 0.6 resting at the same priority.
func TestMatch_PartialFillOfResting(t *testing.T) {
	ob := New(testSymbol())
	require.NoError(t, ob.Add(restingEntry("a1", 2, domain.Sell, "50000", "1.0"), domain.Sell))

	price := d("50000")
	fills, remaining := ob.Match(MatchInput{
		OrderID: "buy1", User: 1, Side: domain.Buy,
		LimitPrice: &price, Qty: d("0.4"), ArrivalTime: time.Now(), AllowSelf: true,
	})

	require.Len(t, fills, 1)
	assert.True(t, fills[0].Qty.Equal(d("0.4")))
	assert.True(t, remaining.IsZero())

	_, asks := ob.Snapshot()
	require.Len(t, asks, 1)
	assert.True(t, asks[0].Qty.Equal(d("0.6")))
}

func TestMatch_SelfMatchDefaultAllowed(t *testing.T) {
	ob := New(testSymbol())
	require.NoError(t, ob.Add(restingEntry("a1", 1, domain.Sell, "50000", "1"), domain.Sell))

	price := d("50000")
	fills, remaining := ob.Match(MatchInput{
		OrderID: "buy1", User: 1, Side: domain.Buy,
		LimitPrice: &price, Qty: d("1"), ArrivalTime: time.Now(), AllowSelf: true,
	})
	require.Len(t, fills, 1)
	assert.True(t, remaining.IsZero())
}

func TestMatch_SelfMatchDisallowedSkipsOwnOrder(t *testing.T) {
	ob := New(testSymbol())
	require.NoError(t, ob.Add(restingEntry("a1", 1, domain.Sell, "50000", "1"), domain.Sell))
	require.NoError(t, ob.Add(restingEntry("a2", 2, domain.Sell, "50000", "1"), domain.Sell))

	price := d("50000")
	fills, remaining := ob.Match(MatchInput{
		OrderID: "buy1", User: 1, Side: domain.Buy,
		LimitPrice: &price, Qty: d("1"), ArrivalTime: time.Now(), AllowSelf: false,
	})
	require.Len(t, fills, 1)
	assert.Equal(t, "a2", fills[0].RestingOrderID)
	assert.True(t, remaining.IsZero())
}

func TestMatch_MarketOrderSweepsMultipleLevels(t *testing.T) {
	ob := New(testSymbol())
	require.NoError(t, ob.Add(restingEntry("a1", 2, domain.Sell, "100", "1"), domain.Sell))
	require.NoError(t, ob.Add(restingEntry("a2", 2, domain.Sell, "101", "1"), domain.Sell))

	fills, remaining := ob.Match(MatchInput{
		OrderID: "buy1", User: 1, Side: domain.Buy,
		LimitPrice: nil, Qty: d("1.5"), ArrivalTime: time.Now(), AllowSelf: true,
	})

	require.Len(t, fills, 2)
	assert.True(t, fills[0].Price.Equal(d("100")))
	assert.True(t, fills[1].Price.Equal(d("101")))
	assert.True(t, remaining.IsZero())
}
