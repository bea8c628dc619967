package matching

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fenrir/internal/currency"
	"fenrir/internal/domain"
)

func sym(t *testing.T) currency.Symbol {
	t.Helper()
	s, err := currency.NewSymbol(currency.BTC, currency.USDT)
	require.NoError(t, err)
	return s
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	v, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return v
}

func TestManager_BookForIsLazyAndStable(t *testing.T) {
	m := NewManager()
	symbol := sym(t)
	a := m.BookFor(symbol)
	b := m.BookFor(symbol)
	assert.Same(t, a, b)
}

func TestSubmit_SingleCrossingMatch(t *testing.T) {
	m := NewManager()
	symbol := sym(t)
	ob := m.BookFor(symbol)

	price := dec(t, "50000")
	resting := domain.Order{
		ID: "sell1", User: 2, Kind: domain.Limit, Side: domain.Sell, Symbol: symbol,
		LimitPrice: &price, OriginalQty: dec(t, "0.1"), Status: domain.Open, CreatedAt: time.Now(),
	}
	Submit(ob, resting, true)

	incoming := domain.Order{
		ID: "buy1", User: 1, Kind: domain.Limit, Side: domain.Buy, Symbol: symbol,
		LimitPrice: &price, OriginalQty: dec(t, "0.1"), Status: domain.Open, CreatedAt: time.Now(),
	}
	result := Submit(ob, incoming, true)

	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]
	assert.Equal(t, "buy1", trade.BuyOrderID)
	assert.Equal(t, "sell1", trade.SellOrderID)
	assert.True(t, trade.Price.Equal(price))
	assert.True(t, trade.Qty.Equal(dec(t, "0.1")))
	assert.True(t, result.RemainingQty.IsZero())
	assert.False(t, result.RestedOnTheBook)
}

func TestSubmit_LimitRestsResidueOnPartialFill(t *testing.T) {
	m := NewManager()
	symbol := sym(t)
	ob := m.BookFor(symbol)

	price := dec(t, "50000")
	resting := domain.Order{
		ID: "sell1", User: 2, Kind: domain.Limit, Side: domain.Sell, Symbol: symbol,
		LimitPrice: &price, OriginalQty: dec(t, "0.3"), Status: domain.Open, CreatedAt: time.Now(),
	}
	Submit(ob, resting, true)

	incoming := domain.Order{
		ID: "buy1", User: 1, Kind: domain.Limit, Side: domain.Buy, Symbol: symbol,
		LimitPrice: &price, OriginalQty: dec(t, "1.0"), Status: domain.Open, CreatedAt: time.Now(),
	}
	result := Submit(ob, incoming, true)

	require.Len(t, result.Trades, 1)
	assert.True(t, result.RemainingQty.Equal(dec(t, "0.7")))
	assert.True(t, result.RestedOnTheBook)

	bids, _ := ob.Snapshot()
	require.Len(t, bids, 1)
	assert.True(t, bids[0].Qty.Equal(dec(t, "0.7")))
}

func TestSubmit_MarketOrderNeverRests(t *testing.T) {
	m := NewManager()
	symbol := sym(t)
	ob := m.BookFor(symbol)

	price := dec(t, "50000")
	resting := domain.Order{
		ID: "sell1", User: 2, Kind: domain.Limit, Side: domain.Sell, Symbol: symbol,
		LimitPrice: &price, OriginalQty: dec(t, "0.2"), Status: domain.Open, CreatedAt: time.Now(),
	}
	Submit(ob, resting, true)

	incoming := domain.Order{
		ID: "buy1", User: 1, Kind: domain.Market, Side: domain.Buy, Symbol: symbol,
		OriginalQty: dec(t, "1.0"), Status: domain.Open, CreatedAt: time.Now(),
	}
	result := Submit(ob, incoming, true)

	require.Len(t, result.Trades, 1)
	assert.True(t, result.RemainingQty.Equal(dec(t, "0.8")))
	assert.False(t, result.RestedOnTheBook)

	bids, _ := ob.Snapshot()
	assert.Empty(t, bids, "market orders must never rest their residue")
}
