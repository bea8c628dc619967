// Package matching turns a freshly persisted order into an ordered trade
// list by driving a symbol's book.OrderBook through its matching run, then
// deciding, per order kind, whether any unfilled residue should rest.
//
// The engine touches only the order book. All ledger and order-record
// updates are the Coordinator's job, driven by the trade list this package
// returns.
package matching

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fenrir/internal/book"
	"fenrir/internal/currency"
	"fenrir/internal/domain"
)

// Manager owns one book.OrderBook per traded symbol, created lazily on first
// use. It is a composition root: callers pass a Manager instance through
// rather than reaching for process-wide mutable state.
type Manager struct {
	mu    sync.RWMutex
	books map[currency.Symbol]*book.OrderBook
}

func NewManager() *Manager {
	return &Manager{books: make(map[currency.Symbol]*book.OrderBook)}
}

// BookFor returns the order book for symbol, creating it on first use.
func (m *Manager) BookFor(symbol currency.Symbol) *book.OrderBook {
	m.mu.RLock()
	ob, ok := m.books[symbol]
	m.mu.RUnlock()
	if ok {
		return ob
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if ob, ok = m.books[symbol]; ok {
		return ob
	}
	ob = book.New(symbol)
	m.books[symbol] = ob
	return ob
}

// Result is the outcome of a single Submit matching run.
type Result struct {
	Trades          []domain.Trade
	RemainingQty    decimal.Decimal
	RestedOnTheBook bool
}

// Submit runs the price-time priority matching algorithm for a freshly
// persisted order (id assigned, status OPEN, filled_qty=0) against its
// symbol's book, and returns the resulting trade list.
//
// MARKET orders never rest their residual quantity: if unfillable, the
// Coordinator transitions the unfilled remainder to CANCELLED rather than
// resting it. Submit reports RemainingQty so the Coordinator can make that
// call; it never rests a MARKET order itself.
func Submit(ob *book.OrderBook, order domain.Order, allowSelfMatch bool) Result {
	in := book.MatchInput{
		OrderID:     order.ID,
		User:        order.User,
		Side:        order.Side,
		LimitPrice:  order.LimitPrice,
		Qty:         order.OriginalQty,
		ArrivalTime: order.CreatedAt,
		AllowSelf:   allowSelfMatch,
	}

	fills, remaining := ob.Match(in)

	trades := make([]domain.Trade, 0, len(fills))
	now := time.Now()
	for _, f := range fills {
		buyOrderID, sellOrderID := order.ID, f.RestingOrderID
		if order.Side == domain.Sell {
			buyOrderID, sellOrderID = f.RestingOrderID, order.ID
		}
		trades = append(trades, domain.Trade{
			ID:          uuid.New().String(),
			BuyOrderID:  buyOrderID,
			SellOrderID: sellOrderID,
			Symbol:      order.Symbol,
			Price:       f.Price,
			Qty:         f.Qty,
			Timestamp:   now,
		})
	}

	result := Result{Trades: trades, RemainingQty: remaining}

	if order.Kind == domain.Limit && remaining.IsPositive() {
		if err := ob.RestIncoming(in, remaining); err == nil {
			result.RestedOnTheBook = true
		}
	}

	return result
}
