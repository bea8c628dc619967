// Package pricefeed quotes a mid-price for a symbol in its quote currency.
// The core only consumes the Feed interface; a real price source is an
// external collaborator.
package pricefeed

import (
	"sync"

	"github.com/shopspring/decimal"

	"fenrir/internal/currency"
)

// Feed quotes a mid-price for a symbol. Values are point-in-time; there is
// no staleness contract. A missing quote is reported via ok=false rather
// than an error: callers (risk) treat an absent price as PRICE_UNAVAILABLE
// or, for exposure, as a zero contribution.
type Feed interface {
	Price(symbol currency.Symbol) (price decimal.Decimal, ok bool)
}

// Fixed is a Feed backed by a swappable in-memory map of default quotes. It
// exists so the simulator runs with no external price source wired up.
type Fixed struct {
	mu     sync.RWMutex
	quotes map[currency.Symbol]decimal.Decimal
}

// NewFixed builds a Feed seeded with the exchange's documented defaults:
// BTC/USDT=50000, ETH/USDT=3000.
func NewFixed() *Fixed {
	btcUsdt, _ := currency.NewSymbol(currency.BTC, currency.USDT)
	ethUsdt, _ := currency.NewSymbol(currency.ETH, currency.USDT)
	return &Fixed{
		quotes: map[currency.Symbol]decimal.Decimal{
			btcUsdt: decimal.NewFromInt(50000),
			ethUsdt: decimal.NewFromInt(3000),
		},
	}
}

func (f *Fixed) Price(symbol currency.Symbol) (decimal.Decimal, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p, ok := f.quotes[symbol]
	return p, ok
}

// Set overrides (or adds) the quote for symbol. Useful for tests and for
// operators wiring a live feed in front of the fixed defaults.
func (f *Fixed) Set(symbol currency.Symbol, price decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quotes[symbol] = price
}
