// Package currency defines the fixed set of assets the exchange trades and
// the symbols (base/quote pairs) built from them.
package currency

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is one of the enumerated assets the exchange understands.
type Currency int

const (
	USDT Currency = iota
	BTC
	ETH
)

var ErrUnknownCurrency = errors.New("unknown currency")

var names = map[Currency]string{
	USDT: "USDT",
	BTC:  "BTC",
	ETH:  "ETH",
}

var byName = map[string]Currency{
	"USDT": USDT,
	"BTC":  BTC,
	"ETH":  ETH,
}

// precision is the number of fractional digits each currency carries.
var precision = map[Currency]int32{
	USDT: 8,
	BTC:  8,
	ETH:  8,
}

func (c Currency) String() string {
	if name, ok := names[c]; ok {
		return name
	}
	return fmt.Sprintf("Currency(%d)", int(c))
}

// Precision returns the number of fractional decimal digits this currency
// is quoted and settled at.
func (c Currency) Precision() int32 {
	return precision[c]
}

// Quantize rounds amount to c's Precision. Wallet and trade persistence
// call this before writing, so a ledger row never carries more fractional
// precision than the currency settles at, even when amount arrived as the
// product of a price/qty/slippage-buffer computation that overflows it.
func (c Currency) Quantize(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(c.Precision())
}

// Valid reports whether c is one of the enumerated currencies.
func (c Currency) Valid() bool {
	_, ok := names[c]
	return ok
}

// Parse resolves a currency by its canonical name ("USDT", "BTC", "ETH").
func Parse(name string) (Currency, error) {
	c, ok := byName[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCurrency, name)
	}
	return c, nil
}

// QuoteUnit is the designated unit of account for exposure calculations.
const QuoteUnit = USDT

// Default implies this is the default set supported by the exchange;
// operators may restrict it further via configuration.
func Default() []Currency {
	return []Currency{USDT, BTC, ETH}
}
