package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"fenrir/internal/currency"
)

type OrderKind int

const (
	Limit OrderKind = iota
	Market
)

func (k OrderKind) String() string {
	if k == Market {
		return "MARKET"
	}
	return "LIMIT"
}

type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Sell {
		return "SELL"
	}
	return "BUY"
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

type OrderStatus int

const (
	Open OrderStatus = iota
	Partial
	Filled
	Cancelled
)

func (s OrderStatus) String() string {
	switch s {
	case Open:
		return "OPEN"
	case Partial:
		return "PARTIAL"
	case Filled:
		return "FILLED"
	case Cancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// Order is the canonical persisted order record. Its lifecycle is owned
// exclusively by the Order Store; the Order Book only ever holds a derived
// OrderBookEntry referencing it by id.
type Order struct {
	ID             string
	User           int64
	Kind           OrderKind
	Side           Side
	Symbol         currency.Symbol
	LimitPrice     *decimal.Decimal // present iff Kind == Limit
	OriginalQty    decimal.Decimal
	FilledQty      decimal.Decimal
	Status         OrderStatus
	IdempotencyKey *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RemainingQty is OriginalQty - FilledQty.
func (o Order) RemainingQty() decimal.Decimal {
	return o.OriginalQty.Sub(o.FilledQty)
}

// IsTerminal reports whether the order is in a state that cannot be
// mutated further by matching or cancellation.
func (o Order) IsTerminal() bool {
	return o.Status == Filled || o.Status == Cancelled
}

func (o Order) String() string {
	price := "nil"
	if o.LimitPrice != nil {
		price = o.LimitPrice.String()
	}
	return fmt.Sprintf(
		"Order{ID:%s User:%d Kind:%s Side:%s Symbol:%s Price:%s Qty:%s/%s Status:%s}",
		o.ID, o.User, o.Kind, o.Side, o.Symbol, price,
		o.FilledQty, o.OriginalQty, o.Status,
	)
}

// ApplyFill advances FilledQty by qty and recomputes Status. It does not
// persist anything; callers are responsible for writing the result back to
// the Order Store.
func (o *Order) ApplyFill(qty decimal.Decimal, now time.Time) {
	o.FilledQty = o.FilledQty.Add(qty)
	switch {
	case o.FilledQty.GreaterThanOrEqual(o.OriginalQty):
		o.Status = Filled
	case o.FilledQty.IsPositive():
		o.Status = Partial
	default:
		o.Status = Open
	}
	o.UpdatedAt = now
}
