package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderBookEntry is a projection of a resting order into a ladder. It is an
// immutable snapshot; the book rebuilds it on every partial fill rather
// than mutating it in place, and it never holds a pointer back to the
// canonical Order record, only its OrderID.
type OrderBookEntry struct {
	OrderID      string
	User         int64
	Side         Side
	Price        decimal.Decimal
	RemainingQty decimal.Decimal
	ArrivalTime  time.Time
}

// PriceLevelView is the aggregated, read-only projection of one price level
// returned by OrderBook.Snapshot.
type PriceLevelView struct {
	Price decimal.Decimal
	Qty   decimal.Decimal
}
