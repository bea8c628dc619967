package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"fenrir/internal/currency"
)

// Trade is an immutable execution record. Price is always the resting
// (maker) order's price, per the matching engine's tie-break rule.
type Trade struct {
	ID         string
	BuyOrderID string
	SellOrderID string
	Symbol     currency.Symbol
	Price      decimal.Decimal
	Qty        decimal.Decimal
	Timestamp  time.Time
}

func (t Trade) String() string {
	return fmt.Sprintf(
		"Trade{ID:%s Buy:%s Sell:%s Symbol:%s Price:%s Qty:%s}",
		t.ID, t.BuyOrderID, t.SellOrderID, t.Symbol, t.Price, t.Qty,
	)
}
