package book

import (
	"github.com/shopspring/decimal"

	"fenrir/internal/domain"
)

// priceLevel holds every resting entry at a single price, in arrival order.
// entries[0] is always the head of the FIFO queue.
type priceLevel struct {
	price   decimal.Decimal
	entries []*domain.OrderBookEntry
}

func (l *priceLevel) totalQty() decimal.Decimal {
	total := decimal.Zero
	for _, e := range l.entries {
		total = total.Add(e.RemainingQty)
	}
	return total
}

// popHead removes and returns the FIFO head, or false if the level is empty.
func (l *priceLevel) popHead() (*domain.OrderBookEntry, bool) {
	if len(l.entries) == 0 {
		return nil, false
	}
	head := l.entries[0]
	l.entries = l.entries[1:]
	return head, true
}

func (l *priceLevel) removeByID(orderID string) (*domain.OrderBookEntry, bool) {
	for i, e := range l.entries {
		if e.OrderID == orderID {
			removed := e
			l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
			return removed, true
		}
	}
	return nil, false
}
