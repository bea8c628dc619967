package domain

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fenrir/internal/currency"
)

// EventKind tags which of the four event shapes an Event carries.
type EventKind int

const (
	EventOrderPlaced EventKind = iota
	EventOrderMatched
	EventTradeExecuted
	EventBalanceUpdated
)

func (k EventKind) Topic() string {
	switch k {
	case EventOrderPlaced:
		return "order-placed"
	case EventOrderMatched:
		return "order-matched"
	case EventTradeExecuted:
		return "trade-executed"
	case EventBalanceUpdated:
		return "balance-updated"
	default:
		return "unknown"
	}
}

// OrderPlacedPayload is emitted once per accepted order.
type OrderPlacedPayload struct {
	OrderID string
	User    int64
	Symbol  currency.Symbol
	Kind    OrderKind
	Side    Side
	Price   *decimal.Decimal
	Qty     decimal.Decimal
}

// OrderMatchedPayload is emitted once per order touched by a fill (both the
// taker and the maker get one).
type OrderMatchedPayload struct {
	OrderID      string
	MatchedQty   decimal.Decimal
	MatchedPrice decimal.Decimal
	FullyFilled  bool
}

// TradeExecutedPayload mirrors a settled Trade.
type TradeExecutedPayload struct {
	TradeID     string
	BuyOrderID  string
	SellOrderID string
	Symbol      currency.Symbol
	Price       decimal.Decimal
	Qty         decimal.Decimal
}

// BalanceUpdatedPayload is emitted on every wallet mutation.
type BalanceUpdatedPayload struct {
	User       int64
	Currency   currency.Currency
	NewBalance decimal.Decimal
	Delta      decimal.Decimal
	Reason     BalanceReason
}

// Event is the tagged-variant domain event envelope. Exactly one of the
// payload fields is populated, selected by Kind: a sum type realized as a
// struct-of-optional-fields, the idiomatic Go substitute for a class
// hierarchy of event types.
type Event struct {
	ID        string
	Kind      EventKind
	Key       string
	Timestamp time.Time

	OrderPlaced    *OrderPlacedPayload
	OrderMatched   *OrderMatchedPayload
	TradeExecuted  *TradeExecutedPayload
	BalanceUpdated *BalanceUpdatedPayload
}

func newEvent(kind EventKind, key string) Event {
	return Event{
		ID:        uuid.New().String(),
		Kind:      kind,
		Key:       key,
		Timestamp: time.Now(),
	}
}

// NewOrderPlaced builds an OrderPlaced event keyed by order id.
func NewOrderPlaced(p OrderPlacedPayload) Event {
	e := newEvent(EventOrderPlaced, p.OrderID)
	e.OrderPlaced = &p
	return e
}

// NewOrderMatched builds an OrderMatched event keyed by order id.
func NewOrderMatched(p OrderMatchedPayload) Event {
	e := newEvent(EventOrderMatched, p.OrderID)
	e.OrderMatched = &p
	return e
}

// NewTradeExecuted builds a TradeExecuted event keyed by trade id.
func NewTradeExecuted(p TradeExecutedPayload) Event {
	e := newEvent(EventTradeExecuted, p.TradeID)
	e.TradeExecuted = &p
	return e
}

// NewBalanceUpdated builds a BalanceUpdated event keyed by "{user}:{currency}".
func NewBalanceUpdated(p BalanceUpdatedPayload) Event {
	key := balanceKey(p.User, p.Currency)
	e := newEvent(EventBalanceUpdated, key)
	e.BalanceUpdated = &p
	return e
}

func balanceKey(user int64, c currency.Currency) string {
	return strconv.FormatInt(user, 10) + ":" + c.String()
}
