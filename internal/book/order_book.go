// Package book implements the in-memory, thread-safe per-symbol order book:
// two sorted price-level ladders (bids descending, asks ascending), each
// level a FIFO queue giving price-time priority.
package book

import (
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"

	"fenrir/internal/currency"
	"fenrir/internal/domain"
)

var (
	ErrOrderExists = errors.New("order already resting in book")
)

type levels = btree.BTreeG[*priceLevel]

// OrderBook is the sorted bid/ask ladder structure for one trading symbol.
// Mutations (Add/Remove/Match) take the exclusive writer region; reads
// (BestBid/BestAsk/ScanMatches/Snapshot) may run concurrently with each
// other but never observe a torn state mid-mutation.
type OrderBook struct {
	symbol currency.Symbol

	mu   sync.RWMutex
	bids *levels // sorted descending: best bid first
	asks *levels // sorted ascending: best ask first

	// ids tracks which side/price an order currently rests at, so Remove
	// can be called with just an order id from the Coordinator's cancel
	// flow without it having to recompute the bucket.
	ids map[string]restingLocation
}

type restingLocation struct {
	side  domain.Side
	price decimal.Decimal
}

// New constructs an empty order book for symbol.
func New(symbol currency.Symbol) *OrderBook {
	bids := btree.NewBTreeG(func(a, b *priceLevel) bool {
		return a.price.GreaterThan(b.price) // descending: best (highest) first
	})
	asks := btree.NewBTreeG(func(a, b *priceLevel) bool {
		return a.price.LessThan(b.price) // ascending: best (lowest) first
	})
	return &OrderBook{
		symbol: symbol,
		bids:   bids,
		asks:   asks,
		ids:    make(map[string]restingLocation),
	}
}

func (b *OrderBook) Symbol() currency.Symbol { return b.symbol }

func (b *OrderBook) sideTree(side domain.Side) *levels {
	if side == domain.Buy {
		return b.bids
	}
	return b.asks
}

// Add inserts entry at the tail of its price level's FIFO queue, creating
// the level if it does not yet exist. O(log P) in distinct price levels.
func (b *OrderBook) Add(entry domain.OrderBookEntry, side domain.Side) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addLocked(entry, side)
}

func (b *OrderBook) addLocked(entry domain.OrderBookEntry, side domain.Side) error {
	if _, exists := b.ids[entry.OrderID]; exists {
		return ErrOrderExists
	}
	tree := b.sideTree(side)
	level, ok := tree.GetMut(&priceLevel{price: entry.Price})
	if !ok {
		level = &priceLevel{price: entry.Price}
		tree.Set(level)
	}
	e := entry
	level.entries = append(level.entries, &e)
	b.ids[entry.OrderID] = restingLocation{side: side, price: entry.Price}
	return nil
}

// Remove drops order_id from its resting price level. Empties the price
// level entry if the queue becomes empty. O(Q) in level length.
func (b *OrderBook) Remove(orderID string) (domain.OrderBookEntry, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	loc, ok := b.ids[orderID]
	if !ok {
		return domain.OrderBookEntry{}, false
	}
	tree := b.sideTree(loc.side)
	level, ok := tree.GetMut(&priceLevel{price: loc.price})
	if !ok {
		delete(b.ids, orderID)
		return domain.OrderBookEntry{}, false
	}
	removed, ok := level.removeByID(orderID)
	if !ok {
		delete(b.ids, orderID)
		return domain.OrderBookEntry{}, false
	}
	if len(level.entries) == 0 {
		tree.Delete(level)
	}
	delete(b.ids, orderID)
	return *removed, true
}

// BestBid peeks the highest resting bid price, or false if the book side is
// empty. O(log P) in distinct price levels; the best level is not cached.
func (b *OrderBook) BestBid() (decimal.Decimal, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	lvl, ok := b.bids.MinMut()
	if !ok {
		return decimal.Zero, false
	}
	return lvl.price, true
}

// BestAsk peeks the lowest resting ask price, or false if the book side is
// empty. O(log P) in distinct price levels; the best level is not cached.
func (b *OrderBook) BestAsk() (decimal.Decimal, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	lvl, ok := b.asks.MinMut()
	if !ok {
		return decimal.Zero, false
	}
	return lvl.price, true
}

// ScanMatches returns the entries on the opposite side of side whose prices
// satisfy the cross condition against priceBound, in match priority order
// (best price first, then FIFO within a price). It is a read-only query;
// matching itself is performed by Match, which needs to interleave reads and
// mutations inside a single writer region.
func (b *OrderBook) ScanMatches(side domain.Side, priceBound decimal.Decimal) []domain.OrderBookEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []domain.OrderBookEntry
	opposite := b.sideTree(side.Opposite())
	for _, lvl := range opposite.Items() {
		var crosses bool
		if side == domain.Buy {
			crosses = lvl.price.LessThanOrEqual(priceBound)
		} else {
			crosses = lvl.price.GreaterThanOrEqual(priceBound)
		}
		if !crosses {
			break // Items() is already in tree (priority) order
		}
		for _, e := range lvl.entries {
			out = append(out, *e)
		}
	}
	return out
}

// Snapshot returns the full bids and asks ladders, each level aggregated to
// (price, total remaining qty), in priority order. Read-only.
func (b *OrderBook) Snapshot() (bids, asks []domain.PriceLevelView) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, lvl := range b.bids.Items() {
		bids = append(bids, domain.PriceLevelView{Price: lvl.price, Qty: lvl.totalQty()})
	}
	for _, lvl := range b.asks.Items() {
		asks = append(asks, domain.PriceLevelView{Price: lvl.price, Qty: lvl.totalQty()})
	}
	return bids, asks
}

// Fill is one crossing match produced by Match: the incoming order traded
// Qty units against the resting order RestingOrderID, at Price (the resting
// order's own price, per the matching tie-break rule).
type Fill struct {
	RestingOrderID string
	RestingUser    int64
	RestingSide    domain.Side
	Price          decimal.Decimal
	Qty            decimal.Decimal
}

// MatchInput describes an incoming order for a matching run.
type MatchInput struct {
	OrderID     string
	User        int64
	Side        domain.Side
	LimitPrice  *decimal.Decimal // nil => MARKET, matches at any price
	Qty         decimal.Decimal
	ArrivalTime time.Time
	AllowSelf   bool // whether the incoming order may match against its own resting orders
}

// Match runs the price-time priority matching algorithm for the incoming
// order to completion: it repeatedly consumes the best opposing
// price level's FIFO head while prices cross, reducing or popping consumed
// entries, and returns the ordered fill list plus whatever quantity is left
// unfilled. The whole run executes under one writer-region acquisition, so
// no other Add/Remove/Match interleaves mid-sweep.
//
// Match does not rest the incoming order's own residual quantity; the
// caller (internal/matching) decides whether to do so based on order kind.
func (b *OrderBook) Match(in MatchInput) (fills []Fill, remaining decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()

	remaining = in.Qty
	opposite := b.sideTree(in.Side.Opposite())

	for remaining.IsPositive() {
		level, ok := opposite.MinMut()
		if !ok {
			break
		}
		if in.LimitPrice != nil {
			var crosses bool
			if in.Side == domain.Buy {
				crosses = level.price.LessThanOrEqual(*in.LimitPrice)
			} else {
				crosses = level.price.GreaterThanOrEqual(*in.LimitPrice)
			}
			if !crosses {
				break
			}
		}
		if len(level.entries) == 0 {
			// Should never persist empty, but guard defensively.
			opposite.Delete(level)
			continue
		}
		head := level.entries[0]

		if !in.AllowSelf && head.User == in.User {
			onlyOwn := true
			for _, e := range level.entries {
				if e.User != in.User {
					onlyOwn = false
					break
				}
			}
			if onlyOwn {
				break // only this user's own orders rest here; nothing to match
			}
			// Self-match disabled: rotate this resting order behind the
			// rest of the level rather than matching against it. Level
			// lengths are assumed small, so this is cheap.
			level.entries = append(level.entries[1:], head)
			continue
		}

		fillQty := decimal.Min(remaining, head.RemainingQty)
		fillPrice := head.Price

		fills = append(fills, Fill{
			RestingOrderID: head.OrderID,
			RestingUser:    head.User,
			RestingSide:    in.Side.Opposite(),
			Price:          fillPrice,
			Qty:            fillQty,
		})

		remaining = remaining.Sub(fillQty)
		rebuilt := *head
		rebuilt.RemainingQty = head.RemainingQty.Sub(fillQty)
		level.entries[0] = &rebuilt

		if rebuilt.RemainingQty.IsZero() {
			level.entries = level.entries[1:]
			delete(b.ids, rebuilt.OrderID)
			if len(level.entries) == 0 {
				opposite.Delete(level)
			}
		}
	}
	return fills, remaining
}

// RestIncoming appends the unfilled residue (remainingQty) of a LIMIT order
// to its own side of the book. It is called by the matching engine
// immediately after Match reports a nonzero remainder for a LIMIT order.
func (b *OrderBook) RestIncoming(in MatchInput, remainingQty decimal.Decimal) error {
	entry := domain.OrderBookEntry{
		OrderID:      in.OrderID,
		User:         in.User,
		Side:         in.Side,
		Price:        *in.LimitPrice,
		RemainingQty: remainingQty,
		ArrivalTime:  in.ArrivalTime,
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addLocked(entry, in.Side)
}
