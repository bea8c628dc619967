package coordinator

import (
	"context"

	"github.com/rs/zerolog/log"

	"fenrir/internal/domain"
)

// RebuildBooks restores in-memory order-book state from every still-open
// or partially-filled order in the Order Store. Call it once at process
// start, before Start, so a restart doesn't silently drop resting LIMIT
// orders. MARKET orders never rest, so none are expected here; any found
// are logged and skipped rather than added.
func (c *Coordinator) RebuildBooks(ctx context.Context) error {
	open, err := c.orders.ListOpenOrPartial(ctx)
	if err != nil {
		return err
	}
	for _, o := range open {
		if o.Kind != domain.Limit {
			log.Error().Str("orderID", o.ID).Msg("resting non-LIMIT order found at startup, skipping")
			continue
		}
		entry := domain.OrderBookEntry{
			OrderID:      o.ID,
			User:         o.User,
			Side:         o.Side,
			Price:        *o.LimitPrice,
			RemainingQty: o.RemainingQty(),
			ArrivalTime:  o.CreatedAt,
		}
		ob := c.books.BookFor(o.Symbol)
		if err := ob.Add(entry, o.Side); err != nil {
			log.Error().Err(err).Str("orderID", o.ID).Msg("failed to rebuild resting order into book")
		}
	}
	log.Info().Int("restedOrders", len(open)).Msg("order books rebuilt from storage")
	return nil
}
