package coordinator

import (
	"context"
	"time"

	"fenrir/internal/domain"
	"fenrir/internal/errs"
)

// Cancel loads orderID, verifies user owns it and that it is still
// cancellable, releases its remaining reservation, removes it from its
// book, and marks it CANCELLED. MARKET orders never rest on a book, so by
// the time Cancel could observe one it is already terminal; this path only
// ever handles LIMIT orders.
func (c *Coordinator) Cancel(ctx context.Context, user int64, orderID string) (domain.Order, error) {
	v, err := c.dispatch(ctx, func(ctx context.Context) (any, error) {
		return c.cancel(ctx, user, orderID)
	})
	if err != nil {
		return domain.Order{}, err
	}
	return v.(domain.Order), nil
}

func (c *Coordinator) cancel(ctx context.Context, user int64, orderID string) (domain.Order, error) {
	order, err := c.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if order.User != user {
		return domain.Order{}, errs.New(errs.KindNotFound, "order "+orderID+" not found")
	}
	if order.Status != domain.Open && order.Status != domain.Partial {
		return domain.Order{}, errs.New(errs.KindUncancellable,
			"order "+orderID+" is "+order.Status.String())
	}

	remaining := order.RemainingQty()
	releaseCurrency := order.Symbol.Quote
	releaseAmount := remaining
	if order.Side == domain.Buy {
		releaseAmount = remaining.Mul(*order.LimitPrice)
	} else {
		releaseCurrency = order.Symbol.Base
	}

	wallet, err := c.balances.Credit(ctx, order.User, releaseCurrency, releaseAmount)
	if err != nil {
		return domain.Order{}, err
	}
	c.sink.Publish(domain.NewBalanceUpdated(domain.BalanceUpdatedPayload{
		User: order.User, Currency: releaseCurrency,
		NewBalance: wallet.Available, Delta: releaseAmount, Reason: domain.Release,
	}))

	ob := c.books.BookFor(order.Symbol)
	ob.Remove(order.ID)

	order.Status = domain.Cancelled
	order.UpdatedAt = time.Now()
	if err := c.orders.Update(ctx, order); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}
