package coordinator

import (
	"context"

	"fenrir/internal/currency"
	"fenrir/internal/domain"
	"fenrir/internal/errs"
)

// GetOrder loads a single order by id, scoped to user. An order belonging
// to a different user is reported as NOT_FOUND rather than leaking that it
// exists.
func (c *Coordinator) GetOrder(ctx context.Context, user int64, id string) (domain.Order, error) {
	order, err := c.orders.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if order.User != user {
		return domain.Order{}, errs.New(errs.KindNotFound, "order "+id+" not found")
	}
	return order, nil
}

// ListOrders returns every order a user has placed, most recent first.
func (c *Coordinator) ListOrders(ctx context.Context, user int64) ([]domain.Order, error) {
	return c.orders.ListByUser(ctx, user)
}

// GetBalance returns a user's wallet for a single currency.
func (c *Coordinator) GetBalance(ctx context.Context, user int64, ccy currency.Currency) (domain.Wallet, error) {
	return c.balances.Get(ctx, user, ccy)
}

// ListBalances returns every wallet a user holds.
func (c *Coordinator) ListBalances(ctx context.Context, user int64) ([]domain.Wallet, error) {
	return c.balances.List(ctx, user)
}

// OrderBookSnapshot returns the full bids/asks ladder for symbol, each
// level aggregated to (price, total remaining qty), in priority order.
func (c *Coordinator) OrderBookSnapshot(symbol currency.Symbol) (bids, asks []domain.PriceLevelView) {
	return c.books.BookFor(symbol).Snapshot()
}

// ListTrades returns up to limit trades for symbol, newest first.
func (c *Coordinator) ListTrades(ctx context.Context, symbol currency.Symbol, limit int) ([]domain.Trade, error) {
	return c.trades.ListBySymbol(ctx, symbol, limit)
}
