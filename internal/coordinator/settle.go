package coordinator

import (
	"context"
	"time"

	"fenrir/internal/domain"
	"fenrir/internal/matching"
)

// settle walks a matching run's trade list in order, persisting each
// trade, advancing both participating orders' filled quantity and status,
// and crediting the counterparties. The quote side of a BUY and the base
// side of a SELL were already debited at reservation time, so settlement
// only ever credits.
//
// The incoming order (order) is updated in place across the loop; the
// resting counterparty on each trade is loaded, updated, and persisted
// individually since it may differ from trade to trade.
func (c *Coordinator) settle(ctx context.Context, order *domain.Order, result matching.Result) error {
	now := time.Now()
	for _, tr := range result.Trades {
		if err := c.trades.Insert(ctx, tr); err != nil {
			return err
		}

		order.ApplyFill(tr.Qty, now)

		restingID := tr.SellOrderID
		if order.Side == domain.Sell {
			restingID = tr.BuyOrderID
		}
		resting, err := c.orders.Get(ctx, restingID)
		if err != nil {
			return err
		}
		resting.ApplyFill(tr.Qty, now)
		if err := c.orders.Update(ctx, resting); err != nil {
			return err
		}

		buyerUser, sellerUser := order.User, resting.User
		if order.Side == domain.Sell {
			buyerUser, sellerUser = resting.User, order.User
		}

		// Buyer: credit base by qty. The quote amount was pre-reserved in
		// full at submit time, and for a LIMIT BUY filling below its limit
		// the difference is never refunded, a known gap carried forward
		// deliberately rather than fixed silently.
		baseWallet, err := c.balances.Credit(ctx, buyerUser, order.Symbol.Base, tr.Qty)
		if err != nil {
			return err
		}
		c.sink.Publish(domain.NewBalanceUpdated(domain.BalanceUpdatedPayload{
			User: buyerUser, Currency: order.Symbol.Base,
			NewBalance: baseWallet.Available, Delta: tr.Qty, Reason: domain.Settlement,
		}))

		// Seller: credit quote by price*qty. The base amount was
		// pre-reserved in full at submit time.
		quoteAmount := tr.Price.Mul(tr.Qty)
		quoteWallet, err := c.balances.Credit(ctx, sellerUser, order.Symbol.Quote, quoteAmount)
		if err != nil {
			return err
		}
		c.sink.Publish(domain.NewBalanceUpdated(domain.BalanceUpdatedPayload{
			User: sellerUser, Currency: order.Symbol.Quote,
			NewBalance: quoteWallet.Available, Delta: quoteAmount, Reason: domain.Settlement,
		}))

		c.sink.Publish(domain.NewOrderMatched(domain.OrderMatchedPayload{
			OrderID: order.ID, MatchedQty: tr.Qty, MatchedPrice: tr.Price,
			FullyFilled: order.Status == domain.Filled,
		}))
		c.sink.Publish(domain.NewOrderMatched(domain.OrderMatchedPayload{
			OrderID: resting.ID, MatchedQty: tr.Qty, MatchedPrice: tr.Price,
			FullyFilled: resting.Status == domain.Filled,
		}))
		c.sink.Publish(domain.NewTradeExecuted(domain.TradeExecutedPayload{
			TradeID: tr.ID, BuyOrderID: tr.BuyOrderID, SellOrderID: tr.SellOrderID,
			Symbol: order.Symbol, Price: tr.Price, Qty: tr.Qty,
		}))
	}
	return nil
}
