package coordinator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fenrir/internal/currency"
	"fenrir/internal/domain"
	"fenrir/internal/errs"
	"fenrir/internal/matching"
)

// SubmitRequest is the caller-facing shape of a new order.
type SubmitRequest struct {
	User           int64
	Kind           domain.OrderKind
	Side           domain.Side
	Symbol         currency.Symbol
	LimitPrice     *decimal.Decimal
	Qty            decimal.Decimal
	IdempotencyKey *string
}

// Submit runs the full submit flow: idempotency check, shape validation,
// risk validation, fund reservation, persistence, matching, and
// settlement. It returns the final, refreshed order record.
func (c *Coordinator) Submit(ctx context.Context, req SubmitRequest) (domain.Order, error) {
	v, err := c.dispatch(ctx, func(ctx context.Context) (any, error) {
		return c.submit(ctx, req)
	})
	if err != nil {
		return domain.Order{}, err
	}
	return v.(domain.Order), nil
}

func (c *Coordinator) submit(ctx context.Context, req SubmitRequest) (domain.Order, error) {
	if req.IdempotencyKey != nil {
		if _, found, err := c.orders.GetByIdempotencyKey(ctx, *req.IdempotencyKey); err != nil {
			return domain.Order{}, err
		} else if found {
			return domain.Order{}, errs.New(errs.KindDuplicate, "idempotency key already used: "+*req.IdempotencyKey)
		}
	}

	if err := validateShape(req); err != nil {
		return domain.Order{}, err
	}

	now := time.Now()
	order := domain.Order{
		ID:             uuid.New().String(),
		User:           req.User,
		Kind:           req.Kind,
		Side:           req.Side,
		Symbol:         req.Symbol,
		LimitPrice:     req.LimitPrice,
		OriginalQty:    req.Qty,
		FilledQty:      decimal.Zero,
		Status:         domain.Open,
		IdempotencyKey: req.IdempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	requirement, err := c.risk.Validate(ctx, order)
	if err != nil {
		return domain.Order{}, err
	}

	reservedWallet, err := c.balances.Debit(ctx, order.User, requirement.Currency, requirement.Amount)
	if err != nil {
		return domain.Order{}, err
	}
	c.sink.Publish(domain.NewBalanceUpdated(domain.BalanceUpdatedPayload{
		User:       order.User,
		Currency:   requirement.Currency,
		NewBalance: reservedWallet.Available,
		Delta:      requirement.Amount.Neg(),
		Reason:     domain.Reservation,
	}))

	if err := c.orders.Insert(ctx, order); err != nil {
		return domain.Order{}, err
	}
	c.sink.Publish(domain.NewOrderPlaced(domain.OrderPlacedPayload{
		OrderID: order.ID,
		User:    order.User,
		Symbol:  order.Symbol,
		Kind:    order.Kind,
		Side:    order.Side,
		Price:   order.LimitPrice,
		Qty:     order.OriginalQty,
	}))

	ob := c.books.BookFor(order.Symbol)
	result := matching.Submit(ob, order, c.allowSelfMatch)

	if err := c.settle(ctx, &order, result); err != nil {
		return domain.Order{}, err
	}

	// MARKET orders never rest: whatever is left unfilled when the
	// matching run ends is gone for good. The reservation for LIMIT BUY
	// orders is deliberately never partially refunded here even when the
	// fill price beats the limit; see the settlement site for why.
	if order.Kind == domain.Market && result.RemainingQty.IsPositive() {
		order.Status = domain.Cancelled
		order.UpdatedAt = time.Now()
	}

	if err := c.orders.Update(ctx, order); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

func validateShape(req SubmitRequest) error {
	if req.Qty.Sign() <= 0 {
		return errs.New(errs.KindValidation, "qty must be positive")
	}
	if req.Kind == domain.Limit && req.LimitPrice == nil {
		return errs.New(errs.KindValidation, "LIMIT order requires a limit price")
	}
	if req.Kind == domain.Market && req.LimitPrice != nil {
		return errs.New(errs.KindValidation, "MARKET order must not carry a limit price")
	}
	if req.Kind == domain.Limit && req.LimitPrice.Sign() <= 0 {
		return errs.New(errs.KindValidation, "limit price must be positive")
	}
	return nil
}
