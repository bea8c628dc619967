package coordinator

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"fenrir/internal/currency"
	"fenrir/internal/domain"
	"fenrir/internal/errs"
)

// Deposit credits amount to the user's wallet in ccy. If idempotencyKey is
// non-nil and has already been applied, Deposit is a no-op returning the
// wallet's current state rather than crediting a second time.
func (c *Coordinator) Deposit(ctx context.Context, user int64, ccy currency.Currency, amount decimal.Decimal, idempotencyKey *string) (domain.Wallet, error) {
	v, err := c.dispatch(ctx, func(ctx context.Context) (any, error) {
		return c.deposit(ctx, user, ccy, amount, idempotencyKey)
	})
	if err != nil {
		return domain.Wallet{}, err
	}
	return v.(domain.Wallet), nil
}

func (c *Coordinator) deposit(ctx context.Context, user int64, ccy currency.Currency, amount decimal.Decimal, idempotencyKey *string) (domain.Wallet, error) {
	if amount.Sign() <= 0 {
		return domain.Wallet{}, errs.New(errs.KindValidation, "deposit amount must be positive")
	}

	if idempotencyKey != nil {
		already, err := c.deposits.CheckAndRecord(ctx, *idempotencyKey, user, ccy.String(), amount, time.Now())
		if err != nil {
			return domain.Wallet{}, err
		}
		if already {
			return c.balances.Get(ctx, user, ccy)
		}
	}

	wallet, err := c.balances.Credit(ctx, user, ccy, amount)
	if err != nil {
		return domain.Wallet{}, err
	}
	c.sink.Publish(domain.NewBalanceUpdated(domain.BalanceUpdatedPayload{
		User: user, Currency: ccy, NewBalance: wallet.Available, Delta: amount, Reason: domain.Deposit,
	}))
	return wallet, nil
}

// Withdraw debits amount from the user's wallet in ccy. Fails
// INSUFFICIENT_BALANCE if the wallet cannot cover it.
func (c *Coordinator) Withdraw(ctx context.Context, user int64, ccy currency.Currency, amount decimal.Decimal) (domain.Wallet, error) {
	v, err := c.dispatch(ctx, func(ctx context.Context) (any, error) {
		return c.withdraw(ctx, user, ccy, amount)
	})
	if err != nil {
		return domain.Wallet{}, err
	}
	return v.(domain.Wallet), nil
}

func (c *Coordinator) withdraw(ctx context.Context, user int64, ccy currency.Currency, amount decimal.Decimal) (domain.Wallet, error) {
	if amount.Sign() <= 0 {
		return domain.Wallet{}, errs.New(errs.KindValidation, "withdraw amount must be positive")
	}
	wallet, err := c.balances.Debit(ctx, user, ccy, amount)
	if err != nil {
		return domain.Wallet{}, err
	}
	c.sink.Publish(domain.NewBalanceUpdated(domain.BalanceUpdatedPayload{
		User: user, Currency: ccy, NewBalance: wallet.Available, Delta: amount.Neg(), Reason: domain.Withdraw,
	}))
	return wallet, nil
}
