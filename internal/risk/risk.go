// Package risk is the exchange's pre-trade validator: given a prospective
// order and the submitter's current balances, it computes the currency and
// amount the order requires, checks that balance is available, and, for
// LIMIT orders only, checks the submitter's total exposure against a
// configured cap. It never mutates a balance; the Coordinator owns that.
package risk

import (
	"context"

	"github.com/shopspring/decimal"

	"fenrir/internal/currency"
	"fenrir/internal/domain"
	"fenrir/internal/errs"
	"fenrir/internal/pricefeed"
)

// BalanceReader is the read-only slice of the Balance Store the validator
// needs. Satisfied by *storage.Balances.
type BalanceReader interface {
	Get(ctx context.Context, user int64, ccy currency.Currency) (domain.Wallet, error)
	List(ctx context.Context, user int64) ([]domain.Wallet, error)
}

// Config is the subset of the exchange's configuration surface the
// validator consults.
type Config struct {
	Enabled          bool
	MaxExposureQuote decimal.Decimal
	SlippageBuffer   decimal.Decimal
}

// Validator is the C8 collaborator.
type Validator struct {
	balances BalanceReader
	feed     pricefeed.Feed
	cfg      Config
}

func New(balances BalanceReader, feed pricefeed.Feed, cfg Config) *Validator {
	return &Validator{balances: balances, feed: feed, cfg: cfg}
}

// Requirement describes the currency and amount a prospective order must
// reserve before it may be placed.
type Requirement struct {
	Currency currency.Currency
	Amount   decimal.Decimal
}

// Required computes the currency/amount a prospective order must reserve.
// This runs regardless of whether risk checks are enabled: the Coordinator
// needs it to size the reservation debit either way.
func (v *Validator) Required(order domain.Order) (Requirement, error) {
	if order.Side == domain.Sell {
		return Requirement{Currency: order.Symbol.Base, Amount: order.OriginalQty}, nil
	}

	// BUY: reserve in the quote currency.
	if order.Kind == domain.Limit {
		if order.LimitPrice == nil {
			return Requirement{}, errs.New(errs.KindValidation, "limit order missing limit price")
		}
		return Requirement{
			Currency: order.Symbol.Quote,
			Amount:   order.LimitPrice.Mul(order.OriginalQty),
		}, nil
	}

	// BUY MARKET: size off the reference price with a conservative
	// slippage cushion, since the fill price isn't known yet.
	reference, ok := v.feed.Price(order.Symbol)
	if !ok {
		return Requirement{}, errs.New(errs.KindPriceUnavailable,
			"no reference price for "+order.Symbol.String())
	}
	buffer := v.cfg.SlippageBuffer
	if buffer.IsZero() {
		buffer = decimal.NewFromFloat(1.10)
	}
	return Requirement{
		Currency: order.Symbol.Quote,
		Amount:   reference.Mul(order.OriginalQty).Mul(buffer),
	}, nil
}

// Validate runs the full pre-trade check: required-currency computation,
// balance sufficiency, and (LIMIT orders only) exposure. If risk checks are
// disabled in configuration, only the Requirement is computed and
// returned; no balance or exposure check is performed.
func (v *Validator) Validate(ctx context.Context, order domain.Order) (Requirement, error) {
	req, err := v.Required(order)
	if err != nil {
		return Requirement{}, err
	}
	if !v.cfg.Enabled {
		return req, nil
	}

	wallet, err := v.balances.Get(ctx, order.User, req.Currency)
	if err != nil {
		return Requirement{}, err
	}
	if wallet.Available.LessThan(req.Amount) {
		return Requirement{}, errs.New(errs.KindInsufficientBalance,
			"available "+wallet.Available.String()+" below required "+req.Amount.String())
	}

	if order.Kind == domain.Limit {
		if err := v.checkExposure(ctx, order, req); err != nil {
			return Requirement{}, err
		}
	}

	return req, nil
}

// checkExposure sums the user's holdings outside the quote unit of
// account, valued at each asset's quoted price against the quote unit, and
// adds the incoming order's own notional if it is a BUY. A wallet whose
// price is unavailable contributes zero rather than failing the check.
func (v *Validator) checkExposure(ctx context.Context, order domain.Order, req Requirement) error {
	wallets, err := v.balances.List(ctx, order.User)
	if err != nil {
		return err
	}

	exposure := decimal.Zero
	for _, w := range wallets {
		if w.Currency == currency.QuoteUnit {
			continue
		}
		sym, err := currency.NewSymbol(w.Currency, currency.QuoteUnit)
		if err != nil {
			continue
		}
		price, ok := v.feed.Price(sym)
		if !ok {
			continue
		}
		exposure = exposure.Add(w.Available.Mul(price))
	}

	if order.Side == domain.Buy {
		price, ok := v.feed.Price(order.Symbol)
		if ok {
			exposure = exposure.Add(order.OriginalQty.Mul(price))
		}
	}

	maxExposure := v.cfg.MaxExposureQuote
	if maxExposure.IsZero() {
		maxExposure = decimal.NewFromInt(100000)
	}
	if exposure.GreaterThan(maxExposure) {
		return errs.New(errs.KindExposureExceeded,
			"exposure "+exposure.String()+" exceeds cap "+maxExposure.String())
	}
	return nil
}
