package risk

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fenrir/internal/currency"
	"fenrir/internal/domain"
	"fenrir/internal/errs"
	"fenrir/internal/pricefeed"
	"fenrir/internal/storage"
)

func dec(t *testing.T, v string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(v)
	require.NoError(t, err)
	return d
}

func newValidator(t *testing.T, cfg Config) (*Validator, *storage.Store) {
	t.Helper()
	s, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	feed := pricefeed.NewFixed()
	return New(s.Balances(), feed, cfg), s
}

func sym(t *testing.T) currency.Symbol {
	t.Helper()
	s, err := currency.NewSymbol(currency.BTC, currency.USDT)
	require.NoError(t, err)
	return s
}

func TestRequired_SellUsesBaseCurrencyAndQty(t *testing.T) {
	v, _ := newValidator(t, Config{Enabled: true, MaxExposureQuote: dec(t, "100000"), SlippageBuffer: dec(t, "1.10")})
	order := domain.Order{Side: domain.Sell, Kind: domain.Limit, Symbol: sym(t), OriginalQty: dec(t, "2")}
	req, err := v.Required(order)
	require.NoError(t, err)
	assert.Equal(t, currency.BTC, req.Currency)
	assert.True(t, req.Amount.Equal(dec(t, "2")))
}

func TestRequired_BuyLimitUsesQuoteAtLimitPrice(t *testing.T) {
	v, _ := newValidator(t, Config{Enabled: true, MaxExposureQuote: dec(t, "100000"), SlippageBuffer: dec(t, "1.10")})
	price := dec(t, "50000")
	order := domain.Order{Side: domain.Buy, Kind: domain.Limit, Symbol: sym(t), LimitPrice: &price, OriginalQty: dec(t, "1")}
	req, err := v.Required(order)
	require.NoError(t, err)
	assert.Equal(t, currency.USDT, req.Currency)
	assert.True(t, req.Amount.Equal(dec(t, "50000")))
}

func TestRequired_BuyMarketAppliesSlippageBufferOnReferencePrice(t *testing.T) {
	v, _ := newValidator(t, Config{Enabled: true, MaxExposureQuote: dec(t, "100000"), SlippageBuffer: dec(t, "1.10")})
	order := domain.Order{Side: domain.Buy, Kind: domain.Market, Symbol: sym(t), OriginalQty: dec(t, "1")}
	req, err := v.Required(order)
	require.NoError(t, err)
	assert.Equal(t, currency.USDT, req.Currency)
	assert.True(t, req.Amount.Equal(dec(t, "55000")), "got %s", req.Amount)
}

func TestRequired_BuyMarketFailsWhenPriceUnavailable(t *testing.T) {
	v, _ := newValidator(t, Config{Enabled: true, MaxExposureQuote: dec(t, "100000"), SlippageBuffer: dec(t, "1.10")})
	ethBtc, err := currency.NewSymbol(currency.ETH, currency.BTC)
	require.NoError(t, err)
	order := domain.Order{Side: domain.Buy, Kind: domain.Market, Symbol: ethBtc, OriginalQty: dec(t, "1")}
	_, err = v.Required(order)
	require.Error(t, err)
	assert.Equal(t, errs.KindPriceUnavailable, errs.KindOf(err))
}

func TestValidate_InsufficientBalanceRejected(t *testing.T) {
	v, _ := newValidator(t, Config{Enabled: true, MaxExposureQuote: dec(t, "100000"), SlippageBuffer: dec(t, "1.10")})
	price := dec(t, "50000")
	order := domain.Order{User: 1, Side: domain.Buy, Kind: domain.Limit, Symbol: sym(t), LimitPrice: &price, OriginalQty: dec(t, "1")}
	_, err := v.Validate(context.Background(), order)
	require.Error(t, err)
	assert.Equal(t, errs.KindInsufficientBalance, errs.KindOf(err))
}

func TestValidate_SufficientBalancePasses(t *testing.T) {
	v, s := newValidator(t, Config{Enabled: true, MaxExposureQuote: dec(t, "100000"), SlippageBuffer: dec(t, "1.10")})
	_, err := s.Balances().Credit(context.Background(), 1, currency.USDT, dec(t, "100000"))
	require.NoError(t, err)

	price := dec(t, "50000")
	order := domain.Order{User: 1, Side: domain.Buy, Kind: domain.Limit, Symbol: sym(t), LimitPrice: &price, OriginalQty: dec(t, "1")}
	req, err := v.Validate(context.Background(), order)
	require.NoError(t, err)
	assert.True(t, req.Amount.Equal(dec(t, "50000")))
}

func TestValidate_ExposureExceededOnLimitOrder(t *testing.T) {
	v, s := newValidator(t, Config{Enabled: true, MaxExposureQuote: dec(t, "1000"), SlippageBuffer: dec(t, "1.10")})
	ctx := context.Background()
	_, err := s.Balances().Credit(ctx, 1, currency.BTC, dec(t, "10"))
	require.NoError(t, err)
	_, err = s.Balances().Credit(ctx, 1, currency.USDT, dec(t, "100000"))
	require.NoError(t, err)

	price := dec(t, "50000")
	order := domain.Order{User: 1, Side: domain.Buy, Kind: domain.Limit, Symbol: sym(t), LimitPrice: &price, OriginalQty: dec(t, "0.1")}
	_, err = v.Validate(ctx, order)
	require.Error(t, err)
	assert.Equal(t, errs.KindExposureExceeded, errs.KindOf(err))
}

func TestValidate_MarketOrdersSkipExposureCheck(t *testing.T) {
	v, s := newValidator(t, Config{Enabled: true, MaxExposureQuote: dec(t, "1000"), SlippageBuffer: dec(t, "1.10")})
	ctx := context.Background()
	_, err := s.Balances().Credit(ctx, 1, currency.BTC, dec(t, "10"))
	require.NoError(t, err)
	_, err = s.Balances().Credit(ctx, 1, currency.USDT, dec(t, "100000"))
	require.NoError(t, err)

	order := domain.Order{User: 1, Side: domain.Buy, Kind: domain.Market, Symbol: sym(t), OriginalQty: dec(t, "0.1")}
	_, err = v.Validate(ctx, order)
	assert.NoError(t, err, "MARKET orders must skip the exposure check even though it would fail as a LIMIT order")
}

func TestValidate_DisabledSkipsBalanceAndExposureChecks(t *testing.T) {
	v, _ := newValidator(t, Config{Enabled: false, MaxExposureQuote: dec(t, "1"), SlippageBuffer: dec(t, "1.10")})
	price := dec(t, "50000")
	order := domain.Order{User: 1, Side: domain.Buy, Kind: domain.Limit, Symbol: sym(t), LimitPrice: &price, OriginalQty: dec(t, "1")}
	req, err := v.Validate(context.Background(), order)
	require.NoError(t, err)
	assert.True(t, req.Amount.Equal(dec(t, "50000")))
}
