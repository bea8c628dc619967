package currency

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_AcceptsKnownNamesCaseInsensitively(t *testing.T) {
	c, err := Parse("btc")
	require.NoError(t, err)
	assert.Equal(t, BTC, c)

	_, err = Parse("DOGE")
	assert.ErrorIs(t, err, ErrUnknownCurrency)
}

func TestQuantize_LeavesAmountsWithinPrecisionUnchanged(t *testing.T) {
	amount, err := decimal.NewFromString("1.12345678")
	require.NoError(t, err)
	assert.True(t, BTC.Quantize(amount).Equal(amount))
}

func TestQuantize_RoundsExcessFractionalDigits(t *testing.T) {
	amount, err := decimal.NewFromString("1.123456785")
	require.NoError(t, err)
	want, err := decimal.NewFromString("1.12345679")
	require.NoError(t, err)
	assert.True(t, BTC.Quantize(amount).Equal(want))
}

func TestQuantize_LeavesWholeAmountsUnchanged(t *testing.T) {
	assert.True(t, USDT.Quantize(decimal.NewFromInt(100)).Equal(decimal.NewFromInt(100)))
}

func TestNewSymbol_RejectsSameBaseAndQuote(t *testing.T) {
	_, err := NewSymbol(BTC, BTC)
	assert.ErrorIs(t, err, ErrInvalidSymbol)
}

func TestParseSymbol_RoundTripsCanonicalForm(t *testing.T) {
	sym, err := ParseSymbol("BTC/USDT")
	require.NoError(t, err)
	assert.Equal(t, "BTC/USDT", sym.String())
}
