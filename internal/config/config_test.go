package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithNoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 100000.0, cfg.MaxExposureQuote)
	assert.True(t, cfg.RiskEnabled)
	assert.Equal(t, 1.10, cfg.MarketOrderSlippageBuffer)
	assert.ElementsMatch(t, []string{"USDT", "BTC", "ETH"}, cfg.SupportedCurrencies)
	assert.ElementsMatch(t, []string{"BTC/USDT", "ETH/USDT"}, cfg.SupportedSymbols)
}

func TestLoad_EnvOverridesDefault(t *testing.T) {
	t.Setenv("EXCHANGE_MAX_EXPOSURE_QUOTE", "500")
	t.Setenv("EXCHANGE_RISK_ENABLED", "false")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 500.0, cfg.MaxExposureQuote)
	assert.False(t, cfg.RiskEnabled)
}

func TestValidate_RejectsUnknownCurrency(t *testing.T) {
	cfg := &Config{
		MaxExposureQuote:          100,
		MarketOrderSlippageBuffer: 1.1,
		SupportedCurrencies:       []string{"DOGE"},
		SupportedSymbols:          []string{"BTC/USDT"},
	}
	err := cfg.Validate()
	require.Error(t, err)
}

func TestValidate_RejectsSlippageBufferBelowOne(t *testing.T) {
	cfg := &Config{
		MaxExposureQuote:          100,
		MarketOrderSlippageBuffer: 0.9,
		SupportedCurrencies:       []string{"USDT"},
		SupportedSymbols:          []string{"BTC/USDT"},
	}
	err := cfg.Validate()
	require.Error(t, err)
}

func TestCurrenciesAndSymbolsResolve(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Len(t, cfg.Currencies(), 3)
	assert.Len(t, cfg.Symbols(), 2)
}
