// Package config defines the exchange's configuration surface. Config is
// loaded from an optional YAML file with EXCHANGE_* environment variables
// layered on top, in the same viper setup idiom used elsewhere in the
// example pack for small, single-file configs.
package config

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"fenrir/internal/currency"
)

// Config is the top-level configuration, mapping directly onto the
// exchange's documented configuration surface.
type Config struct {
	MaxExposureQuote          float64       `mapstructure:"max_exposure_quote"`
	RiskEnabled               bool          `mapstructure:"risk_enabled"`
	MarketOrderSlippageBuffer float64       `mapstructure:"market_order_slippage_buffer"`
	SupportedCurrencies       []string      `mapstructure:"supported_currencies"`
	SupportedSymbols          []string      `mapstructure:"supported_symbols"`
	DatabasePath              string        `mapstructure:"database_path"`
	Logging                   LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from path (if non-empty) with EXCHANGE_*
// environment variable overrides layered on top, falling back to the
// documented defaults for anything neither sets.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("EXCHANGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("max_exposure_quote", 100000.0)
	v.SetDefault("risk_enabled", true)
	v.SetDefault("market_order_slippage_buffer", 1.10)
	v.SetDefault("supported_currencies", []string{"USDT", "BTC", "ETH"})
	v.SetDefault("supported_symbols", []string{"BTC/USDT", "ETH/USDT"})
	v.SetDefault("database_path", ":memory:")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and that the configured currencies/symbols
// are ones the exchange actually understands.
func (c *Config) Validate() error {
	if c.MaxExposureQuote <= 0 {
		return fmt.Errorf("max_exposure_quote must be > 0")
	}
	if c.MarketOrderSlippageBuffer < 1.0 {
		return fmt.Errorf("market_order_slippage_buffer must be >= 1.0")
	}
	if len(c.SupportedCurrencies) == 0 {
		return fmt.Errorf("supported_currencies must not be empty")
	}
	for _, name := range c.SupportedCurrencies {
		if _, err := currency.Parse(name); err != nil {
			return fmt.Errorf("supported_currencies: %w", err)
		}
	}
	if len(c.SupportedSymbols) == 0 {
		return fmt.Errorf("supported_symbols must not be empty")
	}
	for _, s := range c.SupportedSymbols {
		if _, err := currency.ParseSymbol(s); err != nil {
			return fmt.Errorf("supported_symbols: %w", err)
		}
	}
	return nil
}

// Currencies resolves SupportedCurrencies into parsed currency.Currency
// values. Validate must have already confirmed they parse.
func (c *Config) Currencies() []currency.Currency {
	out := make([]currency.Currency, 0, len(c.SupportedCurrencies))
	for _, name := range c.SupportedCurrencies {
		ccy, _ := currency.Parse(name)
		out = append(out, ccy)
	}
	return out
}

// Symbols resolves SupportedSymbols into parsed currency.Symbol values.
func (c *Config) Symbols() []currency.Symbol {
	out := make([]currency.Symbol, 0, len(c.SupportedSymbols))
	for _, s := range c.SupportedSymbols {
		sym, _ := currency.ParseSymbol(s)
		out = append(out, sym)
	}
	return out
}

// MaxExposureDecimal returns MaxExposureQuote as a decimal.Decimal for use
// by the risk validator.
func (c *Config) MaxExposureDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MaxExposureQuote)
}

// SlippageBufferDecimal returns MarketOrderSlippageBuffer as a
// decimal.Decimal for use by the risk validator.
func (c *Config) SlippageBufferDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MarketOrderSlippageBuffer)
}
