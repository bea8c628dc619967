package domain

import (
	"fmt"

	"github.com/shopspring/decimal"

	"fenrir/internal/currency"
)

// BalanceReason tags why a wallet balance changed.
type BalanceReason int

const (
	Deposit BalanceReason = iota
	Withdraw
	Reservation
	Release
	Settlement
)

func (r BalanceReason) String() string {
	switch r {
	case Deposit:
		return "DEPOSIT"
	case Withdraw:
		return "WITHDRAW"
	case Reservation:
		return "RESERVATION"
	case Release:
		return "RELEASE"
	case Settlement:
		return "SETTLEMENT"
	default:
		return "UNKNOWN"
	}
}

// Wallet is a (user, currency) balance record with an optimistic-concurrency
// version token. At most one Wallet exists per (user, currency); it is
// created lazily on first credit and never destroyed.
type Wallet struct {
	User      int64
	Currency  currency.Currency
	Available decimal.Decimal
	Version   int64
}

func (w Wallet) String() string {
	return fmt.Sprintf("Wallet{User:%d Currency:%s Available:%s Version:%d}",
		w.User, w.Currency, w.Available, w.Version)
}
