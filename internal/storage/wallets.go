package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"fenrir/internal/currency"
	"fenrir/internal/domain"
	"fenrir/internal/errs"
)

// maxCASAttempts bounds the optimistic-concurrency retry loop on a wallet
// mutation before giving up with CONCURRENCY_CONFLICT.
const maxCASAttempts = 5

// Balances is the C3 collaborator: the exchange's wallet store. Every
// mutation is a read-modify-compare-and-swap loop against the version
// column, modeled on manangoyal18-GOLANG-ORDER-MATCHING-SYSTEM's
// prepared-statement transaction pattern.
type Balances struct {
	s *Store
}

func (s *Store) Balances() *Balances { return &Balances{s: s} }

// Get returns the wallet for (user, ccy), or a zero-balance Wallet at
// version 0 if none has been created yet.
func (b *Balances) Get(ctx context.Context, user int64, ccy currency.Currency) (domain.Wallet, error) {
	return b.get(ctx, b.s.db, user, ccy)
}

func (b *Balances) get(ctx context.Context, q querier, user int64, ccy currency.Currency) (domain.Wallet, error) {
	row := q.QueryRowContext(ctx,
		`SELECT available, version FROM wallets WHERE user_id = ? AND currency = ?`,
		user, ccy.String())
	var availableStr string
	var version int64
	err := row.Scan(&availableStr, &version)
	if err == sql.ErrNoRows {
		return domain.Wallet{User: user, Currency: ccy, Available: decimal.Zero, Version: 0}, nil
	}
	if err != nil {
		return domain.Wallet{}, errs.Wrap(errs.KindInternal, "load wallet", err)
	}
	available, err := decimal.NewFromString(availableStr)
	if err != nil {
		return domain.Wallet{}, errs.Wrap(errs.KindInternal, "parse wallet balance", err)
	}
	return domain.Wallet{User: user, Currency: ccy, Available: available, Version: version}, nil
}

// List returns every wallet a user holds a nonzero-version record for.
func (b *Balances) List(ctx context.Context, user int64) ([]domain.Wallet, error) {
	rows, err := b.s.db.QueryContext(ctx,
		`SELECT currency, available, version FROM wallets WHERE user_id = ? ORDER BY currency`, user)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "list wallets", err)
	}
	defer rows.Close()

	var out []domain.Wallet
	for rows.Next() {
		var ccyStr, availableStr string
		var version int64
		if err := rows.Scan(&ccyStr, &availableStr, &version); err != nil {
			return nil, errs.Wrap(errs.KindInternal, "scan wallet row", err)
		}
		ccy, err := currency.Parse(ccyStr)
		if err != nil {
			return nil, errs.Wrap(errs.KindInternal, "parse wallet currency", err)
		}
		available, err := decimal.NewFromString(availableStr)
		if err != nil {
			return nil, errs.Wrap(errs.KindInternal, "parse wallet balance", err)
		}
		out = append(out, domain.Wallet{User: user, Currency: ccy, Available: available, Version: version})
	}
	return out, rows.Err()
}

// Credit adds amount to the user's balance in ccy, creating the wallet
// record if needed. amount is quantized to ccy's Precision before it is
// applied, so a ledger row never carries more fractional precision than
// the currency settles at.
func (b *Balances) Credit(ctx context.Context, user int64, ccy currency.Currency, amount decimal.Decimal) (domain.Wallet, error) {
	amount = ccy.Quantize(amount)
	return b.mutate(ctx, user, ccy, func(available decimal.Decimal) (decimal.Decimal, error) {
		return available.Add(amount), nil
	})
}

// Debit subtracts amount from the user's balance in ccy, quantized to
// ccy's Precision. Fails with INSUFFICIENT_BALANCE if the current balance
// is less than amount.
func (b *Balances) Debit(ctx context.Context, user int64, ccy currency.Currency, amount decimal.Decimal) (domain.Wallet, error) {
	amount = ccy.Quantize(amount)
	return b.mutate(ctx, user, ccy, func(available decimal.Decimal) (decimal.Decimal, error) {
		if available.LessThan(amount) {
			return decimal.Decimal{}, errs.New(errs.KindInsufficientBalance,
				fmt.Sprintf("balance %s insufficient for debit %s", available, amount))
		}
		return available.Sub(amount), nil
	})
}

// mutate runs a bounded compare-and-swap loop: read the current row (or
// treat it as a fresh zero-balance, version-0 record), apply fn, and
// attempt to write the new balance conditioned on the version observed at
// read time. A transaction keeps the read and the conditional write
// atomic with respect to other mutate calls running concurrently; the
// version check additionally protects against a lost update within one
// transaction's read-then-write window.
func (b *Balances) mutate(ctx context.Context, user int64, ccy currency.Currency, fn func(decimal.Decimal) (decimal.Decimal, error)) (domain.Wallet, error) {
	var result domain.Wallet
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		tx, err := b.s.db.BeginTx(ctx, nil)
		if err != nil {
			return domain.Wallet{}, errs.Wrap(errs.KindInternal, "begin wallet tx", err)
		}

		current, err := b.get(ctx, tx, user, ccy)
		if err != nil {
			tx.Rollback()
			return domain.Wallet{}, err
		}

		next, err := fn(current.Available)
		if err != nil {
			tx.Rollback()
			return domain.Wallet{}, err
		}

		var res sql.Result
		if current.Version == 0 {
			// No existing row observed: try to insert fresh. If a
			// concurrent writer beat us to the insert, the unique
			// constraint fails and we retry, falling into the update path.
			res, err = tx.ExecContext(ctx,
				`INSERT INTO wallets (user_id, currency, available, version) VALUES (?, ?, ?, 1)`,
				user, ccy.String(), next.String())
			if err != nil {
				tx.Rollback()
				continue
			}
		} else {
			res, err = tx.ExecContext(ctx,
				`UPDATE wallets SET available = ?, version = version + 1
				 WHERE user_id = ? AND currency = ? AND version = ?`,
				next.String(), user, ccy.String(), current.Version)
			if err != nil {
				tx.Rollback()
				return domain.Wallet{}, errs.Wrap(errs.KindInternal, "update wallet", err)
			}
		}

		rows, err := res.RowsAffected()
		if err != nil || rows != 1 {
			tx.Rollback()
			continue // lost the race; reread and retry
		}
		if err := tx.Commit(); err != nil {
			return domain.Wallet{}, errs.Wrap(errs.KindInternal, "commit wallet tx", err)
		}

		result = domain.Wallet{User: user, Currency: ccy, Available: next, Version: current.Version + 1}
		return result, nil
	}
	return domain.Wallet{}, errs.New(errs.KindConcurrencyConflict,
		fmt.Sprintf("wallet %d/%s: exceeded %d CAS attempts", user, ccy, maxCASAttempts))
}

// querier is satisfied by both *sql.DB and *sql.Tx, letting get() run
// inside or outside a transaction.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
