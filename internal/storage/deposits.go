package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"fenrir/internal/errs"
)

// Deposits records deposit idempotency keys so a retried deposit request
// under the same key is recognized rather than credited twice.
type Deposits struct {
	s *Store
}

func (s *Store) Deposits() *Deposits { return &Deposits{s: s} }

// CheckAndRecord atomically checks whether key has been seen before and, if
// not, records it. already is true if a deposit with this key was already
// applied; the caller must not credit the wallet again.
func (d *Deposits) CheckAndRecord(ctx context.Context, key string, user int64, ccy string, amount decimal.Decimal, now time.Time) (already bool, err error) {
	tx, txErr := d.s.db.BeginTx(ctx, nil)
	if txErr != nil {
		return false, errs.Wrap(errs.KindInternal, "begin deposit log tx", txErr)
	}
	defer tx.Rollback()

	var existing string
	scanErr := tx.QueryRowContext(ctx,
		`SELECT idempotency_key FROM deposit_log WHERE idempotency_key = ?`, key).Scan(&existing)
	if scanErr == nil {
		return true, nil
	}
	if scanErr != sql.ErrNoRows {
		return false, errs.Wrap(errs.KindInternal, "check deposit log", scanErr)
	}

	_, execErr := tx.ExecContext(ctx,
		`INSERT INTO deposit_log (idempotency_key, user_id, currency, amount, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		key, user, ccy, amount.String(), now.Format(timeLayout))
	if execErr != nil {
		if isUniqueConstraintErr(execErr) {
			return true, nil
		}
		return false, errs.Wrap(errs.KindInternal, "record deposit", execErr)
	}

	if err := tx.Commit(); err != nil {
		return false, errs.Wrap(errs.KindInternal, "commit deposit log tx", err)
	}
	return false, nil
}
