package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fenrir/internal/currency"
	"fenrir/internal/domain"
	"fenrir/internal/errs"
)

// timeLayout is fixed-width (always nine fractional digits) so that
// ORDER BY on the stored text sorts chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Orders is the C4 collaborator: the exchange's order record store, keyed
// by id with a secondary uniqueness constraint on idempotency_key.
type Orders struct {
	s *Store
}

func (s *Store) Orders() *Orders { return &Orders{s: s} }

// Insert persists a freshly created order. Returns a *errs.Error with
// KindDuplicate if o.IdempotencyKey collides with an existing row.
func (o *Orders) Insert(ctx context.Context, ord domain.Order) error {
	var limitPrice sql.NullString
	if ord.LimitPrice != nil {
		limitPrice = sql.NullString{String: ord.LimitPrice.String(), Valid: true}
	}
	var idemKey sql.NullString
	if ord.IdempotencyKey != nil {
		idemKey = sql.NullString{String: *ord.IdempotencyKey, Valid: true}
	}

	_, err := o.s.db.ExecContext(ctx,
		`INSERT INTO orders (id, user_id, kind, side, base, quote, limit_price,
			original_qty, filled_qty, status, idempotency_key, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ord.ID, ord.User, ord.Kind.String(), ord.Side.String(),
		ord.Symbol.Base.String(), ord.Symbol.Quote.String(), limitPrice,
		ord.OriginalQty.String(), ord.FilledQty.String(), ord.Status.String(),
		idemKey, ord.CreatedAt.Format(timeLayout), ord.UpdatedAt.Format(timeLayout))
	if err != nil {
		if isUniqueConstraintErr(err) {
			return errs.Wrap(errs.KindDuplicate, "order idempotency key already used", err)
		}
		return errs.Wrap(errs.KindInternal, "insert order", err)
	}
	return nil
}

// Update rewrites the mutable fields of an existing order (filled_qty,
// status, updated_at). The order's identity and original terms never
// change after insert.
func (o *Orders) Update(ctx context.Context, ord domain.Order) error {
	res, err := o.s.db.ExecContext(ctx,
		`UPDATE orders SET filled_qty = ?, status = ?, updated_at = ? WHERE id = ?`,
		ord.FilledQty.String(), ord.Status.String(), ord.UpdatedAt.Format(timeLayout), ord.ID)
	if err != nil {
		return errs.Wrap(errs.KindInternal, "update order", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return errs.Wrap(errs.KindInternal, "update order rows affected", err)
	}
	if rows == 0 {
		return errs.New(errs.KindNotFound, "order not found: "+ord.ID)
	}
	return nil
}

// Get loads an order by id.
func (o *Orders) Get(ctx context.Context, id string) (domain.Order, error) {
	row := o.s.db.QueryRowContext(ctx,
		`SELECT id, user_id, kind, side, base, quote, limit_price,
			original_qty, filled_qty, status, idempotency_key, created_at, updated_at
		 FROM orders WHERE id = ?`, id)
	ord, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return domain.Order{}, errs.New(errs.KindNotFound, "order not found: "+id)
	}
	return ord, err
}

// GetByIdempotencyKey looks up an order previously submitted under key.
// found is false (with a nil error) if no order carries that key.
func (o *Orders) GetByIdempotencyKey(ctx context.Context, key string) (ord domain.Order, found bool, err error) {
	row := o.s.db.QueryRowContext(ctx,
		`SELECT id, user_id, kind, side, base, quote, limit_price,
			original_qty, filled_qty, status, idempotency_key, created_at, updated_at
		 FROM orders WHERE idempotency_key = ?`, key)
	ord, err = scanOrder(row)
	if err == sql.ErrNoRows {
		return domain.Order{}, false, nil
	}
	if err != nil {
		return domain.Order{}, false, err
	}
	return ord, true, nil
}

// ListByUser returns every order a user has placed, most recent first.
func (o *Orders) ListByUser(ctx context.Context, user int64) ([]domain.Order, error) {
	rows, err := o.s.db.QueryContext(ctx,
		`SELECT id, user_id, kind, side, base, quote, limit_price,
			original_qty, filled_qty, status, idempotency_key, created_at, updated_at
		 FROM orders WHERE user_id = ? ORDER BY created_at DESC`, user)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "list orders by user", err)
	}
	defer rows.Close()
	return scanOrders(rows)
}

// ListOpenOrPartial returns every order still resting on a book (OPEN or
// PARTIAL), used to rebuild order books on startup.
func (o *Orders) ListOpenOrPartial(ctx context.Context) ([]domain.Order, error) {
	rows, err := o.s.db.QueryContext(ctx,
		`SELECT id, user_id, kind, side, base, quote, limit_price,
			original_qty, filled_qty, status, idempotency_key, created_at, updated_at
		 FROM orders WHERE status IN ('OPEN', 'PARTIAL') ORDER BY created_at ASC`)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "list open orders", err)
	}
	defer rows.Close()
	return scanOrders(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		id, kindStr, sideStr, baseStr, quoteStr, statusStr  string
		limitPrice, idemKey, createdAtStr, updatedAtStr     sql.NullString
		originalQtyStr, filledQtyStr                        string
		user                                                int64
	)
	if err := row.Scan(&id, &user, &kindStr, &sideStr, &baseStr, &quoteStr, &limitPrice,
		&originalQtyStr, &filledQtyStr, &statusStr, &idemKey, &createdAtStr, &updatedAtStr); err != nil {
		return domain.Order{}, err
	}

	base, err := currency.Parse(baseStr)
	if err != nil {
		return domain.Order{}, errs.Wrap(errs.KindInternal, "parse order base currency", err)
	}
	quote, err := currency.Parse(quoteStr)
	if err != nil {
		return domain.Order{}, errs.Wrap(errs.KindInternal, "parse order quote currency", err)
	}
	symbol, err := currency.NewSymbol(base, quote)
	if err != nil {
		return domain.Order{}, errs.Wrap(errs.KindInternal, "rebuild order symbol", err)
	}

	originalQty, err := decimal.NewFromString(originalQtyStr)
	if err != nil {
		return domain.Order{}, errs.Wrap(errs.KindInternal, "parse order original qty", err)
	}
	filledQty, err := decimal.NewFromString(filledQtyStr)
	if err != nil {
		return domain.Order{}, errs.Wrap(errs.KindInternal, "parse order filled qty", err)
	}

	var limitPricePtr *decimal.Decimal
	if limitPrice.Valid {
		p, err := decimal.NewFromString(limitPrice.String)
		if err != nil {
			return domain.Order{}, errs.Wrap(errs.KindInternal, "parse order limit price", err)
		}
		limitPricePtr = &p
	}

	var idemKeyPtr *string
	if idemKey.Valid {
		v := idemKey.String
		idemKeyPtr = &v
	}

	createdAt, err := time.Parse(timeLayout, createdAtStr.String)
	if err != nil {
		return domain.Order{}, errs.Wrap(errs.KindInternal, "parse order created_at", err)
	}
	updatedAt, err := time.Parse(timeLayout, updatedAtStr.String)
	if err != nil {
		return domain.Order{}, errs.Wrap(errs.KindInternal, "parse order updated_at", err)
	}

	return domain.Order{
		ID:             id,
		User:           user,
		Kind:           parseOrderKind(kindStr),
		Side:           parseSide(sideStr),
		Symbol:         symbol,
		LimitPrice:     limitPricePtr,
		OriginalQty:    originalQty,
		FilledQty:      filledQty,
		Status:         parseOrderStatus(statusStr),
		IdempotencyKey: idemKeyPtr,
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
	}, nil
}

func scanOrders(rows *sql.Rows) ([]domain.Order, error) {
	var out []domain.Order
	for rows.Next() {
		ord, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ord)
	}
	return out, rows.Err()
}

func parseOrderKind(s string) domain.OrderKind {
	if strings.EqualFold(s, "MARKET") {
		return domain.Market
	}
	return domain.Limit
}

func parseSide(s string) domain.Side {
	if strings.EqualFold(s, "SELL") {
		return domain.Sell
	}
	return domain.Buy
}

func parseOrderStatus(s string) domain.OrderStatus {
	switch strings.ToUpper(s) {
	case "PARTIAL":
		return domain.Partial
	case "FILLED":
		return domain.Filled
	case "CANCELLED":
		return domain.Cancelled
	default:
		return domain.Open
	}
}

func isUniqueConstraintErr(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
