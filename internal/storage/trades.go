package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"fenrir/internal/currency"
	"fenrir/internal/domain"
	"fenrir/internal/errs"
)

// Trades is the C5 collaborator: the exchange's append-only execution log.
// Rows are never updated or deleted.
type Trades struct {
	s *Store
}

func (s *Store) Trades() *Trades { return &Trades{s: s} }

// Insert persists tr, quantizing qty and price to their respective
// currencies' Precision so a trade row never carries more fractional
// precision than either currency settles at.
func (t *Trades) Insert(ctx context.Context, tr domain.Trade) error {
	qty := tr.Symbol.Base.Quantize(tr.Qty)
	price := tr.Symbol.Quote.Quantize(tr.Price)
	_, err := t.s.db.ExecContext(ctx,
		`INSERT INTO trades (id, buy_order_id, sell_order_id, base, quote, price, qty, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tr.ID, tr.BuyOrderID, tr.SellOrderID, tr.Symbol.Base.String(), tr.Symbol.Quote.String(),
		price.String(), qty.String(), tr.Timestamp.Format(timeLayout))
	if err != nil {
		return errs.Wrap(errs.KindInternal, "insert trade", err)
	}
	return nil
}

// ListBySymbol returns up to limit trades for symbol, most recent first.
func (t *Trades) ListBySymbol(ctx context.Context, symbol currency.Symbol, limit int) ([]domain.Trade, error) {
	rows, err := t.s.db.QueryContext(ctx,
		`SELECT id, buy_order_id, sell_order_id, base, quote, price, qty, timestamp
		 FROM trades WHERE base = ? AND quote = ? ORDER BY timestamp DESC LIMIT ?`,
		symbol.Base.String(), symbol.Quote.String(), limit)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "list trades by symbol", err)
	}
	defer rows.Close()
	return scanTrades(rows)
}

// ListByOrder returns every trade an order participated in, as either
// buyer or seller, oldest first.
func (t *Trades) ListByOrder(ctx context.Context, orderID string) ([]domain.Trade, error) {
	rows, err := t.s.db.QueryContext(ctx,
		`SELECT id, buy_order_id, sell_order_id, base, quote, price, qty, timestamp
		 FROM trades WHERE buy_order_id = ? OR sell_order_id = ? ORDER BY timestamp ASC`,
		orderID, orderID)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "list trades by order", err)
	}
	defer rows.Close()
	return scanTrades(rows)
}

func scanTrades(rows *sql.Rows) ([]domain.Trade, error) {
	var out []domain.Trade
	for rows.Next() {
		var id, buyID, sellID, baseStr, quoteStr, priceStr, qtyStr, tsStr string
		if err := rows.Scan(&id, &buyID, &sellID, &baseStr, &quoteStr, &priceStr, &qtyStr, &tsStr); err != nil {
			return nil, errs.Wrap(errs.KindInternal, "scan trade row", err)
		}
		base, err := currency.Parse(baseStr)
		if err != nil {
			return nil, errs.Wrap(errs.KindInternal, "parse trade base currency", err)
		}
		quote, err := currency.Parse(quoteStr)
		if err != nil {
			return nil, errs.Wrap(errs.KindInternal, "parse trade quote currency", err)
		}
		symbol, err := currency.NewSymbol(base, quote)
		if err != nil {
			return nil, errs.Wrap(errs.KindInternal, "rebuild trade symbol", err)
		}
		price, err := decimal.NewFromString(priceStr)
		if err != nil {
			return nil, errs.Wrap(errs.KindInternal, "parse trade price", err)
		}
		qty, err := decimal.NewFromString(qtyStr)
		if err != nil {
			return nil, errs.Wrap(errs.KindInternal, "parse trade qty", err)
		}
		ts, err := time.Parse(timeLayout, tsStr)
		if err != nil {
			return nil, errs.Wrap(errs.KindInternal, "parse trade timestamp", err)
		}
		out = append(out, domain.Trade{
			ID: id, BuyOrderID: buyID, SellOrderID: sellID,
			Symbol: symbol, Price: price, Qty: qty, Timestamp: ts,
		})
	}
	return out, rows.Err()
}
