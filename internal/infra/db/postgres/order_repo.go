package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"unzer-reconciler/internal/domain"
	"unzer-reconciler/internal/domain/model"
	"unzer-reconciler/internal/domain/ports/repository"
)

var _ repository.OrderRepository = (*OrderRepo)(nil)

type OrderRepo struct {
	pool *pgxpool.Pool
}

func NewOrderRepo(pool *pgxpool.Pool) *OrderRepo {
	return &OrderRepo{pool: pool}
}

const orderColumns = `increment_id, store_code, customer_id, customer_email, base_currency, order_currency,
  base_grand_total, total_due, payment_method, last_trans_id, transaction_id,
  transaction_pending, transaction_closed, amount_authorized, amount_paid, amount_canceled,
  additional_info, created_at, updated_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o    model.Order
		info []byte
	)
	err := row.Scan(&o.IncrementID, &o.StoreCode, &o.CustomerID, &o.CustomerEmail, &o.BaseCurrency, &o.OrderCurrency,
		&o.BaseGrandTotal, &o.TotalDue, &o.Payment.Method, &o.Payment.LastTransID, &o.Payment.TransactionID,
		&o.Payment.TransactionPending, &o.Payment.TransactionClosed, &o.Payment.AmountAuthorized, &o.Payment.AmountPaid, &o.Payment.AmountCanceled,
		&info, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if len(info) > 0 {
		if err := json.Unmarshal(info, &o.Payment.AdditionalInfo); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	return &o, nil
}

// FindByIncrementID locks the order row when called inside a transaction.
func (r *OrderRepo) FindByIncrementID(ctx context.Context, tx repository.Tx, incrementID string) (*model.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE increment_id=$1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", incrementID)
	if err != nil {
		return nil, err
	}
	return scanOrder(row)
}

func (r *OrderRepo) AppendHistory(ctx context.Context, tx repository.Tx, incrementID string, entries ...model.StatusHistoryEntry) error {
	const q = `INSERT INTO order_status_history (id, increment_id, comment, created_at) VALUES ($1,$2,$3,$4);`
	for _, e := range entries {
		if _, err := execSQL(ctx, r.pool, tx, q, e.ID, incrementID, e.Comment, e.CreatedAt); err != nil {
			return mapErr(err)
		}
	}
	return nil
}

func (r *OrderRepo) ListHistory(ctx context.Context, tx repository.Tx, incrementID string) ([]model.StatusHistoryEntry, error) {
	const q = `SELECT id, comment, created_at FROM order_status_history WHERE increment_id=$1 ORDER BY id ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, incrementID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []model.StatusHistoryEntry
	for rows.Next() {
		var e model.StatusHistoryEntry
		if err := rows.Scan(&e.ID, &e.Comment, &e.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

func (r *OrderRepo) UpdatePayment(ctx context.Context, tx repository.Tx, incrementID string, p model.OrderPayment) error {
	info := p.AdditionalInfo
	if info == nil {
		info = map[string]string{}
	}
	raw, err := json.Marshal(info)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	const q = `
UPDATE orders SET
  payment_method=$2, last_trans_id=$3, transaction_id=$4, transaction_pending=$5, transaction_closed=$6,
  amount_authorized=$7, amount_paid=$8, amount_canceled=$9, additional_info=$10, updated_at=NOW()
WHERE increment_id=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q, incrementID, p.Method, p.LastTransID, p.TransactionID, p.TransactionPending, p.TransactionClosed,
		p.AmountAuthorized, p.AmountPaid, p.AmountCanceled, raw)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *OrderRepo) Touch(ctx context.Context, tx repository.Tx, incrementID string) error {
	tag, err := execSQL(ctx, r.pool, tx, `UPDATE orders SET updated_at=NOW() WHERE increment_id=$1;`, incrementID)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListPendingOlderThan returns pending orders not touched since olderThan, oldest first.
func (r *OrderRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + orderColumns + ` FROM orders WHERE transaction_pending AND updated_at < $1 ORDER BY updated_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []*model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}
