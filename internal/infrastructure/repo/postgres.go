package repo

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"

	"bnpl-gateway/internal/domain"
)

type PostgresOrderStore struct {
	db *sql.DB
}

func NewPostgresOrderStore(dsn string) (*PostgresOrderStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	s := &PostgresOrderStore{db: db}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresOrderStore) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS orders (
		id BIGINT PRIMARY KEY,
		total NUMERIC(18,2) NOT NULL,
		currency TEXT NOT NULL,
		status TEXT NOT NULL,
		payment_method TEXT,
		billing_phone TEXT,
		billing_email TEXT,
		payment_complete BOOLEAN NOT NULL DEFAULT FALSE,
		checkout_url TEXT,
		cancel_url TEXT,
		return_url TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`CREATE TABLE IF NOT EXISTS order_notes (
		id BIGSERIAL PRIMARY KEY,
		order_id BIGINT NOT NULL REFERENCES orders(id),
		note TEXT NOT NULL,
		customer_visible BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`CREATE TABLE IF NOT EXISTS order_meta (
		order_id BIGINT NOT NULL REFERENCES orders(id),
		meta_key TEXT NOT NULL,
		meta_value TEXT NOT NULL,
		PRIMARY KEY (order_id, meta_key)
	);`)
	return err
}

func (s *PostgresOrderStore) Put(ctx context.Context, o *domain.Order) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO orders (id,total,currency,status,payment_method,billing_phone,billing_email,payment_complete,checkout_url,cancel_url,return_url,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,now(),now())
		ON CONFLICT (id) DO UPDATE SET total=$2,currency=$3,status=$4,payment_method=$5,billing_phone=$6,billing_email=$7,payment_complete=$8,checkout_url=$9,cancel_url=$10,return_url=$11,updated_at=now()`,
		o.ID, o.Total, o.Currency, string(o.Status), o.PaymentMethod, o.BillingPhone, o.BillingEmail, o.PaymentComplete, o.CheckoutURL, o.CancelURL, o.ReturnURL)
	return err
}

func (s *PostgresOrderStore) Get(ctx context.Context, id int64) (*domain.Order, error) {
	var o domain.Order
	err := s.db.QueryRowContext(ctx, `SELECT id,total,currency,status,payment_method,billing_phone,billing_email,payment_complete,checkout_url,cancel_url,return_url,created_at,updated_at FROM orders WHERE id=$1`, id).
		Scan(&o.ID, &o.Total, &o.Currency, (*string)(&o.Status), &o.PaymentMethod, &o.BillingPhone, &o.BillingEmail, &o.PaymentComplete, &o.CheckoutURL, &o.CancelURL, &o.ReturnURL, &o.CreatedAt, &o.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT note,customer_visible,created_at FROM order_notes WHERE order_id=$1 ORDER BY id ASC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var n domain.Note
		if err := rows.Scan(&n.Text, &n.CustomerVisible, &n.CreatedAt); err != nil {
			return nil, err
		}
		o.Notes = append(o.Notes, n)
	}
	metaRows, err := s.db.QueryContext(ctx, `SELECT meta_key,meta_value FROM order_meta WHERE order_id=$1`, id)
	if err != nil {
		return nil, err
	}
	defer metaRows.Close()
	o.Meta = map[string]string{}
	for metaRows.Next() {
		var k, v string
		if err := metaRows.Scan(&k, &v); err != nil {
			return nil, err
		}
		o.Meta[k] = v
	}
	return &o, nil
}

func (s *PostgresOrderStore) SetStatus(ctx context.Context, id int64, status domain.OrderStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`, id, string(status))
	if err != nil {
		return err
	}
	return noRowsAsNotFound(res)
}

func (s *PostgresOrderStore) AddNote(ctx context.Context, id int64, text string, customerVisible bool) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO order_notes (order_id,note,customer_visible) VALUES ($1,$2,$3)`, id, text, customerVisible)
	return err
}

// MarkPaymentComplete flips the paid flag once and advances unpaid
// statuses to processing in the same statement, so concurrent callers
// cannot both observe an unpaid order.
func (s *PostgresOrderStore) MarkPaymentComplete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE orders
		SET payment_complete=TRUE,
		    status=CASE WHEN status IN ('pending','on-hold','failed','cancelled') THEN 'processing' ELSE status END,
		    updated_at=now()
		WHERE id=$1 AND NOT payment_complete`, id)
	if err != nil {
		return err
	}
	// zero rows means either already complete (fine) or missing order
	n, err := res.RowsAffected()
	if err != nil || n > 0 {
		return err
	}
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (s *PostgresOrderStore) SetMeta(ctx context.Context, id int64, key, value string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO order_meta (order_id,meta_key,meta_value) VALUES ($1,$2,$3)
		ON CONFLICT (order_id,meta_key) DO UPDATE SET meta_value=$3`, id, key, value)
	return err
}

func noRowsAsNotFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}
