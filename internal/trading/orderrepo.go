// Package trading implements the order-generating side of microtrader: an
// Operator that watches a divergences stream for buy signals, and the
// Postgres-backed sink those orders are persisted to. Grounded on
// trading/trader.py and trading/orderrepo.py, with the original's in-memory
// list replaced by a pgx-backed table per the domain stack.
package trading

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Order mirrors the field set orderrepo.py's OrderRepo.add stores per
// signal.
type Order struct {
	Time      time.Time
	ClassCode string
	SecCode   string
	Action    string
	Operation string
	Price     float64
	Quantity  int
	Type      string
}

// OrderRepo persists orders to Postgres and serves GetNew's drain-since-
// last-call semantics, the same contract as the original's class-level
// _orders/_pos pair, now backed by a monotonic id column instead of a
// Python list index.
type OrderRepo struct {
	db *pgxpool.Pool

	mu     sync.Mutex
	lastID int64
}

// NewOrderRepo connects to dsn and returns a ready OrderRepo. Callers are
// expected to have already created the orders table (id bigserial primary
// key, time timestamptz, class_code text, sec_code text, action text,
// operation text, price double precision, quantity integer, type text).
func NewOrderRepo(ctx context.Context, dsn string) (*OrderRepo, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("trading: parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("trading: connect: %w", err)
	}
	return &OrderRepo{db: pool}, nil
}

// Close releases the underlying connection pool.
func (r *OrderRepo) Close() {
	r.db.Close()
}

// Add inserts one order.
func (r *OrderRepo) Add(ctx context.Context, o Order) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO orders (time, class_code, sec_code, action, operation, price, quantity, type)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		o.Time, o.ClassCode, o.SecCode, o.Action, o.Operation, o.Price, o.Quantity, o.Type)
	if err != nil {
		return fmt.Errorf("trading: add order: %w", err)
	}
	return nil
}

// GetNew returns every order added since the previous GetNew call, in
// insertion order, and advances the drain cursor past them.
func (r *OrderRepo) GetNew(ctx context.Context) ([]Order, error) {
	r.mu.Lock()
	since := r.lastID
	r.mu.Unlock()

	rows, err := r.db.Query(ctx,
		`SELECT id, time, class_code, sec_code, action, operation, price, quantity, type
		 FROM orders WHERE id > $1 ORDER BY id`, since)
	if err != nil {
		return nil, fmt.Errorf("trading: query new orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	maxID := since
	for rows.Next() {
		var id int64
		var o Order
		if err := rows.Scan(&id, &o.Time, &o.ClassCode, &o.SecCode, &o.Action, &o.Operation, &o.Price, &o.Quantity, &o.Type); err != nil {
			return nil, fmt.Errorf("trading: scan order: %w", err)
		}
		orders = append(orders, o)
		if id > maxID {
			maxID = id
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.lastID = maxID
	r.mu.Unlock()

	return orders, nil
}
