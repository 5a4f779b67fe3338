// Package channelorder stores LSP channel purchase orders per account.
package channelorder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrOrderNotFound is returned when deleting an order that does not exist.
var ErrOrderNotFound = errors.New("channel order not found")

// Order is one channel order placed with an LSP. Payload is the LSP's
// order response, stored verbatim.
type Order struct {
	ID        int64  `json:"id"`
	AccountID int64  `json:"account_id"`
	OrderID   string `json:"order_id"`
	CreatedAt string `json:"created_at"`
	Status    string `json:"status"`
	Payload   string `json:"payload"`
}

// Repository defines channel order persistence.
type Repository interface {
	Insert(ctx context.Context, o *Order) error
	ListByAccount(ctx context.Context, accountID int64) ([]Order, error)
	List(ctx context.Context) ([]Order, error)
	Delete(ctx context.Context, accountID int64, orderID string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a SQLite-backed channel order repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Insert stores o and sets o.ID. An empty CreatedAt is filled with the
// current UTC time.
func (r *SQLiteRepository) Insert(ctx context.Context, o *Order) error {
	if o.OrderID == "" {
		return fmt.Errorf("inserting channel order: order_id is required")
	}
	if o.CreatedAt == "" {
		o.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	const query = `INSERT INTO channel_orders (account_id, order_id, created_at, status, payload)
		VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query, o.AccountID, o.OrderID, o.CreatedAt, o.Status, o.Payload)
	if err != nil {
		return fmt.Errorf("inserting channel order %s: %w", o.OrderID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading channel order id: %w", err)
	}
	o.ID = id
	return nil
}

// ListByAccount returns the account's orders, newest first.
func (r *SQLiteRepository) ListByAccount(ctx context.Context, accountID int64) ([]Order, error) {
	const query = `SELECT id, account_id, order_id, created_at, status, payload
		FROM channel_orders WHERE account_id = ? ORDER BY created_at DESC, id DESC`
	return r.query(ctx, query, accountID)
}

// List returns every stored order, newest first.
func (r *SQLiteRepository) List(ctx context.Context) ([]Order, error) {
	const query = `SELECT id, account_id, order_id, created_at, status, payload
		FROM channel_orders ORDER BY created_at DESC, id DESC`
	return r.query(ctx, query)
}

// Delete removes the order with orderID belonging to accountID.
func (r *SQLiteRepository) Delete(ctx context.Context, accountID int64, orderID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM channel_orders WHERE account_id = ? AND order_id = ?`, accountID, orderID)
	if err != nil {
		return fmt.Errorf("deleting channel order %s: %w", orderID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying channel orders: %w", err)
	}
	defer rows.Close()

	orders := []Order{}
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.AccountID, &o.OrderID, &o.CreatedAt, &o.Status, &o.Payload); err != nil {
			return nil, fmt.Errorf("scanning channel order row: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating channel order rows: %w", err)
	}
	return orders, nil
}
