package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harvestcart/harvestcart/internal/domain/apperr"
	"github.com/harvestcart/harvestcart/internal/domain/customerorder"
)

const (
	listOrdersByUserSQL = `SELECT id, user_id, total_amount, status, created_at
		FROM customer_orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC`

	getOrderSQL = `SELECT id, user_id, total_amount, status, created_at
		FROM customer_orders WHERE id = $1`

	updateOrderStatusSQL = `UPDATE customer_orders SET status = $3, updated_at = clock_timestamp()
		WHERE id = $1 AND status = $2`

	insertOrderSQL = `INSERT INTO customer_orders (user_id, total_amount, status)
		VALUES ($1, $2, $3) RETURNING id, created_at`
)

var _ customerorder.Repository = (*CustomerOrderRepository)(nil)

// CustomerOrderRepository implements customerorder.Repository backed by
// PostgreSQL.
type CustomerOrderRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerOrderRepository returns a CustomerOrderRepository that uses the
// given pool.
func NewCustomerOrderRepository(pool *pgxpool.Pool) *CustomerOrderRepository {
	return &CustomerOrderRepository{pool: pool}
}

// ListByUser returns the user's orders, newest first.
func (r *CustomerOrderRepository) ListByUser(ctx context.Context, userID string) ([]customerorder.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "list orders for user %q", userID)
	}
	return pgx.CollectRows(rows, scanCustomerOrder)
}

// Get returns a single order.
func (r *CustomerOrderRepository) Get(ctx context.Context, id string) (*customerorder.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %q", id)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanCustomerOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("get order", "order "+id+" not found")
		}
		return nil, errors.Wrapf(err, "get order %q", id)
	}
	return &o, nil
}

// UpdateStatus sets the status only if it still equals from.
func (r *CustomerOrderRepository) UpdateStatus(ctx context.Context, id string, from, to customerorder.Status) (bool, error) {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, id, string(from), string(to))
	if err != nil {
		return false, errors.Wrapf(err, "update status of order %q", id)
	}
	return tag.RowsAffected() == 1, nil
}

// Insert stores a checkout-created order. Checkout lives outside this service;
// the seeding tool and tests use this to create fixtures.
func (r *CustomerOrderRepository) Insert(ctx context.Context, o *customerorder.Order) error {
	err := r.pool.QueryRow(ctx, insertOrderSQL, o.UserID, o.TotalAmount, string(o.Status)).
		Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return errors.Wrapf(err, "insert order for user %q", o.UserID)
	}
	return nil
}

func scanCustomerOrder(row pgx.CollectableRow) (customerorder.Order, error) {
	var (
		o      customerorder.Order
		status string
	)
	err := row.Scan(&o.ID, &o.UserID, &o.TotalAmount, &status, &o.CreatedAt)
	o.Status = customerorder.Status(status)
	return o, err
}
