package postgres

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harvestcart/harvestcart/internal/domain/apperr"
	"github.com/harvestcart/harvestcart/internal/domain/purchaseorder"
)

const (
	createPurchaseOrderSQL = `INSERT INTO purchase_orders
		(vendor_id, product_id, quantity, base_total, final_total)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	listPurchaseOrdersSQL = `SELECT id, vendor_id, product_id, quantity, base_total, final_total, created_at
		FROM purchase_orders ORDER BY created_at DESC, id DESC`
)

var _ purchaseorder.Repository = (*PurchaseOrderRepository)(nil)

// PurchaseOrderRepository implements purchaseorder.Repository backed by
// PostgreSQL.
type PurchaseOrderRepository struct {
	pool *pgxpool.Pool
}

// NewPurchaseOrderRepository returns a PurchaseOrderRepository that uses the
// given pool.
func NewPurchaseOrderRepository(pool *pgxpool.Pool) *PurchaseOrderRepository {
	return &PurchaseOrderRepository{pool: pool}
}

// Create inserts po with a single statement and fills ID and CreatedAt.
// Foreign-key violations are reported as reference errors; amounts the
// columns cannot hold are reported as validation errors.
func (r *PurchaseOrderRepository) Create(ctx context.Context, po *purchaseorder.PurchaseOrder) error {
	err := r.pool.QueryRow(ctx, createPurchaseOrderSQL,
		po.VendorID, po.ProductID, po.Quantity, po.BaseTotal, po.FinalTotal,
	).Scan(&po.ID, &po.CreatedAt)
	if err == nil {
		return nil
	}

	if pgErr, ok := pgError(err); ok {
		switch pgErr.Code {
		case sqlStateForeignKeyViolation:
			msg := "referenced vendor or product does not exist"
			switch {
			case strings.Contains(pgErr.ConstraintName, "vendor"):
				msg = "vendor " + po.VendorID + " does not exist"
			case strings.Contains(pgErr.ConstraintName, "product"):
				msg = "product " + po.ProductID + " does not exist"
			}
			return apperr.Reference("insert purchase order", msg, err)
		case sqlStateCheckViolation:
			return apperr.Validation("insert purchase order", "rejected by store constraint "+pgErr.ConstraintName, nil)
		case sqlStateNumericOutOfRange:
			return apperr.Validation("insert purchase order", "amount out of range", nil)
		}
	}
	return errors.Wrap(err, "insert purchase order")
}

// List returns all purchase orders, newest first.
func (r *PurchaseOrderRepository) List(ctx context.Context) ([]purchaseorder.PurchaseOrder, error) {
	rows, err := r.pool.Query(ctx, listPurchaseOrdersSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list purchase orders")
	}
	return pgx.CollectRows(rows, scanPurchaseOrder)
}

func scanPurchaseOrder(row pgx.CollectableRow) (purchaseorder.PurchaseOrder, error) {
	var (
		po       purchaseorder.PurchaseOrder
		quantity int32
	)
	err := row.Scan(
		&po.ID, &po.VendorID, &po.ProductID, &quantity,
		&po.BaseTotal, &po.FinalTotal, &po.CreatedAt,
	)
	po.Quantity = int(quantity)
	return po, err
}
