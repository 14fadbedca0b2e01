package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harvestcart/harvestcart/internal/domain/vendor"
)

const (
	createVendorSQL = `INSERT INTO vendors (name) VALUES ($1)
		RETURNING id, name, created_at`

	listVendorsSQL = `SELECT id, name, created_at FROM vendors ORDER BY created_at, id`
)

var _ vendor.Repository = (*VendorRepository)(nil)

// VendorRepository implements vendor.Repository backed by PostgreSQL.
type VendorRepository struct {
	pool *pgxpool.Pool
}

// NewVendorRepository returns a VendorRepository that uses the given pool.
func NewVendorRepository(pool *pgxpool.Pool) *VendorRepository {
	return &VendorRepository{pool: pool}
}

// Create inserts a vendor; the database assigns id and created_at.
func (r *VendorRepository) Create(ctx context.Context, name string) (*vendor.Vendor, error) {
	rows, err := r.pool.Query(ctx, createVendorSQL, name)
	if err != nil {
		return nil, errors.Wrapf(err, "insert vendor %q", name)
	}
	v, err := pgx.CollectExactlyOneRow(rows, scanVendor)
	if err != nil {
		return nil, errors.Wrapf(err, "insert vendor %q", name)
	}
	return &v, nil
}

// List returns vendors in insertion order.
func (r *VendorRepository) List(ctx context.Context) ([]vendor.Vendor, error) {
	rows, err := r.pool.Query(ctx, listVendorsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list vendors")
	}
	return pgx.CollectRows(rows, scanVendor)
}

func scanVendor(row pgx.CollectableRow) (vendor.Vendor, error) {
	var v vendor.Vendor
	err := row.Scan(&v.ID, &v.Name, &v.CreatedAt)
	return v, err
}
