package product

import (
	"context"

	"github.com/shopspring/decimal"
)

// Product is a catalog item. Purchase orders reference it by ID only; its
// lifecycle is owned by the catalog.
type Product struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Category string
}

// Repository defines catalog operations used by the admin tooling.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	Upsert(ctx context.Context, p Product) error
}
