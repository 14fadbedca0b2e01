package purchaseorder

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseOrder is an admin-issued procurement record linking a vendor and a
// product. It is immutable once created.
type PurchaseOrder struct {
	ID         string
	VendorID   string
	ProductID  string
	Quantity   int
	BaseTotal  decimal.Decimal
	FinalTotal decimal.Decimal
	CreatedAt  time.Time
}

// Repository defines persistence operations for purchase orders.
//
// Create inserts po in a single atomic write and fills in ID and CreatedAt.
// It returns an apperr reference error when the vendor or product does not
// exist. List returns all rows ordered by CreatedAt descending.
type Repository interface {
	Create(ctx context.Context, po *PurchaseOrder) error
	List(ctx context.Context) ([]PurchaseOrder, error)
}
