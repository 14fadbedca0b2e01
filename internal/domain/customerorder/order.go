package customerorder

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Order is a checkout-originated customer order. It is created by the
// checkout flow and only read or advanced here.
type Order struct {
	ID          string
	UserID      string
	TotalAmount decimal.Decimal
	Status      Status
	CreatedAt   time.Time
}

// Repository defines persistence operations for customer orders.
//
// UpdateStatus performs a compare-and-set: it changes the status only when the
// stored status still equals from, and reports false when it did not.
// Get returns an apperr not-found error for unknown ids.
type Repository interface {
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	Get(ctx context.Context, id string) (*Order, error)
	UpdateStatus(ctx context.Context, id string, from, to Status) (bool, error)
}
