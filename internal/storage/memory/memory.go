// Package memory implements the data access gateway in process memory. It
// backs development runs and tests and keeps the same ordering and
// referential rules as the PostgreSQL gateway. Data is lost on restart.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harvestcart/harvestcart/internal/domain/apperr"
	"github.com/harvestcart/harvestcart/internal/domain/auth"
	"github.com/harvestcart/harvestcart/internal/domain/customerorder"
	"github.com/harvestcart/harvestcart/internal/domain/pricing"
	"github.com/harvestcart/harvestcart/internal/domain/product"
	"github.com/harvestcart/harvestcart/internal/domain/purchaseorder"
	"github.com/harvestcart/harvestcart/internal/domain/vendor"
)

// Store holds every table. Use the accessor methods to obtain the
// per-entity repositories.
type Store struct {
	mu    sync.RWMutex
	now   func() time.Time
	last  time.Time
	newID func() string

	vendors     []vendor.Vendor
	products    map[string]product.Product
	purchases   []purchaseorder.PurchaseOrder
	orders      map[string]*customerorder.Order
	credentials map[string]auth.Credential
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDs overrides id generation.
func WithIDs(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		now:         time.Now,
		newID:       func() string { return uuid.NewString() },
		products:    make(map[string]product.Product),
		orders:      make(map[string]*customerorder.Order),
		credentials: make(map[string]auth.Credential),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Ping satisfies readiness checks.
func (s *Store) Ping(context.Context) error { return nil }

// stamp returns a strictly increasing creation time. Callers hold s.mu.
func (s *Store) stamp() time.Time {
	t := s.now().UTC()
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

func (s *Store) Vendors() *VendorRepository               { return &VendorRepository{s: s} }
func (s *Store) Products() *ProductRepository             { return &ProductRepository{s: s} }
func (s *Store) PurchaseOrders() *PurchaseOrderRepository { return &PurchaseOrderRepository{s: s} }
func (s *Store) CustomerOrders() *CustomerOrderRepository { return &CustomerOrderRepository{s: s} }
func (s *Store) Credentials() *CredentialRepository       { return &CredentialRepository{s: s} }

var (
	_ vendor.Repository         = (*VendorRepository)(nil)
	_ product.Repository        = (*ProductRepository)(nil)
	_ purchaseorder.Repository  = (*PurchaseOrderRepository)(nil)
	_ customerorder.Repository  = (*CustomerOrderRepository)(nil)
	_ auth.CredentialRepository = (*CredentialRepository)(nil)
)

// VendorRepository implements vendor.Repository.
type VendorRepository struct{ s *Store }

func (r *VendorRepository) Create(_ context.Context, name string) (*vendor.Vendor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	v := vendor.Vendor{ID: r.s.newID(), Name: name, CreatedAt: r.s.stamp()}
	r.s.vendors = append(r.s.vendors, v)
	return &v, nil
}

func (r *VendorRepository) List(context.Context) ([]vendor.Vendor, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return slices.Clone(r.s.vendors), nil
}

// ProductRepository implements product.Repository.
type ProductRepository struct{ s *Store }

func (r *ProductRepository) List(context.Context) ([]product.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]product.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b product.Product) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (r *ProductRepository) Upsert(_ context.Context, p product.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.products[p.ID] = p
	return nil
}

// PurchaseOrderRepository implements purchaseorder.Repository.
type PurchaseOrderRepository struct{ s *Store }

// Create checks both references and appends the order under one lock.
func (r *PurchaseOrderRepository) Create(_ context.Context, po *purchaseorder.PurchaseOrder) error {
	const op = "insert purchase order"

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if !slices.ContainsFunc(r.s.vendors, func(v vendor.Vendor) bool { return v.ID == po.VendorID }) {
		return apperr.Reference(op, "vendor "+po.VendorID+" does not exist", nil)
	}
	if _, ok := r.s.products[po.ProductID]; !ok {
		return apperr.Reference(op, "product "+po.ProductID+" does not exist", nil)
	}
	if !storable(po.BaseTotal) || !storable(po.FinalTotal) {
		return apperr.Validation(op, "amount out of range", nil)
	}

	po.ID = r.s.newID()
	po.CreatedAt = r.s.stamp()
	r.s.purchases = append(r.s.purchases, *po)
	return nil
}

// List returns purchase orders newest first.
func (r *PurchaseOrderRepository) List(context.Context) ([]purchaseorder.PurchaseOrder, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := slices.Clone(r.s.purchases)
	slices.Reverse(out)
	if out == nil {
		out = []purchaseorder.PurchaseOrder{}
	}
	return out, nil
}

// CustomerOrderRepository implements customerorder.Repository.
type CustomerOrderRepository struct{ s *Store }

// ListByUser returns the user's orders newest first.
func (r *CustomerOrderRepository) ListByUser(_ context.Context, userID string) ([]customerorder.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []customerorder.Order{}
	for _, o := range r.s.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	slices.SortFunc(out, func(a, b customerorder.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	return out, nil
}

func (r *CustomerOrderRepository) Get(_ context.Context, id string) (*customerorder.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	o, ok := r.s.orders[id]
	if !ok {
		return nil, apperr.NotFound("get order", "order "+id+" not found")
	}
	c := *o
	return &c, nil
}

// UpdateStatus is a compare-and-set on the stored status.
func (r *CustomerOrderRepository) UpdateStatus(_ context.Context, id string, from, to customerorder.Status) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	return true, nil
}

// Insert stores a checkout-created order, assigning ID and CreatedAt when
// they are unset.
func (r *CustomerOrderRepository) Insert(_ context.Context, o *customerorder.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if o.ID == "" {
		o.ID = r.s.newID()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = r.s.stamp()
	}
	if o.Status == "" {
		o.Status = customerorder.StatusPending
	}
	o.TotalAmount = o.TotalAmount.Round(2)
	c := *o
	r.s.orders[o.ID] = &c
	return nil
}

// CredentialRepository implements auth.CredentialRepository.
type CredentialRepository struct{ s *Store }

func (r *CredentialRepository) FindByUser(_ context.Context, userID string) (*auth.Credential, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.credentials[userID]
	if !ok {
		return nil, apperr.NotFound("find credential", "no credential for user")
	}
	return &c, nil
}

func (r *CredentialRepository) Upsert(_ context.Context, c auth.Credential) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.credentials[c.UserID] = c
	return nil
}

// storable mirrors the NUMERIC(12,2) amount columns.
func storable(d decimal.Decimal) bool {
	_, err := pricing.NormalizeAmount(d)
	return err == nil
}
