package memory

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harvestcart/harvestcart/internal/domain/apperr"
	"github.com/harvestcart/harvestcart/internal/domain/auth"
	"github.com/harvestcart/harvestcart/internal/domain/customerorder"
	"github.com/harvestcart/harvestcart/internal/domain/product"
	"github.com/harvestcart/harvestcart/internal/domain/purchaseorder"
)

func sequentialIDs(prefix string) func() string {
	var n int
	return func() string {
		n++
		return prefix + strconv.Itoa(n)
	}
}

func frozenClock() func() time.Time {
	t := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return t }
}

func TestVendors_InsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := New(WithIDs(sequentialIDs("V")), WithClock(frozenClock()))
	repo := s.Vendors()

	a, err := repo.Create(ctx, "AgroSupplies")
	require.NoError(t, err)
	b, err := repo.Create(ctx, "SeedCo")
	require.NoError(t, err)

	assert.Equal(t, "V1", a.ID)
	assert.True(t, b.CreatedAt.After(a.CreatedAt), "creation times must be strictly increasing")

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "AgroSupplies", list[0].Name)
	assert.Equal(t, "SeedCo", list[1].Name)
}

func TestPurchaseOrders_References(t *testing.T) {
	ctx := context.Background()
	s := New(WithIDs(sequentialIDs("X")))
	v, err := s.Vendors().Create(ctx, "AgroSupplies")
	require.NoError(t, err)
	require.NoError(t, s.Products().Upsert(ctx, product.Product{ID: "P100", Name: "Seeds"}))

	repo := s.PurchaseOrders()
	newPO := func(vendorID, productID string) *purchaseorder.PurchaseOrder {
		return &purchaseorder.PurchaseOrder{
			VendorID:   vendorID,
			ProductID:  productID,
			Quantity:   1,
			BaseTotal:  decimal.NewFromInt(10),
			FinalTotal: decimal.NewFromInt(10),
		}
	}

	err = repo.Create(ctx, newPO("ghost", "P100"))
	require.ErrorIs(t, err, apperr.ErrReference)
	err = repo.Create(ctx, newPO(v.ID, "P999"))
	require.ErrorIs(t, err, apperr.ErrReference)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list, "rejected orders must not be persisted")

	first := newPO(v.ID, "P100")
	require.NoError(t, repo.Create(ctx, first))
	second := newPO(v.ID, "P100")
	require.NoError(t, repo.Create(ctx, second))
	assert.NotEmpty(t, first.ID)

	list, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestPurchaseOrders_AmountOutOfRange(t *testing.T) {
	ctx := context.Background()
	s := New()
	v, err := s.Vendors().Create(ctx, "AgroSupplies")
	require.NoError(t, err)
	require.NoError(t, s.Products().Upsert(ctx, product.Product{ID: "P100", Name: "Seeds"}))
	repo := s.PurchaseOrders()

	err = repo.Create(ctx, &purchaseorder.PurchaseOrder{
		VendorID: v.ID, ProductID: "P100", Quantity: 1,
		BaseTotal:  decimal.RequireFromString("12345678901234.00"),
		FinalTotal: decimal.RequireFromString("12345678901234.00"),
	})
	require.ErrorIs(t, err, apperr.ErrValidation)

	err = repo.Create(ctx, &purchaseorder.PurchaseOrder{
		VendorID: v.ID, ProductID: "P100", Quantity: 1,
		BaseTotal:  decimal.NewFromInt(1),
		FinalTotal: decimal.NewFromInt(10_000_000_000),
	})
	require.ErrorIs(t, err, apperr.ErrValidation)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCustomerOrders_EqualTimestampsOrderByID(t *testing.T) {
	ctx := context.Background()
	s := New()
	repo := s.CustomerOrders()
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for _, id := range []string{"o2", "o5", "o1", "o4", "o3"} {
		require.NoError(t, repo.Insert(ctx, &customerorder.Order{
			ID: id, UserID: "u1", TotalAmount: decimal.NewFromInt(1), CreatedAt: at,
		}))
	}

	for range 10 {
		list, err := repo.ListByUser(ctx, "u1")
		require.NoError(t, err)
		ids := make([]string, 0, len(list))
		for _, o := range list {
			ids = append(ids, o.ID)
		}
		require.Equal(t, []string{"o5", "o4", "o3", "o2", "o1"}, ids)
	}
}

func TestCustomerOrders(t *testing.T) {
	ctx := context.Background()
	s := New()
	repo := s.CustomerOrders()

	older := &customerorder.Order{UserID: "u1", TotalAmount: decimal.RequireFromString("12.5")}
	newer := &customerorder.Order{UserID: "u1", TotalAmount: decimal.RequireFromString("3"), Status: customerorder.StatusPaid}
	other := &customerorder.Order{UserID: "u2", TotalAmount: decimal.RequireFromString("1")}
	for _, o := range []*customerorder.Order{older, newer, other} {
		require.NoError(t, repo.Insert(ctx, o))
	}
	assert.Equal(t, customerorder.StatusPending, older.Status)

	list, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)

	none, err := repo.ListByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	_, err = repo.Get(ctx, "missing")
	require.ErrorIs(t, err, apperr.ErrNotFound)

	ok, err := repo.UpdateStatus(ctx, older.ID, customerorder.StatusPaid, customerorder.StatusShipped)
	require.NoError(t, err)
	assert.False(t, ok, "stale from status must not apply")

	ok, err = repo.UpdateStatus(ctx, older.ID, customerorder.StatusPending, customerorder.StatusPaid)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.Get(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, customerorder.StatusPaid, got.Status)
}

func TestCustomerOrders_ConcurrentAdvance(t *testing.T) {
	ctx := context.Background()
	repo := New().CustomerOrders()
	o := &customerorder.Order{UserID: "u1"}
	require.NoError(t, repo.Insert(ctx, o))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.UpdateStatus(ctx, o.ID, customerorder.StatusPending, customerorder.StatusPaid)
			if err == nil && ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestCredentials(t *testing.T) {
	ctx := context.Background()
	repo := New().Credentials()

	_, err := repo.FindByUser(ctx, "u1")
	require.ErrorIs(t, err, apperr.ErrNotFound)

	require.NoError(t, repo.Upsert(ctx, auth.Credential{UserID: "u1", PINHash: "abc"}))
	c, err := repo.FindByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "abc", c.PINHash)
}
