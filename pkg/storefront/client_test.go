package storefront

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harvestcart/harvestcart/internal/domain/auth"
	"github.com/harvestcart/harvestcart/internal/domain/customerorder"
	"github.com/harvestcart/harvestcart/internal/domain/product"
	"github.com/harvestcart/harvestcart/internal/domain/purchaseorder"
	"github.com/harvestcart/harvestcart/internal/domain/vendor"
	"github.com/harvestcart/harvestcart/internal/handler"
	"github.com/harvestcart/harvestcart/internal/storage/memory"
)

const (
	testPepper   = "pepper"
	testAdminKey = "admin-secret"
)

func newTestServer(t *testing.T) (*httptest.Server, *memory.Store) {
	t.Helper()
	ctx := context.Background()

	store := memory.New()
	require.NoError(t, store.Products().Upsert(ctx, product.Product{
		ID: "P100", Name: "Heirloom Tomato Seeds", Price: decimal.RequireFromString("18.50"), Category: "Seeds",
	}))
	require.NoError(t, store.Credentials().Upsert(ctx, auth.Credential{
		UserID: "u1", PINHash: auth.Hash([]byte(testPepper), "2468"),
	}))

	engine, err := purchaseorder.NewEngine(store.PurchaseOrders(), purchaseorder.EngineConfig{})
	require.NoError(t, err)
	tracker, err := customerorder.NewTracker(store.CustomerOrders(), customerorder.TrackerConfig{})
	require.NoError(t, err)

	h := handler.New(
		handler.Config{AdminKeyHash: auth.Hash([]byte(testPepper), testAdminKey), Pepper: []byte(testPepper)},
		vendor.NewRegistry(store.Vendors(), nil),
		engine,
		tracker,
		store.Products(),
		auth.NewPIN(store.Credentials(), []byte(testPepper)),
	)
	r := chi.NewRouter()
	h.Register(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, store
}

func TestClient_EndToEnd(t *testing.T) {
	ctx := context.Background()
	srv, store := newTestServer(t)

	c, err := New(srv.URL, WithAdminKey(testAdminKey))
	require.NoError(t, err)

	v, err := c.CreateVendor(ctx, "AgroSupplies")
	require.NoError(t, err)
	assert.Equal(t, "AgroSupplies", v.Name)
	assert.False(t, v.CreatedAt.IsZero())

	po, err := c.CreatePurchaseOrder(ctx, NewPurchaseOrder{
		VendorID: v.ID, ProductID: "P100", Quantity: 10, BaseTotal: decimal.NewFromInt(500),
	})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(500).Equal(po.FinalTotal))

	pos, err := c.ListPurchaseOrders(ctx)
	require.NoError(t, err)
	require.Len(t, pos, 1)
	assert.Equal(t, po.ID, pos[0].ID)

	vendors, err := c.ListVendors(ctx)
	require.NoError(t, err)
	require.Len(t, vendors, 1)

	products, err := c.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.True(t, decimal.RequireFromString("18.5").Equal(products[0].Price))

	o := &customerorder.Order{UserID: "u1", TotalAmount: decimal.NewFromInt(30)}
	require.NoError(t, store.CustomerOrders().Insert(ctx, o))

	orders, err := c.ListOrders(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "pending", orders[0].Status)

	advanced, err := c.AdvanceOrderStatus(ctx, o.ID, "paid")
	require.NoError(t, err)
	assert.Equal(t, "paid", advanced.Status)

	user, err := c.LoginPIN(ctx, "u1", "2468")
	require.NoError(t, err)
	assert.Equal(t, "u1", user)
}

func TestClient_Errors(t *testing.T) {
	ctx := context.Background()
	srv, _ := newTestServer(t)

	anon, err := New(srv.URL)
	require.NoError(t, err)
	_, err = anon.ListVendors(ctx)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "unauthorized", apiErr.Kind)

	c, err := New(srv.URL, WithAdminKey(testAdminKey))
	require.NoError(t, err)
	_, err = c.CreatePurchaseOrder(ctx, NewPurchaseOrder{VendorID: "x", ProductID: "P100", Quantity: 0})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Fields, "quantity")

	_, err = c.AdvanceOrderStatus(ctx, "missing", "paid")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "not_found", apiErr.Kind)
}

func TestClient_LegacyRawArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/orders":
			_, _ = w.Write([]byte(`[{"id":"o1","userId":"u1","totalAmount":"12.5","status":"shipped","createdAt":"2025-05-01T10:00:00Z"}]`))
		case "/api/products":
			_, _ = w.Write([]byte(`{"products":[{"id":"P1","name":"Seeds","price":3,"category":"Seeds"}]}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`upstream down`))
		}
	}))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL)
	require.NoError(t, err)

	orders, err := c.ListOrders(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "u1", orders[0].UserID)
	assert.True(t, decimal.RequireFromString("12.5").Equal(orders[0].TotalAmount))
	assert.Equal(t, 2025, orders[0].CreatedAt.Year())

	products, err := c.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)

	_, err = c.ListVendors(context.Background())
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Empty(t, apiErr.Kind)
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New("not a url")
	require.Error(t, err)
}
