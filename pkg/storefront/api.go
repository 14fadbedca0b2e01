package storefront

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-faster/jx"
)

// ListVendors returns vendors in registration order.
func (c *Client) ListVendors(ctx context.Context) ([]Vendor, error) {
	data, err := c.do(ctx, call{method: http.MethodGet, path: "/api/admin/vendors", admin: true})
	if err != nil {
		return nil, err
	}
	return decodeList(data, "vendors", decodeVendor)
}

// CreateVendor registers a vendor.
func (c *Client) CreateVendor(ctx context.Context, name string) (Vendor, error) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("name")
	e.Str(name)
	e.ObjEnd()

	data, err := c.do(ctx, call{method: http.MethodPost, path: "/api/admin/vendors", body: e.Bytes(), admin: true})
	if err != nil {
		return Vendor{}, err
	}
	return decodeOne(data, "vendor", decodeVendor)
}

// ListPurchaseOrders returns purchase orders, newest first.
func (c *Client) ListPurchaseOrders(ctx context.Context) ([]PurchaseOrder, error) {
	data, err := c.do(ctx, call{method: http.MethodGet, path: "/api/admin/purchase-orders", admin: true})
	if err != nil {
		return nil, err
	}
	return decodeList(data, "purchaseOrders", decodePurchaseOrder)
}

// CreatePurchaseOrder creates a purchase order.
func (c *Client) CreatePurchaseOrder(ctx context.Context, in NewPurchaseOrder) (PurchaseOrder, error) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("vendor_id")
	e.Str(in.VendorID)
	e.FieldStart("product_id")
	e.Str(in.ProductID)
	e.FieldStart("quantity")
	e.Int(in.Quantity)
	e.FieldStart("base_total")
	e.Raw([]byte(in.BaseTotal.String()))
	e.ObjEnd()

	data, err := c.do(ctx, call{method: http.MethodPost, path: "/api/admin/purchase-orders", body: e.Bytes(), admin: true})
	if err != nil {
		return PurchaseOrder{}, err
	}
	return decodeOne(data, "purchaseOrder", decodePurchaseOrder)
}

// ListOrders returns the user's orders, newest first.
func (c *Client) ListOrders(ctx context.Context, userID string) ([]Order, error) {
	data, err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/api/orders",
		query:  url.Values{"userId": []string{userID}},
	})
	if err != nil {
		return nil, err
	}
	return decodeList(data, "orders", decodeOrder)
}

// AdvanceOrderStatus moves an order to status.
func (c *Client) AdvanceOrderStatus(ctx context.Context, orderID, status string) (Order, error) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("status")
	e.Str(status)
	e.ObjEnd()

	data, err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/api/admin/orders/" + url.PathEscape(orderID) + "/status",
		body:   e.Bytes(),
		admin:  true,
	})
	if err != nil {
		return Order{}, err
	}
	return decodeOne(data, "order", decodeOrder)
}

// ListProducts returns the catalog.
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	data, err := c.do(ctx, call{method: http.MethodGet, path: "/api/products"})
	if err != nil {
		return nil, err
	}
	return decodeList(data, "products", decodeProduct)
}

// LoginPIN authenticates with a PIN and returns the user id.
func (c *Client) LoginPIN(ctx context.Context, userID, pin string) (string, error) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("user_id")
	e.Str(userID)
	e.FieldStart("pin")
	e.Str(pin)
	e.ObjEnd()

	data, err := c.do(ctx, call{method: http.MethodPost, path: "/api/auth/pin", body: e.Bytes()})
	if err != nil {
		return "", err
	}
	return decodeOne(data, "user_id", func(d *jx.Decoder) (string, error) { return d.Str() })
}
