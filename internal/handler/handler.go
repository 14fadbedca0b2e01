// Package handler exposes the procurement and order-lifecycle operations over
// HTTP with chi routing and a single JSON envelope.
package handler

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/harvestcart/harvestcart/internal/domain/apperr"
	"github.com/harvestcart/harvestcart/internal/domain/auth"
	"github.com/harvestcart/harvestcart/internal/domain/customerorder"
	"github.com/harvestcart/harvestcart/internal/domain/product"
	"github.com/harvestcart/harvestcart/internal/domain/purchaseorder"
	"github.com/harvestcart/harvestcart/internal/domain/vendor"
)

// HeaderAdminKey carries the admin API key.
const HeaderAdminKey = "api_key"

// Config holds non-dependency settings of the Handler.
type Config struct {
	// AdminKeyHash is the hex HMAC of the admin API key. Admin routes are
	// open when it is empty.
	AdminKeyHash string
	// Pepper keys the admin key HMAC.
	Pepper []byte
}

// Handler serves the HTTP API.
type Handler struct {
	vendors   *vendor.Registry
	purchases *purchaseorder.Engine
	orders    *customerorder.Tracker
	products  product.Repository
	login     auth.Method
	cfg       Config
}

// New creates a Handler.
func New(
	cfg Config,
	vendors *vendor.Registry,
	purchases *purchaseorder.Engine,
	orders *customerorder.Tracker,
	products product.Repository,
	login auth.Method,
) *Handler {
	if login == nil {
		login = auth.Disabled{}
	}
	return &Handler{
		vendors:   vendors,
		purchases: purchases,
		orders:    orders,
		products:  products,
		login:     login,
		cfg:       cfg,
	}
}

// Register mounts the API routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Get("/orders", h.ListOrders)
		r.Post("/auth/pin", h.PINLogin)

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.requireAdmin)
			r.Get("/vendors", h.ListVendors)
			r.Post("/vendors", h.CreateVendor)
			r.Get("/purchase-orders", h.ListPurchaseOrders)
			r.Post("/purchase-orders", h.CreatePurchaseOrder)
			r.Post("/orders/{id}/status", h.AdvanceOrderStatus)
		})
	})
}

func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	if h.cfg.AdminKeyHash == "" {
		return next
	}
	want := strings.ToLower(h.cfg.AdminKeyHash)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(HeaderAdminKey)
		got := auth.Hash(h.cfg.Pepper, key)
		if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
			writeError(w, r, apperr.Unauthorized("admin access", "missing or invalid api key"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ListVendors handles GET /api/admin/vendors.
func (h *Handler) ListVendors(w http.ResponseWriter, r *http.Request) {
	vendors, err := h.vendors.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "vendors", func(e *jx.Encoder) {
		encodeList(e, vendors, encodeVendor)
	})
}

// CreateVendor handles POST /api/admin/vendors.
func (h *Handler) CreateVendor(w http.ResponseWriter, r *http.Request) {
	var body createVendorBody
	if err := readBody(r, "create vendor", &body); err != nil {
		writeError(w, r, err)
		return
	}
	v, err := h.vendors.Create(r.Context(), body.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "vendor", func(e *jx.Encoder) {
		encodeVendor(e, *v)
	})
}

// ListPurchaseOrders handles GET /api/admin/purchase-orders.
func (h *Handler) ListPurchaseOrders(w http.ResponseWriter, r *http.Request) {
	pos, err := h.purchases.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "purchaseOrders", func(e *jx.Encoder) {
		encodeList(e, pos, encodePurchaseOrder)
	})
}

// CreatePurchaseOrder handles POST /api/admin/purchase-orders. Any
// client-supplied final_total is ignored; the engine computes it.
func (h *Handler) CreatePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	var body createPurchaseOrderBody
	if err := readBody(r, "create purchase order", &body); err != nil {
		writeError(w, r, err)
		return
	}
	po, err := h.purchases.Create(r.Context(), body.req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "purchaseOrder", func(e *jx.Encoder) {
		encodePurchaseOrder(e, *po)
	})
}

// ListOrders handles GET /api/orders?userId=. A missing user id yields an
// empty list.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListForUser(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "orders", func(e *jx.Encoder) {
		encodeList(e, orders, encodeOrder)
	})
}

// AdvanceOrderStatus handles POST /api/admin/orders/{id}/status.
func (h *Handler) AdvanceOrderStatus(w http.ResponseWriter, r *http.Request) {
	var body advanceStatusBody
	if err := readBody(r, "advance order status", &body); err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.orders.Advance(r.Context(), chi.URLParam(r, "id"), customerorder.Status(body.Status))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "order", func(e *jx.Encoder) {
		encodeOrder(e, *o)
	})
}

// ListProducts handles GET /api/products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeError(w, r, apperr.Storage("list products", err))
		return
	}
	if products == nil {
		products = []product.Product{}
	}
	writeData(w, http.StatusOK, "products", func(e *jx.Encoder) {
		encodeList(e, products, encodeProduct)
	})
}

// PINLogin handles POST /api/auth/pin.
func (h *Handler) PINLogin(w http.ResponseWriter, r *http.Request) {
	var body pinLoginBody
	if err := readBody(r, "pin login", &body); err != nil {
		writeError(w, r, err)
		return
	}
	s, err := h.login.Authenticate(r.Context(), body.UserID, body.PIN)
	if err != nil {
		writeError(w, r, err)
		return
	}
	zctx.From(r.Context()).Info("User logged in", zap.String("user_id", s.UserID), zap.String("method", h.login.Name()))
	writeData(w, http.StatusOK, "user_id", func(e *jx.Encoder) {
		e.Str(s.UserID)
	})
}
