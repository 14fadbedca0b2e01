package handler

import (
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/harvestcart/harvestcart/internal/domain/customerorder"
	"github.com/harvestcart/harvestcart/internal/domain/product"
	"github.com/harvestcart/harvestcart/internal/domain/purchaseorder"
	"github.com/harvestcart/harvestcart/internal/domain/vendor"
)

// Wire encoding of domain types. Field names are snake_case and amounts are
// JSON numbers with two decimals.

func encodeAmount(e *jx.Encoder, d decimal.Decimal) {
	e.Raw([]byte(d.StringFixed(2)))
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339Nano))
}

func encodeVendor(e *jx.Encoder, v vendor.Vendor) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(v.ID)
	e.FieldStart("name")
	e.Str(v.Name)
	e.FieldStart("created_at")
	encodeTime(e, v.CreatedAt)
	e.ObjEnd()
}

func encodePurchaseOrder(e *jx.Encoder, po purchaseorder.PurchaseOrder) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(po.ID)
	e.FieldStart("vendor_id")
	e.Str(po.VendorID)
	e.FieldStart("product_id")
	e.Str(po.ProductID)
	e.FieldStart("quantity")
	e.Int(po.Quantity)
	e.FieldStart("base_total")
	encodeAmount(e, po.BaseTotal)
	e.FieldStart("final_total")
	encodeAmount(e, po.FinalTotal)
	e.FieldStart("created_at")
	encodeTime(e, po.CreatedAt)
	e.ObjEnd()
}

func encodeOrder(e *jx.Encoder, o customerorder.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("user_id")
	e.Str(o.UserID)
	e.FieldStart("total_amount")
	encodeAmount(e, o.TotalAmount)
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("created_at")
	encodeTime(e, o.CreatedAt)
	e.ObjEnd()
}

func encodeProduct(e *jx.Encoder, p product.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("price")
	encodeAmount(e, p.Price)
	e.FieldStart("category")
	e.Str(p.Category)
	e.ObjEnd()
}

// encodeList writes items as a JSON array.
func encodeList[T any](e *jx.Encoder, items []T, enc func(*jx.Encoder, T)) {
	e.ArrStart()
	for _, it := range items {
		enc(e, it)
	}
	e.ArrEnd()
}

// fieldErrors collects per-field decode failures.
type fieldErrors map[string]string

func (f fieldErrors) add(name string, err error) {
	if err != nil {
		f[name] = err.Error()
	}
}

// maxAmountLength bounds the textual form of an amount. The largest storable
// amount with cents fits well within it.
const maxAmountLength = 32

// decodeAmount accepts a JSON number or a numeric string.
func decodeAmount(d *jx.Decoder) (decimal.Decimal, error) {
	var text string
	switch d.Next() {
	case jx.Number:
		raw, err := d.Raw()
		if err != nil {
			return decimal.Zero, err
		}
		text = raw.String()
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		text = strings.TrimSpace(s)
	default:
		if err := d.Skip(); err != nil {
			return decimal.Zero, err
		}
		return decimal.Zero, errors.New("must be a number")
	}
	if len(text) > maxAmountLength {
		return decimal.Zero, errors.New("number is too long")
	}
	v, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, errors.New("must be a number")
	}
	return v, nil
}

func decodeString(d *jx.Decoder) (string, error) {
	if d.Next() != jx.String {
		if err := d.Skip(); err != nil {
			return "", err
		}
		return "", errors.New("must be a string")
	}
	return d.Str()
}

func decodeInt(d *jx.Decoder) (int, error) {
	if d.Next() != jx.Number {
		if err := d.Skip(); err != nil {
			return 0, err
		}
		return 0, errors.New("must be an integer")
	}
	n, err := d.Int()
	if err != nil {
		return 0, errors.New("must be an integer")
	}
	return n, nil
}

type createVendorBody struct {
	Name string
}

func (b *createVendorBody) Decode(d *jx.Decoder, fields fieldErrors) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "name":
			v, err := decodeString(d)
			fields.add("name", err)
			b.Name = v
			return nil
		default:
			return d.Skip()
		}
	})
}

type createPurchaseOrderBody struct {
	req purchaseorder.CreateRequest
}

func (b *createPurchaseOrderBody) Decode(d *jx.Decoder, fields fieldErrors) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "vendor_id":
			b.req.VendorID, err = decodeString(d)
			fields.add("vendor_id", err)
		case "product_id":
			b.req.ProductID, err = decodeString(d)
			fields.add("product_id", err)
		case "quantity":
			b.req.Quantity, err = decodeInt(d)
			fields.add("quantity", err)
		case "base_total":
			b.req.BaseTotal, err = decodeAmount(d)
			fields.add("base_total", err)
		default:
			return d.Skip()
		}
		return nil
	})
}

type advanceStatusBody struct {
	Status string
}

func (b *advanceStatusBody) Decode(d *jx.Decoder, fields fieldErrors) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "status":
			v, err := decodeString(d)
			fields.add("status", err)
			b.Status = v
			return nil
		default:
			return d.Skip()
		}
	})
}

type pinLoginBody struct {
	UserID string
	PIN    string
}

func (b *pinLoginBody) Decode(d *jx.Decoder, fields fieldErrors) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "user_id":
			b.UserID, err = decodeString(d)
			fields.add("user_id", err)
		case "pin":
			b.PIN, err = decodeString(d)
			fields.add("pin", err)
		default:
			return d.Skip()
		}
		return nil
	})
}
