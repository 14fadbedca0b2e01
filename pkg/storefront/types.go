package storefront

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// Vendor is a supplier.
type Vendor struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// PurchaseOrder is a procurement record.
type PurchaseOrder struct {
	ID         string
	VendorID   string
	ProductID  string
	Quantity   int
	BaseTotal  decimal.Decimal
	FinalTotal decimal.Decimal
	CreatedAt  time.Time
}

// Order is a customer order.
type Order struct {
	ID          string
	UserID      string
	TotalAmount decimal.Decimal
	Status      string
	CreatedAt   time.Time
}

// Product is a catalog item.
type Product struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Category string
}

// NewPurchaseOrder is the input of CreatePurchaseOrder. The server computes
// the final total.
type NewPurchaseOrder struct {
	VendorID  string
	ProductID string
	Quantity  int
	BaseTotal decimal.Decimal
}

func readAmount(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	case jx.Number:
		raw, err := d.Raw()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(raw.String())
	default:
		return decimal.Zero, errors.Errorf("unexpected %s for amount", d.Next())
	}
}

func readTime(d *jx.Decoder) (time.Time, error) {
	s, err := d.Str()
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, s)
}

// Field names are read in both snake_case and the camelCase used by older
// payloads.

func decodeVendor(d *jx.Decoder) (v Vendor, err error) {
	err = d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			v.ID, err = d.Str()
		case "name":
			v.Name, err = d.Str()
		case "created_at", "createdAt":
			v.CreatedAt, err = readTime(d)
		default:
			err = d.Skip()
		}
		return err
	})
	return v, err
}

func decodePurchaseOrder(d *jx.Decoder) (po PurchaseOrder, err error) {
	err = d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			po.ID, err = d.Str()
		case "vendor_id", "vendorId":
			po.VendorID, err = d.Str()
		case "product_id", "productId":
			po.ProductID, err = d.Str()
		case "quantity":
			po.Quantity, err = d.Int()
		case "base_total", "baseTotal":
			po.BaseTotal, err = readAmount(d)
		case "final_total", "finalTotal":
			po.FinalTotal, err = readAmount(d)
		case "created_at", "createdAt":
			po.CreatedAt, err = readTime(d)
		default:
			err = d.Skip()
		}
		return err
	})
	return po, err
}

func decodeOrder(d *jx.Decoder) (o Order, err error) {
	err = d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			o.ID, err = d.Str()
		case "user_id", "userId":
			o.UserID, err = d.Str()
		case "total_amount", "totalAmount":
			o.TotalAmount, err = readAmount(d)
		case "status":
			o.Status, err = d.Str()
		case "created_at", "createdAt":
			o.CreatedAt, err = readTime(d)
		default:
			err = d.Skip()
		}
		return err
	})
	return o, err
}

func decodeProduct(d *jx.Decoder) (p Product, err error) {
	err = d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Str()
		case "name":
			p.Name, err = d.Str()
		case "price":
			p.Price, err = readAmount(d)
		case "category":
			p.Category, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	return p, err
}
