// Package legacy describes the rows read from the WooCommerce source schema
// and the read-only contract the migration phases consume them through.
package legacy

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RootParentID marks a category without a parent.
const RootParentID int64 = 0

// CategoryRow is a product_cat term joined with its taxonomy record.
type CategoryRow struct {
	TermID      int64
	Name        string
	Slug        string
	Description string
	ParentID    int64
}

// IsRoot reports whether the category sits at the top of the tree.
func (r CategoryRow) IsRoot() bool {
	return r.ParentID == RootParentID
}

// ProductRow is a published product post.
type ProductRow struct {
	PostID         int64
	Title          string
	Slug           string
	RawDescription *string
}

// VariationRow is a product_variation post. SKU, stock and price are filled
// from the variation's own meta with WithMeta.
type VariationRow struct {
	VariationID int64
	Title       string
	SKU         string
	StockQty    int64
	UnitPrice   decimal.Decimal
}

// WithMeta returns a copy of the row with the meta-derived fields populated.
func (r VariationRow) WithMeta(meta ProductMeta) VariationRow {
	r.SKU = meta.SKU()
	r.StockQty = meta.StockQty()
	r.UnitPrice = meta.UnitPrice()
	return r
}

// CustomerRow is one distinct order placer inside the cutoff window.
type CustomerRow struct {
	CustomerID  int64
	Email       string
	DisplayName string
	UserLogin   string
}

// Name returns the display name, falling back to the login.
func (r CustomerRow) Name() string {
	if name := strings.TrimSpace(r.DisplayName); name != "" {
		return name
	}
	return strings.TrimSpace(r.UserLogin)
}

// OrderRow is a summary of one HPOS order.
type OrderRow struct {
	OrderID     int64
	CustomerID  int64
	CreatedAt   time.Time
	TotalAmount decimal.Decimal
	Status      string
}
