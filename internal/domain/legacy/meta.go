package legacy

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Recognized postmeta keys.
const (
	MetaPrice        = "_price"
	MetaRegularPrice = "_regular_price"
	MetaStock        = "_stock"
	MetaSKU          = "_sku"
	MetaGallery      = "_product_image_gallery"
	MetaThumbnail    = "_thumbnail_id"

	// MetaBundleMarker is set on product bundles, which are not migrated.
	MetaBundleMarker = "_wc_pb_bundled_items_stock_status"
)

// ProductMetaKeys are the keys read for a parent product.
var ProductMetaKeys = []string{MetaPrice, MetaRegularPrice, MetaStock, MetaSKU, MetaGallery, MetaThumbnail}

// VariationMetaKeys are the keys read for a single variation.
var VariationMetaKeys = []string{MetaPrice, MetaRegularPrice, MetaStock, MetaSKU}

// MetaEntry is one postmeta key/value pair.
type MetaEntry struct {
	Key   string
	Value string
}

// ProductMeta is the lookup built from a post's recognized meta entries.
type ProductMeta map[string]string

// NewProductMeta keeps only the recognized keys. The first non-empty value
// of a repeated key wins.
func NewProductMeta(entries []MetaEntry, recognized []string) ProductMeta {
	allowed := make(map[string]struct{}, len(recognized))
	for _, k := range recognized {
		allowed[k] = struct{}{}
	}

	meta := make(ProductMeta, len(recognized))
	for _, e := range entries {
		if _, ok := allowed[e.Key]; !ok {
			continue
		}
		value := strings.TrimSpace(e.Value)
		if value == "" {
			continue
		}
		if _, seen := meta[e.Key]; seen {
			continue
		}
		meta[e.Key] = value
	}
	return meta
}

// UnitPrice prefers the current price, then the regular price, then zero.
// Unparsable or negative values fall through to the next candidate.
func (m ProductMeta) UnitPrice() decimal.Decimal {
	for _, key := range []string{MetaPrice, MetaRegularPrice} {
		if d, ok := m.decimal(key); ok {
			return d
		}
	}
	return decimal.Zero
}

// StockQty returns the stock level, or zero when missing or unparsable.
// Negative levels are kept: they are backorders.
func (m ProductMeta) StockQty() int64 {
	d, err := decimal.NewFromString(m[MetaStock])
	if err != nil {
		return 0
	}
	return d.IntPart()
}

// SKU returns the stock keeping unit, empty when missing.
func (m ProductMeta) SKU() string {
	return m[MetaSKU]
}

// ImageIDs returns the thumbnail attachment followed by the gallery ones,
// without duplicates. Malformed IDs are skipped.
func (m ProductMeta) ImageIDs() []int64 {
	var ids []int64
	seen := make(map[int64]struct{})
	add := func(raw string) {
		id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil || id <= 0 {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	add(m[MetaThumbnail])
	if gallery := m[MetaGallery]; gallery != "" {
		for _, raw := range strings.Split(gallery, ",") {
			add(raw)
		}
	}
	return ids
}

func (m ProductMeta) decimal(key string) (decimal.Decimal, bool) {
	raw, ok := m[key]
	if !ok {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return decimal.Zero, false
	}
	return d, true
}
