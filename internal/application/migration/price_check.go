package migrationapp

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/commerce/wcmigrate/internal/domain/commerce"
	"github.com/commerce/wcmigrate/internal/infrastructure/telemetry"
)

// DefaultPriceCheckLimit is the number of products inspected when no limit is given.
const DefaultPriceCheckLimit = 5

// VariantPrices is one variant with the prices of its price group.
type VariantPrices struct {
	VariantID string
	Title     string
	SKU       string
	Prices    []commerce.Price
}

// ProductPrices is one product with its variants' prices.
type ProductPrices struct {
	ProductID string
	Title     string
	Variants  []VariantPrices
}

// PriceChecker reads back migrated products to verify their prices.
type PriceChecker struct {
	target   commerce.CatalogReader
	currency commerce.Currency
	logger   *zap.Logger
}

// NewPriceChecker creates a new PriceChecker
func NewPriceChecker(target commerce.CatalogReader, currency commerce.Currency, logger *zap.Logger) *PriceChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PriceChecker{target: target, currency: currency, logger: logger}
}

// Check lists up to limit products with every variant's prices. A variant
// without a price group is returned with no prices.
func (c *PriceChecker) Check(ctx context.Context, limit int) ([]ProductPrices, error) {
	ctx, span := telemetry.StartSpan(ctx, "migration.check_prices")
	defer span.End()

	if limit <= 0 {
		limit = DefaultPriceCheckLimit
	}
	products, err := c.target.ListProducts(ctx, commerce.ProductListFilter{Limit: limit})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("list products: %w", err)
	}

	out := make([]ProductPrices, 0, len(products))
	for _, p := range products {
		pp := ProductPrices{ProductID: p.ID, Title: p.Title, Variants: make([]VariantPrices, 0, len(p.Variants))}
		for _, v := range p.Variants {
			vp := VariantPrices{VariantID: v.ID, Title: v.Title, SKU: v.SKU}
			if v.PriceGroupID != "" {
				prices, err := c.target.ListPrices(ctx, v.PriceGroupID)
				if err != nil {
					telemetry.RecordError(span, err)
					return nil, fmt.Errorf("list prices of variant %s: %w", v.ID, err)
				}
				vp.Prices = prices
			}
			for _, price := range vp.Prices {
				c.logger.Debug("price",
					zap.String("product", p.Title),
					zap.String("variant", v.Title),
					zap.String("amount", c.FormatPrice(price)))
			}
			pp.Variants = append(pp.Variants, vp)
		}
		out = append(out, pp)
	}
	return out, nil
}

// FormatPrice renders a price in the migration currency. Prices in any
// other currency are shown as raw minor units.
func (c *PriceChecker) FormatPrice(price commerce.Price) string {
	if price.CurrencyCode == c.currency.Code {
		return c.currency.Format(price.Amount)
	}
	return fmt.Sprintf("%d %s (minor units)", price.Amount, price.CurrencyCode)
}
