package migrationapp

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/commerce/wcmigrate/internal/domain/commerce"
	"github.com/commerce/wcmigrate/internal/domain/legacy"
	"github.com/commerce/wcmigrate/internal/domain/migration"
	"github.com/commerce/wcmigrate/internal/infrastructure/richtext"
	"github.com/commerce/wcmigrate/internal/infrastructure/telemetry"
)

const (
	defaultVariantTitle  = "Default"
	variantTitleFallback = "Variant"
)

// ProductMigrator creates products with their variants and prices.
type ProductMigrator struct {
	reader legacy.Reader
	target commerce.CatalogWriter
	opts   Options
	logger *zap.Logger
}

// NewProductMigrator creates a new ProductMigrator
func NewProductMigrator(reader legacy.Reader, target commerce.CatalogWriter, opts Options, logger *zap.Logger) *ProductMigrator {
	return &ProductMigrator{reader: reader, target: target, opts: opts, logger: logger}
}

// productContext is what one product carries through its create calls.
type productContext struct {
	row      legacy.ProductRow
	meta     legacy.ProductMeta
	regionID string
}

// Migrate creates every published product. The target region is resolved
// first; when it is missing nothing is written.
//
// A product without variations gets one "Default" variant and a single price.
// Any failure there is fatal. A product with variations is created bare and
// each variation is added on its own; variant and price failures are
// recorded and the remaining variations still run.
func (m *ProductMigrator) Migrate(ctx context.Context, categories *migration.CategoryMap) (*migration.ProductMap, *migration.PhaseResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "migration.products")
	defer span.End()

	start := time.Now()
	result := migration.NewPhaseResult(migration.PhaseProducts)
	errs := migration.NewErrorCollection(m.opts.MaxRecordErrors)
	products := migration.NewProductMap()
	defer func() {
		result.Created = products.Len()
		result.Duration = time.Since(start)
	}()

	region, err := m.resolveRegion(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return products, result, err
	}
	m.logger.Info("target region resolved",
		zap.String("region", region.Name),
		zap.String("region_id", region.ID),
		zap.String("currency", m.opts.Currency.Code))

	rows, err := m.reader.ListProducts(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return products, result, err
	}
	result.Read = len(rows)

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return products, result, err
		}
		if err := m.migrateProduct(ctx, row, region.ID, categories, products, errs); err != nil {
			result.Collect(errs)
			telemetry.RecordError(span, err)
			return products, result, err
		}
	}

	result.Collect(errs)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrCreated, products.Len(),
		telemetry.SpanAttrFailed, result.Failed)
	return products.Seal(), result, nil
}

func (m *ProductMigrator) resolveRegion(ctx context.Context) (*commerce.Region, error) {
	regions, err := m.target.ListRegions(ctx, commerce.RegionFilter{Name: m.opts.RegionName})
	if err != nil {
		return nil, fmt.Errorf("list regions: %w", err)
	}
	for i := range regions {
		if strings.EqualFold(regions[i].Name, m.opts.RegionName) {
			return &regions[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", commerce.ErrRegionNotFound, m.opts.RegionName)
}

func (m *ProductMigrator) migrateProduct(
	ctx context.Context,
	row legacy.ProductRow,
	regionID string,
	categories *migration.CategoryMap,
	products *migration.ProductMap,
	errs *migration.ErrorCollection,
) error {
	entries, err := m.reader.ListMeta(ctx, row.PostID, legacy.ProductMetaKeys...)
	if err != nil {
		return err
	}
	pc := productContext{row: row, meta: legacy.NewProductMeta(entries, legacy.ProductMetaKeys), regionID: regionID}

	variations, err := m.reader.ListVariations(ctx, row.PostID)
	if err != nil {
		return err
	}

	categoryIDs, err := m.categoryIDs(ctx, row.PostID, categories, errs)
	if err != nil {
		return err
	}
	images, err := m.imageURLs(ctx, row.PostID, pc.meta, errs)
	if err != nil {
		return err
	}

	input := commerce.ProductInput{
		Title:       row.Title,
		Handle:      commerce.Handle(row.Slug, fmt.Sprintf("product-%d", row.PostID)),
		Description: richtext.Normalize(row.RawDescription),
		Status:      commerce.ProductStatusPublished,
		CategoryIDs: categoryIDs,
		Images:      images,
		Metadata:    map[string]any{"legacy_post_id": metaID(row.PostID)},
	}

	if len(variations) == 0 {
		return m.createSimple(ctx, pc, input, products)
	}
	return m.createVariable(ctx, pc, input, variations, products, errs)
}

func (m *ProductMigrator) createSimple(ctx context.Context, pc productContext, input commerce.ProductInput, products *migration.ProductMap) error {
	sku := pc.meta.SKU()
	if sku == "" {
		sku = fmt.Sprintf("SKU-%d", pc.row.PostID)
	}
	input.Variants = []commerce.VariantInput{{
		Title:             defaultVariantTitle,
		SKU:               sku,
		ManageInventory:   true,
		InventoryQuantity: pc.meta.StockQty(),
	}}

	product, err := m.target.CreateProduct(ctx, input)
	if err != nil {
		return fmt.Errorf("create product %d %q: %w", pc.row.PostID, pc.row.Title, err)
	}
	if err := products.Put(pc.row.PostID, product.ID); err != nil {
		return err
	}
	if len(product.Variants) == 0 || product.Variants[0].PriceGroupID == "" {
		return fmt.Errorf("%w: product %d %q", migration.ErrMissingPriceGroup, pc.row.PostID, pc.row.Title)
	}

	amount := m.opts.Currency.ToMinorUnits(pc.meta.UnitPrice())
	if _, err := m.target.CreatePrice(ctx, commerce.PriceInput{
		PriceGroupID: product.Variants[0].PriceGroupID,
		Amount:       amount,
		CurrencyCode: m.opts.Currency.Code,
		RegionID:     pc.regionID,
	}); err != nil {
		return fmt.Errorf("create price for product %d %q: %w", pc.row.PostID, pc.row.Title, err)
	}

	m.logger.Info("✓ product created",
		zap.Int64("legacy_id", pc.row.PostID),
		zap.String("target_id", product.ID),
		zap.String("title", pc.row.Title),
		zap.String("sku", sku),
		zap.String("price", m.opts.Currency.Format(amount)))
	return nil
}

func (m *ProductMigrator) createVariable(
	ctx context.Context,
	pc productContext,
	input commerce.ProductInput,
	variations []legacy.VariationRow,
	products *migration.ProductMap,
	errs *migration.ErrorCollection,
) error {
	product, err := m.target.CreateProduct(ctx, input)
	if err != nil {
		return fmt.Errorf("create product %d %q: %w", pc.row.PostID, pc.row.Title, err)
	}
	if err := products.Put(pc.row.PostID, product.ID); err != nil {
		return err
	}

	created := 0
	for _, v := range variations {
		entries, err := m.reader.ListMeta(ctx, v.VariationID, legacy.VariationMetaKeys...)
		if err != nil {
			return err
		}
		if m.createVariation(ctx, pc, product.ID, v.WithMeta(legacy.NewProductMeta(entries, legacy.VariationMetaKeys)), errs) {
			created++
		}
	}

	m.logger.Info("✓ product created",
		zap.Int64("legacy_id", pc.row.PostID),
		zap.String("target_id", product.ID),
		zap.String("title", pc.row.Title),
		zap.Int("variants", created),
		zap.Int("variations", len(variations)))
	return nil
}

// createVariation reports whether the variant and its price were both created.
func (m *ProductMigrator) createVariation(ctx context.Context, pc productContext, productID string, v legacy.VariationRow, errs *migration.ErrorCollection) bool {
	title := strings.TrimSpace(v.Title)
	if title == "" {
		title = variantTitleFallback
	}
	sku := v.SKU
	if sku == "" {
		sku = fmt.Sprintf("SKU-%d", v.VariationID)
	}
	log := m.logger.With(
		zap.Int64("legacy_id", v.VariationID),
		zap.Int64("legacy_parent_id", pc.row.PostID),
		zap.String("sku", sku))

	variant, err := m.target.CreateVariant(ctx, productID, commerce.VariantInput{
		Title:             title,
		SKU:               sku,
		ManageInventory:   true,
		InventoryQuantity: v.StockQty,
		Metadata:          map[string]any{"legacy_variation_id": metaID(v.VariationID)},
	})
	if err != nil {
		log.Error("✗ variant create failed", zap.Error(err))
		errs.Add(migration.NewRecordError(migration.PhaseProducts, v.VariationID, migration.ErrCodeVariantCreate, err))
		return false
	}

	if variant.PriceGroupID == "" {
		err := fmt.Errorf("%w: variant %s", migration.ErrMissingPriceGroup, variant.ID)
		log.Error("✗ price create failed", zap.Error(err))
		errs.Add(migration.NewRecordError(migration.PhaseProducts, v.VariationID, migration.ErrCodePriceCreate, err))
		return false
	}

	amount := m.opts.Currency.ToMinorUnits(v.UnitPrice)
	if _, err := m.target.CreatePrice(ctx, commerce.PriceInput{
		PriceGroupID: variant.PriceGroupID,
		Amount:       amount,
		CurrencyCode: m.opts.Currency.Code,
		RegionID:     pc.regionID,
	}); err != nil {
		log.Error("✗ price create failed", zap.Error(err))
		errs.Add(migration.NewRecordError(migration.PhaseProducts, v.VariationID, migration.ErrCodePriceCreate, err))
		return false
	}

	log.Debug("variant created",
		zap.String("target_id", variant.ID),
		zap.String("title", title),
		zap.String("price", m.opts.Currency.Format(amount)))
	return true
}

// categoryIDs resolves the product's categories. Unmapped terms are recorded
// and left out.
func (m *ProductMigrator) categoryIDs(ctx context.Context, postID int64, categories *migration.CategoryMap, errs *migration.ErrorCollection) ([]string, error) {
	termIDs, err := m.reader.ListProductCategoryIDs(ctx, postID)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, termID := range termIDs {
		id, ok := categories.Get(termID)
		if !ok {
			err := fmt.Errorf("category %d is not mapped", termID)
			m.logger.Warn("⚠ category missing", zap.Int64("legacy_id", postID), zap.Int64("term_id", termID))
			errs.Add(migration.NewRecordError(migration.PhaseProducts, postID, migration.ErrCodeCategoryMissing, err))
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// imageURLs resolves the thumbnail and gallery attachments. Missing or
// non-http attachments are recorded and left out.
func (m *ProductMigrator) imageURLs(ctx context.Context, postID int64, meta legacy.ProductMeta, errs *migration.ErrorCollection) ([]string, error) {
	attachmentIDs := meta.ImageIDs()
	if len(attachmentIDs) == 0 {
		return nil, nil
	}

	urls, err := m.reader.ListAttachmentURLs(ctx, attachmentIDs)
	if err != nil {
		return nil, err
	}

	var images []string
	for _, id := range attachmentIDs {
		raw, ok := urls[id]
		if !ok {
			m.recordImageMissing(postID, id, fmt.Errorf("attachment %d not found", id), errs)
			continue
		}
		if err := checkImageURL(raw); err != nil {
			m.recordImageMissing(postID, id, fmt.Errorf("attachment %d: %w", id, err), errs)
			continue
		}
		images = append(images, strings.TrimSpace(raw))
	}
	return images, nil
}

func (m *ProductMigrator) recordImageMissing(postID, attachmentID int64, err error, errs *migration.ErrorCollection) {
	m.logger.Warn("⚠ image skipped", zap.Int64("legacy_id", postID), zap.Int64("attachment_id", attachmentID), zap.Error(err))
	errs.Add(migration.NewRecordError(migration.PhaseProducts, postID, migration.ErrCodeImageMissing, err))
}

var errImageURL = errors.New("image url must be absolute http(s)")

func checkImageURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", errImageURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", errImageURL, raw)
	}
	return nil
}
