package migrationapp

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/commerce/wcmigrate/internal/domain/commerce"
	"github.com/commerce/wcmigrate/internal/domain/legacy"
	"github.com/commerce/wcmigrate/internal/domain/migration"
	"github.com/commerce/wcmigrate/internal/infrastructure/richtext"
	"github.com/commerce/wcmigrate/internal/infrastructure/telemetry"
)

// CategoryMigrator recreates the legacy category tree, parents first.
type CategoryMigrator struct {
	reader legacy.Reader
	target commerce.CategoryWriter
	logger *zap.Logger
}

// NewCategoryMigrator creates a new CategoryMigrator
func NewCategoryMigrator(reader legacy.Reader, target commerce.CategoryWriter, logger *zap.Logger) *CategoryMigrator {
	return &CategoryMigrator{reader: reader, target: target, logger: logger}
}

// Migrate creates every category and returns the sealed identity map.
//
// The first pass creates the roots. Each later pass creates, in reader
// order, the rows whose parent is mapped by then. A pass that creates
// nothing while rows remain means their parents never exist: ErrOrphanCategory.
// Any create failure aborts the phase.
func (m *CategoryMigrator) Migrate(ctx context.Context) (*migration.CategoryMap, *migration.PhaseResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "migration.categories")
	defer span.End()

	start := time.Now()
	result := migration.NewPhaseResult(migration.PhaseCategories)
	categories := migration.NewCategoryMap()
	defer func() {
		result.Created = categories.Len()
		result.Duration = time.Since(start)
	}()

	rows, err := m.reader.ListCategories(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return categories, result, err
	}
	result.Read = len(rows)

	var pending []legacy.CategoryRow
	for _, row := range rows {
		if !row.IsRoot() {
			pending = append(pending, row)
			continue
		}
		if err := m.create(ctx, categories, row, nil); err != nil {
			telemetry.RecordError(span, err)
			return categories, result, err
		}
	}

	for pass := 2; len(pending) > 0; pass++ {
		if pass == 3 {
			m.logger.Warn("category tree deeper than two levels, continuing with extra passes",
				zap.Int("pending", len(pending)))
			telemetry.AddEvent(span, "extra_category_pass", "pending", len(pending))
		}

		var next []legacy.CategoryRow
		for _, row := range pending {
			parentID, ok := categories.Get(row.ParentID)
			if !ok {
				next = append(next, row)
				continue
			}
			if err := m.create(ctx, categories, row, &parentID); err != nil {
				telemetry.RecordError(span, err)
				return categories, result, err
			}
		}

		if len(next) == len(pending) {
			err := fmt.Errorf("%w: term %d (parent %d) and %d more",
				migration.ErrOrphanCategory, next[0].TermID, next[0].ParentID, len(next)-1)
			telemetry.RecordError(span, err)
			return categories, result, err
		}
		pending = next
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrCreated, categories.Len())
	return categories.Seal(), result, nil
}

func (m *CategoryMigrator) create(ctx context.Context, categories *migration.CategoryMap, row legacy.CategoryRow, parentID *string) error {
	created, err := m.target.CreateCategory(ctx, commerce.CategoryInput{
		Name:        row.Name,
		Handle:      commerce.Handle(row.Slug, fmt.Sprintf("category-%d", row.TermID)),
		Description: richtext.NormalizeString(row.Description),
		ParentID:    parentID,
		IsActive:    true,
		Metadata:    map[string]any{"legacy_term_id": metaID(row.TermID)},
	})
	if err != nil {
		return fmt.Errorf("create category %d %q: %w", row.TermID, row.Name, err)
	}
	if err := categories.Put(row.TermID, created.ID); err != nil {
		return err
	}

	fields := []zap.Field{
		zap.Int64("legacy_id", row.TermID),
		zap.String("target_id", created.ID),
		zap.String("name", row.Name),
	}
	if parentID != nil {
		fields = append(fields, zap.Int64("legacy_parent_id", row.ParentID))
	}
	m.logger.Info("✓ category created", fields...)
	return nil
}
