package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/commerce/wcmigrate/internal/domain/migration"
	"github.com/commerce/wcmigrate/internal/domain/shared"
	"github.com/commerce/wcmigrate/internal/infrastructure/persistence/models"
)

// mappingBatchSize bounds rows per INSERT below SQLite's variable limit
const mappingBatchSize = 200

// GormRunRepository implements migration.RunRepository using GORM
type GormRunRepository struct {
	db *gorm.DB
}

// NewGormRunRepository creates a new GormRunRepository
func NewGormRunRepository(db *gorm.DB) *GormRunRepository {
	return &GormRunRepository{db: db}
}

var _ migration.RunRepository = (*GormRunRepository)(nil)

// Save creates or updates a run
func (r *GormRunRepository) Save(ctx context.Context, run *migration.Run) error {
	model := models.RunModelFromDomain(run)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return nil
}

// FindByID finds a run by ID
func (r *GormRunRepository) FindByID(ctx context.Context, id uuid.UUID) (*migration.Run, error) {
	var model models.RunModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListRecent returns the most recently started runs first
func (r *GormRunRepository) ListRecent(ctx context.Context, limit int) ([]*migration.Run, error) {
	query := r.db.WithContext(ctx).Order("started_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var runModels []models.RunModel
	if err := query.Find(&runModels).Error; err != nil {
		return nil, err
	}

	runs := make([]*migration.Run, len(runModels))
	for i := range runModels {
		runs[i] = runModels[i].ToDomain()
	}
	return runs, nil
}

// SaveMappings stores identity map entries for a run. Entries already
// stored for the same run, entity and legacy ID are left untouched.
func (r *GormRunRepository) SaveMappings(ctx context.Context, runID uuid.UUID, mappings []migration.Mapping) error {
	if len(mappings) == 0 {
		return nil
	}

	rows := make([]models.MappingModel, len(mappings))
	for i, m := range mappings {
		rows[i] = models.MappingModel{RunID: runID, Entity: m.Entity, LegacyID: m.LegacyID, TargetID: m.TargetID}
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(rows, mappingBatchSize).Error
	if err != nil {
		return fmt.Errorf("save %d mappings for run %s: %w", len(mappings), runID, err)
	}
	return nil
}

// FindMappings returns a run's mappings for one entity type, by legacy ID
func (r *GormRunRepository) FindMappings(ctx context.Context, runID uuid.UUID, entity migration.EntityType) ([]migration.Mapping, error) {
	var rows []models.MappingModel
	if err := r.db.WithContext(ctx).
		Where("run_id = ? AND entity = ?", runID, entity).
		Order("legacy_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	mappings := make([]migration.Mapping, len(rows))
	for i := range rows {
		mappings[i] = rows[i].ToDomain()
	}
	return mappings, nil
}
