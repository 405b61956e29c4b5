package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/commerce/wcmigrate/internal/domain/migration"
)

// RunModel is the persistence model for a migration run.
type RunModel struct {
	ID          uuid.UUID               `gorm:"type:uuid;primaryKey"`
	CreatedAt   time.Time               `gorm:"not null"`
	UpdatedAt   time.Time               `gorm:"not null"`
	Status      migration.RunStatus     `gorm:"type:varchar(20);not null;index"`
	DryRun      bool                    `gorm:"not null;default:false"`
	Cutoff      time.Time               `gorm:"not null"`
	StartedAt   time.Time               `gorm:"not null;index"`
	FinishedAt  *time.Time
	FailedPhase migration.Phase         `gorm:"type:varchar(20)"`
	Error       string                  `gorm:"type:text"`
	Phases      []migration.PhaseResult `gorm:"type:text;serializer:json"`
}

// TableName returns the table name for GORM
func (RunModel) TableName() string {
	return "migration_runs"
}

// ToDomain converts the model to a domain Run.
func (m *RunModel) ToDomain() *migration.Run {
	phases := m.Phases
	if phases == nil {
		phases = []migration.PhaseResult{}
	}
	return &migration.Run{
		ID:          m.ID,
		Status:      m.Status,
		DryRun:      m.DryRun,
		Cutoff:      m.Cutoff,
		StartedAt:   m.StartedAt,
		FinishedAt:  m.FinishedAt,
		FailedPhase: m.FailedPhase,
		Error:       m.Error,
		Phases:      phases,
	}
}

// RunModelFromDomain creates a model from a domain Run.
func RunModelFromDomain(r *migration.Run) *RunModel {
	return &RunModel{
		ID:          r.ID,
		CreatedAt:   r.StartedAt,
		Status:      r.Status,
		DryRun:      r.DryRun,
		Cutoff:      r.Cutoff,
		StartedAt:   r.StartedAt,
		FinishedAt:  r.FinishedAt,
		FailedPhase: r.FailedPhase,
		Error:       r.Error,
		Phases:      r.Phases,
	}
}

// MappingModel is one identity map entry produced by a run.
type MappingModel struct {
	ID       uint                 `gorm:"primaryKey;autoIncrement"`
	RunID    uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:idx_mapping_run_entity_legacy"`
	Entity   migration.EntityType `gorm:"type:varchar(20);not null;uniqueIndex:idx_mapping_run_entity_legacy"`
	LegacyID int64                `gorm:"not null;uniqueIndex:idx_mapping_run_entity_legacy"`
	TargetID string               `gorm:"type:varchar(64);not null"`
}

// TableName returns the table name for GORM
func (MappingModel) TableName() string {
	return "migration_mappings"
}

// ToDomain converts the model to a domain Mapping.
func (m *MappingModel) ToDomain() migration.Mapping {
	return migration.Mapping{Entity: m.Entity, LegacyID: m.LegacyID, TargetID: m.TargetID}
}
