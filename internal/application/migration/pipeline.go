package migrationapp

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/commerce/wcmigrate/internal/domain/commerce"
	"github.com/commerce/wcmigrate/internal/domain/legacy"
	"github.com/commerce/wcmigrate/internal/domain/migration"
	"github.com/commerce/wcmigrate/internal/infrastructure/logger"
	"github.com/commerce/wcmigrate/internal/infrastructure/telemetry"
)

// Pipeline configuration errors
var (
	ErrConnectorRequired = errors.New("migration: legacy connector is required")
	ErrPlatformRequired  = errors.New("migration: target platform is required")
)

// PipelineConfig wires a Pipeline. Orders, Ledger and Metrics are optional.
type PipelineConfig struct {
	Connector legacy.Connector
	Platform  commerce.Platform
	Options   Options
	Orders    OrderSink
	Ledger    migration.RunRepository
	Metrics   *telemetry.MigrationMetrics
	Logger    *zap.Logger
}

// RunReport is the outcome of a pipeline run. The identity maps hold what
// was built before any failure.
type RunReport struct {
	Run        *migration.Run
	Categories *migration.CategoryMap
	Products   *migration.ProductMap
	Customers  *migration.CustomerMap
	Orders     []migration.OrderSummary
}

// Pipeline runs the phases in order over one legacy session.
type Pipeline struct {
	connector legacy.Connector
	platform  commerce.Platform
	opts      Options
	orders    OrderSink
	ledger    migration.RunRepository
	metrics   *telemetry.MigrationMetrics
	logger    *zap.Logger
}

// NewPipeline creates a new Pipeline
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	if cfg.Connector == nil {
		return nil, ErrConnectorRequired
	}
	if cfg.Platform == nil {
		return nil, ErrPlatformRequired
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Pipeline{
		connector: cfg.Connector,
		platform:  cfg.Platform,
		opts:      cfg.Options,
		orders:    cfg.Orders,
		ledger:    cfg.Ledger,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
	}, nil
}

// Run executes categories, products, customers and orders in sequence. The
// first fatal error stops the run and is returned together with the partial
// report. There is no resume: a rerun starts from the beginning.
func (p *Pipeline) Run(ctx context.Context) (*RunReport, error) {
	run := migration.NewRun(p.opts.Cutoff, p.opts.DryRun)
	report := &RunReport{Run: run}

	ctx, log := logger.WithRunID(ctx, p.logger, run.ID.String())
	ctx, span := telemetry.StartSpan(ctx, "migration.run",
		telemetry.WithAttribute(telemetry.SpanAttrRunID, run.ID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrDryRun, p.opts.DryRun))
	defer span.End()

	log.Info("migration started",
		zap.Time("cutoff", p.opts.Cutoff),
		zap.String("region", p.opts.RegionName),
		zap.String("currency", p.opts.Currency.Code),
		zap.Bool("dry_run", p.opts.DryRun))
	p.saveRun(ctx, log, run)

	session, err := p.connector.Open(ctx)
	if err != nil {
		err = fmt.Errorf("open legacy session: %w", err)
		telemetry.RecordError(span, err)
		return report, p.fail(ctx, log, report, migration.PhaseCategories, err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			log.Warn("failed to release legacy session", zap.Error(cerr))
		}
	}()

	var phaseErr error
	var result *migration.PhaseResult

	telemetry.WithPhaseLabels(ctx, string(migration.PhaseCategories), func(ctx context.Context) {
		report.Categories, result, phaseErr = NewCategoryMigrator(session, p.platform, logger.ForPhase(log, string(migration.PhaseCategories))).
			Migrate(ctx)
	})
	if err := p.endPhase(ctx, log, report, result, phaseErr); err != nil {
		telemetry.RecordError(span, err)
		return report, err
	}

	telemetry.WithPhaseLabels(ctx, string(migration.PhaseProducts), func(ctx context.Context) {
		report.Products, result, phaseErr = NewProductMigrator(session, p.platform, p.opts, logger.ForPhase(log, string(migration.PhaseProducts))).
			Migrate(ctx, report.Categories)
	})
	if err := p.endPhase(ctx, log, report, result, phaseErr); err != nil {
		telemetry.RecordError(span, err)
		return report, err
	}

	telemetry.WithPhaseLabels(ctx, string(migration.PhaseCustomers), func(ctx context.Context) {
		report.Customers, result, phaseErr = NewCustomerMigrator(session, p.platform, p.opts, logger.ForPhase(log, string(migration.PhaseCustomers))).
			Migrate(ctx)
	})
	if err := p.endPhase(ctx, log, report, result, phaseErr); err != nil {
		telemetry.RecordError(span, err)
		return report, err
	}

	telemetry.WithPhaseLabels(ctx, string(migration.PhaseOrders), func(ctx context.Context) {
		report.Orders, result, phaseErr = NewOrderExporter(session, p.orders, p.opts, logger.ForPhase(log, string(migration.PhaseOrders))).
			Export(ctx, run.ID.String(), report.Customers)
	})
	if err := p.endPhase(ctx, log, report, result, phaseErr); err != nil {
		telemetry.RecordError(span, err)
		return report, err
	}

	if err := run.Succeed(); err != nil {
		return report, err
	}
	p.persist(ctx, log, report)
	p.metrics.RecordRun(ctx, run)

	log.Info("════ migration completed ════", summaryFields(run)...)
	return report, nil
}

// endPhase records a phase result, then fails the run when err is set.
func (p *Pipeline) endPhase(ctx context.Context, log *zap.Logger, report *RunReport, result *migration.PhaseResult, err error) error {
	if result == nil {
		return err
	}
	if recErr := report.Run.RecordPhase(*result); recErr != nil {
		return recErr
	}
	p.metrics.RecordPhase(ctx, *result, p.opts.DryRun)
	if err != nil {
		return p.fail(ctx, log, report, result.Phase, err)
	}

	log.Info("phase completed",
		zap.String("phase", string(result.Phase)),
		zap.Int("read", result.Read),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", result.Duration))
	for _, recErr := range result.Errors {
		log.Warn("record error",
			zap.String("phase", string(recErr.Phase)),
			zap.Int64("legacy_id", recErr.LegacyID),
			zap.String("code", recErr.Code),
			zap.String("message", recErr.Message))
	}
	return nil
}

func (p *Pipeline) fail(ctx context.Context, log *zap.Logger, report *RunReport, phase migration.Phase, cause error) error {
	if err := report.Run.Fail(phase, cause); err != nil {
		log.Warn("failed to mark run as failed", zap.Error(err))
	}
	// The ledger records the failure even when ctx was interrupted.
	ctx = context.WithoutCancel(ctx)
	p.persist(ctx, log, report)
	p.metrics.RecordRun(ctx, report.Run)

	log.Error("════ migration failed ════",
		append(summaryFields(report.Run), zap.String("failed_phase", string(phase)), zap.Error(cause))...)
	return fmt.Errorf("%s phase: %w", phase, cause)
}

// persist writes the run and its identity maps to the ledger. Ledger
// failures never change the outcome of the run.
func (p *Pipeline) persist(ctx context.Context, log *zap.Logger, report *RunReport) {
	maps := []*migration.IdentityMap[int64, string]{report.Categories, report.Products, report.Customers}
	for _, m := range maps {
		if m == nil {
			continue
		}
		p.metrics.RecordMappings(ctx, m.Entity(), m.Len())
		if p.ledger == nil || m.Len() == 0 {
			continue
		}
		if err := p.ledger.SaveMappings(ctx, report.Run.ID, migration.Mappings(m)); err != nil {
			log.Warn("failed to save mappings", zap.String("entity", string(m.Entity())), zap.Error(err))
		}
	}
	p.saveRun(ctx, log, report.Run)
}

func (p *Pipeline) saveRun(ctx context.Context, log *zap.Logger, run *migration.Run) {
	if p.ledger == nil {
		return
	}
	if err := p.ledger.Save(ctx, run); err != nil {
		log.Warn("failed to save run", zap.Error(err))
	}
}

func summaryFields(run *migration.Run) []zap.Field {
	fields := []zap.Field{
		zap.String("status", string(run.Status)),
		zap.Duration("duration", run.Duration()),
	}
	for _, res := range run.Phases {
		fields = append(fields, zap.String(string(res.Phase),
			fmt.Sprintf("read=%d created=%d skipped=%d failed=%d", res.Read, res.Created, res.Skipped, res.Failed)))
	}
	return fields
}
