package telemetry

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/commerce/wcmigrate/internal/domain/migration"
)

// ErrMeterNil is returned when a nil meter is provided.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// Metric attribute keys.
var (
	AttrPhase     = attribute.Key("phase")
	AttrEntity    = attribute.Key("entity")
	AttrErrorCode = attribute.Key("error_code")
	AttrStatus    = attribute.Key("status")
	AttrDryRun    = attribute.Key("dry_run")
)

// PhaseDurationBuckets are the histogram bounds, in seconds, of a phase:
// from sub-second test stores up to an hour for large catalogs.
var PhaseDurationBuckets = []float64{0.5, 1, 5, 15, 30, 60, 300, 900, 1800, 3600}

// MigrationMetrics records per-phase outcomes of migration runs.
// All methods are no-ops on a nil receiver.
type MigrationMetrics struct {
	read, created, skipped, failed metric.Int64Counter
	recordErrors                   metric.Int64Counter
	runs                           metric.Int64Counter
	phaseDuration                  metric.Float64Histogram
	mapped                         metric.Int64Gauge
}

// NewMigrationMetrics creates the migration instruments on meter.
func NewMigrationMetrics(meter metric.Meter) (*MigrationMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	m := &MigrationMetrics{}
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&m.read, "wcmigrate_records_read_total", "Legacy records read", "{records}"},
		{&m.created, "wcmigrate_records_created_total", "Target records created or mapped", "{records}"},
		{&m.skipped, "wcmigrate_records_skipped_total", "Legacy records skipped", "{records}"},
		{&m.failed, "wcmigrate_records_failed_total", "Legacy records that failed and were tolerated", "{records}"},
		{&m.recordErrors, "wcmigrate_record_errors_total", "Tolerated record errors by code", "{errors}"},
		{&m.runs, "wcmigrate_runs_total", "Finished migration runs", "{runs}"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", c.name, err)
		}
		*c.dst = counter
	}

	var err error
	m.phaseDuration, err = meter.Float64Histogram("wcmigrate_phase_duration_seconds",
		metric.WithDescription("Duration of migration phases"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(PhaseDurationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("create phase duration histogram: %w", err)
	}

	m.mapped, err = meter.Int64Gauge("wcmigrate_mapped_entities",
		metric.WithDescription("Identity map entries built by the last phase"),
		metric.WithUnit("{entities}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create mapped entities gauge: %w", err)
	}

	return m, nil
}

// RecordPhase records the counts and duration of a phase, failed or not.
func (m *MigrationMetrics) RecordPhase(ctx context.Context, result migration.PhaseResult, dryRun bool) {
	if m == nil {
		return
	}
	phase := AttrPhase.String(string(result.Phase))
	attrs := metric.WithAttributes(phase, AttrDryRun.Bool(dryRun))

	m.read.Add(ctx, int64(result.Read), attrs)
	m.created.Add(ctx, int64(result.Created), attrs)
	m.skipped.Add(ctx, int64(result.Skipped), attrs)
	m.failed.Add(ctx, int64(result.Failed), attrs)
	m.phaseDuration.Record(ctx, result.Duration.Seconds(), attrs)

	for _, e := range result.Errors {
		m.recordErrors.Add(ctx, 1, metric.WithAttributes(phase, AttrErrorCode.String(e.Code)))
	}
}

// RecordMappings records the size of an identity map.
func (m *MigrationMetrics) RecordMappings(ctx context.Context, entity migration.EntityType, size int) {
	if m == nil {
		return
	}
	m.mapped.Record(ctx, int64(size), metric.WithAttributes(AttrEntity.String(string(entity))))
}

// RecordRun counts a finished run by its final status.
func (m *MigrationMetrics) RecordRun(ctx context.Context, run *migration.Run) {
	if m == nil || run == nil {
		return
	}
	m.runs.Add(ctx, 1, metric.WithAttributes(
		AttrStatus.String(string(run.Status)),
		AttrDryRun.String(strconv.FormatBool(run.DryRun)),
	))
}
