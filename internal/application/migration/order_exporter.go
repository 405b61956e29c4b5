package migrationapp

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/commerce/wcmigrate/internal/domain/legacy"
	"github.com/commerce/wcmigrate/internal/domain/migration"
	"github.com/commerce/wcmigrate/internal/infrastructure/telemetry"
)

// OrderSink receives the order report of a run.
type OrderSink interface {
	Export(ctx context.Context, runID string, orders []migration.OrderSummary) error
}

// OrderExporter summarizes legacy orders for manual reconciliation. It never
// writes to the target platform.
type OrderExporter struct {
	reader legacy.Reader
	sink   OrderSink
	opts   Options
	logger *zap.Logger
}

// NewOrderExporter creates a new OrderExporter. sink may be nil.
func NewOrderExporter(reader legacy.Reader, sink OrderSink, opts Options, logger *zap.Logger) *OrderExporter {
	return &OrderExporter{reader: reader, sink: sink, opts: opts, logger: logger}
}

// Export reads the orders in the window, newest first, and resolves each
// placer to its target customer when mapped.
func (e *OrderExporter) Export(ctx context.Context, runID string, customers *migration.CustomerMap) ([]migration.OrderSummary, *migration.PhaseResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "migration.orders")
	defer span.End()

	start := time.Now()
	result := migration.NewPhaseResult(migration.PhaseOrders)
	defer func() { result.Duration = time.Since(start) }()

	rows, err := e.reader.ListOrders(ctx, e.opts.Cutoff)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, result, err
	}
	result.Read = len(rows)

	orders := make([]migration.OrderSummary, 0, len(rows))
	unmapped := 0
	for _, row := range rows {
		summary := migration.OrderSummary{
			OrderID:    row.OrderID,
			CustomerID: row.CustomerID,
			CreatedAt:  row.CreatedAt,
			Total:      row.TotalAmount,
			Status:     row.Status,
		}
		if targetID, ok := customers.Get(row.CustomerID); ok {
			summary.TargetCustomerID = targetID
		} else {
			unmapped++
		}
		orders = append(orders, summary)

		e.logger.Debug("order",
			zap.Int64("legacy_id", row.OrderID),
			zap.Int64("customer_id", row.CustomerID),
			zap.String("target_customer_id", summary.TargetCustomerID),
			zap.String("total", row.TotalAmount.String()),
			zap.String("status", row.Status))
	}

	if e.sink != nil {
		if err := e.sink.Export(ctx, runID, orders); err != nil {
			err = fmt.Errorf("export orders: %w", err)
			telemetry.RecordError(span, err)
			return nil, result, err
		}
	}

	result.Created = len(orders)
	e.logger.Info("✓ orders summarized",
		zap.Int("orders", len(orders)),
		zap.Int("without_customer", unmapped))
	telemetry.SetAttributes(span, telemetry.SpanAttrCreated, result.Created)
	return orders, result, nil
}
