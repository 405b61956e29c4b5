// Package export writes the order reconciliation report produced by a run.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/commerce/wcmigrate/internal/domain/migration"
)

// ContentTypeCSV is the MIME type of the orders report
const ContentTypeCSV = "text/csv"

// OrdersHeader is the first row of the orders report
var OrdersHeader = []string{"order_id", "customer_id", "target_customer_id", "created_at", "total", "status"}

// Uploader stores a report in object storage and returns its key
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// OrdersReport writes order summaries to a local file and, when an uploader
// is configured, to object storage.
type OrdersReport struct {
	path     string
	uploader Uploader
	logger   *zap.Logger
}

// NewOrdersReport creates a report writer. An empty path skips the file and a
// nil uploader skips the upload.
func NewOrdersReport(path string, uploader Uploader, logger *zap.Logger) *OrdersReport {
	return &OrdersReport{path: path, uploader: uploader, logger: logger.Named("export")}
}

// Export renders the orders and writes them to every configured destination.
func (r *OrdersReport) Export(ctx context.Context, runID string, orders []migration.OrderSummary) error {
	if r.path == "" && r.uploader == nil {
		return nil
	}

	data, err := EncodeOrders(orders)
	if err != nil {
		return err
	}

	if r.path != "" {
		if err := writeFileAtomic(r.path, data); err != nil {
			return fmt.Errorf("export: write %s: %w", r.path, err)
		}
		r.logger.Info("orders report written", zap.String("path", r.path), zap.Int("orders", len(orders)))
	}

	if r.uploader != nil {
		key, err := r.uploader.Upload(ctx, runID+"/orders.csv", data, ContentTypeCSV)
		if err != nil {
			return fmt.Errorf("export: upload: %w", err)
		}
		r.logger.Info("orders report uploaded", zap.String("key", key), zap.Int("orders", len(orders)))
	}
	return nil
}

// EncodeOrders renders orders as CSV with a header row.
func EncodeOrders(orders []migration.OrderSummary) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(OrdersHeader); err != nil {
		return nil, fmt.Errorf("export: encode header: %w", err)
	}
	for _, o := range orders {
		row := []string{
			strconv.FormatInt(o.OrderID, 10),
			strconv.FormatInt(o.CustomerID, 10),
			o.TargetCustomerID,
			o.CreatedAt.UTC().Format(time.RFC3339),
			o.Total.String(),
			o.Status,
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("export: encode order %d: %w", o.OrderID, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("export: flush: %w", err)
	}
	return buf.Bytes(), nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".orders-*.csv")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
