// Package migrationapp runs the migration phases: categories, products,
// customers and the order report, in that order.
package migrationapp

import (
	"fmt"
	"time"

	"github.com/commerce/wcmigrate/internal/domain/commerce"
)

// Options are the run-wide settings shared by every phase.
type Options struct {
	Currency        commerce.Currency
	RegionName      string
	Cutoff          time.Time
	MaxRecordErrors int
	DryRun          bool
}

// metaID renders a legacy identifier for target metadata.
func metaID(id int64) string {
	return fmt.Sprintf("%d", id)
}
