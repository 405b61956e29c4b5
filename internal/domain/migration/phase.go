package migration

import (
	"time"

	"github.com/shopspring/decimal"
)

// Phase is one ordered stage of a run.
type Phase string

const (
	PhaseCategories Phase = "categories"
	PhaseProducts   Phase = "products"
	PhaseCustomers  Phase = "customers"
	PhaseOrders     Phase = "orders"
)

// Phases lists the stages in execution order.
var Phases = []Phase{PhaseCategories, PhaseProducts, PhaseCustomers, PhaseOrders}

// IsValid checks if the phase is known
func (p Phase) IsValid() bool {
	switch p {
	case PhaseCategories, PhaseProducts, PhaseCustomers, PhaseOrders:
		return true
	}
	return false
}

// PhaseResult summarises one completed phase.
type PhaseResult struct {
	Phase    Phase         `json:"phase"`
	Read     int           `json:"read"`
	Created  int           `json:"created"`
	Skipped  int           `json:"skipped"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
	Errors   []RecordError `json:"errors,omitempty"`
}

// NewPhaseResult starts a result for the phase.
func NewPhaseResult(phase Phase) *PhaseResult {
	return &PhaseResult{Phase: phase}
}

// Collect copies tolerated record errors into the result.
func (r *PhaseResult) Collect(ec *ErrorCollection) {
	r.Failed = ec.TotalCount()
	r.Errors = ec.Errors()
}

// OrderSummary is one legacy order exported for manual reconciliation.
type OrderSummary struct {
	OrderID          int64           `json:"order_id"`
	CustomerID       int64           `json:"customer_id"`
	TargetCustomerID string          `json:"target_customer_id,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	Total            decimal.Decimal `json:"total"`
	Status           string          `json:"status"`
}
