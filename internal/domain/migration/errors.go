package migration

import (
	"errors"
	"fmt"
	"strings"
)

// Record error codes
const (
	ErrCodeVariantCreate   = "ERR_MIGRATION_VARIANT_CREATE"
	ErrCodePriceCreate     = "ERR_MIGRATION_PRICE_CREATE"
	ErrCodeDuplicate       = "ERR_MIGRATION_DUPLICATE"
	ErrCodeCategoryMissing = "ERR_MIGRATION_CATEGORY_MISSING"
	ErrCodeImageMissing    = "ERR_MIGRATION_IMAGE_MISSING"
)

// Common migration errors
var (
	// ErrOrphanCategory is returned when a category's parent never gets created
	ErrOrphanCategory = errors.New("migration: category parent not found")

	// ErrMissingPriceGroup is returned when a created variant has no price group
	ErrMissingPriceGroup = errors.New("migration: variant has no price group")
)

// RecordError is a tolerated failure on one legacy record.
type RecordError struct {
	Phase    Phase  `json:"phase"`
	LegacyID int64  `json:"legacy_id"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// Error implements the error interface
func (e RecordError) Error() string {
	return fmt.Sprintf("%s %d: %s", e.Phase, e.LegacyID, e.Message)
}

// NewRecordError creates a new RecordError
func NewRecordError(phase Phase, legacyID int64, code string, err error) RecordError {
	return RecordError{
		Phase:    phase,
		LegacyID: legacyID,
		Code:     code,
		Message:  err.Error(),
	}
}

// ErrorCollection keeps tolerated record errors up to a limit while still
// counting the ones dropped.
type ErrorCollection struct {
	errors     []RecordError
	maxErrors  int
	totalCount int
}

// NewErrorCollection creates a new ErrorCollection with a maximum error limit
func NewErrorCollection(maxErrors int) *ErrorCollection {
	if maxErrors <= 0 {
		maxErrors = 100
	}
	return &ErrorCollection{
		errors:    make([]RecordError, 0),
		maxErrors: maxErrors,
	}
}

// Add adds an error to the collection
func (ec *ErrorCollection) Add(err RecordError) {
	ec.totalCount++
	if len(ec.errors) < ec.maxErrors {
		ec.errors = append(ec.errors, err)
	}
}

// Errors returns the collected errors
func (ec *ErrorCollection) Errors() []RecordError {
	return ec.errors
}

// Count returns the number of collected errors (up to maxErrors)
func (ec *ErrorCollection) Count() int {
	return len(ec.errors)
}

// TotalCount returns the total number of errors including those not collected
func (ec *ErrorCollection) TotalCount() int {
	return ec.totalCount
}

// HasErrors returns true if any error was added
func (ec *ErrorCollection) HasErrors() bool {
	return ec.totalCount > 0
}

// Truncated reports whether errors were dropped past the limit
func (ec *ErrorCollection) Truncated() bool {
	return ec.totalCount > len(ec.errors)
}

// Error joins the collected errors into one message
func (ec *ErrorCollection) Error() string {
	if len(ec.errors) == 0 {
		return ""
	}
	msgs := make([]string, 0, len(ec.errors)+1)
	for _, e := range ec.errors {
		msgs = append(msgs, e.Error())
	}
	if ec.Truncated() {
		msgs = append(msgs, fmt.Sprintf("... and %d more", ec.totalCount-len(ec.errors)))
	}
	return strings.Join(msgs, "; ")
}
