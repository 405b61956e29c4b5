package migrationapp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/commerce/wcmigrate/internal/domain/commerce"
	"github.com/commerce/wcmigrate/internal/domain/legacy"
	"github.com/commerce/wcmigrate/internal/domain/migration"
	"github.com/commerce/wcmigrate/internal/infrastructure/telemetry"
)

// CustomerMigrator creates one target customer per distinct order placer
// inside the cutoff window.
type CustomerMigrator struct {
	reader legacy.Reader
	target commerce.CustomerDirectory
	opts   Options
	logger *zap.Logger
}

// NewCustomerMigrator creates a new CustomerMigrator
func NewCustomerMigrator(reader legacy.Reader, target commerce.CustomerDirectory, opts Options, logger *zap.Logger) *CustomerMigrator {
	return &CustomerMigrator{reader: reader, target: target, opts: opts, logger: logger}
}

// Migrate creates the customers and returns the sealed identity map.
//
// A conflict on create means the email already exists in the target: the
// existing customer is looked up and mapped instead. Rows sharing an email
// within the run reuse the first target ID. Any other failure is fatal.
func (m *CustomerMigrator) Migrate(ctx context.Context) (*migration.CustomerMap, *migration.PhaseResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "migration.customers")
	defer span.End()

	start := time.Now()
	result := migration.NewPhaseResult(migration.PhaseCustomers)
	errs := migration.NewErrorCollection(m.opts.MaxRecordErrors)
	customers := migration.NewCustomerMap()
	byEmail := make(map[string]string)
	defer func() {
		result.Collect(errs)
		result.Duration = time.Since(start)
	}()

	rows, err := m.reader.ListCustomers(ctx, m.opts.Cutoff)
	if err != nil {
		telemetry.RecordError(span, err)
		return customers, result, err
	}
	result.Read = len(rows)

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return customers, result, err
		}

		email := strings.TrimSpace(row.Email)
		log := m.logger.With(zap.Int64("legacy_id", row.CustomerID), zap.String("email", email))
		key := strings.ToLower(email)

		switch {
		case email == "":
			log.Warn("⚠ customer skipped: no email")
			result.Skipped++
			continue
		case customers.Has(row.CustomerID):
			log.Debug("customer already mapped")
			result.Skipped++
			continue
		}

		if targetID, ok := byEmail[key]; ok {
			if err := customers.Put(row.CustomerID, targetID); err != nil {
				return customers, result, err
			}
			log.Info("⚠ customer shares an email, reusing", zap.String("target_id", targetID))
			result.Skipped++
			continue
		}

		first, last := splitName(row.Name())
		created, err := m.target.CreateCustomer(ctx, commerce.CustomerInput{
			Email:     email,
			FirstName: first,
			LastName:  last,
			Metadata:  map[string]any{"legacy_customer_id": metaID(row.CustomerID)},
		})
		if err == nil {
			if err := customers.Put(row.CustomerID, created.ID); err != nil {
				return customers, result, err
			}
			byEmail[key] = created.ID
			result.Created++
			log.Info("✓ customer created", zap.String("target_id", created.ID))
			continue
		}
		if !commerce.IsConflictAlreadyExists(err) {
			err = fmt.Errorf("create customer %d: %w", row.CustomerID, err)
			telemetry.RecordError(span, err)
			return customers, result, err
		}

		existing, lookupErr := m.target.FindCustomerByEmail(ctx, email)
		switch {
		case lookupErr == nil:
			if err := customers.Put(row.CustomerID, existing.ID); err != nil {
				return customers, result, err
			}
			byEmail[key] = existing.ID
			result.Skipped++
			log.Info("⚠ customer already exists, mapped", zap.String("target_id", existing.ID))
		case commerce.IsNotFound(lookupErr):
			result.Skipped++
			log.Warn("⚠ customer already exists but lookup found nothing, skipped")
			errs.Add(migration.NewRecordError(migration.PhaseCustomers, row.CustomerID, migration.ErrCodeDuplicate, err))
		default:
			err = fmt.Errorf("find customer %d by email: %w", row.CustomerID, lookupErr)
			telemetry.RecordError(span, err)
			return customers, result, err
		}
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrCreated, result.Created)
	return customers.Seal(), result, nil
}

// splitName splits on whitespace: the first token is the first name and the
// rest, joined by single spaces, the last name. An empty rest is absent.
func splitName(name string) (string, *string) {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "", nil
	}
	if len(fields) == 1 {
		return fields[0], nil
	}
	last := strings.Join(fields[1:], " ")
	return fields[0], &last
}
