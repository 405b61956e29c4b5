// Package legacy reads the WooCommerce MySQL schema.
package legacy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/commerce/wcmigrate/internal/domain/legacy"
	"github.com/shopspring/decimal"
)

const (
	taxonomyProductCategory = "product_cat"
	postTypeProduct         = "product"
	postTypeVariation       = "product_variation"
	postTypeAttachment      = "attachment"
	postStatusPublish       = "publish"
)

// ErrInvalidTablePrefix is returned for prefixes that are not plain identifiers.
var ErrInvalidTablePrefix = errors.New("legacy: invalid table prefix")

var tablePrefixPattern = regexp.MustCompile(`^[A-Za-z0-9_]*$`)

// Querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Reader runs the read-only queries of a migration. Values are always bound
// parameters; only the validated table prefix is spliced into the SQL.
type Reader struct {
	q      Querier
	prefix string
}

var _ legacy.Reader = (*Reader)(nil)

// NewReader creates a Reader over q for tables named <prefix><table>.
func NewReader(q Querier, prefix string) (*Reader, error) {
	if !tablePrefixPattern.MatchString(prefix) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTablePrefix, prefix)
	}
	return &Reader{q: q, prefix: prefix}, nil
}

func (r *Reader) table(name string) string {
	return "`" + r.prefix + name + "`"
}

// ListCategories returns product categories ordered by parent, then name.
func (r *Reader) ListCategories(ctx context.Context) ([]legacy.CategoryRow, error) {
	query := fmt.Sprintf(`SELECT t.term_id, t.name, t.slug, tt.description, tt.parent
		FROM %s t
		INNER JOIN %s tt ON t.term_id = tt.term_id
		WHERE tt.taxonomy = ?
		ORDER BY tt.parent, t.name`, r.table("terms"), r.table("term_taxonomy"))

	return queryRows(ctx, r.q, "list categories", query, []any{taxonomyProductCategory},
		func(rows *sql.Rows) (legacy.CategoryRow, error) {
			var row legacy.CategoryRow
			var description sql.NullString
			err := rows.Scan(&row.TermID, &row.Name, &row.Slug, &description, &row.ParentID)
			row.Description = description.String
			return row, err
		})
}

// ListProducts returns published products, excluding bundles.
func (r *Reader) ListProducts(ctx context.Context) ([]legacy.ProductRow, error) {
	query := fmt.Sprintf(`SELECT p.ID, p.post_title, p.post_name, p.post_content
		FROM %s p
		WHERE p.post_type = ?
		AND p.post_status = ?
		AND p.ID NOT IN (SELECT pm.post_id FROM %s pm WHERE pm.meta_key = ?)
		ORDER BY p.ID`, r.table("posts"), r.table("postmeta"))

	args := []any{postTypeProduct, postStatusPublish, legacy.MetaBundleMarker}
	return queryRows(ctx, r.q, "list products", query, args,
		func(rows *sql.Rows) (legacy.ProductRow, error) {
			var row legacy.ProductRow
			var content sql.NullString
			if err := rows.Scan(&row.PostID, &row.Title, &row.Slug, &content); err != nil {
				return row, err
			}
			if content.Valid {
				row.RawDescription = &content.String
			}
			return row, nil
		})
}

// ListMeta returns the post's meta entries restricted to keys.
func (r *Reader) ListMeta(ctx context.Context, postID int64, keys ...string) ([]legacy.MetaEntry, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT meta_key, meta_value
		FROM %s
		WHERE post_id = ? AND meta_key IN (%s)
		ORDER BY meta_id`, r.table("postmeta"), placeholders(len(keys)))

	args := make([]any, 0, len(keys)+1)
	args = append(args, postID)
	for _, k := range keys {
		args = append(args, k)
	}

	return queryRows(ctx, r.q, "list meta", query, args,
		func(rows *sql.Rows) (legacy.MetaEntry, error) {
			var entry legacy.MetaEntry
			var value sql.NullString
			err := rows.Scan(&entry.Key, &value)
			entry.Value = value.String
			return entry, err
		})
}

// ListVariations returns the variation posts of a product in menu order.
func (r *Reader) ListVariations(ctx context.Context, parentID int64) ([]legacy.VariationRow, error) {
	query := fmt.Sprintf(`SELECT ID, post_title
		FROM %s
		WHERE post_type = ? AND post_parent = ?
		ORDER BY menu_order, ID`, r.table("posts"))

	return queryRows(ctx, r.q, "list variations", query, []any{postTypeVariation, parentID},
		func(rows *sql.Rows) (legacy.VariationRow, error) {
			var row legacy.VariationRow
			err := rows.Scan(&row.VariationID, &row.Title)
			return row, err
		})
}

// ListProductCategoryIDs returns the product_cat term IDs assigned to a product.
func (r *Reader) ListProductCategoryIDs(ctx context.Context, postID int64) ([]int64, error) {
	query := fmt.Sprintf(`SELECT tt.term_id
		FROM %s tr
		INNER JOIN %s tt ON tr.term_taxonomy_id = tt.term_taxonomy_id
		WHERE tr.object_id = ? AND tt.taxonomy = ?
		ORDER BY tr.term_order, tt.term_id`, r.table("term_relationships"), r.table("term_taxonomy"))

	return queryRows(ctx, r.q, "list product categories", query, []any{postID, taxonomyProductCategory},
		func(rows *sql.Rows) (int64, error) {
			var id int64
			err := rows.Scan(&id)
			return id, err
		})
}

// ListAttachmentURLs resolves attachment IDs to their file URLs.
// IDs that are not attachments are absent from the result.
func (r *Reader) ListAttachmentURLs(ctx context.Context, ids []int64) (map[int64]string, error) {
	if len(ids) == 0 {
		return map[int64]string{}, nil
	}

	query := fmt.Sprintf(`SELECT ID, guid
		FROM %s
		WHERE post_type = ? AND ID IN (%s)`, r.table("posts"), placeholders(len(ids)))

	args := make([]any, 0, len(ids)+1)
	args = append(args, postTypeAttachment)
	for _, id := range ids {
		args = append(args, id)
	}

	type attachment struct {
		id  int64
		url string
	}
	rows, err := queryRows(ctx, r.q, "list attachments", query, args,
		func(rows *sql.Rows) (attachment, error) {
			var a attachment
			err := rows.Scan(&a.id, &a.url)
			return a, err
		})
	if err != nil {
		return nil, err
	}

	urls := make(map[int64]string, len(rows))
	for _, a := range rows {
		if a.url != "" {
			urls[a.id] = a.url
		}
	}
	return urls, nil
}

// ListCustomers returns the distinct registered customers who ordered on or after since.
func (r *Reader) ListCustomers(ctx context.Context, since time.Time) ([]legacy.CustomerRow, error) {
	query := fmt.Sprintf(`SELECT DISTINCT o.customer_id, u.user_email, u.display_name, u.user_login
		FROM %s o
		INNER JOIN %s u ON o.customer_id = u.ID
		WHERE o.date_created_gmt >= ? AND o.customer_id > 0
		ORDER BY o.customer_id`, r.table("wc_orders"), r.table("users"))

	return queryRows(ctx, r.q, "list customers", query, []any{since},
		func(rows *sql.Rows) (legacy.CustomerRow, error) {
			var row legacy.CustomerRow
			var displayName sql.NullString
			err := rows.Scan(&row.CustomerID, &row.Email, &displayName, &row.UserLogin)
			row.DisplayName = displayName.String
			return row, err
		})
}

// ListOrders returns orders created on or after since, newest first.
func (r *Reader) ListOrders(ctx context.Context, since time.Time) ([]legacy.OrderRow, error) {
	query := fmt.Sprintf(`SELECT o.id, o.customer_id, o.date_created_gmt, o.total_amount, o.status
		FROM %s o
		WHERE o.date_created_gmt >= ?
		ORDER BY o.date_created_gmt DESC`, r.table("wc_orders"))

	return queryRows(ctx, r.q, "list orders", query, []any{since},
		func(rows *sql.Rows) (legacy.OrderRow, error) {
			var row legacy.OrderRow
			var (
				customerID sql.NullInt64
				createdAt  sql.NullTime
				total      decimal.NullDecimal
				status     sql.NullString
			)
			if err := rows.Scan(&row.OrderID, &customerID, &createdAt, &total, &status); err != nil {
				return row, err
			}
			row.CustomerID = customerID.Int64
			row.CreatedAt = createdAt.Time
			row.TotalAmount = total.Decimal
			row.Status = status.String
			return row, nil
		})
}

func queryRows[T any](ctx context.Context, q Querier, op, query string, args []any, scan func(*sql.Rows) (T, error)) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("legacy: %s: %w", op, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("legacy: %s: scan: %w", op, err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("legacy: %s: %w", op, err)
	}
	return out, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
