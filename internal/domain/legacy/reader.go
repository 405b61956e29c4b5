package legacy

import (
	"context"
	"time"
)

// Reader is the read-only view of the legacy store used by the phases.
// Every method issues a single parameterized query.
type Reader interface {
	ListCategories(ctx context.Context) ([]CategoryRow, error)
	ListProducts(ctx context.Context) ([]ProductRow, error)
	ListMeta(ctx context.Context, postID int64, keys ...string) ([]MetaEntry, error)
	ListVariations(ctx context.Context, parentID int64) ([]VariationRow, error)
	ListProductCategoryIDs(ctx context.Context, postID int64) ([]int64, error)
	ListAttachmentURLs(ctx context.Context, ids []int64) (map[int64]string, error)
	ListCustomers(ctx context.Context, since time.Time) ([]CustomerRow, error)
	ListOrders(ctx context.Context, since time.Time) ([]OrderRow, error)
}

// Session is a Reader bound to one exclusively owned connection.
type Session interface {
	Reader
	Close() error
}

// Connector acquires the session for a run.
type Connector interface {
	Open(ctx context.Context) (Session, error)
}
