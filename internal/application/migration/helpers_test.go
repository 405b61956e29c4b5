package migrationapp

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/commerce/wcmigrate/internal/domain/commerce"
	"github.com/commerce/wcmigrate/internal/domain/legacy"
	"github.com/commerce/wcmigrate/internal/domain/migration"
)

var tunisia = commerce.Region{ID: "reg_tn", Name: "Tunisia", CurrencyCode: "tnd"}

func testOptions() Options {
	return Options{
		Currency:        commerce.Currency{Code: "tnd", Exponent: 3},
		RegionName:      "Tunisia",
		Cutoff:          time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		MaxRecordErrors: 50,
	}
}

// fakeReader is an in-memory legacy store.
type fakeReader struct {
	mu          sync.Mutex
	categories  []legacy.CategoryRow
	products    []legacy.ProductRow
	meta        map[int64][]legacy.MetaEntry
	variations  map[int64][]legacy.VariationRow
	productCats map[int64][]int64
	attachments map[int64]string
	customers   []legacy.CustomerRow
	orders      []legacy.OrderRow
	errs        map[string]error
	calls       map[string]int
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		meta:        make(map[int64][]legacy.MetaEntry),
		variations:  make(map[int64][]legacy.VariationRow),
		productCats: make(map[int64][]int64),
		attachments: make(map[int64]string),
		errs:        make(map[string]error),
		calls:       make(map[string]int),
	}
}

func (r *fakeReader) called(op string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[op]++
	return r.errs[op]
}

func (r *fakeReader) Calls(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[op]
}

func (r *fakeReader) setMeta(postID int64, kv ...string) {
	for i := 0; i+1 < len(kv); i += 2 {
		r.meta[postID] = append(r.meta[postID], legacy.MetaEntry{Key: kv[i], Value: kv[i+1]})
	}
}

func (r *fakeReader) ListCategories(ctx context.Context) ([]legacy.CategoryRow, error) {
	return r.categories, r.called("ListCategories")
}

func (r *fakeReader) ListProducts(ctx context.Context) ([]legacy.ProductRow, error) {
	return r.products, r.called("ListProducts")
}

func (r *fakeReader) ListMeta(ctx context.Context, postID int64, keys ...string) ([]legacy.MetaEntry, error) {
	return r.meta[postID], r.called("ListMeta")
}

func (r *fakeReader) ListVariations(ctx context.Context, parentID int64) ([]legacy.VariationRow, error) {
	return r.variations[parentID], r.called("ListVariations")
}

func (r *fakeReader) ListProductCategoryIDs(ctx context.Context, postID int64) ([]int64, error) {
	return r.productCats[postID], r.called("ListProductCategoryIDs")
}

func (r *fakeReader) ListAttachmentURLs(ctx context.Context, ids []int64) (map[int64]string, error) {
	out := make(map[int64]string)
	for _, id := range ids {
		if u, ok := r.attachments[id]; ok {
			out[id] = u
		}
	}
	return out, r.called("ListAttachmentURLs")
}

func (r *fakeReader) ListCustomers(ctx context.Context, since time.Time) ([]legacy.CustomerRow, error) {
	return r.customers, r.called("ListCustomers")
}

func (r *fakeReader) ListOrders(ctx context.Context, since time.Time) ([]legacy.OrderRow, error) {
	return r.orders, r.called("ListOrders")
}

// fakeConnector hands out sessions over one fakeReader.
type fakeConnector struct {
	reader  *fakeReader
	openErr error
	opened  int
	closed  int
}

type fakeSession struct {
	*fakeReader
	connector *fakeConnector
}

func (s *fakeSession) Close() error {
	s.connector.closed++
	return nil
}

func (c *fakeConnector) Open(ctx context.Context) (legacy.Session, error) {
	if c.openErr != nil {
		return nil, c.openErr
	}
	c.opened++
	return &fakeSession{fakeReader: c.reader, connector: c}, nil
}

// MockPlatform is a mock implementation of commerce.Platform
type MockPlatform struct {
	mock.Mock
}

func (m *MockPlatform) CreateCategory(ctx context.Context, in commerce.CategoryInput) (*commerce.Category, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*commerce.Category), args.Error(1)
}

func (m *MockPlatform) CreateProduct(ctx context.Context, in commerce.ProductInput) (*commerce.Product, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*commerce.Product), args.Error(1)
}

func (m *MockPlatform) CreateVariant(ctx context.Context, productID string, in commerce.VariantInput) (*commerce.Variant, error) {
	args := m.Called(ctx, productID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*commerce.Variant), args.Error(1)
}

func (m *MockPlatform) CreatePrice(ctx context.Context, in commerce.PriceInput) (*commerce.Price, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*commerce.Price), args.Error(1)
}

func (m *MockPlatform) ListRegions(ctx context.Context, filter commerce.RegionFilter) ([]commerce.Region, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]commerce.Region), args.Error(1)
}

func (m *MockPlatform) CreateCustomer(ctx context.Context, in commerce.CustomerInput) (*commerce.Customer, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*commerce.Customer), args.Error(1)
}

func (m *MockPlatform) FindCustomerByEmail(ctx context.Context, email string) (*commerce.Customer, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*commerce.Customer), args.Error(1)
}

func (m *MockPlatform) ListProducts(ctx context.Context, filter commerce.ProductListFilter) ([]commerce.Product, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]commerce.Product), args.Error(1)
}

func (m *MockPlatform) ListPrices(ctx context.Context, priceGroupID string) ([]commerce.Price, error) {
	args := m.Called(ctx, priceGroupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]commerce.Price), args.Error(1)
}

// recordingSink keeps the orders it was handed.
type recordingSink struct {
	runID  string
	orders []migration.OrderSummary
	err    error
}

func (s *recordingSink) Export(ctx context.Context, runID string, orders []migration.OrderSummary) error {
	s.runID = runID
	s.orders = orders
	return s.err
}

func mustMap(t *testing.T, pairs ...any) *migration.CategoryMap {
	t.Helper()
	m := migration.NewCategoryMap()
	for i := 0; i+1 < len(pairs); i += 2 {
		if err := m.Put(int64(pairs[i].(int)), pairs[i+1].(string)); err != nil {
			t.Fatal(err)
		}
	}
	return m.Seal()
}
