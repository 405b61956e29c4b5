// Package dryrun provides an in-memory commerce platform. Runs against it
// read the legacy store for real and record every write locally.
package dryrun

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/commerce/wcmigrate/internal/domain/commerce"
)

// Platform is an in-memory commerce.Platform.
type Platform struct {
	mu         sync.RWMutex
	regions    []commerce.Region
	categories map[string]commerce.Category
	products   map[string]*commerce.Product
	order      []string
	prices     map[string][]commerce.Price
	customers  map[string]commerce.Customer // keyed by lowercased email
	logger     *zap.Logger
}

// New creates an empty platform holding the given regions.
func New(logger *zap.Logger, regions ...commerce.Region) *Platform {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Platform{
		regions:    regions,
		categories: make(map[string]commerce.Category),
		products:   make(map[string]*commerce.Product),
		prices:     make(map[string][]commerce.Price),
		customers:  make(map[string]commerce.Customer),
		logger:     logger.Named("dryrun"),
	}
}

var _ commerce.Platform = (*Platform)(nil)

func newID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// CreateCategory records a category. A parent must already exist.
func (p *Platform) CreateCategory(ctx context.Context, in commerce.CategoryInput) (*commerce.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if in.Name == "" {
		return nil, commerce.NewPlatformError("create category", commerce.ErrInvalidInput, 0, "", "name is required")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if in.ParentID != nil {
		if _, ok := p.categories[*in.ParentID]; !ok {
			return nil, commerce.NewPlatformError("create category", commerce.ErrNotFound, 0, "", "parent category "+*in.ParentID)
		}
	}
	for _, c := range p.categories {
		if in.Handle != "" && c.Handle == in.Handle {
			return nil, commerce.NewPlatformError("create category", commerce.ErrConflictAlreadyExists, 0, "", "handle "+in.Handle)
		}
	}

	cat := commerce.Category{ID: newID("pcat"), Name: in.Name, Handle: in.Handle, ParentID: in.ParentID}
	p.categories[cat.ID] = cat
	p.logger.Debug("category recorded", zap.String("id", cat.ID), zap.String("name", cat.Name))
	return &cat, nil
}

// CreateProduct records a product and its inline variants.
func (p *Platform) CreateProduct(ctx context.Context, in commerce.ProductInput) (*commerce.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if in.Title == "" {
		return nil, commerce.NewPlatformError("create product", commerce.ErrInvalidInput, 0, "", "title is required")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range in.CategoryIDs {
		if _, ok := p.categories[id]; !ok {
			return nil, commerce.NewPlatformError("create product", commerce.ErrNotFound, 0, "", "category "+id)
		}
	}

	prod := &commerce.Product{ID: newID("prod"), Title: in.Title, Handle: in.Handle, Status: in.Status}
	for _, v := range in.Variants {
		prod.Variants = append(prod.Variants, newVariant(v))
	}
	p.products[prod.ID] = prod
	p.order = append(p.order, prod.ID)
	p.logger.Debug("product recorded", zap.String("id", prod.ID), zap.Int("variants", len(prod.Variants)))

	out := cloneProduct(prod)
	return &out, nil
}

// CreateVariant appends a variant to a recorded product.
func (p *Platform) CreateVariant(ctx context.Context, productID string, in commerce.VariantInput) (*commerce.Variant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	prod, ok := p.products[productID]
	if !ok {
		return nil, commerce.NewPlatformError("create variant", commerce.ErrNotFound, 0, "", "product "+productID)
	}
	for _, v := range prod.Variants {
		if in.SKU != "" && v.SKU == in.SKU {
			return nil, commerce.NewPlatformError("create variant", commerce.ErrConflictAlreadyExists, 0, "", "sku "+in.SKU)
		}
	}

	v := newVariant(in)
	prod.Variants = append(prod.Variants, v)
	return &v, nil
}

// CreatePrice records a price in a known price set.
func (p *Platform) CreatePrice(ctx context.Context, in commerce.PriceInput) (*commerce.Price, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if in.Amount < 0 {
		return nil, commerce.NewPlatformError("create price", commerce.ErrInvalidInput, 0, "", "amount cannot be negative")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.hasPriceSet(in.PriceGroupID) {
		return nil, commerce.NewPlatformError("create price", commerce.ErrNotFound, 0, "", "price set "+in.PriceGroupID)
	}

	price := commerce.Price{ID: newID("price"), Amount: in.Amount, CurrencyCode: in.CurrencyCode, RegionID: in.RegionID}
	p.prices[in.PriceGroupID] = append(p.prices[in.PriceGroupID], price)
	return &price, nil
}

// ListRegions returns the configured regions matching the filter.
func (p *Platform) ListRegions(ctx context.Context, filter commerce.RegionFilter) ([]commerce.Region, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []commerce.Region
	for _, r := range p.regions {
		if filter.Name == "" || strings.EqualFold(r.Name, filter.Name) {
			out = append(out, r)
		}
	}
	return out, nil
}

// CreateCustomer records a customer. Emails are unique case-insensitively.
func (p *Platform) CreateCustomer(ctx context.Context, in commerce.CustomerInput) (*commerce.Customer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if in.Email == "" {
		return nil, commerce.NewPlatformError("create customer", commerce.ErrInvalidInput, 0, "", "email is required")
	}

	key := strings.ToLower(in.Email)
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.customers[key]; exists {
		return nil, commerce.NewPlatformError("create customer", commerce.ErrConflictAlreadyExists, 0, "duplicate_error", "email "+in.Email)
	}

	cust := commerce.Customer{ID: newID("cus"), Email: in.Email, FirstName: in.FirstName, LastName: in.LastName}
	p.customers[key] = cust
	return &cust, nil
}

// FindCustomerByEmail looks a customer up by email.
func (p *Platform) FindCustomerByEmail(ctx context.Context, email string) (*commerce.Customer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	cust, ok := p.customers[strings.ToLower(email)]
	if !ok {
		return nil, commerce.NewPlatformError("find customer", commerce.ErrNotFound, 0, "", "email "+email)
	}
	return &cust, nil
}

// ListProducts returns recorded products in creation order.
func (p *Platform) ListProducts(ctx context.Context, filter commerce.ProductListFilter) ([]commerce.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]commerce.Product, 0, len(p.order))
	for _, id := range p.order {
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
		out = append(out, cloneProduct(p.products[id]))
	}
	return out, nil
}

// ListPrices returns the prices of a price set.
func (p *Platform) ListPrices(ctx context.Context, priceGroupID string) ([]commerce.Price, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.hasPriceSet(priceGroupID) {
		return nil, commerce.NewPlatformError("list prices", commerce.ErrNotFound, 0, "", "price set "+priceGroupID)
	}
	return append([]commerce.Price(nil), p.prices[priceGroupID]...), nil
}

// Stats summarizes what has been recorded.
type Stats struct {
	Categories int
	Products   int
	Variants   int
	Prices     int
	Customers  int
}

// Stats returns the number of records of each kind.
func (p *Platform) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s := Stats{
		Categories: len(p.categories),
		Products:   len(p.products),
		Customers:  len(p.customers),
	}
	for _, prod := range p.products {
		s.Variants += len(prod.Variants)
	}
	for _, prices := range p.prices {
		s.Prices += len(prices)
	}
	return s
}

// Categories returns recorded categories sorted by name.
func (p *Platform) Categories() []commerce.Category {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]commerce.Category, 0, len(p.categories))
	for _, c := range p.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (p *Platform) hasPriceSet(id string) bool {
	if id == "" {
		return false
	}
	for _, prod := range p.products {
		for _, v := range prod.Variants {
			if v.PriceGroupID == id {
				return true
			}
		}
	}
	return false
}

func newVariant(in commerce.VariantInput) commerce.Variant {
	return commerce.Variant{
		ID:                newID("variant"),
		Title:             in.Title,
		SKU:               in.SKU,
		InventoryQuantity: in.InventoryQuantity,
		PriceGroupID:      newID("pset"),
	}
}

func cloneProduct(p *commerce.Product) commerce.Product {
	out := *p
	out.Variants = append([]commerce.Variant(nil), p.Variants...)
	return out
}
