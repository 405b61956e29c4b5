// Package commerce models the target commerce platform as seen by the
// migration: the create/list operations it exposes and the records it returns.
package commerce

import "context"

// ProductStatus is the publication state of a target product.
type ProductStatus string

const (
	ProductStatusDraft     ProductStatus = "draft"
	ProductStatusPublished ProductStatus = "published"
)

// CategoryInput creates a product category.
type CategoryInput struct {
	Name        string
	Handle      string
	Description string
	ParentID    *string
	IsActive    bool
	Metadata    map[string]any
}

// Category is a created product category.
type Category struct {
	ID       string
	Name     string
	Handle   string
	ParentID *string
}

// VariantInput creates a variant, either inline with its product or on its own.
type VariantInput struct {
	Title             string
	SKU               string
	ManageInventory   bool
	InventoryQuantity int64
	Metadata          map[string]any
}

// ProductInput creates a product with zero or more inline variants.
type ProductInput struct {
	Title       string
	Handle      string
	Description *string
	Status      ProductStatus
	CategoryIDs []string
	Images      []string
	Variants    []VariantInput
	Metadata    map[string]any
}

// Variant is a created product variant. PriceGroupID identifies the set its
// prices are attached to.
type Variant struct {
	ID                string
	Title             string
	SKU               string
	InventoryQuantity int64
	PriceGroupID      string
}

// Product is a created product.
type Product struct {
	ID       string
	Title    string
	Handle   string
	Status   ProductStatus
	Variants []Variant
}

// PriceInput attaches an amount, in minor units, to a price group.
type PriceInput struct {
	PriceGroupID string
	Amount       int64
	CurrencyCode string
	RegionID     string
}

// Price is a stored price record.
type Price struct {
	ID           string
	Amount       int64
	CurrencyCode string
	RegionID     string
}

// Region groups countries sharing a currency.
type Region struct {
	ID           string
	Name         string
	CurrencyCode string
}

// RegionFilter narrows ListRegions. Empty fields match everything and
// names compare case-insensitively.
type RegionFilter struct {
	Name string
}

// CustomerInput creates a customer account.
type CustomerInput struct {
	Email     string
	FirstName string
	LastName  *string
	Metadata  map[string]any
}

// Customer is a created customer.
type Customer struct {
	ID        string
	Email     string
	FirstName string
	LastName  *string
}

// ProductListFilter narrows ListProducts.
type ProductListFilter struct {
	Limit int
}

// CategoryWriter creates categories.
type CategoryWriter interface {
	CreateCategory(ctx context.Context, in CategoryInput) (*Category, error)
}

// CatalogWriter creates products, variants and prices inside a region.
type CatalogWriter interface {
	CreateProduct(ctx context.Context, in ProductInput) (*Product, error)
	CreateVariant(ctx context.Context, productID string, in VariantInput) (*Variant, error)
	CreatePrice(ctx context.Context, in PriceInput) (*Price, error)
	ListRegions(ctx context.Context, filter RegionFilter) ([]Region, error)
}

// CustomerDirectory creates customers and finds existing ones.
// FindCustomerByEmail returns an error matching ErrNotFound when nothing matches.
type CustomerDirectory interface {
	CreateCustomer(ctx context.Context, in CustomerInput) (*Customer, error)
	FindCustomerByEmail(ctx context.Context, email string) (*Customer, error)
}

// CatalogReader reads back migrated products and their prices.
type CatalogReader interface {
	ListProducts(ctx context.Context, filter ProductListFilter) ([]Product, error)
	ListPrices(ctx context.Context, priceGroupID string) ([]Price, error)
}

// Platform is the full set of target operations.
type Platform interface {
	CategoryWriter
	CatalogWriter
	CustomerDirectory
	CatalogReader
}
