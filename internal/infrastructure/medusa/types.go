package medusa

import "github.com/commerce/wcmigrate/internal/domain/commerce"

type categoryRequest struct {
	Name             string         `json:"name" validate:"required,max=255"`
	Handle           string         `json:"handle,omitempty" validate:"omitempty,max=255"`
	Description      string         `json:"description,omitempty"`
	ParentCategoryID *string        `json:"parent_category_id,omitempty" validate:"omitempty,min=1"`
	IsActive         bool           `json:"is_active"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

type categoryDTO struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Handle           string  `json:"handle"`
	ParentCategoryID *string `json:"parent_category_id"`
}

type categoryResponse struct {
	ProductCategory categoryDTO `json:"product_category"`
}

type idRef struct {
	ID string `json:"id" validate:"required"`
}

type imageRef struct {
	URL string `json:"url" validate:"required,url"`
}

type variantRequest struct {
	Title             string         `json:"title" validate:"required,max=255"`
	SKU               string         `json:"sku,omitempty" validate:"omitempty,max=255"`
	ManageInventory   bool           `json:"manage_inventory"`
	InventoryQuantity int64          `json:"inventory_quantity"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

type productRequest struct {
	Title       string           `json:"title" validate:"required,max=255"`
	Handle      string           `json:"handle,omitempty" validate:"omitempty,max=255"`
	Description *string          `json:"description,omitempty"`
	Status      string           `json:"status" validate:"required,oneof=draft published"`
	Categories  []idRef          `json:"categories,omitempty" validate:"dive"`
	Images      []imageRef       `json:"images,omitempty" validate:"dive"`
	Variants    []variantRequest `json:"variants" validate:"dive"`
	Metadata    map[string]any   `json:"metadata,omitempty"`
}

type variantDTO struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	SKU               string `json:"sku"`
	InventoryQuantity int64  `json:"inventory_quantity"`
	PriceSetID        string `json:"price_set_id"`
}

type productDTO struct {
	ID       string       `json:"id"`
	Title    string       `json:"title"`
	Handle   string       `json:"handle"`
	Status   string       `json:"status"`
	Variants []variantDTO `json:"variants"`
}

type productResponse struct {
	Product productDTO `json:"product"`
}

type productListResponse struct {
	Products []productDTO `json:"products"`
	Count    int          `json:"count"`
}

type variantResponse struct {
	Variant variantDTO `json:"variant"`
}

type priceRequest struct {
	Amount       int64  `json:"amount" validate:"gte=0"`
	CurrencyCode string `json:"currency_code" validate:"required,len=3"`
	RegionID     string `json:"region_id" validate:"required"`
}

type priceDTO struct {
	ID           string `json:"id"`
	Amount       int64  `json:"amount"`
	CurrencyCode string `json:"currency_code"`
	RegionID     string `json:"region_id"`
}

type priceResponse struct {
	Price priceDTO `json:"price"`
}

type priceListResponse struct {
	Prices []priceDTO `json:"prices"`
}

type regionDTO struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	CurrencyCode string `json:"currency_code"`
}

type regionListResponse struct {
	Regions []regionDTO `json:"regions"`
}

type customerRequest struct {
	Email     string         `json:"email" validate:"required,email"`
	FirstName string         `json:"first_name,omitempty" validate:"max=255"`
	LastName  *string        `json:"last_name,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type customerDTO struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	FirstName string  `json:"first_name"`
	LastName  *string `json:"last_name"`
}

type customerResponse struct {
	Customer customerDTO `json:"customer"`
}

type customerListResponse struct {
	Customers []customerDTO `json:"customers"`
}

// errorResponse is the error body returned by the admin API
type errorResponse struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (d categoryDTO) toDomain() *commerce.Category {
	return &commerce.Category{ID: d.ID, Name: d.Name, Handle: d.Handle, ParentID: d.ParentCategoryID}
}

func (d variantDTO) toDomain() commerce.Variant {
	return commerce.Variant{
		ID:                d.ID,
		Title:             d.Title,
		SKU:               d.SKU,
		InventoryQuantity: d.InventoryQuantity,
		PriceGroupID:      d.PriceSetID,
	}
}

func (d productDTO) toDomain() commerce.Product {
	p := commerce.Product{
		ID:       d.ID,
		Title:    d.Title,
		Handle:   d.Handle,
		Status:   commerce.ProductStatus(d.Status),
		Variants: make([]commerce.Variant, 0, len(d.Variants)),
	}
	for _, v := range d.Variants {
		p.Variants = append(p.Variants, v.toDomain())
	}
	return p
}

func (d priceDTO) toDomain() commerce.Price {
	return commerce.Price{ID: d.ID, Amount: d.Amount, CurrencyCode: d.CurrencyCode, RegionID: d.RegionID}
}

func (d customerDTO) toDomain() *commerce.Customer {
	return &commerce.Customer{ID: d.ID, Email: d.Email, FirstName: d.FirstName, LastName: d.LastName}
}
