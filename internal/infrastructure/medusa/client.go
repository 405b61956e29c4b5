// Package medusa implements the commerce platform against a Medusa admin API.
package medusa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/commerce/wcmigrate/internal/domain/commerce"
)

// maxResponseBytes bounds how much of a response body is read
const maxResponseBytes = 4 << 20

const duplicateErrorType = "duplicate_error"

// Client talks to the Medusa admin API.
type Client struct {
	config     Config
	httpClient *http.Client
	limiter    *rate.Limiter
	validate   *validator.Validate
	logger     *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the client logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger.Named("medusa")
	}
}

// NewClient creates a new admin API client
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	c := &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter:  rate.NewLimiter(limit, cfg.RateBurst),
		validate: newValidator(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Ensure Client implements commerce.Platform
var _ commerce.Platform = (*Client)(nil)

// CreateCategory creates a product category
func (c *Client) CreateCategory(ctx context.Context, in commerce.CategoryInput) (*commerce.Category, error) {
	const op = "create category"
	req := categoryRequest{
		Name:             in.Name,
		Handle:           in.Handle,
		Description:      in.Description,
		ParentCategoryID: in.ParentID,
		IsActive:         in.IsActive,
		Metadata:         in.Metadata,
	}

	var resp categoryResponse
	if err := c.do(ctx, op, http.MethodPost, "/admin/product-categories", nil, req, &resp); err != nil {
		return nil, err
	}
	return resp.ProductCategory.toDomain(), nil
}

// CreateProduct creates a product with its inline variants
func (c *Client) CreateProduct(ctx context.Context, in commerce.ProductInput) (*commerce.Product, error) {
	const op = "create product"
	req := productRequest{
		Title:       in.Title,
		Handle:      in.Handle,
		Description: in.Description,
		Status:      string(in.Status),
		Variants:    make([]variantRequest, 0, len(in.Variants)),
		Metadata:    in.Metadata,
	}
	for _, id := range in.CategoryIDs {
		req.Categories = append(req.Categories, idRef{ID: id})
	}
	for _, u := range in.Images {
		req.Images = append(req.Images, imageRef{URL: u})
	}
	for _, v := range in.Variants {
		req.Variants = append(req.Variants, toVariantRequest(v))
	}

	var resp productResponse
	if err := c.do(ctx, op, http.MethodPost, "/admin/products", nil, req, &resp); err != nil {
		return nil, err
	}
	p := resp.Product.toDomain()
	return &p, nil
}

// CreateVariant adds a variant to an existing product
func (c *Client) CreateVariant(ctx context.Context, productID string, in commerce.VariantInput) (*commerce.Variant, error) {
	const op = "create variant"
	if productID == "" {
		return nil, commerce.NewPlatformError(op, commerce.ErrInvalidInput, 0, "", "product id is required")
	}

	path := "/admin/products/" + url.PathEscape(productID) + "/variants"
	var resp variantResponse
	if err := c.do(ctx, op, http.MethodPost, path, nil, toVariantRequest(in), &resp); err != nil {
		return nil, err
	}
	v := resp.Variant.toDomain()
	return &v, nil
}

// CreatePrice attaches a region price to a variant's price set
func (c *Client) CreatePrice(ctx context.Context, in commerce.PriceInput) (*commerce.Price, error) {
	const op = "create price"
	if in.PriceGroupID == "" {
		return nil, commerce.NewPlatformError(op, commerce.ErrInvalidInput, 0, "", "price set id is required")
	}
	req := priceRequest{
		Amount:       in.Amount,
		CurrencyCode: in.CurrencyCode,
		RegionID:     in.RegionID,
	}

	path := "/admin/price-sets/" + url.PathEscape(in.PriceGroupID) + "/prices"
	var resp priceResponse
	if err := c.do(ctx, op, http.MethodPost, path, nil, req, &resp); err != nil {
		return nil, err
	}
	p := resp.Price.toDomain()
	return &p, nil
}

// ListRegions lists regions matching the filter. The admin API's name
// filter is exact, so names are matched here instead.
func (c *Client) ListRegions(ctx context.Context, filter commerce.RegionFilter) ([]commerce.Region, error) {
	var resp regionListResponse
	if err := c.do(ctx, "list regions", http.MethodGet, "/admin/regions", nil, nil, &resp); err != nil {
		return nil, err
	}

	regions := make([]commerce.Region, 0, len(resp.Regions))
	for _, r := range resp.Regions {
		if filter.Name != "" && !strings.EqualFold(r.Name, filter.Name) {
			continue
		}
		regions = append(regions, commerce.Region{ID: r.ID, Name: r.Name, CurrencyCode: r.CurrencyCode})
	}
	return regions, nil
}

// CreateCustomer creates a customer account
func (c *Client) CreateCustomer(ctx context.Context, in commerce.CustomerInput) (*commerce.Customer, error) {
	req := customerRequest{
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Metadata:  in.Metadata,
	}

	var resp customerResponse
	if err := c.do(ctx, "create customer", http.MethodPost, "/admin/customers", nil, req, &resp); err != nil {
		return nil, err
	}
	return resp.Customer.toDomain(), nil
}

// FindCustomerByEmail returns the customer registered with email.
// Emails are compared case-insensitively.
func (c *Client) FindCustomerByEmail(ctx context.Context, email string) (*commerce.Customer, error) {
	const op = "find customer"
	query := url.Values{}
	query.Set("email", email)

	var resp customerListResponse
	if err := c.do(ctx, op, http.MethodGet, "/admin/customers", query, nil, &resp); err != nil {
		return nil, err
	}
	for _, cust := range resp.Customers {
		if strings.EqualFold(cust.Email, email) {
			return cust.toDomain(), nil
		}
	}
	return nil, commerce.NewPlatformError(op, commerce.ErrNotFound, 0, "", "no customer with email "+email)
}

// ListProducts lists products with their variants
func (c *Client) ListProducts(ctx context.Context, filter commerce.ProductListFilter) ([]commerce.Product, error) {
	query := url.Values{}
	query.Set("fields", "*variants")
	if filter.Limit > 0 {
		query.Set("limit", strconv.Itoa(filter.Limit))
	}

	var resp productListResponse
	if err := c.do(ctx, "list products", http.MethodGet, "/admin/products", query, nil, &resp); err != nil {
		return nil, err
	}

	products := make([]commerce.Product, 0, len(resp.Products))
	for _, p := range resp.Products {
		products = append(products, p.toDomain())
	}
	return products, nil
}

// ListPrices lists the prices of a price set
func (c *Client) ListPrices(ctx context.Context, priceGroupID string) ([]commerce.Price, error) {
	const op = "list prices"
	if priceGroupID == "" {
		return nil, commerce.NewPlatformError(op, commerce.ErrInvalidInput, 0, "", "price set id is required")
	}

	path := "/admin/price-sets/" + url.PathEscape(priceGroupID) + "/prices"
	var resp priceListResponse
	if err := c.do(ctx, op, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}

	prices := make([]commerce.Price, 0, len(resp.Prices))
	for _, p := range resp.Prices {
		prices = append(prices, p.toDomain())
	}
	return prices, nil
}

func toVariantRequest(v commerce.VariantInput) variantRequest {
	return variantRequest{
		Title:             v.Title,
		SKU:               v.SKU,
		ManageInventory:   v.ManageInventory,
		InventoryQuantity: v.InventoryQuantity,
		Metadata:          v.Metadata,
	}
}

// do validates and sends a JSON request, decoding a successful response into out
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		if err := c.validate.Struct(body); err != nil {
			return commerce.NewPlatformError(op, commerce.ErrInvalidInput, 0, "", formatValidationErrors(err))
		}
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("medusa: %s: marshal request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return &commerce.PlatformError{Op: op, Kind: commerce.ErrUnavailable, Err: err}
	}

	endpoint := c.config.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("medusa: %s: build request: %w", op, err)
	}
	req.SetBasicAuth(c.config.APIKey, "")
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &commerce.PlatformError{Op: op, Kind: commerce.ErrUnavailable, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &commerce.PlatformError{Op: op, Kind: commerce.ErrUnavailable, Status: resp.StatusCode, Err: err}
	}

	c.logger.Debug("admin API call",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyError(op, resp.StatusCode, respBody)
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &commerce.PlatformError{
			Op:      op,
			Kind:    commerce.ErrRequestFailed,
			Status:  resp.StatusCode,
			Message: "decode response",
			Err:     err,
		}
	}
	return nil
}

// classifyError maps an error response onto a platform failure kind.
// A duplicate_error body is a conflict whatever the status.
func classifyError(op string, status int, body []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(body, &apiErr); err != nil {
		apiErr.Message = strings.TrimSpace(string(body))
	}

	kind := commerce.ErrRequestFailed
	switch {
	case status == http.StatusConflict || apiErr.Type == duplicateErrorType:
		kind = commerce.ErrConflictAlreadyExists
	case status == http.StatusNotFound || apiErr.Type == "not_found":
		kind = commerce.ErrNotFound
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity || apiErr.Type == "invalid_data":
		kind = commerce.ErrInvalidInput
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = commerce.ErrUnauthorized
	case status == http.StatusTooManyRequests:
		kind = commerce.ErrRateLimited
	case status >= http.StatusInternalServerError:
		kind = commerce.ErrUnavailable
	}
	return commerce.NewPlatformError(op, kind, status, apiErr.Type, apiErr.Message)
}
