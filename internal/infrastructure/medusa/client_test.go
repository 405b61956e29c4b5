package medusa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/commerce/wcmigrate/internal/domain/commerce"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{BaseURL: server.URL, APIKey: "sk_test"},
		WithHTTPClient(server.Client()),
		WithLogger(zaptest.NewLogger(t)),
	)
	require.NoError(t, err)
	return client
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(body))
}

func TestClient_CreateCategory(t *testing.T) {
	parent := "pcat_root"
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/admin/product-categories", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "sk_test", user)
		assert.Empty(t, pass)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Phones", body["name"])
		assert.Equal(t, "phones", body["handle"])
		assert.Equal(t, parent, body["parent_category_id"])
		assert.Equal(t, true, body["is_active"])

		writeJSON(t, w, http.StatusOK, map[string]any{
			"product_category": map[string]any{
				"id": "pcat_1", "name": "Phones", "handle": "phones", "parent_category_id": parent,
			},
		})
	})

	cat, err := client.CreateCategory(context.Background(), commerce.CategoryInput{
		Name: "Phones", Handle: "phones", ParentID: &parent, IsActive: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "pcat_1", cat.ID)
	require.NotNil(t, cat.ParentID)
	assert.Equal(t, parent, *cat.ParentID)
}

func TestClient_CreateCategory_ValidationFailsBeforeRequest(t *testing.T) {
	called := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := client.CreateCategory(context.Background(), commerce.CategoryInput{})
	require.Error(t, err)
	assert.ErrorIs(t, err, commerce.ErrInvalidInput)
	assert.Contains(t, err.Error(), "name: is required")
	assert.False(t, called)
}

func TestClient_CreateProduct(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/products", r.URL.Path)

		var body productRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Mug", body.Title)
		assert.Equal(t, "published", body.Status)
		require.Len(t, body.Categories, 1)
		assert.Equal(t, "pcat_1", body.Categories[0].ID)
		require.Len(t, body.Images, 1)
		require.Len(t, body.Variants, 1)
		assert.Equal(t, "SKU-10", body.Variants[0].SKU)
		assert.Equal(t, int64(4), body.Variants[0].InventoryQuantity)

		writeJSON(t, w, http.StatusOK, map[string]any{
			"product": map[string]any{
				"id": "prod_1", "title": "Mug", "status": "published",
				"variants": []map[string]any{
					{"id": "variant_1", "title": "Default", "sku": "SKU-10", "inventory_quantity": 4, "price_set_id": "pset_1"},
				},
			},
		})
	})

	p, err := client.CreateProduct(context.Background(), commerce.ProductInput{
		Title:       "Mug",
		Status:      commerce.ProductStatusPublished,
		CategoryIDs: []string{"pcat_1"},
		Images:      []string{"https://shop.example/mug.jpg"},
		Variants: []commerce.VariantInput{
			{Title: "Default", SKU: "SKU-10", ManageInventory: true, InventoryQuantity: 4},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "prod_1", p.ID)
	require.Len(t, p.Variants, 1)
	assert.Equal(t, "pset_1", p.Variants[0].PriceGroupID)
}

func TestClient_CreateProduct_RejectsInvalidImageURL(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not be sent")
	})

	_, err := client.CreateProduct(context.Background(), commerce.ProductInput{
		Title:  "Mug",
		Status: commerce.ProductStatusPublished,
		Images: []string{"not a url"},
	})
	assert.ErrorIs(t, err, commerce.ErrInvalidInput)
}

func TestClient_CreateVariantAndPrice(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/admin/products/prod_1/variants":
			writeJSON(t, w, http.StatusOK, map[string]any{
				"variant": map[string]any{"id": "variant_2", "title": "Red", "sku": "SKU-11", "price_set_id": "pset_2"},
			})
		case "/admin/price-sets/pset_2/prices":
			var body priceRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, int64(12500), body.Amount)
			assert.Equal(t, "tnd", body.CurrencyCode)
			assert.Equal(t, "reg_1", body.RegionID)
			writeJSON(t, w, http.StatusOK, map[string]any{
				"price": map[string]any{"id": "price_1", "amount": 12500, "currency_code": "tnd", "region_id": "reg_1"},
			})
		default:
			http.NotFound(w, r)
		}
	})

	ctx := context.Background()
	v, err := client.CreateVariant(ctx, "prod_1", commerce.VariantInput{Title: "Red", SKU: "SKU-11"})
	require.NoError(t, err)
	assert.Equal(t, "pset_2", v.PriceGroupID)

	price, err := client.CreatePrice(ctx, commerce.PriceInput{
		PriceGroupID: v.PriceGroupID, Amount: 12500, CurrencyCode: "tnd", RegionID: "reg_1",
	})
	require.NoError(t, err)
	assert.Equal(t, "price_1", price.ID)
	assert.Equal(t, int64(12500), price.Amount)
}

func TestClient_CreatePrice_RequiresPriceSet(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not be sent")
	})

	_, err := client.CreatePrice(context.Background(), commerce.PriceInput{Amount: 1, CurrencyCode: "tnd", RegionID: "reg_1"})
	assert.ErrorIs(t, err, commerce.ErrInvalidInput)
}

func TestClient_CreateVariant_Backorder(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body variantRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, int64(-3), body.InventoryQuantity)
		writeJSON(t, w, http.StatusOK, map[string]any{
			"variant": map[string]any{"id": "variant_2", "title": "Blue", "inventory_quantity": -3, "price_set_id": "pset_2"},
		})
	})

	v, err := client.CreateVariant(context.Background(), "prod_1", commerce.VariantInput{
		Title: "Blue", ManageInventory: true, InventoryQuantity: -3,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(-3), v.InventoryQuantity)
}

func TestClient_ListRegions(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/regions", r.URL.Path)
		writeJSON(t, w, http.StatusOK, map[string]any{
			"regions": []map[string]any{
				{"id": "reg_1", "name": "Tunisia", "currency_code": "tnd"},
				{"id": "reg_2", "name": "Tunisia North", "currency_code": "tnd"},
			},
		})
	})

	for _, name := range []string{"Tunisia", "tunisia", "TUNISIA"} {
		regions, err := client.ListRegions(context.Background(), commerce.RegionFilter{Name: name})
		require.NoError(t, err, name)
		require.Len(t, regions, 1, name)
		assert.Equal(t, "reg_1", regions[0].ID)
	}

	all, err := client.ListRegions(context.Background(), commerce.RegionFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestClient_CreateCustomer_Conflict(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   map[string]any
	}{
		{
			name:   "409 status",
			status: http.StatusConflict,
			body:   map[string]any{"type": "conflict", "message": "exists"},
		},
		{
			name:   "duplicate_error body",
			status: http.StatusUnprocessableEntity,
			body:   map[string]any{"type": "duplicate_error", "message": "Customer with email already exists"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(t, w, tt.status, tt.body)
			})

			_, err := client.CreateCustomer(context.Background(), commerce.CustomerInput{Email: "a@example.com", FirstName: "A"})
			require.Error(t, err)
			assert.True(t, commerce.IsConflictAlreadyExists(err))

			var perr *commerce.PlatformError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.status, perr.Status)
		})
	}
}

func TestClient_CreateCustomer_InvalidEmail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not be sent")
	})

	_, err := client.CreateCustomer(context.Background(), commerce.CustomerInput{Email: "nope"})
	assert.ErrorIs(t, err, commerce.ErrInvalidInput)
	assert.Contains(t, err.Error(), "email: invalid email format")
}

func TestClient_FindCustomerByEmail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/customers", r.URL.Path)
		if r.URL.Query().Get("email") == "known@example.com" {
			writeJSON(t, w, http.StatusOK, map[string]any{
				"customers": []map[string]any{{"id": "cus_1", "email": "Known@Example.com", "first_name": "Known"}},
			})
			return
		}
		writeJSON(t, w, http.StatusOK, map[string]any{"customers": []any{}})
	})

	ctx := context.Background()
	cust, err := client.FindCustomerByEmail(ctx, "known@example.com")
	require.NoError(t, err)
	assert.Equal(t, "cus_1", cust.ID)

	_, err = client.FindCustomerByEmail(ctx, "ghost@example.com")
	assert.True(t, commerce.IsNotFound(err))
}

func TestClient_ListProductsAndPrices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/admin/products":
			assert.Equal(t, "5", r.URL.Query().Get("limit"))
			writeJSON(t, w, http.StatusOK, map[string]any{
				"products": []map[string]any{
					{"id": "prod_1", "title": "Mug", "variants": []map[string]any{{"id": "v1", "price_set_id": "pset_1"}}},
				},
				"count": 1,
			})
		case "/admin/price-sets/pset_1/prices":
			writeJSON(t, w, http.StatusOK, map[string]any{
				"prices": []map[string]any{{"id": "price_1", "amount": 12500, "currency_code": "tnd"}},
			})
		}
	})

	ctx := context.Background()
	products, err := client.ListProducts(ctx, commerce.ProductListFilter{Limit: 5})
	require.NoError(t, err)
	require.Len(t, products, 1)

	prices, err := client.ListPrices(ctx, products[0].Variants[0].PriceGroupID)
	require.NoError(t, err)
	require.Len(t, prices, 1)
	assert.Equal(t, int64(12500), prices[0].Amount)
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   error
	}{
		{"not found", http.StatusNotFound, `{"type":"not_found","message":"gone"}`, commerce.ErrNotFound},
		{"bad request", http.StatusBadRequest, `{"type":"invalid_data","message":"bad"}`, commerce.ErrInvalidInput},
		{"unauthorized", http.StatusUnauthorized, `{"message":"Unauthorized"}`, commerce.ErrUnauthorized},
		{"forbidden", http.StatusForbidden, ``, commerce.ErrUnauthorized},
		{"rate limited", http.StatusTooManyRequests, ``, commerce.ErrRateLimited},
		{"server error", http.StatusBadGateway, `upstream down`, commerce.ErrUnavailable},
		{"other", http.StatusTeapot, ``, commerce.ErrRequestFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyError("op", tt.status, []byte(tt.body))
			assert.ErrorIs(t, err, tt.kind)
			assert.False(t, commerce.IsConflictAlreadyExists(err))
		})
	}
}

func TestClient_TransportErrorIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, APIKey: "sk_test"})
	require.NoError(t, err)

	_, err = client.ListRegions(context.Background(), commerce.RegionFilter{})
	assert.ErrorIs(t, err, commerce.ErrUnavailable)
}
