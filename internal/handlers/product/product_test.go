package product

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vastra_back_end/internal/models"
	"vastra_back_end/internal/pricing"
	"vastra_back_end/internal/search"
	"vastra_back_end/internal/services/catalog"
	"vastra_back_end/internal/storage"
	"vastra_back_end/internal/store/memstore"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(t *testing.T) (*gin.Engine, *models.Product) {
	t.Helper()
	products := memstore.NewProducts()
	// Index et stockage non configurés : la recherche passe par le repli.
	svc := catalog.New(products, search.NewIndex(nil), storage.NewImageStore(nil, "b", false), pricing.NewPolicy(999, 79), nil)

	p := &models.Product{
		Slug: "linen-shirt", Name: "Linen Shirt", Price: 1500, Category: models.CategoryMen,
		Sizes: []models.SizeStock{{Size: models.SizeL, Stock: 1}}, IsActive: true,
	}
	require.NoError(t, products.Create(context.Background(), p))
	require.NoError(t, products.Create(context.Background(), &models.Product{
		Slug: "old-tee", Name: "Old Tee", Price: 200, Category: models.CategoryMen,
	}))

	h := &Handler{Catalog: svc}
	r := gin.New()
	r.GET("/api/products", h.List)
	r.GET("/api/products/search", h.Search)
	r.GET("/api/products/:slug", h.GetBySlug)
	r.POST("/api/cart/quote", h.Quote)
	return r, p
}

func get(r *gin.Engine, path string) (*httptest.ResponseRecorder, map[string]any) {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func TestListOnlyActive(t *testing.T) {
	r, _ := newRouter(t)

	w, body := get(r, "/api/products?category=men&sort=price_asc")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["products"], 1)
	assert.Equal(t, 1.0, body["total"])

	w, body = get(r, "/api/products?limit=abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "limit", body["field"])
}

func TestGetBySlug(t *testing.T) {
	r, p := newRouter(t)

	w, body := get(r, "/api/products/linen-shirt")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, p.ID, body["product"].(map[string]any)["id"])

	w, _ = get(r, "/api/products/old-tee")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSearchFallsBack(t *testing.T) {
	r, _ := newRouter(t)

	w, body := get(r, "/api/products/search?q=linen")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["products"], 1)

	w, _ = get(r, "/api/products/search")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQuote(t *testing.T) {
	r, p := newRouter(t)
	payload, err := json.Marshal(map[string]any{
		"items": []map[string]any{{"productId": p.ID, "size": "L", "quantity": 2}},
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/cart/quote", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var q models.CartQuote
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &q))
	require.Len(t, q.Items, 1)
	assert.Equal(t, 3000.0, q.ItemsTotal)
	assert.Equal(t, 3000.0, q.TotalAmount)
	require.NotNil(t, q.Items[0].Available)
	assert.False(t, *q.Items[0].Available)
}
