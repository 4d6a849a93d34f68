package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vastra_back_end/internal/models"
)

func newTestIndex(t *testing.T, handler http.HandlerFunc) *Index {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewIndex(es)
}

func TestSearchReturnsIDsInOrder(t *testing.T) {
	var sent map[string]any
	ix := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/products/_search"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &sent)
		_, _ = w.Write([]byte(`{"hits":{"hits":[{"_id":"p2"},{"_id":"p1"}]}}`))
	})

	ids, err := ix.Search(context.Background(), "linen kurta", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"p2", "p1"}, ids)
	assert.EqualValues(t, 10, sent["size"])
}

func TestSearchErrorMeansUnavailable(t *testing.T) {
	ix := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"index_not_found_exception"}`))
	})

	_, err := ix.Search(context.Background(), "kurta", 10)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNilIndexIsUnavailable(t *testing.T) {
	var ix *Index
	_, err := ix.Search(context.Background(), "x", 1)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, ix.IndexProduct(context.Background(), models.Product{}), ErrUnavailable)
}

func TestToDocumentUsesEffectivePrice(t *testing.T) {
	sale := 799.0
	doc := toDocument(models.Product{
		Name:          "Kurta",
		Price:         999,
		DiscountPrice: &sale,
		Colors:        []models.Color{{Name: "Indigo", Hex: "#3F51B5"}},
	})
	assert.Equal(t, 799.0, doc.Price)
	assert.Equal(t, []string{"Indigo"}, doc.Colors)
}
