package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productsJSON = `[
	{"id":1,"title":"Backpack","price":109.95,"description":"Fits laptops","category":"men's clothing","image":"a.png","rating":{"rate":3.9,"count":120}},
	{"id":2,"title":"T-Shirt","price":22.3,"description":"Slim fit","category":"men's clothing","image":"b.png","rating":{"rate":4.1,"count":259}}
]`

// ============================================
// ListProducts Tests
// ============================================

func TestHTTPClient_ListProducts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products", r.URL.Path)
		w.Write([]byte(productsJSON))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	products, err := client.ListProducts(context.Background())

	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Backpack", products[0].Title)
	assert.Equal(t, "109.95", products[0].Price.String())
	assert.Equal(t, 120, products[0].Rating.Count)
}

func TestHTTPClient_ListProducts_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	_, err := client.ListProducts(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetchFailed)
}

func TestHTTPClient_ListProducts_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	_, err := client.ListProducts(context.Background())

	assert.ErrorIs(t, err, ErrFetchFailed)
}

func TestHTTPClient_ListProducts_ConnectionRefused(t *testing.T) {
	client := NewHTTPClient("http://127.0.0.1:1")
	_, err := client.ListProducts(context.Background())

	assert.ErrorIs(t, err, ErrFetchFailed)
}

// ============================================
// ListCategories Tests
// ============================================

func TestHTTPClient_ListCategories(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/categories", r.URL.Path)
		w.Write([]byte(`["electronics","jewelery"]`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	categories, err := client.ListCategories(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"electronics", "jewelery"}, categories)
}

// ============================================
// ListProductsByCategory Tests
// ============================================

func TestHTTPClient_ListProductsByCategory_EscapesPath(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Write([]byte(productsJSON))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	products, err := client.ListProductsByCategory(context.Background(), "men's clothing")

	require.NoError(t, err)
	assert.Len(t, products, 2)
	assert.Equal(t, "/products/category/men's%20clothing", gotPath)
}
