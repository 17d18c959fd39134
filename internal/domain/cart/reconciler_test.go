package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/snapshop/internal/catalog"
	"github.com/example/snapshop/internal/docstore"
	"github.com/example/snapshop/internal/docstore/mocks"
	"github.com/example/snapshop/internal/domain/status"
)

func newTestReconciler() (*Reconciler, *mocks.MockDocumentStore) {
	store := mocks.NewMockDocumentStore()
	// Long delay keeps flashed messages readable within a test.
	board := status.NewBoard(time.Hour)
	return NewReconciler(store, "user-123", board), store
}

func testProduct(id int, title string, price string) catalog.Product {
	return catalog.Product{
		ID:    id,
		Title: title,
		Price: decimal.RequireFromString(price),
		Image: "img.png",
	}
}

// persistedLines decodes the cart document the reconciler last wrote.
func persistedLines(t *testing.T, store *mocks.MockDocumentStore) []Line {
	t.Helper()
	raw, ok := store.Raw(docstore.Carts, "user-123")
	require.True(t, ok, "expected a persisted cart document")
	lines, err := decodeCartDocument(raw)
	require.NoError(t, err)
	return lines
}

// ============================================
// Load Tests
// ============================================

func TestReconciler_Load_MissingDocument(t *testing.T) {
	rec, store := newTestReconciler()
	ctx := context.Background()

	err := rec.Load(ctx)

	require.NoError(t, err)
	assert.Empty(t, rec.Lines())
	assert.True(t, rec.Total().IsZero())
	assert.Len(t, store.GetCalls, 1)
	assert.Equal(t, docstore.Carts, store.GetCalls[0].Collection)
	assert.Equal(t, "user-123", store.GetCalls[0].ID)
}

func TestReconciler_Load_ExistingDocument(t *testing.T) {
	rec, store := newTestReconciler()
	ctx := context.Background()

	lines := []Line{
		{ProductID: 1, Title: "Backpack", Price: decimal.RequireFromString("109.95"), Image: "a.png", Quantity: 2},
		{ProductID: 2, Title: "T-Shirt", Price: decimal.RequireFromString("22.30"), Image: "b.png", Quantity: 1},
	}
	require.NoError(t, store.Set(ctx, docstore.Carts, "user-123", "user-123", newCartDocument("user-123", lines)))

	err := rec.Load(ctx)

	require.NoError(t, err)
	assert.Equal(t, lines, rec.Lines())
	assert.True(t, rec.Total().Equal(decimal.RequireFromString("242.20")), "got total %s", rec.Total())
	assert.Equal(t, 2, rec.Count())
}

func TestReconciler_Load_MalformedDocument(t *testing.T) {
	rec, store := newTestReconciler()
	ctx := context.Background()

	store.SeedRaw(docstore.Carts, "user-123", "user-123",
		[]byte(`{"userId":"user-123","items":[{"productId":1,"title":"x"}]}`))

	err := rec.Load(ctx)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedDocument)
	assert.Empty(t, rec.Lines())
}

func TestReconciler_Load_QuantityBelowOneRejected(t *testing.T) {
	rec, store := newTestReconciler()
	ctx := context.Background()

	store.SeedRaw(docstore.Carts, "user-123", "user-123",
		[]byte(`{"userId":"user-123","items":[{"productId":1,"title":"x","price":"1.00","image":"a","quantity":0}]}`))

	err := rec.Load(ctx)

	assert.ErrorIs(t, err, ErrMalformedDocument)
}

func TestReconciler_Load_StoreError(t *testing.T) {
	rec, store := newTestReconciler()
	ctx := context.Background()

	store.GetErr = errors.New("connection refused")

	err := rec.Load(ctx)

	require.Error(t, err)
	assert.Empty(t, rec.Lines())
	assert.False(t, rec.Loading())
}

// ============================================
// AddToCart Tests
// ============================================

func TestReconciler_AddToCart_NewProduct(t *testing.T) {
	rec, store := newTestReconciler()
	ctx := context.Background()

	err := rec.AddToCart(ctx, testProduct(1, "Backpack", "109.95"))

	require.NoError(t, err)
	lines := rec.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 1, lines[0].ProductID)
	assert.Equal(t, 1, lines[0].Quantity)
	assert.Equal(t, "Added to cart", rec.Status().Message())

	persisted := persistedLines(t, store)
	assert.Equal(t, lines, persisted)
}

func TestReconciler_AddToCart_ExistingProductIncrements(t *testing.T) {
	rec, _ := newTestReconciler()
	ctx := context.Background()

	require.NoError(t, rec.AddToCart(ctx, testProduct(1, "Backpack", "109.95")))
	require.NoError(t, rec.AddToCart(ctx, testProduct(1, "Backpack", "109.95")))

	lines := rec.Lines()
	require.Len(t, lines, 1, "adding the same product twice must not create a duplicate line")
	assert.Equal(t, 2, lines[0].Quantity)
	assert.True(t, rec.Total().Equal(decimal.RequireFromString("219.90")))
}

func TestReconciler_AddToCart_MergesWithRemoteDocument(t *testing.T) {
	rec, store := newTestReconciler()
	ctx := context.Background()

	// Another session wrote a cart this reconciler has never loaded.
	remote := []Line{{ProductID: 7, Title: "Monitor", Price: decimal.RequireFromString("599.00"), Image: "m.png", Quantity: 1}}
	require.NoError(t, store.Set(ctx, docstore.Carts, "user-123", "user-123", newCartDocument("user-123", remote)))

	err := rec.AddToCart(ctx, testProduct(1, "Backpack", "109.95"))

	require.NoError(t, err)
	lines := rec.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, 7, lines[0].ProductID)
	assert.Equal(t, 1, lines[1].ProductID)
}

func TestReconciler_AddToCart_WriteFailureLeavesCacheUntouched(t *testing.T) {
	rec, store := newTestReconciler()
	ctx := context.Background()

	require.NoError(t, rec.AddToCart(ctx, testProduct(1, "Backpack", "109.95")))
	store.SetErr = errors.New("write timeout")

	err := rec.AddToCart(ctx, testProduct(2, "T-Shirt", "22.30"))

	require.Error(t, err)
	lines := rec.Lines()
	require.Len(t, lines, 1, "failed add must not change the in-memory cart")
	assert.Equal(t, 1, lines[0].ProductID)
	assert.Contains(t, rec.Status().Message(), "Failed to add to cart")
}

func TestReconciler_AddToCart_ReadFailure(t *testing.T) {
	rec, store := newTestReconciler()
	ctx := context.Background()

	store.GetErr = errors.New("connection refused")

	err := rec.AddToCart(ctx, testProduct(1, "Backpack", "109.95"))

	require.Error(t, err)
	assert.Empty(t, rec.Lines())
	assert.Empty(t, store.SetCalls)
	assert.Contains(t, rec.Status().Message(), "Failed to add to cart")
}

// ============================================
// UpdateQuantity Tests
// ============================================

func TestReconciler_UpdateQuantity_Increment(t *testing.T) {
	rec, _ := newTestReconciler()
	ctx := context.Background()

	require.NoError(t, rec.AddToCart(ctx, testProduct(1, "Backpack", "109.95")))

	err := rec.UpdateQuantity(ctx, 1, true)

	require.NoError(t, err)
	assert.Equal(t, 2, rec.Lines()[0].Quantity)
	assert.True(t, rec.Total().Equal(decimal.RequireFromString("219.90")))
}

func TestReconciler_UpdateQuantity_Decrement(t *testing.T) {
	rec, _ := newTestReconciler()
	ctx := context.Background()

	require.NoError(t, rec.AddToCart(ctx, testProduct(1, "Backpack", "109.95")))
	require.NoError(t, rec.UpdateQuantity(ctx, 1, true))

	err := rec.UpdateQuantity(ctx, 1, false)

	require.NoError(t, err)
	assert.Equal(t, 1, rec.Lines()[0].Quantity)
}

func TestReconciler_UpdateQuantity_DecrementAtOneRemovesLine(t *testing.T) {
	rec, store := newTestReconciler()
	ctx := context.Background()

	require.NoError(t, rec.AddToCart(ctx, testProduct(1, "Backpack", "109.95")))

	err := rec.UpdateQuantity(ctx, 1, false)

	require.NoError(t, err)
	assert.Empty(t, rec.Lines())
	assert.True(t, rec.Total().IsZero())
	assert.Empty(t, persistedLines(t, store))
}

func TestReconciler_UpdateQuantity_AbsentProductIsNoOp(t *testing.T) {
	rec, store := newTestReconciler()
	ctx := context.Background()

	err := rec.UpdateQuantity(ctx, 42, false)

	require.NoError(t, err)
	assert.Empty(t, store.SetCalls, "a no-op must not write")
}

func TestReconciler_UpdateQuantity_WriteFailureKeepsMemoryAuthoritative(t *testing.T) {
	rec, store := newTestReconciler()
	ctx := context.Background()

	require.NoError(t, rec.AddToCart(ctx, testProduct(1, "Backpack", "109.95")))
	store.SetErr = errors.New("write timeout")

	err := rec.UpdateQuantity(ctx, 1, true)

	require.Error(t, err)
	assert.Equal(t, 2, rec.Lines()[0].Quantity, "in-memory cart stays authoritative after a failed write")
	assert.Contains(t, rec.Status().Message(), "Failed to update cart")
}

// ============================================
// RemoveItem / Clear Tests
// ============================================

func TestReconciler_RemoveItem(t *testing.T) {
	rec, store := newTestReconciler()
	ctx := context.Background()

	require.NoError(t, rec.AddToCart(ctx, testProduct(1, "Backpack", "109.95")))
	require.NoError(t, rec.AddToCart(ctx, testProduct(2, "T-Shirt", "22.30")))

	err := rec.RemoveItem(ctx, 1)

	require.NoError(t, err)
	lines := rec.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].ProductID)
	assert.True(t, rec.Total().Equal(decimal.RequireFromString("22.30")))
	assert.Len(t, persistedLines(t, store), 1)
}

func TestReconciler_RemoveItem_AbsentProductIsNoOp(t *testing.T) {
	rec, store := newTestReconciler()
	ctx := context.Background()

	err := rec.RemoveItem(ctx, 42)

	require.NoError(t, err)
	assert.Empty(t, store.SetCalls)
}

func TestReconciler_Clear(t *testing.T) {
	rec, store := newTestReconciler()
	ctx := context.Background()

	require.NoError(t, rec.AddToCart(ctx, testProduct(1, "Backpack", "109.95")))

	err := rec.Clear(ctx)

	require.NoError(t, err)
	assert.Empty(t, rec.Lines())
	assert.True(t, rec.Total().IsZero())
	assert.Empty(t, persistedLines(t, store))
}

// ============================================
// Observation Tests
// ============================================

func TestReconciler_Subscribe_NotifiedOnMutation(t *testing.T) {
	rec, _ := newTestReconciler()
	ctx := context.Background()

	notified := 0
	rec.Subscribe(func() { notified++ })

	require.NoError(t, rec.AddToCart(ctx, testProduct(1, "Backpack", "109.95")))

	assert.Equal(t, 1, notified)
}

func TestReconciler_Subscribe_NotNotifiedOnNoOp(t *testing.T) {
	rec, _ := newTestReconciler()
	ctx := context.Background()

	notified := 0
	rec.Subscribe(func() { notified++ })

	require.NoError(t, rec.UpdateQuantity(ctx, 42, true))

	assert.Equal(t, 0, notified)
}

func TestReconciler_Lines_ReturnsCopy(t *testing.T) {
	rec, _ := newTestReconciler()
	ctx := context.Background()

	require.NoError(t, rec.AddToCart(ctx, testProduct(1, "Backpack", "109.95")))

	lines := rec.Lines()
	lines[0].Quantity = 99

	assert.Equal(t, 1, rec.Lines()[0].Quantity)
}
