package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/snapshop/internal/docstore"
	"github.com/example/snapshop/internal/docstore/mocks"
	"github.com/example/snapshop/internal/domain/cart"
)

// fakeCart is a CartSource with a fixed snapshot.
type fakeCart struct {
	lines    []cart.Line
	cleared  bool
	clearErr error
}

func (f *fakeCart) Lines() []cart.Line { return f.lines }

func (f *fakeCart) Clear(ctx context.Context) error {
	if f.clearErr != nil {
		return f.clearErr
	}
	f.cleared = true
	f.lines = nil
	return nil
}

func newTestAssembler(lines []cart.Line) (*Assembler, *mocks.MockDocumentStore, *fakeCart) {
	store := mocks.NewMockDocumentStore()
	source := &fakeCart{lines: lines}
	a := NewAssembler(store, source, "user-123")
	a.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	a.newID = func() string { return "order-1" }
	return a, store, source
}

func cartLine(id int, price string, qty int) cart.Line {
	return cart.Line{
		ProductID: id,
		Title:     "item",
		Price:     decimal.RequireFromString(price),
		Image:     "img.png",
		Quantity:  qty,
	}
}

// ============================================
// PlaceOrder Tests
// ============================================

func TestAssembler_PlaceOrder_Success(t *testing.T) {
	a, store, source := newTestAssembler([]cart.Line{
		cartLine(1, "5.00", 2),
		cartLine(2, "10.00", 1),
	})
	ctx := context.Background()

	o, err := a.PlaceOrder(ctx, "1 Main St", nil)

	require.NoError(t, err)
	require.NotNil(t, o)
	assert.Equal(t, "order-1", o.OrderID)
	assert.Equal(t, "user-123", o.UserID)
	assert.Equal(t, StatusPlaced, o.Status)
	assert.Equal(t, "20.00", o.TotalAmount.StringFixed(2))
	assert.Len(t, o.Items, 2)
	assert.True(t, source.cleared, "cart must be cleared after placement")

	require.Len(t, store.SetCalls, 1)
	assert.Equal(t, docstore.Orders, store.SetCalls[0].Collection)
	assert.Equal(t, "order-1", store.SetCalls[0].ID)
	assert.Equal(t, "user-123", store.SetCalls[0].Owner)
}

func TestAssembler_PlaceOrder_BlankAddress(t *testing.T) {
	a, store, source := newTestAssembler([]cart.Line{cartLine(1, "5.00", 1)})
	ctx := context.Background()

	o, err := a.PlaceOrder(ctx, "", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBlankAddress)
	assert.Nil(t, o)
	assert.Empty(t, store.SetCalls, "validation must run before any store access")
	assert.False(t, source.cleared)
}

func TestAssembler_PlaceOrder_WhitespaceAddress(t *testing.T) {
	a, _, _ := newTestAssembler([]cart.Line{cartLine(1, "5.00", 1)})
	ctx := context.Background()

	_, err := a.PlaceOrder(ctx, "   \t  ", nil)

	assert.ErrorIs(t, err, ErrBlankAddress)
}

func TestAssembler_PlaceOrder_EmptyCart(t *testing.T) {
	a, store, _ := newTestAssembler(nil)
	ctx := context.Background()

	o, err := a.PlaceOrder(ctx, "1 Main St", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Nil(t, o)
	assert.Empty(t, store.SetCalls)
}

func TestAssembler_PlaceOrder_StoreFailure(t *testing.T) {
	a, store, source := newTestAssembler([]cart.Line{cartLine(1, "5.00", 1)})
	ctx := context.Background()

	store.SetErr = errors.New("write timeout")

	o, err := a.PlaceOrder(ctx, "1 Main St", nil)

	require.Error(t, err)
	assert.Nil(t, o)
	assert.False(t, source.cleared, "cart must survive a failed placement")
}

func TestAssembler_PlaceOrder_ClearFailureIsNotFatal(t *testing.T) {
	a, _, source := newTestAssembler([]cart.Line{cartLine(1, "5.00", 1)})
	ctx := context.Background()

	source.clearErr = errors.New("write timeout")

	o, err := a.PlaceOrder(ctx, "1 Main St", nil)

	require.NoError(t, err, "the order is placed even when the clear fails")
	assert.NotNil(t, o)
}

func TestAssembler_PlaceOrder_Callback(t *testing.T) {
	a, _, _ := newTestAssembler([]cart.Line{cartLine(1, "5.00", 1)})
	ctx := context.Background()

	var placed *Order
	_, err := a.PlaceOrder(ctx, "1 Main St", func(o Order) { placed = &o })

	require.NoError(t, err)
	require.NotNil(t, placed)
	assert.Equal(t, "order-1", placed.OrderID)
}

func TestAssembler_PlaceOrder_TotalRoundedToCents(t *testing.T) {
	a, _, _ := newTestAssembler([]cart.Line{cartLine(1, "3.333", 3)})
	ctx := context.Background()

	o, err := a.PlaceOrder(ctx, "1 Main St", nil)

	require.NoError(t, err)
	assert.Equal(t, "10.00", o.TotalAmount.StringFixed(2))
}

// ============================================
// LoadOrders Tests
// ============================================

func TestAssembler_LoadOrders_NewestFirst(t *testing.T) {
	a, store, _ := newTestAssembler(nil)
	ctx := context.Background()

	older := Order{
		OrderID: "order-a", UserID: "user-123",
		TotalAmount: decimal.RequireFromString("5.00"),
		OrderDate:   time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		Status:      StatusDelivered,
	}
	newer := Order{
		OrderID: "order-b", UserID: "user-123",
		TotalAmount: decimal.RequireFromString("9.00"),
		OrderDate:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Status:      StatusPlaced,
	}
	require.NoError(t, store.Set(ctx, docstore.Orders, older.OrderID, "user-123", older))
	require.NoError(t, store.Set(ctx, docstore.Orders, newer.OrderID, "user-123", newer))

	orders, err := a.LoadOrders(ctx, "user-123")

	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "order-b", orders[0].OrderID)
	assert.Equal(t, "order-a", orders[1].OrderID)
}

func TestAssembler_LoadOrders_SkipsMalformedDocuments(t *testing.T) {
	a, store, _ := newTestAssembler(nil)
	ctx := context.Background()

	good := Order{
		OrderID: "order-a", UserID: "user-123",
		TotalAmount: decimal.RequireFromString("5.00"),
		OrderDate:   time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		Status:      StatusPlaced,
	}
	require.NoError(t, store.Set(ctx, docstore.Orders, good.OrderID, "user-123", good))
	store.SeedRaw(docstore.Orders, "order-bad", "user-123", []byte(`{"orderId":"order-bad"}`))

	orders, err := a.LoadOrders(ctx, "user-123")

	require.NoError(t, err, "a single bad document must not fail the listing")
	require.Len(t, orders, 1)
	assert.Equal(t, "order-a", orders[0].OrderID)
}

func TestAssembler_LoadOrders_UnknownStatusSkipped(t *testing.T) {
	a, store, _ := newTestAssembler(nil)
	ctx := context.Background()

	store.SeedRaw(docstore.Orders, "order-x", "user-123", []byte(
		`{"orderId":"order-x","userId":"user-123","items":[],"totalAmount":"5.00","orderDate":"2025-05-01T00:00:00Z","status":"TELEPORTED"}`))

	orders, err := a.LoadOrders(ctx, "user-123")

	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestAssembler_LoadOrders_QueryFailure(t *testing.T) {
	a, store, _ := newTestAssembler(nil)
	ctx := context.Background()

	store.QueryErr = errors.New("connection refused")

	orders, err := a.LoadOrders(ctx, "user-123")

	require.Error(t, err)
	assert.Nil(t, orders)
}

func TestAssembler_LoadOrders_OnlyOwnOrders(t *testing.T) {
	a, store, _ := newTestAssembler(nil)
	ctx := context.Background()

	mine := Order{
		OrderID: "order-a", UserID: "user-123",
		TotalAmount: decimal.RequireFromString("5.00"),
		OrderDate:   time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		Status:      StatusPlaced,
	}
	theirs := Order{
		OrderID: "order-b", UserID: "user-456",
		TotalAmount: decimal.RequireFromString("9.00"),
		OrderDate:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Status:      StatusPlaced,
	}
	require.NoError(t, store.Set(ctx, docstore.Orders, mine.OrderID, "user-123", mine))
	require.NoError(t, store.Set(ctx, docstore.Orders, theirs.OrderID, "user-456", theirs))

	orders, err := a.LoadOrders(ctx, "user-123")

	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "order-a", orders[0].OrderID)
}
