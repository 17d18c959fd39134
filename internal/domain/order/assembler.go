package order

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/snapshop/internal/docstore"
	"github.com/example/snapshop/internal/domain/cart"
)

var (
	ErrBlankAddress = errors.New("delivery address is required")
	ErrEmptyCart    = errors.New("cart is empty")
)

// CartSource is the slice of the cart reconciler the assembler needs: the
// current snapshot and the post-order clear.
type CartSource interface {
	Lines() []cart.Line
	Clear(ctx context.Context) error
}

// Assembler turns the current cart snapshot into an immutable order record.
// It is callable directly so the identity gate in front of it can be
// bypassed in tests.
type Assembler struct {
	userID string
	store  docstore.DocumentStore
	cart   CartSource

	// injectable for tests
	now   func() time.Time
	newID func() string
}

func NewAssembler(store docstore.DocumentStore, cartSource CartSource, userID string) *Assembler {
	return &Assembler{
		userID: userID,
		store:  store,
		cart:   cartSource,
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
}

// PlaceOrder validates the address before touching the store, freezes the
// cart lines into order lines, persists the order and then clears the cart.
// onPlaced runs after a successful placement.
func (a *Assembler) PlaceOrder(ctx context.Context, deliveryAddress string, onPlaced func(Order)) (*Order, error) {
	if strings.TrimSpace(deliveryAddress) == "" {
		return nil, ErrBlankAddress
	}

	lines := a.cart.Lines()
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	items := make([]Line, 0, len(lines))
	total := decimal.Zero
	for _, l := range lines {
		items = append(items, Line{
			ProductID: l.ProductID,
			Title:     l.Title,
			Price:     l.Price,
			Image:     l.Image,
			Quantity:  l.Quantity,
		})
		total = total.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	o := Order{
		OrderID:     a.newID(),
		UserID:      a.userID,
		Items:       items,
		TotalAmount: total.Round(2),
		OrderDate:   a.now(),
		Status:      StatusPlaced,
	}

	if err := a.store.Set(ctx, docstore.Orders, o.OrderID, a.userID, o); err != nil {
		return nil, fmt.Errorf("failed to persist order: %w", err)
	}

	if err := a.cart.Clear(ctx); err != nil {
		// The order is already placed; a failed clear leaves a stale cart
		// document that the next Load or mutation overwrites.
		log.Printf("[Order] Failed to clear cart after order %s: %v", o.OrderID, err)
	}

	if onPlaced != nil {
		onPlaced(o)
	}
	return &o, nil
}

// LoadOrders returns the user's orders newest first. Individually malformed
// documents are skipped and logged, not fatal to the listing.
func (a *Assembler) LoadOrders(ctx context.Context, userID string) ([]Order, error) {
	docs, err := a.store.Query(ctx, docstore.Orders, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}

	orders := make([]Order, 0, len(docs))
	for _, raw := range docs {
		o, err := decodeOrderDocument(raw)
		if err != nil {
			log.Printf("[Order] Skipping malformed order document for user %s: %v", userID, err)
			continue
		}
		orders = append(orders, o)
	}

	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].OrderDate.After(orders[j].OrderDate)
	})
	return orders, nil
}
