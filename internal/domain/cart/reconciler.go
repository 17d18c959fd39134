package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/example/snapshop/internal/catalog"
	"github.com/example/snapshop/internal/docstore"
	"github.com/example/snapshop/internal/domain/status"
)

// Reconciler owns the authoritative in-memory cart for one user session and
// keeps the remote document in sync with full-document overwrites. Mutations
// serialize on one mutex, so a second operation issued while a remote write
// is in flight queues behind it and composes against the latest state.
type Reconciler struct {
	userID string
	store  docstore.DocumentStore
	status *status.Board

	mu        sync.Mutex
	lines     []Line
	total     decimal.Decimal
	loading   bool
	listeners []func()
}

func NewReconciler(store docstore.DocumentStore, userID string, board *status.Board) *Reconciler {
	if board == nil {
		board = status.NewBoard(status.DefaultClearDelay)
	}
	return &Reconciler{
		userID: userID,
		store:  store,
		status: board,
		total:  decimal.Zero,
	}
}

// Load reconstructs the in-memory cart from the remote document. A missing
// document means an empty cart; a malformed one aborts the load and leaves
// the cache empty.
func (r *Reconciler) Load(ctx context.Context) error {
	r.setLoading(true)
	defer r.setLoading(false)

	raw, ok, err := r.store.Get(ctx, docstore.Carts, r.userID)
	if err != nil {
		return fmt.Errorf("failed to load cart: %w", err)
	}

	var lines []Line
	if ok {
		lines, err = decodeCartDocument(raw)
		if err != nil {
			return err
		}
	}

	r.mu.Lock()
	r.lines = lines
	r.total = sumLines(lines)
	r.mu.Unlock()
	r.notify()
	return nil
}

// AddToCart merges the product into the persisted cart and overwrites the
// whole document. The read-then-write has no compare-and-swap: a second
// session mutating the same user's cart concurrently can lose an update.
// That is an accepted limitation of the store as exposed here; write
// failures surface through the status board rather than being retried.
func (r *Reconciler) AddToCart(ctx context.Context, product catalog.Product) error {
	changed := false
	defer func() {
		if changed {
			r.notify()
		}
	}()

	r.mu.Lock()
	defer r.mu.Unlock()

	raw, ok, err := r.store.Get(ctx, docstore.Carts, r.userID)
	if err != nil {
		r.status.Set(fmt.Sprintf("Failed to add to cart: %v", err))
		return fmt.Errorf("failed to read cart: %w", err)
	}

	var lines []Line
	if ok {
		lines, err = decodeCartDocument(raw)
		if err != nil {
			r.status.Set(fmt.Sprintf("Failed to add to cart: %v", err))
			return err
		}
	}

	merged := make([]Line, len(lines))
	copy(merged, lines)

	found := false
	for i := range merged {
		if merged[i].ProductID == product.ID {
			merged[i].Quantity++
			found = true
			break
		}
	}
	if !found {
		merged = append(merged, Line{
			ProductID: product.ID,
			Title:     product.Title,
			Price:     product.Price,
			Image:     product.Image,
			Quantity:  1,
		})
	}

	if err := r.store.Set(ctx, docstore.Carts, r.userID, r.userID, newCartDocument(r.userID, merged)); err != nil {
		r.status.Set(fmt.Sprintf("Failed to add to cart: %v", err))
		return fmt.Errorf("failed to write cart: %w", err)
	}

	r.lines = merged
	r.total = sumLines(merged)
	r.status.Flash("Added to cart")
	changed = true
	return nil
}

// UpdateQuantity adjusts a line by one in the in-memory cart (no remote
// re-read) and persists the resulting view. A decrement at quantity 1
// removes the line; touching an absent line is a no-op.
func (r *Reconciler) UpdateQuantity(ctx context.Context, productID int, increment bool) error {
	changed := false
	defer func() {
		if changed {
			r.notify()
		}
	}()

	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(productID)
	if idx == -1 {
		return nil
	}

	updated := make([]Line, len(r.lines))
	copy(updated, r.lines)

	if increment {
		updated[idx].Quantity++
	} else {
		updated[idx].Quantity--
		if updated[idx].Quantity < 1 {
			updated = append(updated[:idx], updated[idx+1:]...)
		}
	}

	changed = true
	return r.commit(ctx, updated, "Failed to update cart")
}

// RemoveItem deletes the line unconditionally; absent lines are a no-op.
func (r *Reconciler) RemoveItem(ctx context.Context, productID int) error {
	changed := false
	defer func() {
		if changed {
			r.notify()
		}
	}()

	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(productID)
	if idx == -1 {
		return nil
	}

	updated := make([]Line, len(r.lines))
	copy(updated, r.lines)
	updated = append(updated[:idx], updated[idx+1:]...)

	changed = true
	return r.commit(ctx, updated, "Failed to remove item")
}

// Clear writes an empty line list. Called after a successful order placement.
func (r *Reconciler) Clear(ctx context.Context) error {
	defer r.notify()

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.commit(ctx, []Line{}, "Failed to clear cart")
}

// commit adopts the updated view in memory and overwrites the remote
// document. The in-memory cart stays authoritative even when the write
// fails; the failure is surfaced, not rolled back. Caller holds r.mu.
func (r *Reconciler) commit(ctx context.Context, updated []Line, failurePrefix string) error {
	r.lines = updated
	r.total = sumLines(updated)

	if err := r.store.Set(ctx, docstore.Carts, r.userID, r.userID, newCartDocument(r.userID, updated)); err != nil {
		r.status.Set(fmt.Sprintf("%s: %v", failurePrefix, err))
		return fmt.Errorf("failed to write cart: %w", err)
	}
	return nil
}

// indexOf returns the position of the line for productID. Caller holds r.mu.
func (r *Reconciler) indexOf(productID int) int {
	for i := range r.lines {
		if r.lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Lines returns the cart contents in insertion order.
func (r *Reconciler) Lines() []Line {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Line, len(r.lines))
	copy(out, r.lines)
	return out
}

// Total is the live computed total, the sum of price times quantity over
// all lines.
func (r *Reconciler) Total() decimal.Decimal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

// Count returns the number of distinct lines, which is what the badge shows.
func (r *Reconciler) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lines)
}

func (r *Reconciler) Loading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loading
}

// Status exposes the reconciler's transient status board.
func (r *Reconciler) Status() *status.Board {
	return r.status
}

// Subscribe registers a listener invoked after every committed state change.
func (r *Reconciler) Subscribe(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

func (r *Reconciler) setLoading(v bool) {
	r.mu.Lock()
	r.loading = v
	r.mu.Unlock()
	r.notify()
}

func (r *Reconciler) notify() {
	r.mu.Lock()
	listeners := make([]func(), len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

func sumLines(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}
