package compare

import (
	"context"
	"fmt"
	"sync"

	"github.com/example/snapshop/internal/catalog"
	"github.com/example/snapshop/internal/docstore"
	"github.com/example/snapshop/internal/domain/status"
)

// Reconciler owns the in-memory comparison list for one user session. Like
// the cart, writes are full-document overwrites of the current view and the
// remote document is only read back on Load or before an add.
type Reconciler struct {
	userID string
	store  docstore.DocumentStore
	status *status.Board

	mu         sync.Mutex
	items      []Item
	categories []string
	selected   *string
	criteria   Criteria
	loading    bool
	listeners  []func()
}

func NewReconciler(store docstore.DocumentStore, userID string, board *status.Board) *Reconciler {
	if board == nil {
		board = status.NewBoard(status.DefaultClearDelay)
	}
	return &Reconciler{
		userID:   userID,
		store:    store,
		status:   board,
		criteria: BestValue,
	}
}

// Load fetches the comparison document, derives the distinct categories in
// document order and auto-selects the first one. The parse is all-or-nothing:
// a malformed document aborts the load and the previous in-memory list stays.
func (r *Reconciler) Load(ctx context.Context) error {
	r.setLoading(true)
	defer r.setLoading(false)

	raw, ok, err := r.store.Get(ctx, docstore.Comparisons, r.userID)
	if err != nil {
		return fmt.Errorf("failed to load comparison list: %w", err)
	}

	var items []Item
	if ok {
		items, err = decodeCompareDocument(raw)
		if err != nil {
			return err
		}
	}

	r.mu.Lock()
	r.items = items
	r.categories = distinctCategories(items)
	if len(r.categories) > 0 {
		first := r.categories[0]
		r.selected = &first
	} else {
		r.selected = nil
	}
	r.mu.Unlock()
	r.notify()
	return nil
}

// AddToCompare appends the product unless it is already listed, in which
// case nothing is written and a status message says so. Same read-then-write
// pattern and the same lost-update caveat as the cart.
func (r *Reconciler) AddToCompare(ctx context.Context, product catalog.Product) error {
	changed := false
	defer func() {
		if changed {
			r.notify()
		}
	}()

	r.mu.Lock()
	defer r.mu.Unlock()

	raw, ok, err := r.store.Get(ctx, docstore.Comparisons, r.userID)
	if err != nil {
		r.status.Set(fmt.Sprintf("Failed to add to comparison: %v", err))
		return fmt.Errorf("failed to read comparison list: %w", err)
	}

	var items []Item
	if ok {
		items, err = decodeCompareDocument(raw)
		if err != nil {
			r.status.Set(fmt.Sprintf("Failed to add to comparison: %v", err))
			return err
		}
	}

	for i := range items {
		if items[i].ProductID == product.ID {
			r.status.Flash("Item already in comparison list")
			return nil
		}
	}

	updated := make([]Item, len(items))
	copy(updated, items)
	updated = append(updated, Item{
		ProductID:   product.ID,
		Title:       product.Title,
		Price:       product.Price,
		Description: product.Description,
		Category:    product.Category,
		Image:       product.Image,
		Rating:      product.Rating,
	})

	if err := r.store.Set(ctx, docstore.Comparisons, r.userID, r.userID, newCompareDocument(r.userID, updated)); err != nil {
		r.status.Set(fmt.Sprintf("Failed to add to comparison: %v", err))
		return fmt.Errorf("failed to write comparison list: %w", err)
	}

	r.items = updated
	r.categories = distinctCategories(updated)
	r.status.Flash("Added to comparison")
	changed = true
	return nil
}

// RemoveFromComparison drops the item from the in-memory list and persists
// the remainder. Removing an absent product is a no-op.
func (r *Reconciler) RemoveFromComparison(ctx context.Context, productID int) error {
	changed := false
	defer func() {
		if changed {
			r.notify()
		}
	}()

	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i := range r.items {
		if r.items[i].ProductID == productID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil
	}

	updated := make([]Item, len(r.items))
	copy(updated, r.items)
	updated = append(updated[:idx], updated[idx+1:]...)

	r.items = updated
	r.categories = distinctCategories(updated)
	changed = true

	if err := r.store.Set(ctx, docstore.Comparisons, r.userID, r.userID, newCompareDocument(r.userID, updated)); err != nil {
		r.status.Set(fmt.Sprintf("Failed to remove from comparison: %v", err))
		return fmt.Errorf("failed to write comparison list: %w", err)
	}
	return nil
}

// SetSelectedCategory filters the visible items; nil means all categories.
// Pure UI state, never persisted.
func (r *Reconciler) SetSelectedCategory(category *string) {
	r.mu.Lock()
	r.selected = category
	r.mu.Unlock()
	r.notify()
}

func (r *Reconciler) SelectedCategory() *string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selected
}

// SetCriteria selects the best-product ranking function. Pure UI state.
func (r *Reconciler) SetCriteria(criteria Criteria) {
	r.mu.Lock()
	r.criteria = criteria
	r.mu.Unlock()
	r.notify()
}

func (r *Reconciler) CriteriaSelected() Criteria {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.criteria
}

// Items returns the full comparison list in document order.
func (r *Reconciler) Items() []Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Item, len(r.items))
	copy(out, r.items)
	return out
}

// Categories returns the distinct categories present, in document order.
func (r *Reconciler) Categories() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.categories))
	copy(out, r.categories)
	return out
}

// FilteredItems returns the items in the selected category, or everything
// when no category is selected.
func (r *Reconciler) FilteredItems() []Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filteredLocked()
}

// BestProduct ranks the currently filtered items, not the global list.
// Returns nil when the filtered set is empty.
func (r *Reconciler) BestProduct() (*Item, error) {
	r.mu.Lock()
	items := r.filteredLocked()
	criteria := r.criteria
	r.mu.Unlock()

	return Rank(items, criteria)
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

// Subscribe registers a listener invoked after every state change.
func (r *Reconciler) Subscribe(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

func (r *Reconciler) filteredLocked() []Item {
	if r.selected == nil {
		out := make([]Item, len(r.items))
		copy(out, r.items)
		return out
	}
	var out []Item
	for _, it := range r.items {
		if it.Category == *r.selected {
			out = append(out, it)
		}
	}
	return out
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

func distinctCategories(items []Item) []string {
	seen := make(map[string]bool)
	var categories []string
	for _, it := range items {
		if !seen[it.Category] {
			seen[it.Category] = true
			categories = append(categories, it.Category)
		}
	}
	return categories
}
