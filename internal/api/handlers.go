package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/snapshop/internal/address"
	"github.com/example/snapshop/internal/catalog"
	"github.com/example/snapshop/internal/domain/cart"
	"github.com/example/snapshop/internal/domain/compare"
	"github.com/example/snapshop/internal/domain/order"
	"github.com/example/snapshop/internal/domain/profile"
	"github.com/example/snapshop/internal/identity"
)

type Handlers struct {
	catalog  catalog.Client
	sessions *SessionRegistry
	profiles *profile.Service
	proofs   *identity.ProofService
	resolver address.Resolver
}

func NewHandlers(catalogClient catalog.Client, sessions *SessionRegistry, profiles *profile.Service, proofs *identity.ProofService, resolver address.Resolver) *Handlers {
	return &Handlers{
		catalog:  catalogClient,
		sessions: sessions,
		profiles: profiles,
		proofs:   proofs,
		resolver: resolver,
	}
}

// Product Handlers

func (h *Handlers) GetProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var products []catalog.Product
	var err error
	if category := q.Get("category"); category != "" {
		products, err = h.catalog.ListProductsByCategory(ctx, category)
	} else {
		products, err = h.catalog.ListProducts(ctx)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	products = catalog.Search(products, q.Get("q"))
	if sortOrder := q.Get("sort"); sortOrder != "" {
		products = catalog.SortProducts(products, catalog.SortOrder(sortOrder))
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *Handlers) GetCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	respondJSON(w, http.StatusOK, categories)
}

// Cart Handlers

type cartResponse struct {
	UserID  string      `json:"userId"`
	Items   []cart.Line `json:"items"`
	Total   string      `json:"total"`
	Count   int         `json:"count"`
	Loading bool        `json:"loading"`
	Status  string      `json:"status,omitempty"`
}

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	s := h.sessions.Session(r.Context(), userID)
	respondJSON(w, http.StatusOK, cartResponse{
		UserID:  userID,
		Items:   s.Cart.Lines(),
		Total:   s.Cart.Total().StringFixed(2),
		Count:   s.Cart.Count(),
		Loading: s.Cart.Loading(),
		Status:  s.Cart.Status().Message(),
	})
}

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var product catalog.Product
	if err := json.NewDecoder(r.Body).Decode(&product); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s := h.sessions.Session(r.Context(), userID)
	if err := s.Cart.AddToCart(r.Context(), product); err != nil {
		http.Error(w, s.Cart.Status().Message(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": s.Cart.Status().Message()})
}

func (h *Handlers) UpdateCartQuantity(w http.ResponseWriter, r *http.Request, increment bool) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	productID, ok := productIDFromPath(w, r.URL.Path, "/cart/items/")
	if !ok {
		return
	}

	s := h.sessions.Session(r.Context(), userID)
	if err := s.Cart.UpdateQuantity(r.Context(), productID, increment); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	productID, ok := productIDFromPath(w, r.URL.Path, "/cart/items/")
	if !ok {
		return
	}

	s := h.sessions.Session(r.Context(), userID)
	if err := s.Cart.RemoveItem(r.Context(), productID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Comparison Handlers

type compareResponse struct {
	UserID     string         `json:"userId"`
	Items      []compare.Item `json:"items"`
	Categories []string       `json:"categories"`
	Selected   *string        `json:"selectedCategory"`
	Criteria   string         `json:"criteria"`
	Status     string         `json:"status,omitempty"`
}

func (h *Handlers) GetComparison(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	s := h.sessions.Session(r.Context(), userID)
	respondJSON(w, http.StatusOK, compareResponse{
		UserID:     userID,
		Items:      s.Compare.FilteredItems(),
		Categories: s.Compare.Categories(),
		Selected:   s.Compare.SelectedCategory(),
		Criteria:   string(s.Compare.CriteriaSelected()),
		Status:     s.Compare.Status().Message(),
	})
}

func (h *Handlers) AddToComparison(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var product catalog.Product
	if err := json.NewDecoder(r.Body).Decode(&product); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s := h.sessions.Session(r.Context(), userID)
	if err := s.Compare.AddToCompare(r.Context(), product); err != nil {
		http.Error(w, s.Compare.Status().Message(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": s.Compare.Status().Message()})
}

func (h *Handlers) RemoveFromComparison(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	productID, ok := productIDFromPath(w, r.URL.Path, "/compare/items/")
	if !ok {
		return
	}

	s := h.sessions.Session(r.Context(), userID)
	if err := s.Compare.RemoveFromComparison(r.Context(), productID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) SetComparisonCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req struct {
		Category *string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s := h.sessions.Session(r.Context(), userID)
	s.Compare.SetSelectedCategory(req.Category)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) SetComparisonCriteria(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req struct {
		Criteria string `json:"criteria"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	switch compare.Criteria(req.Criteria) {
	case compare.BestPrice, compare.BestRating, compare.BestValue:
	default:
		http.Error(w, "unknown criteria", http.StatusBadRequest)
		return
	}

	s := h.sessions.Session(r.Context(), userID)
	s.Compare.SetCriteria(compare.Criteria(req.Criteria))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) GetBestProduct(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	s := h.sessions.Session(r.Context(), userID)
	best, err := s.Compare.BestProduct()
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if best == nil {
		http.Error(w, "Nothing to compare", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, best)
}

// Order Handlers

func (h *Handlers) GetOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	s := h.sessions.Session(r.Context(), userID)
	orders, err := s.Orders.LoadOrders(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

// PlaceOrder validates the address, runs the device identity gate when one
// is enrolled and then calls the assembler. The gate lives here, outside the
// assembler, so the assembler stays directly callable.
func (h *Handlers) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req struct {
		DeliveryAddress string  `json:"deliveryAddress"`
		Credential      *string `json:"credential"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Address validation comes before authentication; a blank address never
	// triggers the gate or touches the store.
	if strings.TrimSpace(req.DeliveryAddress) == "" {
		http.Error(w, "Please enter a delivery address", http.StatusBadRequest)
		return
	}

	gate := h.gateFor(r.Context(), userID, req.Credential)
	if gate.Available() {
		outcome := gate.Prompt(r.Context())
		switch {
		case outcome.Canceled:
			http.Error(w, "Authentication canceled", http.StatusUnauthorized)
			return
		case !outcome.OK:
			http.Error(w, outcome.Message, http.StatusUnauthorized)
			return
		}
	}

	s := h.sessions.Session(r.Context(), userID)
	placed, err := s.Orders.PlaceOrder(r.Context(), req.DeliveryAddress, nil)
	if err != nil {
		if errors.Is(err, order.ErrBlankAddress) || errors.Is(err, order.ErrEmptyCart) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusCreated, placed)
}

// gateFor builds the identity gate for a request. The request's credential
// field stands in for the device prompt; its absence means the user
// dismissed it.
func (h *Handlers) gateFor(ctx context.Context, userID string, credential *string) identity.Gate {
	p := h.profiles.Load(ctx, userID)
	if p.CredentialHash == "" {
		return identity.NoGate{}
	}
	source := func(context.Context) (string, bool) {
		if credential == nil {
			return "", false
		}
		return *credential, true
	}
	return identity.NewDeviceCredentialGate(userID, p.CredentialHash, source, h.proofs)
}

// Profile Handlers

func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, h.profiles.Load(r.Context(), userID))
}

func (h *Handlers) PutProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var p profile.Profile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.profiles.Save(r.Context(), userID, p); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) EnrollCredential(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req struct {
		Credential string `json:"credential"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	hash, err := identity.EnrollCredential(req.Credential)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p := h.profiles.Load(r.Context(), userID)
	p.CredentialHash = hash
	if err := h.profiles.Save(r.Context(), userID, p); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Checkout Handlers

func (h *Handlers) GetCheckoutAddress(w http.ResponseWriter, r *http.Request) {
	// Best effort; an empty address means manual entry.
	respondJSON(w, http.StatusOK, map[string]string{
		"address": h.resolver.CurrentAddress(r.Context()),
	})
}

// Helpers

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		http.Error(w, "X-User-ID header is required", http.StatusBadRequest)
		return "", false
	}
	return userID, true
}

func productIDFromPath(w http.ResponseWriter, path, prefix string) (int, bool) {
	raw := strings.TrimPrefix(path, prefix)
	raw = strings.SplitN(raw, "/", 2)[0]
	id, err := strconv.Atoi(raw)
	if err != nil {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func respondJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
