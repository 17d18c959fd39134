package api

import (
	"context"
	"log"
	"sync"

	"github.com/example/snapshop/internal/badge"
	"github.com/example/snapshop/internal/docstore"
	"github.com/example/snapshop/internal/domain/cart"
	"github.com/example/snapshop/internal/domain/compare"
	"github.com/example/snapshop/internal/domain/order"
	"github.com/example/snapshop/internal/domain/status"
)

// Session bundles the per-user reconcilers. Exactly one session exists per
// user; it owns the authoritative in-memory cart and comparison list.
type Session struct {
	UserID  string
	Cart    *cart.Reconciler
	Compare *compare.Reconciler
	Orders  *order.Assembler
}

// SessionRegistry creates sessions lazily and hands back the same one for
// repeated requests by the same user.
type SessionRegistry struct {
	store docstore.DocumentStore
	badge *badge.Publisher // optional

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewSessionRegistry(store docstore.DocumentStore, badgePublisher *badge.Publisher) *SessionRegistry {
	return &SessionRegistry{
		store:    store,
		badge:    badgePublisher,
		sessions: make(map[string]*Session),
	}
}

// Session returns the user's session, creating and loading it on first use.
func (r *SessionRegistry) Session(ctx context.Context, userID string) *Session {
	r.mu.Lock()
	if s, ok := r.sessions[userID]; ok {
		r.mu.Unlock()
		return s
	}

	cartRec := cart.NewReconciler(r.store, userID, status.NewBoard(status.DefaultClearDelay))
	compareRec := compare.NewReconciler(r.store, userID, status.NewBoard(status.DefaultClearDelay))
	s := &Session{
		UserID:  userID,
		Cart:    cartRec,
		Compare: compareRec,
		Orders:  order.NewAssembler(r.store, cartRec, userID),
	}
	r.sessions[userID] = s
	r.mu.Unlock()

	if r.badge != nil {
		cartRec.Subscribe(func() {
			r.badge.Publish(context.Background(), userID, cartRec.Count())
		})
	}

	if err := cartRec.Load(ctx); err != nil {
		log.Printf("[API] Failed to load cart for %s: %v", userID, err)
	}
	if err := compareRec.Load(ctx); err != nil {
		log.Printf("[API] Failed to load comparison list for %s: %v", userID, err)
	}
	return s
}
