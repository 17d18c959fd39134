package docstore

import (
	"context"
	"encoding/json"
)

// Collection names used by the client. One document per user for carts and
// comparisons, one document per order, one profile document per user.
const (
	Carts       = "carts"
	Comparisons = "comparisons"
	Orders      = "orders"
	Users       = "users"
)

// DocumentStore is the per-collection, per-id document access the client
// consumes. Writes are full-document overwrites; there are no multi-document
// transactions and no compare-and-swap.
type DocumentStore interface {
	// Get returns the raw document, or ok=false when it does not exist.
	Get(ctx context.Context, collection, id string) (json.RawMessage, bool, error)

	// Set overwrites the document. owner identifies the user the document
	// belongs to and is what Query filters on.
	Set(ctx context.Context, collection, id, owner string, doc any) error

	// Query returns every document in the collection owned by owner.
	Query(ctx context.Context, collection, owner string) ([]json.RawMessage, error)
}
