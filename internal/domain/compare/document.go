package compare

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/example/snapshop/internal/catalog"
)

var ErrMalformedDocument = errors.New("malformed comparison document")

// Item is one comparison entry. At most one item exists per product; items
// are never mutated in place, only removed and re-added.
type Item struct {
	ProductID   int             `json:"productId"`
	Title       string          `json:"title"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Image       string          `json:"image"`
	Rating      catalog.Rating  `json:"rating"`
}

// compareDocument is the persisted shape of comparisons/{userId}.
type compareDocument struct {
	UserID string         `json:"userId"`
	Items  []itemDocument `json:"items"`
}

type itemDocument struct {
	ProductID   *int             `json:"productId"`
	Title       *string          `json:"title"`
	Price       *decimal.Decimal `json:"price"`
	Description *string          `json:"description"`
	Category    *string          `json:"category"`
	Image       *string          `json:"image"`
	Rating      *ratingDocument  `json:"rating"`
}

type ratingDocument struct {
	Rate  *decimal.Decimal `json:"rate"`
	Count *int             `json:"count"`
}

func newCompareDocument(userID string, items []Item) compareDocument {
	docs := make([]itemDocument, 0, len(items))
	for i := range items {
		it := items[i]
		docs = append(docs, itemDocument{
			ProductID:   &it.ProductID,
			Title:       &it.Title,
			Price:       &it.Price,
			Description: &it.Description,
			Category:    &it.Category,
			Image:       &it.Image,
			Rating: &ratingDocument{
				Rate:  &it.Rating.Rate,
				Count: &it.Rating.Count,
			},
		})
	}
	return compareDocument{UserID: userID, Items: docs}
}

// decodeCompareDocument is all-or-nothing: one malformed item fails the
// whole document, there is no partial list.
func decodeCompareDocument(raw json.RawMessage) ([]Item, error) {
	var doc compareDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	items := make([]Item, 0, len(doc.Items))
	for i, d := range doc.Items {
		if d.ProductID == nil || d.Title == nil || d.Price == nil ||
			d.Description == nil || d.Category == nil || d.Image == nil ||
			d.Rating == nil || d.Rating.Rate == nil || d.Rating.Count == nil {
			return nil, fmt.Errorf("%w: item %d is missing fields", ErrMalformedDocument, i)
		}
		items = append(items, Item{
			ProductID:   *d.ProductID,
			Title:       *d.Title,
			Price:       *d.Price,
			Description: *d.Description,
			Category:    *d.Category,
			Image:       *d.Image,
			Rating: catalog.Rating{
				Rate:  *d.Rating.Rate,
				Count: *d.Rating.Count,
			},
		})
	}
	return items, nil
}
