package cart

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrMalformedDocument = errors.New("malformed cart document")

// Line is one cart entry. At most one line exists per product; quantity is
// always >= 1 (a decrement to zero removes the line instead).
type Line struct {
	ProductID int             `json:"productId"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	Quantity  int             `json:"quantity"`
}

// cartDocument is the persisted shape of carts/{userId}.
type cartDocument struct {
	UserID string         `json:"userId"`
	Items  []lineDocument `json:"items"`
}

// lineDocument uses pointer fields so the decoder can tell a missing field
// from a zero value.
type lineDocument struct {
	ProductID *int             `json:"productId"`
	Title     *string          `json:"title"`
	Price     *decimal.Decimal `json:"price"`
	Image     *string          `json:"image"`
	Quantity  *int             `json:"quantity"`
}

func newCartDocument(userID string, lines []Line) cartDocument {
	items := make([]lineDocument, 0, len(lines))
	for i := range lines {
		l := lines[i]
		items = append(items, lineDocument{
			ProductID: &l.ProductID,
			Title:     &l.Title,
			Price:     &l.Price,
			Image:     &l.Image,
			Quantity:  &l.Quantity,
		})
	}
	return cartDocument{UserID: userID, Items: items}
}

// decodeCartDocument validates the raw document and returns its lines in
// document order. Any missing or out-of-range field fails the whole decode.
func decodeCartDocument(raw json.RawMessage) ([]Line, error) {
	var doc cartDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	lines := make([]Line, 0, len(doc.Items))
	for i, item := range doc.Items {
		if item.ProductID == nil || item.Title == nil || item.Price == nil ||
			item.Image == nil || item.Quantity == nil {
			return nil, fmt.Errorf("%w: item %d is missing fields", ErrMalformedDocument, i)
		}
		if *item.Quantity < 1 {
			return nil, fmt.Errorf("%w: item %d has quantity %d", ErrMalformedDocument, i, *item.Quantity)
		}
		if item.Price.IsNegative() {
			return nil, fmt.Errorf("%w: item %d has negative price", ErrMalformedDocument, i)
		}
		lines = append(lines, Line{
			ProductID: *item.ProductID,
			Title:     *item.Title,
			Price:     *item.Price,
			Image:     *item.Image,
			Quantity:  *item.Quantity,
		})
	}
	return lines, nil
}
