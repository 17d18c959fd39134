package order

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var ErrMalformedDocument = errors.New("malformed order document")

// Status is the order lifecycle state. The client only ever writes Placed;
// the remaining transitions are administrative and happen elsewhere.
type Status string

const (
	StatusPlaced     Status = "PLACED"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPlaced, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Line is a frozen snapshot of a cart line at placement time, decoupled from
// any later cart changes.
type Line struct {
	ProductID int             `json:"productId"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	Quantity  int             `json:"quantity"`
}

// Order is immutable after creation; only Status changes, and never through
// this client.
type Order struct {
	OrderID     string          `json:"orderId"`
	UserID      string          `json:"userId"`
	Items       []Line          `json:"items"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	OrderDate   time.Time       `json:"orderDate"`
	Status      Status          `json:"status"`
}

type orderDocument struct {
	OrderID     *string          `json:"orderId"`
	UserID      *string          `json:"userId"`
	Items       []lineDocument   `json:"items"`
	TotalAmount *decimal.Decimal `json:"totalAmount"`
	OrderDate   *time.Time       `json:"orderDate"`
	Status      *string          `json:"status"`
}

type lineDocument struct {
	ProductID *int             `json:"productId"`
	Title     *string          `json:"title"`
	Price     *decimal.Decimal `json:"price"`
	Image     *string          `json:"image"`
	Quantity  *int             `json:"quantity"`
}

// decodeOrderDocument validates a single order document. Callers decide
// whether a failure is fatal; order listing skips bad documents.
func decodeOrderDocument(raw json.RawMessage) (Order, error) {
	var doc orderDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Order{}, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	if doc.OrderID == nil || doc.UserID == nil || doc.TotalAmount == nil ||
		doc.OrderDate == nil || doc.Status == nil {
		return Order{}, fmt.Errorf("%w: missing fields", ErrMalformedDocument)
	}
	if !Status(*doc.Status).Valid() {
		return Order{}, fmt.Errorf("%w: unknown status %q", ErrMalformedDocument, *doc.Status)
	}

	items := make([]Line, 0, len(doc.Items))
	for i, d := range doc.Items {
		if d.ProductID == nil || d.Title == nil || d.Price == nil ||
			d.Image == nil || d.Quantity == nil {
			return Order{}, fmt.Errorf("%w: item %d is missing fields", ErrMalformedDocument, i)
		}
		items = append(items, Line{
			ProductID: *d.ProductID,
			Title:     *d.Title,
			Price:     *d.Price,
			Image:     *d.Image,
			Quantity:  *d.Quantity,
		})
	}

	return Order{
		OrderID:     *doc.OrderID,
		UserID:      *doc.UserID,
		Items:       items,
		TotalAmount: *doc.TotalAmount,
		OrderDate:   *doc.OrderDate,
		Status:      Status(*doc.Status),
	}, nil
}
