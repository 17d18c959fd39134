package catalog

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Rating is the aggregate customer rating attached to a product.
type Rating struct {
	Rate  decimal.Decimal `json:"rate"`
	Count int             `json:"count"`
}

// Product is a catalog entry. Products are read-only from the client's point
// of view; the catalog assigns IDs.
type Product struct {
	ID          int             `json:"id"`
	Title       string          `json:"title"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Image       string          `json:"image"`
	Rating      Rating          `json:"rating"`
}

// SortOrder selects how a product listing is ordered.
type SortOrder string

const (
	SortNone           SortOrder = "none"
	SortPriceLowToHigh SortOrder = "price_asc"
	SortPriceHighToLow SortOrder = "price_desc"
	SortRating         SortOrder = "rating"
)

// Search filters products whose title or description contains the query,
// case-insensitively. An empty query matches everything.
func Search(products []Product, query string) []Product {
	if query == "" {
		return products
	}
	q := strings.ToLower(query)
	filtered := make([]Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Title), q) ||
			strings.Contains(strings.ToLower(p.Description), q) {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// SortProducts returns a sorted copy; SortNone preserves catalog order.
func SortProducts(products []Product, order SortOrder) []Product {
	if order == SortNone {
		return products
	}
	sorted := make([]Product, len(products))
	copy(sorted, products)

	switch order {
	case SortPriceLowToHigh:
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Price.LessThan(sorted[j].Price)
		})
	case SortPriceHighToLow:
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Price.GreaterThan(sorted[j].Price)
		})
	case SortRating:
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Rating.Rate.GreaterThan(sorted[j].Rating.Rate)
		})
	}
	return sorted
}
