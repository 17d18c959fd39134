package compare

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Criteria selects the ranking function for the best-product pick.
type Criteria string

const (
	BestPrice  Criteria = "best_price"
	BestRating Criteria = "best_rating"
	BestValue  Criteria = "best_value"
)

var (
	ErrNonPositivePrice = errors.New("best value ranking requires a positive price")
	ErrUnknownCriteria  = errors.New("unknown comparison criteria")
)

// Rank picks the winning item under the given criteria, or nil for an empty
// input. Ties break toward the first occurrence in input order.
//
// BestValue divides rating by price, so a non-positive price is rejected as
// invalid input instead of producing a meaningless winner.
func Rank(items []Item, criteria Criteria) (*Item, error) {
	if len(items) == 0 {
		return nil, nil
	}

	switch criteria {
	case BestPrice:
		best := 0
		for i := 1; i < len(items); i++ {
			if items[i].Price.LessThan(items[best].Price) {
				best = i
			}
		}
		winner := items[best]
		return &winner, nil

	case BestRating:
		best := 0
		for i := 1; i < len(items); i++ {
			if items[i].Rating.Rate.GreaterThan(items[best].Rating.Rate) {
				best = i
			}
		}
		winner := items[best]
		return &winner, nil

	case BestValue:
		best := 0
		bestValue := decimal.Zero
		for i := range items {
			if !items[i].Price.IsPositive() {
				return nil, fmt.Errorf("%w: product %d", ErrNonPositivePrice, items[i].ProductID)
			}
			value := items[i].Rating.Rate.Div(items[i].Price)
			if i == 0 || value.GreaterThan(bestValue) {
				best = i
				bestValue = value
			}
		}
		winner := items[best]
		return &winner, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCriteria, criteria)
	}
}
