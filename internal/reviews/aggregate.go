package reviews

import (
	"github.com/shopspring/decimal"

	"github.com/gildedlane/marketplace-backend/pkg/types"
)

// ratingAggregate is the denormalized rating state carried on a product row.
type ratingAggregate struct {
	Avg       float64
	Count     int
	Breakdown types.RatingsBreakdown
}

func (a *ratingAggregate) ensureBreakdown() {
	if a.Breakdown == nil {
		a.Breakdown = types.EmptyRatingsBreakdown()
	}
}

// add folds one new rating into the aggregate: avg = (A*N + r) / (N+1).
func (a *ratingAggregate) add(rating int) {
	a.ensureBreakdown()
	a.Avg = round2(weightedTotal(a.Avg, a.Count).Add(decimal.NewFromInt(int64(rating))).
		Div(decimal.NewFromInt(int64(a.Count + 1))))
	a.Count++
	a.Breakdown.Increment(rating)
}

// remove takes one rating out: avg = (A*N - r) / (N-1), resetting to zero
// when the last review disappears.
func (a *ratingAggregate) remove(rating int) {
	a.ensureBreakdown()
	if a.Count <= 1 {
		a.Avg = 0
		a.Count = 0
		a.Breakdown.Decrement(rating)
		return
	}
	a.Avg = round2(weightedTotal(a.Avg, a.Count).Sub(decimal.NewFromInt(int64(rating))).
		Div(decimal.NewFromInt(int64(a.Count - 1))))
	a.Count--
	a.Breakdown.Decrement(rating)
}

// change swaps an existing rating for a new value without moving the count:
// avg = (A*N - old + new) / N.
func (a *ratingAggregate) change(oldRating, newRating int) {
	if oldRating == newRating || a.Count == 0 {
		return
	}
	a.ensureBreakdown()
	a.Avg = round2(weightedTotal(a.Avg, a.Count).
		Sub(decimal.NewFromInt(int64(oldRating))).
		Add(decimal.NewFromInt(int64(newRating))).
		Div(decimal.NewFromInt(int64(a.Count))))
	a.Breakdown.Decrement(oldRating)
	a.Breakdown.Increment(newRating)
}

// recomputeFrom rebuilds the aggregate from scratch out of the given ratings.
func recomputeFrom(ratings []int) ratingAggregate {
	agg := ratingAggregate{Breakdown: types.EmptyRatingsBreakdown()}
	if len(ratings) == 0 {
		return agg
	}

	sum := decimal.Zero
	for _, rating := range ratings {
		sum = sum.Add(decimal.NewFromInt(int64(rating)))
		agg.Breakdown.Increment(rating)
	}
	agg.Count = len(ratings)
	agg.Avg = round2(sum.Div(decimal.NewFromInt(int64(len(ratings)))))
	return agg
}

func weightedTotal(avg float64, count int) decimal.Decimal {
	return decimal.NewFromFloat(avg).Mul(decimal.NewFromInt(int64(count)))
}

// round2 rounds half away from zero to two decimal places.
func round2(d decimal.Decimal) float64 {
	value, _ := d.Round(2).Float64()
	return value
}
