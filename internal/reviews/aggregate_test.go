package reviews

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gildedlane/marketplace-backend/pkg/types"
)

func TestAggregateAddRemoveSequence(t *testing.T) {
	agg := ratingAggregate{Breakdown: types.EmptyRatingsBreakdown()}

	agg.add(5)
	assert.Equal(t, 5.0, agg.Avg)
	assert.Equal(t, 1, agg.Count)
	assert.Equal(t, 1, agg.Breakdown["5"])

	agg.add(3)
	assert.Equal(t, 4.0, agg.Avg)
	assert.Equal(t, 2, agg.Count)

	agg.remove(5)
	assert.Equal(t, 3.0, agg.Avg)
	assert.Equal(t, 1, agg.Count)
	assert.Equal(t, 0, agg.Breakdown["5"])

	agg.remove(3)
	assert.Equal(t, 0.0, agg.Avg)
	assert.Equal(t, 0, agg.Count)
	assert.Equal(t, 0, agg.Breakdown.Total())
}

func TestAggregateRoundsToTwoDecimals(t *testing.T) {
	agg := recomputeFrom([]int{5, 4, 4})
	assert.Equal(t, 4.33, agg.Avg)
	assert.Equal(t, 3, agg.Count)

	agg = recomputeFrom([]int{5, 5, 4})
	assert.Equal(t, 4.67, agg.Avg)
}

func TestAggregateChangeKeepsCount(t *testing.T) {
	agg := recomputeFrom([]int{4, 2})

	agg.change(2, 5)
	assert.Equal(t, 4.5, agg.Avg)
	assert.Equal(t, 2, agg.Count)
	assert.Equal(t, 0, agg.Breakdown["2"])
	assert.Equal(t, 1, agg.Breakdown["5"])

	// Equal old and new ratings leave the aggregate alone.
	before := agg.Avg
	agg.change(4, 4)
	assert.Equal(t, before, agg.Avg)
}

func TestAggregateDecrementFloorsAtZero(t *testing.T) {
	agg := ratingAggregate{Breakdown: types.EmptyRatingsBreakdown()}
	agg.remove(5)
	assert.Equal(t, 0, agg.Breakdown["5"])
	assert.Equal(t, 0, agg.Count)
	assert.Equal(t, 0.0, agg.Avg)
}

func TestRecomputeFromEmpty(t *testing.T) {
	agg := recomputeFrom(nil)
	assert.Equal(t, 0.0, agg.Avg)
	assert.Equal(t, 0, agg.Count)
	assert.Equal(t, 0, agg.Breakdown.Total())
}
