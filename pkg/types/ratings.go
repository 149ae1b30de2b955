package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
)

// RatingsBreakdown is the per-star review histogram persisted as JSONB,
// keyed "1" through "5".
type RatingsBreakdown map[string]int

// EmptyRatingsBreakdown returns an all-zero histogram with every bucket present.
func EmptyRatingsBreakdown() RatingsBreakdown {
	return RatingsBreakdown{"1": 0, "2": 0, "3": 0, "4": 0, "5": 0}
}

// Total sums every bucket.
func (r RatingsBreakdown) Total() int {
	total := 0
	for _, count := range r {
		total += count
	}
	return total
}

// WeightedSum returns sum(star * count) across the buckets.
func (r RatingsBreakdown) WeightedSum() int {
	sum := 0
	for star, count := range r {
		value, err := strconv.Atoi(star)
		if err != nil {
			continue
		}
		sum += value * count
	}
	return sum
}

// Increment bumps the bucket for the given star.
func (r RatingsBreakdown) Increment(star int) {
	r[strconv.Itoa(star)]++
}

// Decrement lowers the bucket for the given star, floored at zero.
func (r RatingsBreakdown) Decrement(star int) {
	key := strconv.Itoa(star)
	if r[key] > 0 {
		r[key]--
	}
}

// Value marshals the histogram into JSON for Postgres.
func (r RatingsBreakdown) Value() (driver.Value, error) {
	if r == nil {
		return "{}", nil
	}
	buf, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(buf), nil
}

// Scan decodes JSONB into the histogram.
func (r *RatingsBreakdown) Scan(value interface{}) error {
	if value == nil {
		*r = nil
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("ratings breakdown: unsupported scan type %T", value)
	}

	result := make(RatingsBreakdown)
	if err := json.Unmarshal(raw, &result); err != nil {
		return err
	}
	*r = result
	return nil
}
