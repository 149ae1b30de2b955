package enums

import "fmt"

// MergeStrategy selects how a guest cart folds into a user cart at sign-in.
type MergeStrategy string

const (
	MergeStrategyCombine  MergeStrategy = "combine"
	MergeStrategyReplace  MergeStrategy = "replace"
	MergeStrategyKeepUser MergeStrategy = "keep_user"
)

var validMergeStrategies = []MergeStrategy{
	MergeStrategyCombine,
	MergeStrategyReplace,
	MergeStrategyKeepUser,
}

// String implements fmt.Stringer.
func (m MergeStrategy) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MergeStrategy.
func (m MergeStrategy) IsValid() bool {
	for _, candidate := range validMergeStrategies {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMergeStrategy converts raw input into a MergeStrategy.
func ParseMergeStrategy(value string) (MergeStrategy, error) {
	for _, candidate := range validMergeStrategies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid merge strategy %q", value)
}
