package domain

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	rangeMarginRatio  = 0.1 // widen observed ranges by 10% of their span
	flatSpanRatio     = 0.1 // span used when min == max, as a share of |max|
	rowCountLowRatio  = 0.8
	rowCountHighRatio = 1.2
	boundDecimals     = 4
)

// GenerateExpectations derives rules from column statistics and adds them
// to suite, returning how many were added. Rules are emitted in column
// order; the table row-count rule comes last. Duplicate or malformed rules
// are skipped and not counted.
func GenerateExpectations(suite *Suite, stats []ColumnStats) int {
	added := 0
	add := func(e Expectation, err error) {
		if err != nil {
			return
		}
		if suite.AddExpectation(e) == nil {
			added++
		}
	}

	for _, st := range stats {
		if st.NullCount != nil && *st.NullCount == 0 {
			add(NewNotNull(st.Column))
		}

		if st.IsNumeric && st.Min != nil && st.Max != nil {
			lo, hi := NumericBounds(*st.Min, *st.Max)
			add(NewBetween(st.Column, lo, hi))
		}

		if st.Cardinality() == CardinalityUnique && LooksLikeIdentifier(st.Column) {
			add(NewUnique(st.Column))
		}
	}

	if len(stats) > 0 && stats[0].TotalCount > 0 {
		lo, hi := RowCountBounds(stats[0].TotalCount)
		add(NewRowCountBetween(lo, hi))
	}

	return added
}

// NumericBounds widens an observed [min, max] range by 10% of its span on
// each side. A single-valued column uses 10% of |max| as its span, so a
// column that is always zero gets the zero-width range [0, 0]. Both bounds
// are rounded to 4 decimal places.
func NumericBounds(minVal, maxVal float64) (lo, hi float64) {
	span := maxVal - minVal
	if maxVal == minVal {
		span = math.Abs(maxVal) * flatSpanRatio
	}
	margin := span * rangeMarginRatio
	return round4(minVal - margin), round4(maxVal + margin)
}

// RowCountBounds allows the row count to move 20% either way. Bounds are
// truncated toward zero.
func RowCountBounds(n int64) (lo, hi int64) {
	return int64(float64(n) * rowCountLowRatio), int64(float64(n) * rowCountHighRatio)
}

// LooksLikeIdentifier reports whether a column name reads like a key:
// it contains "_id" or ends with "id", case-insensitively.
func LooksLikeIdentifier(column string) bool {
	name := strings.ToLower(column)
	return strings.Contains(name, "_id") || strings.HasSuffix(name, "id")
}

func round4(v float64) float64 {
	if !finite(v) {
		return v
	}
	return decimal.NewFromFloat(v).Round(boundDecimals).InexactFloat64()
}
