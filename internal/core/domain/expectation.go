package domain

import (
	"fmt"
	"math"
)

// ExpectationType names a rule kind. The values match the expectation type
// identifiers used by suites stored on disk.
type ExpectationType string

const (
	ExpectColumnValuesToNotBeNull  ExpectationType = "expect_column_values_to_not_be_null"
	ExpectColumnValuesToBeBetween  ExpectationType = "expect_column_values_to_be_between"
	ExpectColumnValuesToBeUnique   ExpectationType = "expect_column_values_to_be_unique"
	ExpectTableRowCountToBeBetween ExpectationType = "expect_table_row_count_to_be_between"
)

// Valid reports whether t is one of the supported rule kinds.
func (t ExpectationType) Valid() bool {
	switch t {
	case ExpectColumnValuesToNotBeNull, ExpectColumnValuesToBeBetween,
		ExpectColumnValuesToBeUnique, ExpectTableRowCountToBeBetween:
		return true
	}
	return false
}

// ColumnScoped reports whether rules of this kind target a single column.
func (t ExpectationType) ColumnScoped() bool {
	return t != ExpectTableRowCountToBeBetween
}

// Expectation is a single declarative rule. Column is empty for table-level
// rules. MinValue and MaxValue are set only for the between kinds; for the
// row-count kind they hold whole numbers.
type Expectation struct {
	Type     ExpectationType `json:"expectation_type" yaml:"expectation_type"`
	Column   string          `json:"column,omitempty" yaml:"column,omitempty"`
	MinValue *float64        `json:"min_value,omitempty" yaml:"min_value,omitempty"`
	MaxValue *float64        `json:"max_value,omitempty" yaml:"max_value,omitempty"`
}

// NewNotNull builds a not-null rule for column.
func NewNotNull(column string) (Expectation, error) {
	e := Expectation{Type: ExpectColumnValuesToNotBeNull, Column: column}
	return e, e.Validate()
}

// NewBetween builds an inclusive value-range rule for column.
func NewBetween(column string, lo, hi float64) (Expectation, error) {
	e := Expectation{Type: ExpectColumnValuesToBeBetween, Column: column, MinValue: &lo, MaxValue: &hi}
	return e, e.Validate()
}

// NewUnique builds a uniqueness rule for column.
func NewUnique(column string) (Expectation, error) {
	e := Expectation{Type: ExpectColumnValuesToBeUnique, Column: column}
	return e, e.Validate()
}

// NewRowCountBetween builds an inclusive table row-count rule.
func NewRowCountBetween(minRows, maxRows int64) (Expectation, error) {
	lo, hi := float64(minRows), float64(maxRows)
	e := Expectation{Type: ExpectTableRowCountToBeBetween, MinValue: &lo, MaxValue: &hi}
	return e, e.Validate()
}

// Key identifies the rule within a suite. Two rules with the same key are
// duplicates regardless of their bounds.
func (e Expectation) Key() string {
	return string(e.Type) + ":" + e.Column
}

// Validate checks the rule is well formed. All failures wrap
// ErrInvalidExpectation.
func (e Expectation) Validate() error {
	if !e.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidExpectation, e.Type)
	}
	if e.Type.ColumnScoped() && e.Column == "" {
		return fmt.Errorf("%w: %s requires a column", ErrInvalidExpectation, e.Type)
	}
	if !e.Type.ColumnScoped() && e.Column != "" {
		return fmt.Errorf("%w: %s does not take a column", ErrInvalidExpectation, e.Type)
	}

	switch e.Type {
	case ExpectColumnValuesToBeBetween, ExpectTableRowCountToBeBetween:
		if e.MinValue == nil || e.MaxValue == nil {
			return fmt.Errorf("%w: %s requires min_value and max_value", ErrInvalidExpectation, e.Type)
		}
		lo, hi := *e.MinValue, *e.MaxValue
		if !finite(lo) || !finite(hi) {
			return fmt.Errorf("%w: bounds must be finite, got [%v, %v]", ErrInvalidExpectation, lo, hi)
		}
		if lo > hi {
			return fmt.Errorf("%w: min_value %v exceeds max_value %v", ErrInvalidExpectation, lo, hi)
		}
		if e.Type == ExpectTableRowCountToBeBetween {
			if lo < 0 || lo != math.Trunc(lo) || hi != math.Trunc(hi) {
				return fmt.Errorf("%w: row-count bounds must be non-negative integers, got [%v, %v]", ErrInvalidExpectation, lo, hi)
			}
		}
	default:
		if e.MinValue != nil || e.MaxValue != nil {
			return fmt.Errorf("%w: %s does not take bounds", ErrInvalidExpectation, e.Type)
		}
	}
	return nil
}

// Bounds returns the rule's range. It is only meaningful for the between kinds.
func (e Expectation) Bounds() (lo, hi float64) {
	if e.MinValue != nil {
		lo = *e.MinValue
	}
	if e.MaxValue != nil {
		hi = *e.MaxValue
	}
	return lo, hi
}

// Satisfied decides the rule's verdict from what a checker observed: the
// number of unexpected rows for column rules, the row count for the
// row-count rule.
func (e Expectation) Satisfied(unexpected int64, observed *int64) bool {
	if e.Type == ExpectTableRowCountToBeBetween {
		if observed == nil {
			return false
		}
		lo, hi := e.Bounds()
		n := float64(*observed)
		return n >= lo && n <= hi
	}
	return unexpected == 0
}

// String renders the rule the way the console reports list it.
func (e Expectation) String() string {
	switch e.Type {
	case ExpectColumnValuesToBeBetween:
		lo, hi := e.Bounds()
		return fmt.Sprintf("%s(%s, %v, %v)", e.Type, e.Column, lo, hi)
	case ExpectTableRowCountToBeBetween:
		lo, hi := e.Bounds()
		return fmt.Sprintf("%s(%d, %d)", e.Type, int64(lo), int64(hi))
	default:
		return fmt.Sprintf("%s(%s)", e.Type, e.Column)
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
