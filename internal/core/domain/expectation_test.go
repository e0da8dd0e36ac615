package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpectationConstructors(t *testing.T) {
	tests := []struct {
		name    string
		build   func() (Expectation, error)
		wantErr bool
	}{
		{"not null", func() (Expectation, error) { return NewNotNull("w_id") }, false},
		{"not null without column", func() (Expectation, error) { return NewNotNull("") }, true},
		{"unique", func() (Expectation, error) { return NewUnique("w_id") }, false},
		{"unique without column", func() (Expectation, error) { return NewUnique("") }, true},
		{"between", func() (Expectation, error) { return NewBetween("w_tax", 0, 0.2) }, false},
		{"between zero width", func() (Expectation, error) { return NewBetween("w_tax", 0, 0) }, false},
		{"between inverted", func() (Expectation, error) { return NewBetween("w_tax", 1, 0) }, true},
		{"between NaN", func() (Expectation, error) { return NewBetween("w_tax", math.NaN(), 1) }, true},
		{"between infinite", func() (Expectation, error) { return NewBetween("w_tax", 0, math.Inf(1)) }, true},
		{"row count", func() (Expectation, error) { return NewRowCountBetween(8, 12) }, false},
		{"row count inverted", func() (Expectation, error) { return NewRowCountBetween(12, 8) }, true},
		{"row count negative", func() (Expectation, error) { return NewRowCountBetween(-1, 8) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidExpectation)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestExpectation_Validate(t *testing.T) {
	lo, hi := 1.0, 2.0
	frac := 1.5

	tests := []struct {
		name string
		exp  Expectation
	}{
		{"unknown type", Expectation{Type: "expect_magic", Column: "a"}},
		{"row count with column", Expectation{Type: ExpectTableRowCountToBeBetween, Column: "a", MinValue: &lo, MaxValue: &hi}},
		{"row count fractional", Expectation{Type: ExpectTableRowCountToBeBetween, MinValue: &lo, MaxValue: &frac}},
		{"between missing max", Expectation{Type: ExpectColumnValuesToBeBetween, Column: "a", MinValue: &lo}},
		{"not null with bounds", Expectation{Type: ExpectColumnValuesToNotBeNull, Column: "a", MinValue: &lo, MaxValue: &hi}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.exp.Validate(), ErrInvalidExpectation)
		})
	}
}

func TestExpectation_String(t *testing.T) {
	between, err := NewBetween("i_price", -8.9, 109.9)
	require.NoError(t, err)
	rows, err := NewRowCountBetween(80000, 120000)
	require.NoError(t, err)
	notNull, err := NewNotNull("i_id")
	require.NoError(t, err)

	assert.Equal(t, "expect_column_values_to_be_between(i_price, -8.9, 109.9)", between.String())
	assert.Equal(t, "expect_table_row_count_to_be_between(80000, 120000)", rows.String())
	assert.Equal(t, "expect_column_values_to_not_be_null(i_id)", notNull.String())
}

func TestExpectationType_ColumnScoped(t *testing.T) {
	assert.True(t, ExpectColumnValuesToNotBeNull.ColumnScoped())
	assert.True(t, ExpectColumnValuesToBeBetween.ColumnScoped())
	assert.True(t, ExpectColumnValuesToBeUnique.ColumnScoped())
	assert.False(t, ExpectTableRowCountToBeBetween.ColumnScoped())
}

func TestExpectation_Satisfied(t *testing.T) {
	rows, err := NewRowCountBetween(8, 12)
	require.NoError(t, err)
	n := func(v int64) *int64 { return &v }

	assert.True(t, rows.Satisfied(0, n(8)))
	assert.True(t, rows.Satisfied(0, n(12)))
	assert.False(t, rows.Satisfied(0, n(13)))
	assert.False(t, rows.Satisfied(0, nil))

	unique, err := NewUnique("w_id")
	require.NoError(t, err)
	assert.True(t, unique.Satisfied(0, nil))
	assert.False(t, unique.Satisfied(2, nil))
}
