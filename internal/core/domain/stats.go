package domain

// numericTypes are the information_schema data types treated as numeric.
var numericTypes = map[string]bool{
	"integer":          true,
	"smallint":         true,
	"bigint":           true,
	"numeric":          true,
	"real":             true,
	"double precision": true,
}

// IsNumericType reports whether dataType gets min/max/avg statistics.
// Anything outside the fixed set, including money, dates and booleans,
// is profiled with counts only.
func IsNumericType(dataType string) bool {
	return numericTypes[dataType]
}

// ColumnStats is the statistic record collected for one column.
// Nil pointers mean the aggregate came back NULL, which happens for
// zero-row tables.
type ColumnStats struct {
	Column        string   `json:"column" yaml:"column"`
	DataType      string   `json:"data_type" yaml:"data_type"`
	IsNullable    bool     `json:"is_nullable" yaml:"is_nullable"`
	IsNumeric     bool     `json:"is_numeric" yaml:"is_numeric"`
	Min           *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max           *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Avg           *float64 `json:"avg,omitempty" yaml:"avg,omitempty"`
	TotalCount    int64    `json:"total_count" yaml:"total_count"`
	NullCount     *int64   `json:"null_count,omitempty" yaml:"null_count,omitempty"`
	DistinctCount int64    `json:"distinct_count" yaml:"distinct_count"`
}

// Cardinality classifies the column from its distinct and total counts.
func (s ColumnStats) Cardinality() CardinalityClass {
	return ClassifyByDistinctCount(s.DistinctCount, s.TotalCount)
}
