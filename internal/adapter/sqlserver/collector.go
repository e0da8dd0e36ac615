package sqlserver

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/guillermoBallester/plumbline/internal/core/domain"
)

// ColumnStats collects statistics for every column of table, in ordinal
// order. An unknown table yields no columns.
func (s *Source) ColumnStats(ctx context.Context, table string) ([]domain.ColumnStats, error) {
	cols, err := s.columns(ctx, table)
	if err != nil {
		return nil, err
	}

	stats := make([]domain.ColumnStats, 0, len(cols))
	for _, col := range cols {
		st, err := s.columnStats(ctx, table, col)
		if err != nil {
			return nil, fmt.Errorf("collecting stats for %s.%s: %w", table, col.Column, err)
		}
		stats = append(stats, st)
	}
	return stats, nil
}

// columns returns stat records with only the metadata fields filled in.
func (s *Source) columns(ctx context.Context, table string) ([]domain.ColumnStats, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, queryColumns,
		sql.Named("table", table),
		sql.Named("schema", s.opts.Schema),
	)
	if err != nil {
		return nil, fmt.Errorf("listing columns of %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var cols []domain.ColumnStats
	for rows.Next() {
		var name, dataType, nullable string
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return nil, fmt.Errorf("scanning column: %w", err)
		}
		typ := canonicalType(dataType)
		cols = append(cols, domain.ColumnStats{
			Column:     name,
			DataType:   typ,
			IsNullable: nullable == "YES",
			IsNumeric:  domain.IsNumericType(typ),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating columns: %w", err)
	}
	return cols, nil
}

func (s *Source) columnStats(ctx context.Context, table string, st domain.ColumnStats) (domain.ColumnStats, error) {
	qc, qt := quoteName(st.Column), s.table(table)
	var nulls sql.NullInt64

	if st.IsNumeric {
		var lo, hi, avg sql.NullFloat64
		err := s.queryRow(ctx, "profile", table, fmt.Sprintf(numericStatsTemplate, qc, qt), nil,
			&lo, &hi, &avg, &st.TotalCount, &nulls, &st.DistinctCount)
		if err != nil {
			return st, err
		}
		st.Min, st.Max, st.Avg = floatPtr(lo), floatPtr(hi), floatPtr(avg)
	} else {
		err := s.queryRow(ctx, "profile", table, fmt.Sprintf(basicStatsTemplate, qc, qt), nil,
			&st.TotalCount, &nulls, &st.DistinctCount)
		if err != nil {
			return st, err
		}
	}

	if nulls.Valid {
		st.NullCount = &nulls.Int64
	}
	return st, nil
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}
