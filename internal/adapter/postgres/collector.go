package postgres

import (
	"context"
	"fmt"

	"github.com/guillermoBallester/plumbline/internal/core/domain"
)

type columnMeta struct {
	name       string
	dataType   string
	isNullable bool
}

// ColumnStats collects statistics for every column of table, in ordinal
// order. All statements run on one pooled connection that is released when
// the table is done. An unknown table yields no columns.
func (s *Source) ColumnStats(ctx context.Context, table string) ([]domain.ColumnStats, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Release()

	cols, err := s.columns(ctx, conn, table)
	if err != nil {
		return nil, err
	}

	stats := make([]domain.ColumnStats, 0, len(cols))
	for _, col := range cols {
		st, err := s.columnStats(ctx, conn, table, col)
		if err != nil {
			return nil, fmt.Errorf("collecting stats for %s.%s: %w", table, col.name, err)
		}
		stats = append(stats, st)
	}
	return stats, nil
}

func (s *Source) columns(ctx context.Context, q querier, table string) ([]columnMeta, error) {
	rows, err := s.queryMaps(ctx, q, "profile", table, queryColumns, []any{table, s.opts.Schema})
	if err != nil {
		return nil, fmt.Errorf("listing columns of %s: %w", table, err)
	}

	cols := make([]columnMeta, 0, len(rows))
	for _, r := range rows {
		name, _ := r["column_name"].(string)
		dataType, _ := r["data_type"].(string)
		nullable, _ := r["is_nullable"].(string)
		cols = append(cols, columnMeta{name: name, dataType: dataType, isNullable: nullable == "YES"})
	}
	return cols, nil
}

func (s *Source) columnStats(ctx context.Context, q querier, table string, col columnMeta) (domain.ColumnStats, error) {
	st := domain.ColumnStats{
		Column:     col.name,
		DataType:   col.dataType,
		IsNullable: col.isNullable,
		IsNumeric:  domain.IsNumericType(col.dataType),
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	qc, qt := quoteIdent(col.name), s.table(table)
	if st.IsNumeric {
		sql := fmt.Sprintf(numericStatsTemplate, qc, qt)
		err := s.queryRow(ctx, q, "profile", table, sql, nil,
			&st.Min, &st.Max, &st.Avg, &st.TotalCount, &st.NullCount, &st.DistinctCount)
		return st, err
	}

	sql := fmt.Sprintf(basicStatsTemplate, qc, qt)
	err := s.queryRow(ctx, q, "profile", table, sql, nil,
		&st.TotalCount, &st.NullCount, &st.DistinctCount)
	return st, err
}

// withTimeout bounds profiling statements, which run outside a transaction,
// by the configured query timeout.
func (s *Source) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.QueryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.opts.QueryTimeout)
}
