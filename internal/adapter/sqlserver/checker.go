package sqlserver

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/guillermoBallester/plumbline/internal/core/domain"
)

// Check evaluates exp against the current contents of table.
func (s *Source) Check(ctx context.Context, table string, exp domain.Expectation) (domain.ExpectationResult, error) {
	if err := exp.Validate(); err != nil {
		return domain.ExpectationResult{}, err
	}

	res := domain.ExpectationResult{Expectation: exp}
	qc, qt := quoteName(exp.Column), s.table(table)
	var err error

	switch exp.Type {
	case domain.ExpectColumnValuesToNotBeNull:
		err = s.queryRow(ctx, "validate", table, fmt.Sprintf(checkNotNullTemplate, qc, qt), nil,
			&res.ElementCount, &res.UnexpectedCount)

	case domain.ExpectColumnValuesToBeBetween:
		lo, hi := exp.Bounds()
		bounds := []any{sql.Named("min", lo), sql.Named("max", hi)}
		err = s.queryRow(ctx, "validate", table, fmt.Sprintf(checkBetweenTemplate, qc, qt), bounds,
			&res.ElementCount, &res.UnexpectedCount)
		if err == nil && res.UnexpectedCount > 0 {
			res.PartialUnexpected, err = s.queryStrings(ctx, "validate", table,
				fmt.Sprintf(sampleBetweenTemplate, qc, qt), append(bounds, sql.Named("limit", sampleLimit)))
		}

	case domain.ExpectColumnValuesToBeUnique:
		err = s.queryRow(ctx, "validate", table, fmt.Sprintf(checkUniqueTemplate, qc, qt), nil,
			&res.ElementCount, &res.UnexpectedCount)
		if err == nil && res.UnexpectedCount > 0 {
			res.PartialUnexpected, err = s.queryStrings(ctx, "validate", table,
				fmt.Sprintf(sampleDuplicatesTemplate, qc, qt), []any{sql.Named("limit", sampleLimit)})
		}

	case domain.ExpectTableRowCountToBeBetween:
		var n int64
		err = s.queryRow(ctx, "validate", table, fmt.Sprintf(countRowsTemplate, qc, qt), nil, &n)
		res.ElementCount = n
		res.ObservedValue = &n
	}
	if err != nil {
		return domain.ExpectationResult{}, fmt.Errorf("checking %s on %s: %w", exp.Type, table, err)
	}

	res.Success = exp.Satisfied(res.UnexpectedCount, res.ObservedValue)
	return res, nil
}
