package postgres

import (
	"context"
	"fmt"

	"github.com/guillermoBallester/plumbline/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

// Check evaluates exp against the current contents of table inside a
// read-only transaction.
func (s *Source) Check(ctx context.Context, table string, exp domain.Expectation) (domain.ExpectationResult, error) {
	if err := exp.Validate(); err != nil {
		return domain.ExpectationResult{}, err
	}

	res := domain.ExpectationResult{Expectation: exp}
	qc, qt := quoteIdent(exp.Column), s.table(table)

	err := s.readOnly(ctx, func(tx pgx.Tx) error {
		switch exp.Type {
		case domain.ExpectColumnValuesToNotBeNull:
			sql := fmt.Sprintf(checkNotNullTemplate, qc, qt)
			return s.queryRow(ctx, tx, "validate", table, sql, nil, &res.ElementCount, &res.UnexpectedCount)

		case domain.ExpectColumnValuesToBeBetween:
			lo, hi := exp.Bounds()
			sql := fmt.Sprintf(checkBetweenTemplate, qc, qt)
			if err := s.queryRow(ctx, tx, "validate", table, sql, []any{lo, hi}, &res.ElementCount, &res.UnexpectedCount); err != nil {
				return err
			}
			if res.UnexpectedCount == 0 {
				return nil
			}
			sample, err := s.queryMaps(ctx, tx, "validate", table, fmt.Sprintf(sampleBetweenTemplate, qc, qt), []any{lo, hi, sampleLimit})
			res.PartialUnexpected = pluck(sample, "value")
			return err

		case domain.ExpectColumnValuesToBeUnique:
			sql := fmt.Sprintf(checkUniqueTemplate, qc, qt)
			if err := s.queryRow(ctx, tx, "validate", table, sql, nil, &res.ElementCount, &res.UnexpectedCount); err != nil {
				return err
			}
			if res.UnexpectedCount == 0 {
				return nil
			}
			sample, err := s.queryMaps(ctx, tx, "validate", table, fmt.Sprintf(sampleDuplicatesTemplate, qc, qt), []any{sampleLimit})
			res.PartialUnexpected = pluck(sample, "value")
			return err

		case domain.ExpectTableRowCountToBeBetween:
			var n int64
			sql := fmt.Sprintf(countRowsTemplate, qc, qt)
			if err := s.queryRow(ctx, tx, "validate", table, sql, nil, &n); err != nil {
				return err
			}
			res.ElementCount = n
			res.ObservedValue = &n
			return nil
		}
		return fmt.Errorf("%w: unsupported type %q", domain.ErrInvalidExpectation, exp.Type)
	})
	if err != nil {
		return domain.ExpectationResult{}, fmt.Errorf("checking %s on %s: %w", exp.Type, table, err)
	}

	res.Success = exp.Satisfied(res.UnexpectedCount, res.ObservedValue)
	return res, nil
}
