package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/guillermoBallester/plumbline/internal/core/domain"
)

func marshalExpectations(suite *domain.Suite) (string, error) {
	exps := suite.Expectations
	if exps == nil {
		exps = []domain.Expectation{}
	}
	data, err := json.Marshal(exps)
	if err != nil {
		return "", fmt.Errorf("encoding expectations: %w", err)
	}
	return string(data), nil
}

func (s *Store) AddSuite(ctx context.Context, suite *domain.Suite) error {
	exps, err := marshalExpectations(suite)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if suite.CreatedAt.IsZero() {
		suite.CreatedAt = now
	}
	if suite.UpdatedAt.IsZero() {
		suite.UpdatedAt = suite.CreatedAt
	}

	err = s.insert(ctx,
		fmt.Errorf("suite %q: %w", suite.Name, domain.ErrAlreadyExists), `
		INSERT INTO suites (id, name, expectations, fingerprint, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO NOTHING`,
		newID(), suite.Name, exps, suite.Fingerprint(), formatTime(suite.CreatedAt), formatTime(suite.UpdatedAt))
	if err != nil {
		return fmt.Errorf("adding suite: %w", err)
	}
	return nil
}

func (s *Store) GetSuite(ctx context.Context, name string) (*domain.Suite, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	var exps, created, updated string
	err := s.db.QueryRowContext(ctx, `
		SELECT expectations, created_at, updated_at
		FROM suites WHERE name = ?`, name).
		Scan(&exps, &created, &updated)
	if err != nil {
		return nil, notFound(err, fmt.Errorf("suite %q: %w", name, domain.ErrNotFound), "suite")
	}
	return decodeSuite(name, exps, created, updated)
}

// SaveSuite overwrites the rules of an existing suite.
func (s *Store) SaveSuite(ctx context.Context, suite *domain.Suite) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	exps, err := marshalExpectations(suite)
	if err != nil {
		return err
	}
	suite.UpdatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		UPDATE suites SET expectations = ?, fingerprint = ?, updated_at = ?
		WHERE name = ?`,
		exps, suite.Fingerprint(), formatTime(suite.UpdatedAt), suite.Name)
	if err != nil {
		return fmt.Errorf("saving suite %q: %w", suite.Name, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("saving suite %q: %w", suite.Name, err)
	} else if n == 0 {
		return fmt.Errorf("suite %q: %w", suite.Name, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteSuite(ctx context.Context, name string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM suites WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("deleting suite %q: %w", name, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("deleting suite %q: %w", name, err)
	} else if n == 0 {
		return fmt.Errorf("suite %q: %w", name, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) ListSuites(ctx context.Context) ([]domain.Suite, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, expectations, created_at, updated_at
		FROM suites ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing suites: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Suite
	for rows.Next() {
		var name, exps, created, updated string
		if err := rows.Scan(&name, &exps, &created, &updated); err != nil {
			return nil, fmt.Errorf("scanning suite: %w", err)
		}
		suite, err := decodeSuite(name, exps, created, updated)
		if err != nil {
			return nil, err
		}
		out = append(out, *suite)
	}
	return out, rows.Err()
}

func decodeSuite(name, exps, created, updated string) (*domain.Suite, error) {
	suite := &domain.Suite{
		Name:      name,
		CreatedAt: parseTime(created),
		UpdatedAt: parseTime(updated),
	}
	if err := json.Unmarshal([]byte(exps), &suite.Expectations); err != nil {
		return nil, fmt.Errorf("decoding expectations of suite %q: %w", name, err)
	}
	return suite, nil
}

func (s *Store) AddValidationDefinition(ctx context.Context, vd domain.ValidationDefinition) error {
	if _, err := s.GetBatchDefinition(ctx, vd.Datasource, vd.Asset, vd.BatchDefinition); err != nil {
		return fmt.Errorf("adding validation definition %q: %w", vd.Name, err)
	}
	if _, err := s.GetSuite(ctx, vd.Suite); err != nil {
		return fmt.Errorf("adding validation definition %q: %w", vd.Name, err)
	}
	err := s.insert(ctx,
		fmt.Errorf("validation definition %q: %w", vd.Name, domain.ErrAlreadyExists), `
		INSERT INTO validation_definitions
			(id, name, datasource, asset, batch_definition, suite, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO NOTHING`,
		newID(), vd.Name, vd.Datasource, vd.Asset, vd.BatchDefinition, vd.Suite, formatTime(vd.CreatedAt))
	if err != nil {
		return fmt.Errorf("adding validation definition: %w", err)
	}
	return nil
}

func (s *Store) GetValidationDefinition(ctx context.Context, name string) (*domain.ValidationDefinition, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	vd := domain.ValidationDefinition{Name: name}
	var created string
	err := s.db.QueryRowContext(ctx, `
		SELECT datasource, asset, batch_definition, suite, created_at
		FROM validation_definitions WHERE name = ?`, name).
		Scan(&vd.Datasource, &vd.Asset, &vd.BatchDefinition, &vd.Suite, &created)
	if err != nil {
		return nil, notFound(err, fmt.Errorf("validation definition %q: %w", name, domain.ErrNotFound), "validation definition")
	}
	vd.CreatedAt = parseTime(created)
	return &vd, nil
}
