package sqlite

import (
	"context"
	"fmt"

	"github.com/guillermoBallester/plumbline/internal/core/domain"
)

func (s *Store) AddDatasource(ctx context.Context, ds domain.Datasource) error {
	err := s.insert(ctx,
		fmt.Errorf("datasource %q: %w", ds.Name, domain.ErrAlreadyExists), `
		INSERT INTO datasources (id, name, type, connection_string, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (name) DO NOTHING`,
		newID(), ds.Name, string(ds.Type), ds.ConnectionString, formatTime(ds.CreatedAt))
	if err != nil {
		return fmt.Errorf("adding datasource: %w", err)
	}
	return nil
}

func (s *Store) GetDatasource(ctx context.Context, name string) (*domain.Datasource, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	var ds domain.Datasource
	var typ, created string
	err := s.db.QueryRowContext(ctx, `
		SELECT name, type, connection_string, created_at
		FROM datasources WHERE name = ?`, name).
		Scan(&ds.Name, &typ, &ds.ConnectionString, &created)
	if err != nil {
		return nil, notFound(err, fmt.Errorf("datasource %q: %w", name, domain.ErrNotFound), "datasource")
	}
	ds.Type = domain.DatasourceType(typ)
	ds.CreatedAt = parseTime(created)
	return &ds, nil
}

func (s *Store) ListDatasources(ctx context.Context) ([]domain.Datasource, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, type, connection_string, created_at
		FROM datasources ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing datasources: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Datasource
	for rows.Next() {
		var ds domain.Datasource
		var typ, created string
		if err := rows.Scan(&ds.Name, &typ, &ds.ConnectionString, &created); err != nil {
			return nil, fmt.Errorf("scanning datasource: %w", err)
		}
		ds.Type = domain.DatasourceType(typ)
		ds.CreatedAt = parseTime(created)
		out = append(out, ds)
	}
	return out, rows.Err()
}
