package sqlite

import (
	"context"
	"fmt"

	"github.com/guillermoBallester/plumbline/internal/core/domain"
)

func (s *Store) AddAsset(ctx context.Context, a domain.Asset) error {
	if _, err := s.GetDatasource(ctx, a.Datasource); err != nil {
		return fmt.Errorf("adding asset %q: %w", a.Name, err)
	}
	err := s.insert(ctx,
		fmt.Errorf("asset %q: %w", a.Name, domain.ErrAlreadyExists), `
		INSERT INTO assets (id, datasource, name, table_name, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (datasource, name) DO NOTHING`,
		newID(), a.Datasource, a.Name, a.Table, formatTime(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("adding asset: %w", err)
	}
	return nil
}

func (s *Store) GetAsset(ctx context.Context, datasource, name string) (*domain.Asset, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	a := domain.Asset{Datasource: datasource}
	var created string
	err := s.db.QueryRowContext(ctx, `
		SELECT name, table_name, created_at
		FROM assets WHERE datasource = ? AND name = ?`, datasource, name).
		Scan(&a.Name, &a.Table, &created)
	if err != nil {
		return nil, notFound(err, fmt.Errorf("asset %q in datasource %q: %w", name, datasource, domain.ErrNotFound), "asset")
	}
	a.CreatedAt = parseTime(created)
	return &a, nil
}

func (s *Store) ListAssets(ctx context.Context, datasource string) ([]domain.Asset, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, table_name, created_at
		FROM assets WHERE datasource = ? ORDER BY name`, datasource)
	if err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Asset
	for rows.Next() {
		a := domain.Asset{Datasource: datasource}
		var created string
		if err := rows.Scan(&a.Name, &a.Table, &created); err != nil {
			return nil, fmt.Errorf("scanning asset: %w", err)
		}
		a.CreatedAt = parseTime(created)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) AddBatchDefinition(ctx context.Context, bd domain.BatchDefinition) error {
	if _, err := s.GetAsset(ctx, bd.Datasource, bd.Asset); err != nil {
		return fmt.Errorf("adding batch definition %q: %w", bd.Name, err)
	}
	if bd.Mode == "" {
		bd.Mode = domain.BatchWholeTable
	}
	err := s.insert(ctx,
		fmt.Errorf("batch definition %q: %w", bd.Name, domain.ErrAlreadyExists), `
		INSERT INTO batch_definitions (id, datasource, asset, name, mode, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (datasource, asset, name) DO NOTHING`,
		newID(), bd.Datasource, bd.Asset, bd.Name, string(bd.Mode), formatTime(bd.CreatedAt))
	if err != nil {
		return fmt.Errorf("adding batch definition: %w", err)
	}
	return nil
}

func (s *Store) GetBatchDefinition(ctx context.Context, datasource, asset, name string) (*domain.BatchDefinition, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	bd := domain.BatchDefinition{Datasource: datasource, Asset: asset, Name: name}
	var mode, created string
	err := s.db.QueryRowContext(ctx, `
		SELECT mode, created_at FROM batch_definitions
		WHERE datasource = ? AND asset = ? AND name = ?`, datasource, asset, name).
		Scan(&mode, &created)
	if err != nil {
		return nil, notFound(err, fmt.Errorf("batch definition %q on asset %q: %w", name, asset, domain.ErrNotFound), "batch definition")
	}
	bd.Mode = domain.BatchMode(mode)
	bd.CreatedAt = parseTime(created)
	return &bd, nil
}
