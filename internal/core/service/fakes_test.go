package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/guillermoBallester/plumbline/internal/core/domain"
	"github.com/guillermoBallester/plumbline/internal/core/port"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- in-memory ProjectStore ---

type memStore struct {
	datasources map[string]domain.Datasource
	assets      map[string]domain.Asset
	batches     map[string]domain.BatchDefinition
	suites      map[string]domain.Suite
	validations map[string]domain.ValidationDefinition

	errGetDatasource error
	errAddSuite      error
}

var _ port.ProjectStore = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		datasources: map[string]domain.Datasource{},
		assets:      map[string]domain.Asset{},
		batches:     map[string]domain.BatchDefinition{},
		suites:      map[string]domain.Suite{},
		validations: map[string]domain.ValidationDefinition{},
	}
}

func (m *memStore) AddDatasource(_ context.Context, ds domain.Datasource) error {
	if _, ok := m.datasources[ds.Name]; ok {
		return fmt.Errorf("datasource %q: %w", ds.Name, domain.ErrAlreadyExists)
	}
	m.datasources[ds.Name] = ds
	return nil
}

func (m *memStore) GetDatasource(_ context.Context, name string) (*domain.Datasource, error) {
	if m.errGetDatasource != nil {
		return nil, m.errGetDatasource
	}
	ds, ok := m.datasources[name]
	if !ok {
		return nil, fmt.Errorf("datasource %q: %w", name, domain.ErrNotFound)
	}
	return &ds, nil
}

func (m *memStore) ListDatasources(context.Context) ([]domain.Datasource, error) {
	var out []domain.Datasource
	for _, ds := range m.datasources {
		out = append(out, ds)
	}
	return out, nil
}

func (m *memStore) AddAsset(_ context.Context, a domain.Asset) error {
	key := a.Datasource + "/" + a.Name
	if _, ok := m.assets[key]; ok {
		return fmt.Errorf("asset %q: %w", a.Name, domain.ErrAlreadyExists)
	}
	m.assets[key] = a
	return nil
}

func (m *memStore) GetAsset(_ context.Context, datasource, name string) (*domain.Asset, error) {
	a, ok := m.assets[datasource+"/"+name]
	if !ok {
		return nil, fmt.Errorf("asset %q: %w", name, domain.ErrNotFound)
	}
	return &a, nil
}

func (m *memStore) ListAssets(_ context.Context, datasource string) ([]domain.Asset, error) {
	var out []domain.Asset
	for _, a := range m.assets {
		if a.Datasource == datasource {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) AddBatchDefinition(_ context.Context, bd domain.BatchDefinition) error {
	key := bd.Datasource + "/" + bd.Asset + "/" + bd.Name
	if _, ok := m.batches[key]; ok {
		return fmt.Errorf("batch definition %q: %w", bd.Name, domain.ErrAlreadyExists)
	}
	m.batches[key] = bd
	return nil
}

func (m *memStore) GetBatchDefinition(_ context.Context, datasource, asset, name string) (*domain.BatchDefinition, error) {
	bd, ok := m.batches[datasource+"/"+asset+"/"+name]
	if !ok {
		return nil, fmt.Errorf("batch definition %q: %w", name, domain.ErrNotFound)
	}
	return &bd, nil
}

func (m *memStore) AddSuite(_ context.Context, s *domain.Suite) error {
	if m.errAddSuite != nil {
		return m.errAddSuite
	}
	if _, ok := m.suites[s.Name]; ok {
		return fmt.Errorf("suite %q: %w", s.Name, domain.ErrAlreadyExists)
	}
	m.suites[s.Name] = cloneSuite(s)
	return nil
}

func (m *memStore) GetSuite(_ context.Context, name string) (*domain.Suite, error) {
	s, ok := m.suites[name]
	if !ok {
		return nil, fmt.Errorf("suite %q: %w", name, domain.ErrNotFound)
	}
	c := cloneSuite(&s)
	return &c, nil
}

func (m *memStore) SaveSuite(_ context.Context, s *domain.Suite) error {
	if _, ok := m.suites[s.Name]; !ok {
		return fmt.Errorf("suite %q: %w", s.Name, domain.ErrNotFound)
	}
	m.suites[s.Name] = cloneSuite(s)
	return nil
}

func (m *memStore) DeleteSuite(_ context.Context, name string) error {
	if _, ok := m.suites[name]; !ok {
		return fmt.Errorf("suite %q: %w", name, domain.ErrNotFound)
	}
	delete(m.suites, name)
	return nil
}

func (m *memStore) ListSuites(context.Context) ([]domain.Suite, error) {
	var out []domain.Suite
	for _, s := range m.suites {
		out = append(out, cloneSuite(&s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) AddValidationDefinition(_ context.Context, vd domain.ValidationDefinition) error {
	if _, ok := m.validations[vd.Name]; ok {
		return fmt.Errorf("validation definition %q: %w", vd.Name, domain.ErrAlreadyExists)
	}
	m.validations[vd.Name] = vd
	return nil
}

func (m *memStore) GetValidationDefinition(_ context.Context, name string) (*domain.ValidationDefinition, error) {
	vd, ok := m.validations[name]
	if !ok {
		return nil, fmt.Errorf("validation definition %q: %w", name, domain.ErrNotFound)
	}
	return &vd, nil
}

func cloneSuite(s *domain.Suite) domain.Suite {
	c := *s
	c.Expectations = append([]domain.Expectation(nil), s.Expectations...)
	return c
}

// --- datasource fakes ---

type fakeConn struct {
	stats    map[string][]domain.ColumnStats
	statsErr map[string]error
	tables   map[string]bool
	existErr error

	// check returns the result for an expectation; nil means success.
	check func(table string, exp domain.Expectation) (domain.ExpectationResult, error)
}

func (f *fakeConn) ColumnStats(_ context.Context, table string) ([]domain.ColumnStats, error) {
	if err := f.statsErr[table]; err != nil {
		return nil, err
	}
	return f.stats[table], nil
}

func (f *fakeConn) TableExists(_ context.Context, table string) (bool, error) {
	if f.existErr != nil {
		return false, f.existErr
	}
	return f.tables[table], nil
}

func (f *fakeConn) Check(_ context.Context, table string, exp domain.Expectation) (domain.ExpectationResult, error) {
	if f.check != nil {
		return f.check(table, exp)
	}
	return domain.ExpectationResult{Expectation: exp, Success: true}, nil
}

func (f *fakeConn) Close() error { return nil }

type fakeConnector struct {
	conn   *fakeConn
	err    error
	opened []string
}

func (c *fakeConnector) Open(_ context.Context, ds domain.Datasource) (port.DatasourceConn, error) {
	c.opened = append(c.opened, ds.Name)
	if c.err != nil {
		return nil, c.err
	}
	return c.conn, nil
}

// --- stats builders ---

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

// itemStats mirrors a 100000-row item table: i_id 1..100000, i_price 1..100.
func itemStats() []domain.ColumnStats {
	return []domain.ColumnStats{
		{Column: "i_id", DataType: "integer", IsNumeric: true, Min: f64(1), Max: f64(100000), TotalCount: 100000, NullCount: i64(0), DistinctCount: 100000},
		{Column: "i_name", DataType: "character varying", TotalCount: 100000, NullCount: i64(12), DistinctCount: 99000},
		{Column: "i_price", DataType: "numeric", IsNumeric: true, Min: f64(1), Max: f64(100), TotalCount: 100000, NullCount: i64(0), DistinctCount: 9901},
	}
}
