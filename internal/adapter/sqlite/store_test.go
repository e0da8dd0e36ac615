package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/guillermoBallester/plumbline/internal/core/domain"
	"github.com/guillermoBallester/plumbline/internal/core/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ port.ProjectStore = (*Store)(nil)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "gx", "plumbline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedAsset(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.AddDatasource(ctx, domain.Datasource{
		Name: "tpcc_postgres", Type: domain.DatasourcePostgres, ConnectionString: "postgres://u:p@localhost:5432/tpcc",
	}))
	require.NoError(t, s.AddAsset(ctx, domain.Asset{Name: "item", Datasource: "tpcc_postgres", Table: "item"}))
}

func TestOpen_MigratesAndReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "gx", "plumbline.db")

	s, err := Open(path)
	require.NoError(t, err)
	v, err := s.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
	require.NoError(t, s.AddDatasource(context.Background(), domain.Datasource{
		Name: "ds", Type: domain.DatasourcePostgres, ConnectionString: "postgres://x",
	}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	ds, err := s.GetDatasource(context.Background(), "ds")
	require.NoError(t, err)
	assert.Equal(t, "postgres://x", ds.ConnectionString)
	assert.Equal(t, path, s.Path())
}

func TestDatasources(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.GetDatasource(ctx, "tpcc_postgres")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	ds := domain.Datasource{Name: "tpcc_postgres", Type: domain.DatasourcePostgres, ConnectionString: "postgres://a"}
	require.NoError(t, s.AddDatasource(ctx, ds))

	err = s.AddDatasource(ctx, ds)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	got, err := s.GetDatasource(ctx, "tpcc_postgres")
	require.NoError(t, err)
	assert.Equal(t, domain.DatasourcePostgres, got.Type)
	assert.False(t, got.CreatedAt.IsZero())

	require.NoError(t, s.AddDatasource(ctx, domain.Datasource{Name: "mssql", Type: domain.DatasourceSQLServer, ConnectionString: "sqlserver://b"}))
	all, err := s.ListDatasources(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "mssql", all[0].Name)
	assert.Equal(t, "tpcc_postgres", all[1].Name)
}

func TestAssetsAndBatchDefinitions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.AddAsset(ctx, domain.Asset{Name: "item", Datasource: "missing", Table: "item"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	seedAsset(t, s)
	err = s.AddAsset(ctx, domain.Asset{Name: "item", Datasource: "tpcc_postgres", Table: "item"})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	a, err := s.GetAsset(ctx, "tpcc_postgres", "item")
	require.NoError(t, err)
	assert.Equal(t, "item", a.Table)

	_, err = s.GetAsset(ctx, "tpcc_postgres", "stock")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assets, err := s.ListAssets(ctx, "tpcc_postgres")
	require.NoError(t, err)
	assert.Len(t, assets, 1)

	bd := domain.BatchDefinition{Name: "item_batch", Datasource: "tpcc_postgres", Asset: "item"}
	require.NoError(t, s.AddBatchDefinition(ctx, bd))
	assert.ErrorIs(t, s.AddBatchDefinition(ctx, bd), domain.ErrAlreadyExists)

	got, err := s.GetBatchDefinition(ctx, "tpcc_postgres", "item", "item_batch")
	require.NoError(t, err)
	assert.Equal(t, domain.BatchWholeTable, got.Mode)

	_, err = s.GetBatchDefinition(ctx, "tpcc_postgres", "item", "other")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = s.AddBatchDefinition(ctx, domain.BatchDefinition{Name: "b", Datasource: "tpcc_postgres", Asset: "stock"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSuites(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	suite := domain.NewSuite("item_suite")
	require.NoError(t, s.AddSuite(ctx, suite))
	assert.ErrorIs(t, s.AddSuite(ctx, domain.NewSuite("item_suite")), domain.ErrAlreadyExists)

	got, err := s.GetSuite(ctx, "item_suite")
	require.NoError(t, err)
	assert.Empty(t, got.Expectations)

	notNull, err := domain.NewNotNull("i_id")
	require.NoError(t, err)
	between, err := domain.NewBetween("i_price", -8.9, 109.9)
	require.NoError(t, err)
	rows, err := domain.NewRowCountBetween(80000, 120000)
	require.NoError(t, err)
	require.NoError(t, suite.AddExpectation(notNull))
	require.NoError(t, suite.AddExpectation(between))
	require.NoError(t, suite.AddExpectation(rows))
	require.NoError(t, s.SaveSuite(ctx, suite))

	got, err = s.GetSuite(ctx, "item_suite")
	require.NoError(t, err)
	require.Len(t, got.Expectations, 3)
	assert.Equal(t, suite.Expectations, got.Expectations)
	assert.Equal(t, suite.Fingerprint(), got.Fingerprint())

	assert.ErrorIs(t, s.SaveSuite(ctx, domain.NewSuite("ghost")), domain.ErrNotFound)

	require.NoError(t, s.AddSuite(ctx, domain.NewSuite("district_suite")))
	all, err := s.ListSuites(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "district_suite", all[0].Name)
	assert.Equal(t, "item_suite", all[1].Name)

	require.NoError(t, s.DeleteSuite(ctx, "item_suite"))
	assert.ErrorIs(t, s.DeleteSuite(ctx, "item_suite"), domain.ErrNotFound)
	_, err = s.GetSuite(ctx, "item_suite")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestValidationDefinitions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedAsset(t, s)
	require.NoError(t, s.AddBatchDefinition(ctx, domain.BatchDefinition{Name: "item_batch", Datasource: "tpcc_postgres", Asset: "item"}))

	vd := domain.ValidationDefinition{
		Name: "item_validation", Datasource: "tpcc_postgres", Asset: "item",
		BatchDefinition: "item_batch", Suite: "item_suite",
	}
	err := s.AddValidationDefinition(ctx, vd)
	assert.ErrorIs(t, err, domain.ErrNotFound, "suite does not exist yet")

	require.NoError(t, s.AddSuite(ctx, domain.NewSuite("item_suite")))
	require.NoError(t, s.AddValidationDefinition(ctx, vd))
	assert.ErrorIs(t, s.AddValidationDefinition(ctx, vd), domain.ErrAlreadyExists)

	got, err := s.GetValidationDefinition(ctx, "item_validation")
	require.NoError(t, err)
	assert.Equal(t, "item_suite", got.Suite)
	assert.Equal(t, "item_batch", got.BatchDefinition)

	// Replacing the suite keeps the definition.
	require.NoError(t, s.DeleteSuite(ctx, "item_suite"))
	require.NoError(t, s.AddSuite(ctx, domain.NewSuite("item_suite")))
	_, err = s.GetValidationDefinition(ctx, "item_validation")
	require.NoError(t, err)

	_, err = s.GetValidationDefinition(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClosedStore(t *testing.T) {
	s := &Store{}
	_, err := s.GetSuite(context.Background(), "x")
	assert.Error(t, err)
	assert.Error(t, s.Migrate())
	assert.NoError(t, s.Close())
}
