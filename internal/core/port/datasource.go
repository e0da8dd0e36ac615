package port

import (
	"context"

	"github.com/guillermoBallester/plumbline/internal/core/domain"
)

// StatsCollector gathers per-column statistics for a table.
type StatsCollector interface {
	// ColumnStats returns one record per column in ordinal order. An unknown
	// table yields an empty slice, not an error.
	ColumnStats(ctx context.Context, table string) ([]domain.ColumnStats, error)
	TableExists(ctx context.Context, table string) (bool, error)
}

// ExpectationChecker evaluates a single rule against the current contents
// of a table.
type ExpectationChecker interface {
	Check(ctx context.Context, table string, exp domain.Expectation) (domain.ExpectationResult, error)
}

// DatasourceConn is an open connection to a datasource.
type DatasourceConn interface {
	StatsCollector
	ExpectationChecker
	Close() error
}

// DatasourceConnector opens connections to stored datasources.
type DatasourceConnector interface {
	Open(ctx context.Context, ds domain.Datasource) (DatasourceConn, error)
}
