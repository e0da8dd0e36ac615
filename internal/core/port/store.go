package port

import (
	"context"

	"github.com/guillermoBallester/plumbline/internal/core/domain"
)

// ProjectStore persists project objects by name. Add methods return an error
// wrapping domain.ErrAlreadyExists on a name collision; Get methods return
// one wrapping domain.ErrNotFound.
type ProjectStore interface {
	AddDatasource(ctx context.Context, ds domain.Datasource) error
	GetDatasource(ctx context.Context, name string) (*domain.Datasource, error)
	ListDatasources(ctx context.Context) ([]domain.Datasource, error)

	AddAsset(ctx context.Context, asset domain.Asset) error
	GetAsset(ctx context.Context, datasource, name string) (*domain.Asset, error)
	ListAssets(ctx context.Context, datasource string) ([]domain.Asset, error)

	AddBatchDefinition(ctx context.Context, bd domain.BatchDefinition) error
	GetBatchDefinition(ctx context.Context, datasource, asset, name string) (*domain.BatchDefinition, error)

	AddSuite(ctx context.Context, suite *domain.Suite) error
	GetSuite(ctx context.Context, name string) (*domain.Suite, error)
	SaveSuite(ctx context.Context, suite *domain.Suite) error
	DeleteSuite(ctx context.Context, name string) error
	ListSuites(ctx context.Context) ([]domain.Suite, error)

	AddValidationDefinition(ctx context.Context, vd domain.ValidationDefinition) error
	GetValidationDefinition(ctx context.Context, name string) (*domain.ValidationDefinition, error)
}
