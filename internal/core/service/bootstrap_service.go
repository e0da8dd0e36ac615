package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/guillermoBallester/plumbline/internal/core/domain"
	"github.com/guillermoBallester/plumbline/internal/core/port"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// AssetState says what Init did with one table.
type AssetState string

const (
	AssetCreated  AssetState = "created"
	AssetExisting AssetState = "existing"
	AssetFailed   AssetState = "failed"
)

// AssetStatus is the per-table line of an InitReport.
type AssetStatus struct {
	Table string
	Asset string
	State AssetState
	Err   error
}

// InitReport describes what Init registered.
type InitReport struct {
	Datasource        string
	DatasourceCreated bool
	Assets            []AssetStatus
}

// Counts tallies assets by state.
func (r *InitReport) Counts() (created, existing, failed int) {
	for _, a := range r.Assets {
		switch a.State {
		case AssetCreated:
			created++
		case AssetExisting:
			existing++
		case AssetFailed:
			failed++
		}
	}
	return created, existing, failed
}

// BootstrapService registers a datasource and one table asset per table.
type BootstrapService struct {
	store     port.ProjectStore
	connector port.DatasourceConnector
	logger    *slog.Logger
	tracer    trace.Tracer
}

func NewBootstrapService(store port.ProjectStore, connector port.DatasourceConnector, logger *slog.Logger, tracer trace.Tracer) *BootstrapService {
	return &BootstrapService{
		store:     store,
		connector: connector,
		logger:    logger,
		tracer:    tracerOrNoop(tracer),
	}
}

// Init is idempotent. An existing datasource is reused as stored; ds only
// supplies its settings on first registration. Per-table failures are
// reported and do not stop the loop.
func (s *BootstrapService) Init(ctx context.Context, ds domain.Datasource, tables []string) (*InitReport, error) {
	ctx, span := s.tracer.Start(ctx, "BootstrapService.Init",
		trace.WithAttributes(
			attribute.String("plumbline.datasource", ds.Name),
			attribute.Int("plumbline.tables", len(tables)),
		),
	)
	defer span.End()

	report := &InitReport{Datasource: ds.Name}

	stored, err := s.store.GetDatasource(ctx, ds.Name)
	switch {
	case err == nil:
		s.logger.InfoContext(ctx, "datasource already exists", slog.String("datasource", ds.Name))
	case errors.Is(err, domain.ErrNotFound):
		if err := s.store.AddDatasource(ctx, ds); err != nil {
			recordSpanError(span, err)
			return nil, fmt.Errorf("creating datasource: %w", err)
		}
		s.logger.InfoContext(ctx, "datasource created",
			slog.String("datasource", ds.Name), slog.String("type", string(ds.Type)))
		report.DatasourceCreated = true
		stored = &ds
	default:
		recordSpanError(span, err)
		return nil, fmt.Errorf("looking up datasource: %w", err)
	}

	conn, err := s.connector.Open(ctx, *stored)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	for _, table := range tables {
		st := s.addAsset(ctx, conn, stored.Name, table)
		if st.State == AssetFailed {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			s.logger.WarnContext(ctx, "could not add table asset",
				slog.String("table", table), slog.String("error", st.Err.Error()))
		}
		report.Assets = append(report.Assets, st)
	}

	created, existing, failed := report.Counts()
	span.SetAttributes(
		attribute.Int("plumbline.assets.created", created),
		attribute.Int("plumbline.assets.existing", existing),
		attribute.Int("plumbline.assets.failed", failed),
	)
	return report, nil
}

func (s *BootstrapService) addAsset(ctx context.Context, conn port.StatsCollector, datasource, table string) AssetStatus {
	st := AssetStatus{Table: table, Asset: domain.AssetName(table)}

	if _, err := s.store.GetAsset(ctx, datasource, st.Asset); err == nil {
		st.State = AssetExisting
		return st
	}

	exists, err := conn.TableExists(ctx, table)
	if err != nil {
		st.State, st.Err = AssetFailed, err
		return st
	}
	if !exists {
		st.State, st.Err = AssetFailed, fmt.Errorf("table %q: %w", table, domain.ErrNotFound)
		return st
	}

	err = s.store.AddAsset(ctx, domain.Asset{Name: st.Asset, Datasource: datasource, Table: table})
	switch {
	case err == nil:
		st.State = AssetCreated
	case errors.Is(err, domain.ErrAlreadyExists):
		st.State = AssetExisting
	default:
		st.State, st.Err = AssetFailed, err
	}
	return st
}
