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

// ProfileTarget names a table, the asset registered for it and the suite
// its rules are written to. An empty Asset defaults to <table>_asset.
type ProfileTarget struct {
	Table string
	Asset string
	Suite string
}

func (t ProfileTarget) asset() string {
	if t.Asset != "" {
		return t.Asset
	}
	return domain.AssetName(t.Table)
}

// ProfileReport is the outcome of profiling one table. Err is set, and the
// other fields may be empty, when the table could not be profiled.
type ProfileReport struct {
	Table   string
	Asset   string
	Stats   []domain.ColumnStats
	Suite   *domain.Suite
	Added   int
	Changed bool // the rule list differs from the suite it replaced
	Err     error
}

// ProfilerService turns table statistics into persisted suites.
type ProfilerService struct {
	store     port.ProjectStore
	connector port.DatasourceConnector
	logger    *slog.Logger
	tracer    trace.Tracer
	inst      port.Instrumentation
}

func NewProfilerService(store port.ProjectStore, connector port.DatasourceConnector, logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *ProfilerService {
	if inst == nil {
		inst = port.NoopInstrumentation{}
	}
	return &ProfilerService{
		store:     store,
		connector: connector,
		logger:    logger,
		tracer:    tracerOrNoop(tracer),
		inst:      inst,
	}
}

// ProfileTable collects statistics for target.Table and replaces the suite
// target.Suite with the rules derived from them.
func (s *ProfilerService) ProfileTable(ctx context.Context, ds domain.Datasource, target ProfileTarget) (*ProfileReport, error) {
	ctx, span := s.tracer.Start(ctx, "ProfilerService.ProfileTable",
		trace.WithAttributes(
			attribute.String("db.collection.name", target.Table),
			attribute.String("plumbline.asset", target.asset()),
			attribute.String("plumbline.suite", target.Suite),
		),
	)
	defer span.End()

	report, err := s.profile(ctx, ds, target)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("plumbline.columns", len(report.Stats)),
		attribute.Int("plumbline.expectations.added", report.Added),
	)
	s.inst.AddExpectationsGenerated(ctx, target.Table, report.Added)
	return report, nil
}

func (s *ProfilerService) profile(ctx context.Context, ds domain.Datasource, target ProfileTarget) (*ProfileReport, error) {
	conn, err := s.connector.Open(ctx, ds)
	if err != nil {
		return nil, err
	}
	stats, err := conn.ColumnStats(ctx, target.Table)
	if err != nil {
		return nil, fmt.Errorf("profiling %s: %w", target.Table, err)
	}

	suite, previous, err := s.replaceSuite(ctx, target.Suite)
	if err != nil {
		return nil, err
	}

	added := domain.GenerateExpectations(suite, stats)
	if err := s.store.SaveSuite(ctx, suite); err != nil {
		return nil, fmt.Errorf("saving suite %s: %w", suite.Name, err)
	}

	return &ProfileReport{
		Table:   target.Table,
		Asset:   target.asset(),
		Stats:   stats,
		Suite:   suite,
		Added:   added,
		Changed: previous == "" || previous != suite.Fingerprint(),
	}, nil
}

// replaceSuite creates an empty suite named name, deleting any existing one
// first. It returns the fingerprint of the suite it replaced, if any.
func (s *ProfilerService) replaceSuite(ctx context.Context, name string) (*domain.Suite, string, error) {
	suite := domain.NewSuite(name)
	err := s.store.AddSuite(ctx, suite)
	if err == nil {
		return suite, "", nil
	}
	if !errors.Is(err, domain.ErrAlreadyExists) {
		return nil, "", fmt.Errorf("creating suite %s: %w", name, err)
	}

	var previous string
	if old, err := s.store.GetSuite(ctx, name); err == nil {
		previous = old.Fingerprint()
	}
	if err := s.store.DeleteSuite(ctx, name); err != nil {
		return nil, "", fmt.Errorf("deleting suite %s: %w", name, err)
	}
	if err := s.store.AddSuite(ctx, suite); err != nil {
		return nil, "", fmt.Errorf("recreating suite %s: %w", name, err)
	}
	return suite, previous, nil
}

// ProfileAll profiles each target in order. A table that fails is logged
// and recorded in its report; the remaining tables are still profiled. The
// returned error is only set when ctx ends the run early.
func (s *ProfilerService) ProfileAll(ctx context.Context, ds domain.Datasource, targets []ProfileTarget) ([]ProfileReport, error) {
	reports := make([]ProfileReport, 0, len(targets))
	for _, t := range targets {
		r, err := s.ProfileTable(ctx, ds, t)
		if err != nil {
			if ctx.Err() != nil {
				return reports, ctx.Err()
			}
			s.logger.ErrorContext(ctx, "profiling failed",
				slog.String("table", t.Table), slog.String("error", err.Error()))
			reports = append(reports, ProfileReport{Table: t.Table, Asset: t.asset(), Err: err})
			continue
		}
		s.logger.InfoContext(ctx, "table profiled",
			slog.String("table", t.Table),
			slog.String("asset", r.Asset),
			slog.Int("columns", len(r.Stats)),
			slog.Int("expectations", r.Added),
			slog.Bool("changed", r.Changed),
		)
		reports = append(reports, *r)
	}
	return reports, nil
}
