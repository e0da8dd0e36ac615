package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/guillermoBallester/plumbline/internal/core/domain"
	"github.com/guillermoBallester/plumbline/internal/core/port"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ValidationTarget is one (datasource, asset, suite) triple.
type ValidationTarget struct {
	Datasource string
	Asset      string
	Suite      string
}

// ValidationService runs suites against the whole-table batch of an asset.
type ValidationService struct {
	store     port.ProjectStore
	connector port.DatasourceConnector
	logger    *slog.Logger
	tracer    trace.Tracer
	inst      port.Instrumentation
	now       func() time.Time
}

func NewValidationService(store port.ProjectStore, connector port.DatasourceConnector, logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *ValidationService {
	if inst == nil {
		inst = port.NoopInstrumentation{}
	}
	return &ValidationService{
		store:     store,
		connector: connector,
		logger:    logger,
		tracer:    tracerOrNoop(tracer),
		inst:      inst,
		now:       time.Now,
	}
}

// Run resolves the triple's project objects, creating the batch and
// validation definitions on first use, and checks every rule of the suite.
// A rule whose query fails is recorded as failed with its error; Run only
// returns an error when the triple could not be resolved or ctx ended.
func (s *ValidationService) Run(ctx context.Context, target ValidationTarget) (*domain.ValidationResult, error) {
	ctx, span := s.tracer.Start(ctx, "ValidationService.Run",
		trace.WithAttributes(
			attribute.String("plumbline.datasource", target.Datasource),
			attribute.String("plumbline.asset", target.Asset),
			attribute.String("plumbline.suite", target.Suite),
		),
	)
	defer span.End()

	res, err := s.run(ctx, target)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	_, passed, failed := res.Counts()
	span.SetAttributes(
		attribute.Bool("plumbline.success", res.Success),
		attribute.Int("plumbline.expectations.passed", passed),
		attribute.Int("plumbline.expectations.failed", failed),
	)
	return res, nil
}

func (s *ValidationService) run(ctx context.Context, target ValidationTarget) (*domain.ValidationResult, error) {
	ds, err := s.store.GetDatasource(ctx, target.Datasource)
	if err != nil {
		return nil, err
	}
	asset, err := s.store.GetAsset(ctx, ds.Name, target.Asset)
	if err != nil {
		return nil, err
	}
	batch, err := s.batchDefinition(ctx, asset)
	if err != nil {
		return nil, err
	}
	suite, err := s.store.GetSuite(ctx, target.Suite)
	if err != nil {
		return nil, err
	}
	def, err := s.validationDefinition(ctx, batch, suite)
	if err != nil {
		return nil, err
	}
	conn, err := s.connector.Open(ctx, *ds)
	if err != nil {
		return nil, err
	}

	start := s.now()
	res := &domain.ValidationResult{
		RunID:      uuid.NewString(),
		Definition: def.Name,
		Datasource: ds.Name,
		Asset:      asset.Name,
		Suite:      suite.Name,
		Success:    true,
		Results:    make([]domain.ExpectationResult, 0, len(suite.Expectations)),
		StartedAt:  start.UTC(),
	}

	for _, exp := range suite.Expectations {
		r, err := conn.Check(ctx, asset.Table, exp)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.WarnContext(ctx, "expectation raised an error",
				slog.String("suite", suite.Name),
				slog.String("expectation", exp.String()),
				slog.String("error", err.Error()),
			)
			r = domain.ExpectationResult{Expectation: exp, Error: err.Error()}
		}
		res.Success = res.Success && r.Success
		res.Results = append(res.Results, r)
	}

	res.Duration = s.now().Sub(start)
	return res, nil
}

func (s *ValidationService) batchDefinition(ctx context.Context, asset *domain.Asset) (*domain.BatchDefinition, error) {
	name := domain.BatchDefinitionName(asset.Name)
	bd, err := s.store.GetBatchDefinition(ctx, asset.Datasource, asset.Name, name)
	if err == nil {
		return bd, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	created := domain.BatchDefinition{
		Name:       name,
		Datasource: asset.Datasource,
		Asset:      asset.Name,
		Mode:       domain.BatchWholeTable,
	}
	if err := s.store.AddBatchDefinition(ctx, created); err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
		return nil, fmt.Errorf("creating batch definition: %w", err)
	}
	return &created, nil
}

func (s *ValidationService) validationDefinition(ctx context.Context, bd *domain.BatchDefinition, suite *domain.Suite) (*domain.ValidationDefinition, error) {
	name := domain.ValidationDefinitionName(bd.Asset, suite.Name)
	vd, err := s.store.GetValidationDefinition(ctx, name)
	if err == nil {
		return vd, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	created := domain.ValidationDefinition{
		Name:            name,
		Datasource:      bd.Datasource,
		Asset:           bd.Asset,
		BatchDefinition: bd.Name,
		Suite:           suite.Name,
	}
	if err := s.store.AddValidationDefinition(ctx, created); err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
		return nil, fmt.Errorf("creating validation definition: %w", err)
	}
	return &created, nil
}

// RunAll validates each target in order. A triple that cannot be run is
// logged and recorded as skipped. The returned error is only set when ctx
// ends the run early.
func (s *ValidationService) RunAll(ctx context.Context, targets []ValidationTarget) (*domain.Summary, error) {
	summary := &domain.Summary{}
	for _, t := range targets {
		entry := domain.SummaryEntry{Datasource: t.Datasource, Asset: t.Asset, Suite: t.Suite}

		res, err := s.Run(ctx, t)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			s.logger.ErrorContext(ctx, "validation skipped",
				slog.String("asset", t.Asset),
				slog.String("suite", t.Suite),
				slog.String("error", err.Error()),
			)
			entry.Outcome, entry.Err = domain.OutcomeSkip, err
		case res.Success:
			entry.Outcome, entry.Result = domain.OutcomePass, res
		default:
			entry.Outcome, entry.Result = domain.OutcomeFail, res
		}

		s.inst.RecordValidationOutcome(ctx, t.Suite, string(entry.Outcome))
		summary.Add(entry)
	}
	return summary, nil
}
