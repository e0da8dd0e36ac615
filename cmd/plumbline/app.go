package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/guillermoBallester/plumbline/internal/adapter/datasource"
	"github.com/guillermoBallester/plumbline/internal/adapter/postgres"
	"github.com/guillermoBallester/plumbline/internal/adapter/project"
	"github.com/guillermoBallester/plumbline/internal/adapter/sqlite"
	"github.com/guillermoBallester/plumbline/internal/audit"
	"github.com/guillermoBallester/plumbline/internal/config"
	"github.com/guillermoBallester/plumbline/internal/core/domain"
	"github.com/guillermoBallester/plumbline/internal/core/port"
	"github.com/guillermoBallester/plumbline/internal/telemetry"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"
)

// app is everything a command needs, built from config and flags.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	out       io.Writer
	project   *project.File
	store     *sqlite.Store
	connector *datasource.Connector
	tracer    trace.Tracer
	inst      port.Instrumentation

	closers []func(context.Context) error
}

// newApp loads configuration with hostDefault as the fallback database host
// and opens the project store. Callers must call close.
func newApp(cmd *cobra.Command, g *globalFlags, hostDefault string) (_ *app, err error) {
	ctx := cmd.Context()

	cfg, err := config.Load(hostDefault, g.overrides(cmd))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	// Logs go to stderr; stdout carries the report or the MCP transport.
	logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	a := &app{
		cfg:    cfg,
		logger: logger,
		out:    cmd.OutOrStdout(),
		tracer: telemetry.NoopTracer(),
		inst:   port.NoopInstrumentation{},
	}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	a.project, err = project.LoadOrDefault(cfg.ProjectFilePath(), cfg.DatasourceName)
	if err != nil {
		return nil, err
	}

	if cfg.OTelEnabled {
		provider, err := telemetry.Init(ctx, telemetry.Options{
			ServiceName:    "plumbline",
			Version:        version,
			DatasourceName: a.project.Datasource,
			DatasourceType: cfg.Datasource.Type,
		})
		if err != nil {
			return nil, fmt.Errorf("initializing telemetry: %w", err)
		}
		a.closers = append(a.closers, provider.Shutdown)
		a.tracer = telemetry.Tracer()
		a.inst = telemetry.NewInstruments()
		logger.Info("telemetry enabled")
	}

	spanCtx, span := telemetry.StartCommand(ctx, a.tracer, strings.TrimPrefix(cmd.CommandPath(), cmd.Root().Name()+" "))
	cmd.SetContext(spanCtx)
	a.closers = append(a.closers, func(context.Context) error {
		span.End()
		return nil
	})

	var auditor port.QueryAuditor = audit.NoopAuditor{}
	if cfg.AuditLog != "" {
		fa, err := audit.NewFileAuditor(cfg.AuditLog)
		if err != nil {
			return nil, fmt.Errorf("opening audit log: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return fa.Close() })
		auditor = fa
		logger.Info("audit log enabled", slog.String("path", cfg.AuditLog))
	}

	a.store, err = sqlite.Open(cfg.StorePath())
	if err != nil {
		return nil, fmt.Errorf("opening project store: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return a.store.Close() })

	a.connector = datasource.NewConnector(datasource.Options{
		Pool: postgres.PoolOptions{
			MaxConns:        cfg.PoolMaxConns,
			MinConns:        cfg.PoolMinConns,
			MaxConnLifetime: cfg.PoolMaxConnLifetime,
		},
		QueryTimeout: cfg.QueryTimeout,
		Auditor:      auditor,
		Inst:         a.inst,
		Logger:       logger,
	})
	// Connections close before the store and the audit log.
	a.closers = append(a.closers, func(context.Context) error { return a.connector.Close() })

	schemaVersion, err := a.store.SchemaVersion()
	if err != nil {
		return nil, fmt.Errorf("reading project store version: %w", err)
	}

	logger.Debug("project opened",
		slog.String("version", version),
		slog.String("project_root", cfg.ProjectRoot),
		slog.String("store", a.store.Path()),
		slog.Int64("store_schema_version", schemaVersion),
		slog.String("datasource", a.project.Datasource),
		slog.String("dsn", redactDSN(cfg.Datasource.ConnectionString())),
	)
	return a, nil
}

// datasource describes the configured database connection.
func (a *app) datasource() domain.Datasource {
	return domain.Datasource{
		Name:             a.project.Datasource,
		Type:             domain.DatasourceType(a.cfg.Datasource.Type),
		ConnectionString: a.cfg.Datasource.ConnectionString(),
	}
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("shutdown", slog.String("error", err.Error()))
	}
}

// redactDSN masks the password of a connection URL for logging.
func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "<unparseable>"
	}
	return u.Redacted()
}
