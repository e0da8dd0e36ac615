// Package datasource opens connections to stored datasources, choosing the
// database adapter from the datasource type.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/guillermoBallester/plumbline/internal/adapter/postgres"
	"github.com/guillermoBallester/plumbline/internal/adapter/sqlserver"
	"github.com/guillermoBallester/plumbline/internal/core/domain"
	"github.com/guillermoBallester/plumbline/internal/core/port"
)

// Options is shared by every adapter the Connector opens.
type Options struct {
	Pool         postgres.PoolOptions
	QueryTimeout time.Duration
	Auditor      port.QueryAuditor
	Inst         port.Instrumentation
	Logger       *slog.Logger
}

// Factory opens a connection for one datasource type.
type Factory func(ctx context.Context, ds domain.Datasource, opts Options) (port.DatasourceConn, error)

// Connector implements port.DatasourceConnector. Connections are cached by
// datasource name and owned by the Connector: callers must not close them,
// Close releases them all.
type Connector struct {
	opts Options

	mu        sync.Mutex
	factories map[domain.DatasourceType]Factory
	conns     map[string]port.DatasourceConn
}

// NewConnector returns a Connector with the postgres and sqlserver
// adapters registered.
func NewConnector(opts Options) *Connector {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	c := &Connector{
		opts:      opts,
		factories: make(map[domain.DatasourceType]Factory),
		conns:     make(map[string]port.DatasourceConn),
	}
	c.Register(domain.DatasourcePostgres, openPostgres)
	c.Register(domain.DatasourceSQLServer, openSQLServer)
	return c
}

// Register installs or replaces the factory for a datasource type.
func (c *Connector) Register(t domain.DatasourceType, f Factory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[t] = f
}

// Open returns the cached connection for ds, opening it on first use.
func (c *Connector) Open(ctx context.Context, ds domain.Datasource) (port.DatasourceConn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if conn, ok := c.conns[ds.Name]; ok {
		return conn, nil
	}

	factory, ok := c.factories[ds.Type]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for datasource type %q", ds.Type)
	}
	if ds.ConnectionString == "" {
		return nil, fmt.Errorf("datasource %q has no connection string", ds.Name)
	}

	conn, err := factory(ctx, ds, c.opts)
	if err != nil {
		return nil, fmt.Errorf("connecting to datasource %q: %w", ds.Name, err)
	}
	c.opts.Logger.Debug("datasource connected", slog.String("datasource", ds.Name), slog.String("type", string(ds.Type)))
	c.conns[ds.Name] = conn
	return conn, nil
}

// Close closes every cached connection.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for name, conn := range c.conns {
		if err := conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing datasource %q: %w", name, err))
		}
		delete(c.conns, name)
	}
	return errors.Join(errs...)
}

func openPostgres(ctx context.Context, ds domain.Datasource, opts Options) (port.DatasourceConn, error) {
	return postgres.Open(ctx, ds.ConnectionString, opts.Pool, postgres.Options{
		Datasource:   ds.Name,
		QueryTimeout: opts.QueryTimeout,
		Auditor:      opts.Auditor,
		Inst:         opts.Inst,
		Logger:       opts.Logger,
	})
}

func openSQLServer(ctx context.Context, ds domain.Datasource, opts Options) (port.DatasourceConn, error) {
	return sqlserver.Open(ctx, ds.ConnectionString, int(opts.Pool.MaxConns), sqlserver.Options{
		Datasource:   ds.Name,
		QueryTimeout: opts.QueryTimeout,
		Auditor:      opts.Auditor,
		Inst:         opts.Inst,
		Logger:       opts.Logger,
	})
}
