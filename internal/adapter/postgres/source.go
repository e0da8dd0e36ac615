package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/guillermoBallester/plumbline/internal/audit"
	"github.com/guillermoBallester/plumbline/internal/core/domain"
	"github.com/guillermoBallester/plumbline/internal/core/port"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultSchema = "public"

	// sampleLimit caps the unexpected values reported per expectation.
	sampleLimit = 20
)

// StatementGuard vets generated SQL before it is sent.
type StatementGuard interface {
	Check(sql string) error
}

// Options configures a Source.
type Options struct {
	Datasource   string        // name recorded in audit entries
	Schema       string        // defaults to "public"
	QueryTimeout time.Duration // zero disables the statement timeout
	Guard        StatementGuard
	Auditor      port.QueryAuditor
	Inst         port.Instrumentation
	Logger       *slog.Logger
}

// Source profiles and validates tables of one PostgreSQL database. It
// implements port.DatasourceConn.
type Source struct {
	pool *pgxpool.Pool
	opts Options
}

// querier is satisfied by both *pgxpool.Conn and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func NewSource(pool *pgxpool.Pool, opts Options) *Source {
	if opts.Schema == "" {
		opts.Schema = defaultSchema
	}
	if opts.Guard == nil {
		opts.Guard = domain.NewSelectGuard()
	}
	if opts.Auditor == nil {
		opts.Auditor = audit.NoopAuditor{}
	}
	if opts.Inst == nil {
		opts.Inst = port.NoopInstrumentation{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Source{pool: pool, opts: opts}
}

// Open connects to databaseURL and returns a Source that owns the pool.
func Open(ctx context.Context, databaseURL string, poolOpts PoolOptions, opts Options) (*Source, error) {
	pool, err := NewPool(ctx, databaseURL, poolOpts)
	if err != nil {
		return nil, err
	}
	return NewSource(pool, opts), nil
}

// Close releases the pool.
func (s *Source) Close() error {
	s.pool.Close()
	return nil
}

// TableExists reports whether table is present in the configured schema.
func (s *Source) TableExists(ctx context.Context, table string) (bool, error) {
	var exists bool
	start := time.Now()
	err := s.pool.QueryRow(ctx, queryTableExists, s.opts.Schema, table).Scan(&exists)
	s.observe(ctx, "init", table, queryTableExists, 1, start, err)
	if err != nil {
		return false, fmt.Errorf("checking table %s: %w", table, err)
	}
	return exists, nil
}

func (s *Source) table(name string) string {
	return qualifiedTable(s.opts.Schema, name)
}

// queryRow guards, runs and audits a single-row statement.
func (s *Source) queryRow(ctx context.Context, q querier, op, table, sql string, args []any, dest ...any) error {
	if err := s.opts.Guard.Check(sql); err != nil {
		return fmt.Errorf("rejected generated statement: %w", err)
	}
	start := time.Now()
	err := q.QueryRow(ctx, sql, args...).Scan(dest...)
	s.observe(ctx, op, table, sql, 1, start, err)
	if err != nil {
		return fmt.Errorf("executing query: %w", err)
	}
	return nil
}

// queryMaps guards, runs and audits a multi-row statement.
func (s *Source) queryMaps(ctx context.Context, q querier, op, table, sql string, args []any) ([]map[string]any, error) {
	if err := s.opts.Guard.Check(sql); err != nil {
		return nil, fmt.Errorf("rejected generated statement: %w", err)
	}
	start := time.Now()
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		s.observe(ctx, op, table, sql, 0, start, err)
		return nil, fmt.Errorf("executing query: %w", err)
	}
	defer rows.Close()

	result, err := rowsToMaps(rows)
	s.observe(ctx, op, table, sql, len(result), start, err)
	return result, err
}

// readOnly runs fn inside a read-only transaction. When a query timeout is
// configured it is enforced server-side with SET LOCAL so PostgreSQL cancels
// the statement even if the client goes away.
func (s *Source) readOnly(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if ms := s.opts.QueryTimeout.Milliseconds(); ms > 0 {
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = '%d'", ms)); err != nil {
			return fmt.Errorf("setting statement timeout: %w", err)
		}
	}

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *Source) observe(ctx context.Context, op, table, sql string, rows int, start time.Time, err error) {
	elapsed := time.Since(start)
	s.opts.Inst.RecordQueryDuration(ctx, float64(elapsed.Milliseconds()))
	if err != nil {
		s.opts.Inst.IncrementQueryErrors(ctx)
	} else {
		s.opts.Inst.IncrementQueryCount(ctx)
	}

	s.opts.Auditor.Record(ctx, port.AuditEntry{
		Operation:    op,
		Datasource:   s.opts.Datasource,
		Table:        table,
		SQL:          sql,
		RowsReturned: rows,
		DurationMS:   elapsed.Milliseconds(),
		Err:          err,
	})

	s.opts.Logger.LogAttrs(ctx, slog.LevelDebug, "statement executed",
		slog.String("db.system", "postgresql"),
		slog.String("db.collection.name", table),
		slog.String("plumbline.operation", op),
		slog.Duration("duration", elapsed),
		slog.Bool("error", err != nil),
	)
}
