package sqlserver

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/guillermoBallester/plumbline/internal/audit"
	"github.com/guillermoBallester/plumbline/internal/core/port"
	_ "github.com/microsoft/go-mssqldb"
)

const (
	defaultSchema = "dbo"
	sampleLimit   = 20
)

// Options configures a Source.
type Options struct {
	Datasource   string
	Schema       string        // defaults to "dbo"
	QueryTimeout time.Duration // zero disables the per-statement timeout
	Auditor      port.QueryAuditor
	Inst         port.Instrumentation
	Logger       *slog.Logger
}

// Source profiles and validates tables of one SQL Server database.
type Source struct {
	db   *sql.DB
	opts Options
}

func NewSource(db *sql.DB, opts Options) *Source {
	if opts.Schema == "" {
		opts.Schema = defaultSchema
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
	return &Source{db: db, opts: opts}
}

// Open connects with a sqlserver:// URL and verifies the connection.
func Open(ctx context.Context, connString string, maxConns int, opts Options) (*Source, error) {
	db, err := sql.Open("sqlserver", connString)
	if err != nil {
		return nil, fmt.Errorf("opening sqlserver connection: %w", err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database (10s timeout): %w", err)
	}

	return NewSource(db, opts), nil
}

func (s *Source) Close() error {
	return s.db.Close()
}

// TableExists reports whether table is present in the configured schema.
func (s *Source) TableExists(ctx context.Context, table string) (bool, error) {
	var n int64
	err := s.queryRow(ctx, "init", table, queryTableExists,
		[]any{sql.Named("schema", s.opts.Schema), sql.Named("table", table)}, &n)
	if err != nil {
		return false, fmt.Errorf("checking table %s: %w", table, err)
	}
	return n > 0, nil
}

func (s *Source) table(name string) string {
	return qualifiedTable(s.opts.Schema, name)
}

func (s *Source) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.QueryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.opts.QueryTimeout)
}

func (s *Source) queryRow(ctx context.Context, op, table, query string, args []any, dest ...any) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	err := s.db.QueryRowContext(ctx, query, args...).Scan(dest...)
	s.observe(ctx, op, table, query, 1, start, err)
	if err != nil {
		return fmt.Errorf("executing query: %w", err)
	}
	return nil
}

// queryStrings runs a single-column query and returns its values.
func (s *Source) queryStrings(ctx context.Context, op, table, query string, args []any) ([]any, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.observe(ctx, op, table, query, 0, start, err)
		return nil, fmt.Errorf("executing query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []any
	for rows.Next() {
		var v sql.NullString
		if err := rows.Scan(&v); err != nil {
			s.observe(ctx, op, table, query, len(out), start, err)
			return nil, fmt.Errorf("reading row: %w", err)
		}
		if v.Valid {
			out = append(out, v.String)
		} else {
			out = append(out, nil)
		}
	}
	err = rows.Err()
	s.observe(ctx, op, table, query, len(out), start, err)
	if err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return out, nil
}

func (s *Source) observe(ctx context.Context, op, table, query string, rows int, start time.Time, err error) {
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
		SQL:          query,
		RowsReturned: rows,
		DurationMS:   elapsed.Milliseconds(),
		Err:          err,
	})
	s.opts.Logger.LogAttrs(ctx, slog.LevelDebug, "statement executed",
		slog.String("db.system", "mssql"),
		slog.String("db.collection.name", table),
		slog.String("plumbline.operation", op),
		slog.Duration("duration", elapsed),
		slog.Bool("error", err != nil),
	)
}
