package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/guillermoBallester/plumbline/internal/core/port"
	"go.opentelemetry.io/otel/trace"
)

// record is one NDJSON line.
type record struct {
	Timestamp    string  `json:"ts"`
	Operation    string  `json:"op"`
	Datasource   string  `json:"datasource,omitempty"`
	Table        string  `json:"table,omitempty"`
	SQL          string  `json:"sql"`
	RowsReturned int     `json:"rows_returned"`
	DurationMS   int64   `json:"duration_ms"`
	Error        *string `json:"error"`
	TraceID      string  `json:"trace_id,omitempty"`
}

// FileAuditor appends one JSON object per statement to a file.
type FileAuditor struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
	now  func() time.Time
}

// NewFileAuditor opens path for appending, creating it and its parent
// directory if needed.
func NewFileAuditor(path string) (*FileAuditor, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating audit log directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	return &FileAuditor{
		file: f,
		enc:  json.NewEncoder(f),
		now:  time.Now,
	}, nil
}

// Record writes entry as one line. Multi-line SQL is collapsed onto that
// line, and the trace ID of the active span is attached when there is one.
func (a *FileAuditor) Record(ctx context.Context, entry port.AuditEntry) {
	rec := record{
		Timestamp:    a.now().UTC().Format(time.RFC3339Nano),
		Operation:    entry.Operation,
		Datasource:   entry.Datasource,
		Table:        entry.Table,
		SQL:          compact(entry.SQL),
		RowsReturned: entry.RowsReturned,
		DurationMS:   entry.DurationMS,
	}
	if entry.Err != nil {
		msg := entry.Err.Error()
		rec.Error = &msg
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		rec.TraceID = sc.TraceID().String()
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	_ = a.enc.Encode(rec) // audit I/O never fails a profile or validation run
}

func (a *FileAuditor) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file.Close()
}

func compact(sql string) string {
	return strings.Join(strings.Fields(sql), " ")
}

// NoopAuditor discards all audit entries.
type NoopAuditor struct{}

func (NoopAuditor) Record(context.Context, port.AuditEntry) {}
func (NoopAuditor) Close() error                            { return nil }
