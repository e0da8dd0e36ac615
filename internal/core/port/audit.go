package port

import "context"

// AuditEntry represents one statement sent to a datasource.
type AuditEntry struct {
	Operation    string // "profile", "validate" or "init"
	Datasource   string
	Table        string
	SQL          string
	RowsReturned int
	DurationMS   int64
	Err          error
}

// QueryAuditor records query audit events.
type QueryAuditor interface {
	Record(ctx context.Context, entry AuditEntry)
	Close() error
}
