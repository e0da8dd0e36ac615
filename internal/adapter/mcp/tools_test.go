package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/guillermoBallester/plumbline/internal/adapter/sqlite"
	"github.com/guillermoBallester/plumbline/internal/core/domain"
	"github.com/guillermoBallester/plumbline/internal/core/port"
	"github.com/guillermoBallester/plumbline/internal/core/service"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fake datasource ---

type fakeConn struct {
	stats map[string][]domain.ColumnStats
	fail  map[domain.ExpectationType]bool
}

func (f *fakeConn) ColumnStats(_ context.Context, table string) ([]domain.ColumnStats, error) {
	st, ok := f.stats[table]
	if !ok {
		return nil, fmt.Errorf("relation %q does not exist", table)
	}
	return st, nil
}

func (f *fakeConn) TableExists(_ context.Context, table string) (bool, error) {
	_, ok := f.stats[table]
	return ok, nil
}

func (f *fakeConn) Check(_ context.Context, _ string, exp domain.Expectation) (domain.ExpectationResult, error) {
	return domain.ExpectationResult{Expectation: exp, Success: !f.fail[exp.Type]}, nil
}

func (f *fakeConn) Close() error { return nil }

type fakeConnector struct{ conn *fakeConn }

func (c fakeConnector) Open(context.Context, domain.Datasource) (port.DatasourceConn, error) {
	return c.conn, nil
}

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

// --- helpers ---

func callTool(t *testing.T, s *server.MCPServer, toolName string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	session := server.NewInProcessSession("test", nil)
	require.NoError(t, s.RegisterSession(ctx, session))
	defer s.UnregisterSession(ctx, session.SessionID())
	sessionCtx := s.WithContext(ctx, session)

	initBytes, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0", "id": "init", "method": "initialize",
		"params": map[string]any{
			"protocolVersion": "2025-03-26",
			"capabilities":    map[string]any{},
			"clientInfo":      map[string]any{"name": "test", "version": "1.0"},
		},
	})
	s.HandleMessage(sessionCtx, initBytes)

	reqBytes, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0", "id": "call-1", "method": "tools/call",
		"params": map[string]any{
			"name":      toolName,
			"arguments": args,
		},
	})
	resp := s.HandleMessage(sessionCtx, reqBytes)
	respBytes, _ := json.Marshal(resp)

	var rpc struct {
		Result *mcp.CallToolResult       `json:"result"`
		Error  *struct{ Message string } `json:"error,omitempty"`
	}
	require.NoError(t, json.Unmarshal(respBytes, &rpc))
	require.Nil(t, rpc.Error, "unexpected RPC error: %v", rpc.Error)
	require.NotNil(t, rpc.Result)
	return rpc.Result
}

func toolText(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return ""
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return ""
	}
	return tc.Text
}

// setupServer wires the tools over a fresh project holding an item asset.
func setupServer(t *testing.T, conn *fakeConn) (*server.MCPServer, *sqlite.Store) {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "plumbline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ds := domain.Datasource{Name: "tpcc_postgres", Type: domain.DatasourcePostgres, ConnectionString: "postgres://test"}
	require.NoError(t, store.AddDatasource(ctx, ds))
	require.NoError(t, store.AddAsset(ctx, domain.Asset{Name: "item_asset", Datasource: ds.Name, Table: "item"}))

	connector := fakeConnector{conn: conn}
	tools := Tools{
		Store:      store,
		Profiler:   service.NewProfilerService(store, connector, logger, nil, nil),
		Validator:  service.NewValidationService(store, connector, logger, nil, nil),
		Datasource: ds,
		Validations: []service.ValidationTarget{
			{Datasource: ds.Name, Asset: "item_asset", Suite: "item_auto"},
		},
	}
	return NewServer("0.1.0", tools, logger, nil, nil), store
}

func itemConn() *fakeConn {
	return &fakeConn{stats: map[string][]domain.ColumnStats{
		"item": {
			{Column: "i_id", DataType: "integer", IsNumeric: true, Min: f64(1), Max: f64(10), TotalCount: 10, NullCount: i64(0), DistinctCount: 10},
			{Column: "i_name", DataType: "text", TotalCount: 10, NullCount: i64(1), DistinctCount: 4},
		},
	}}
}

// --- tests ---

func TestListSuites_Empty(t *testing.T) {
	s, _ := setupServer(t, itemConn())

	result := callTool(t, s, "list_suites", nil)
	require.False(t, result.IsError, toolText(result))
	assert.JSONEq(t, `[]`, toolText(result))
}

func TestProfileTable_ThenDescribe(t *testing.T) {
	s, _ := setupServer(t, itemConn())

	result := callTool(t, s, "profile_table", map[string]any{"table_name": "item"})
	require.False(t, result.IsError, toolText(result))

	var profiled profileResult
	require.NoError(t, json.Unmarshal([]byte(toolText(result)), &profiled))
	assert.Equal(t, "item", profiled.Table)
	assert.Equal(t, "item_asset", profiled.Asset)
	require.Len(t, profiled.Columns, 2)
	assert.Equal(t, "i_id", profiled.Columns[0].Column)
	assert.Equal(t, domain.CardinalityUnique, profiled.Columns[0].Cardinality)
	assert.Equal(t, domain.CardinalityEnumLike, profiled.Columns[1].Cardinality)
	// not-null, between, unique on i_id plus the row-count band.
	assert.Equal(t, 4, profiled.Added)
	assert.True(t, profiled.Changed)

	result = callTool(t, s, "list_suites", nil)
	var suites []suiteSummary
	require.NoError(t, json.Unmarshal([]byte(toolText(result)), &suites))
	require.Len(t, suites, 1)
	assert.Equal(t, "item_auto", suites[0].Name)
	assert.Equal(t, 4, suites[0].Expectations)

	result = callTool(t, s, "describe_suite", map[string]any{"name": "item_auto"})
	require.False(t, result.IsError, toolText(result))
	var suite domain.Suite
	require.NoError(t, json.Unmarshal([]byte(toolText(result)), &suite))
	require.Len(t, suite.Expectations, 4)
	assert.Equal(t, domain.ExpectTableRowCountToBeBetween, suite.Expectations[3].Type)
}

func TestProfileTable_CustomSuite(t *testing.T) {
	s, store := setupServer(t, itemConn())

	result := callTool(t, s, "profile_table", map[string]any{"table_name": "item", "suite": "item_strict"})
	require.False(t, result.IsError, toolText(result))

	_, err := store.GetSuite(context.Background(), "item_strict")
	require.NoError(t, err)
}

func TestProfileTable_Errors(t *testing.T) {
	s, _ := setupServer(t, itemConn())

	result := callTool(t, s, "profile_table", map[string]any{})
	assert.True(t, result.IsError)
	assert.Contains(t, toolText(result), "table_name is required")

	// Driver errors are not echoed back.
	result = callTool(t, s, "profile_table", map[string]any{"table_name": "ghost"})
	assert.True(t, result.IsError)
	assert.Contains(t, toolText(result), "internal error")
	assert.NotContains(t, toolText(result), "relation")
}

func TestDescribeSuite_Errors(t *testing.T) {
	s, _ := setupServer(t, itemConn())

	result := callTool(t, s, "describe_suite", map[string]any{})
	assert.True(t, result.IsError)
	assert.Contains(t, toolText(result), "name is required")

	result = callTool(t, s, "describe_suite", map[string]any{"name": "nope"})
	assert.True(t, result.IsError)
	assert.Contains(t, toolText(result), "not found")
}

func TestRunValidation(t *testing.T) {
	conn := itemConn()
	s, _ := setupServer(t, conn)

	// Not profiled yet: the configured triple is skipped.
	result := callTool(t, s, "run_validation", nil)
	require.False(t, result.IsError, toolText(result))
	var out validationResult
	require.NoError(t, json.Unmarshal([]byte(toolText(result)), &out))
	assert.Equal(t, 1, out.Skipped)
	assert.Contains(t, out.Entries[0].Error, "not found")

	callTool(t, s, "profile_table", map[string]any{"table_name": "item"})

	result = callTool(t, s, "run_validation", map[string]any{"asset": "item_asset", "suite": "item_auto"})
	require.False(t, result.IsError, toolText(result))
	out = validationResult{}
	require.NoError(t, json.Unmarshal([]byte(toolText(result)), &out))
	assert.Equal(t, 1, out.Passed)
	require.NotNil(t, out.Entries[0].Result)
	assert.Len(t, out.Entries[0].Result.Results, 4)

	conn.fail = map[domain.ExpectationType]bool{domain.ExpectColumnValuesToBeUnique: true}
	result = callTool(t, s, "run_validation", nil)
	out = validationResult{}
	require.NoError(t, json.Unmarshal([]byte(toolText(result)), &out))
	assert.Equal(t, 1, out.Failed)
	assert.Equal(t, domain.OutcomeFail, out.Entries[0].Outcome)
}

func TestRunValidation_PartialArgs(t *testing.T) {
	s, _ := setupServer(t, itemConn())

	result := callTool(t, s, "run_validation", map[string]any{"asset": "item_asset"})
	assert.True(t, result.IsError)
	assert.Contains(t, toolText(result), "must be given together")
}

func TestSanitizeError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name     string
		err      error
		contains string
		excludes string
	}{
		{"not found passes through", fmt.Errorf("suite %q: %w", "x", domain.ErrNotFound), `suite "x": not found`, ""},
		{"invalid rule passes through", domain.ErrInvalidExpectation, "invalid expectation", ""},
		{"deadline", context.DeadlineExceeded, "timed out", ""},
		{"statement timeout", &pgconn.PgError{Code: "57014", Message: "canceling statement"}, "timed out", "canceling"},
		{"cancelled", context.Canceled, "cancelled", ""},
		{"generic", fmt.Errorf("relation OID 12345"), "check server logs", "OID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := sanitizeError(logger, tt.err, "describe suite")
			assert.Contains(t, msg, tt.contains)
			if tt.excludes != "" {
				assert.NotContains(t, msg, tt.excludes)
			}
		})
	}
}
