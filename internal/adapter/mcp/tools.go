package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/guillermoBallester/plumbline/internal/core/domain"
	"github.com/guillermoBallester/plumbline/internal/core/port"
	"github.com/guillermoBallester/plumbline/internal/core/service"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const serverName = "plumbline"

const (
	descListSuites = "List the stored expectation suites with their rule counts. " +
		"Call this first to see which tables have been profiled."

	descDescribeSuite = "Return every expectation of a suite: type, column and bounds. " +
		"Use this to explain why a validation failed or to review generated rules."

	descDescribeSuiteParam = "Name of the suite, e.g. item_auto"

	descProfileTable = "Profile a table and regenerate its suite from the observed statistics: " +
		"not-null for columns without NULLs, value ranges widened by 10% for numeric columns, " +
		"uniqueness for fully distinct id-like columns and a row-count band of +/-20%. " +
		"The previous suite with the same name is replaced."

	descProfileTableParam = "Name of the table to profile"

	descProfileSuiteParam = "Suite to write (defaults to <table>_auto)"

	descRunValidation = "Validate assets against their suites and return the per-rule results " +
		"with pass/fail/skip totals. Without arguments every configured validation runs."

	descRunAssetParam = "Asset to validate, e.g. item_asset (requires suite)"

	descRunSuiteParam = "Suite to validate the asset against"
)

// Tools carries what the tool handlers need.
type Tools struct {
	Store     port.ProjectStore
	Profiler  *service.ProfilerService
	Validator *service.ValidationService

	// Datasource is profiled directly and is the default for validations.
	Datasource domain.Datasource
	// Validations run when run_validation is called without arguments.
	Validations []service.ValidationTarget
}

func RegisterTools(s *server.MCPServer, tools Tools, logger *slog.Logger) {
	s.AddTool(
		mcp.NewTool("list_suites",
			mcp.WithDescription(descListSuites),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		listSuitesHandler(tools.Store, logger),
	)

	s.AddTool(
		mcp.NewTool("describe_suite",
			mcp.WithDescription(descDescribeSuite),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("name",
				mcp.Required(),
				mcp.Description(descDescribeSuiteParam),
			),
		),
		describeSuiteHandler(tools.Store, logger),
	)

	if tools.Profiler != nil {
		s.AddTool(
			mcp.NewTool("profile_table",
				mcp.WithDescription(descProfileTable),
				mcp.WithString("table_name",
					mcp.Required(),
					mcp.Description(descProfileTableParam),
				),
				mcp.WithString("suite",
					mcp.Description(descProfileSuiteParam),
				),
			),
			profileTableHandler(tools.Profiler, tools.Datasource, logger),
		)
	}

	if tools.Validator != nil {
		s.AddTool(
			mcp.NewTool("run_validation",
				mcp.WithDescription(descRunValidation),
				mcp.WithReadOnlyHintAnnotation(true),
				mcp.WithString("asset",
					mcp.Description(descRunAssetParam),
				),
				mcp.WithString("suite",
					mcp.Description(descRunSuiteParam),
				),
			),
			runValidationHandler(tools.Validator, tools.Datasource.Name, tools.Validations, logger),
		)
	}
}

// suiteSummary is the list_suites row.
type suiteSummary struct {
	Name         string `json:"name"`
	Expectations int    `json:"expectations"`
	Fingerprint  string `json:"fingerprint"`
}

func listSuitesHandler(store port.ProjectStore, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		suites, err := store.ListSuites(ctx)
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(logger, err, "list suites")), nil
		}

		out := make([]suiteSummary, 0, len(suites))
		for _, s := range suites {
			out = append(out, suiteSummary{Name: s.Name, Expectations: len(s.Expectations), Fingerprint: s.Fingerprint()})
		}
		return jsonResult(out)
	}
}

func describeSuiteHandler(store port.ProjectStore, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, ok := request.GetArguments()["name"].(string)
		if !ok || name == "" {
			return mcp.NewToolResultError("name is required"), nil
		}

		suite, err := store.GetSuite(ctx, name)
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(logger, err, "describe suite")), nil
		}
		return jsonResult(suite)
	}
}

// profiledColumn adds the cardinality class to a column's statistics.
type profiledColumn struct {
	domain.ColumnStats
	Cardinality domain.CardinalityClass `json:"cardinality"`
}

// profileResult is the profile_table payload.
type profileResult struct {
	Table   string           `json:"table"`
	Asset   string           `json:"asset"`
	Columns []profiledColumn `json:"columns"`
	Suite   *domain.Suite    `json:"suite"`
	Added   int              `json:"expectations_added"`
	Changed bool             `json:"changed"`
}

func profileTableHandler(profiler *service.ProfilerService, ds domain.Datasource, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		table, ok := request.GetArguments()["table_name"].(string)
		if !ok || table == "" {
			return mcp.NewToolResultError("table_name is required"), nil
		}
		suite, _ := request.GetArguments()["suite"].(string)
		if suite == "" {
			suite = domain.SuiteName(table)
		}

		r, err := profiler.ProfileTable(ctx, ds, service.ProfileTarget{Table: table, Suite: suite})
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(logger, err, "profile table")), nil
		}
		columns := make([]profiledColumn, len(r.Stats))
		for i, st := range r.Stats {
			columns[i] = profiledColumn{ColumnStats: st, Cardinality: st.Cardinality()}
		}
		return jsonResult(profileResult{
			Table:   r.Table,
			Asset:   r.Asset,
			Columns: columns,
			Suite:   r.Suite,
			Added:   r.Added,
			Changed: r.Changed,
		})
	}
}

// validationEntry is one run_validation row.
type validationEntry struct {
	Asset   string                   `json:"asset"`
	Suite   string                   `json:"suite"`
	Outcome domain.Outcome           `json:"outcome"`
	Result  *domain.ValidationResult `json:"result,omitempty"`
	Error   string                   `json:"error,omitempty"`
}

type validationResult struct {
	Passed  int               `json:"passed"`
	Failed  int               `json:"failed"`
	Skipped int               `json:"skipped"`
	Entries []validationEntry `json:"entries"`
}

func runValidationHandler(validator *service.ValidationService, datasource string, defaults []service.ValidationTarget, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		asset, _ := request.GetArguments()["asset"].(string)
		suite, _ := request.GetArguments()["suite"].(string)

		targets := defaults
		switch {
		case asset != "" && suite != "":
			targets = []service.ValidationTarget{{Datasource: datasource, Asset: asset, Suite: suite}}
		case asset != "" || suite != "":
			return mcp.NewToolResultError("asset and suite must be given together"), nil
		}

		summary, err := validator.RunAll(ctx, targets)
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(logger, err, "run validation")), nil
		}

		out := validationResult{Entries: make([]validationEntry, 0, len(summary.Entries))}
		out.Passed, out.Failed, out.Skipped = summary.Counts()
		for _, e := range summary.Entries {
			ve := validationEntry{Asset: e.Asset, Suite: e.Suite, Outcome: e.Outcome, Result: e.Result}
			if e.Err != nil {
				ve.Error = sanitizeError(logger, e.Err, "run validation")
			}
			out.Entries = append(out.Entries, ve)
		}
		return jsonResult(out)
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// sanitizeError turns err into a message safe to hand back to the client.
// Lookup and rule errors pass through; anything else is logged and replaced.
func sanitizeError(logger *slog.Logger, err error, op string) string {
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrAlreadyExists),
		errors.Is(err, domain.ErrInvalidExpectation):
		return fmt.Sprintf("%s failed: %v", op, err)
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &pgErr) && pgErr.Code == "57014":
		return fmt.Sprintf("%s failed: query timed out", op)
	case errors.Is(err, context.Canceled):
		return fmt.Sprintf("%s failed: request cancelled", op)
	}

	logger.Error("tool error", slog.String("operation", op), slog.String("error", err.Error()))
	return fmt.Sprintf("%s failed: internal error, check server logs", op)
}
