package main

import (
	"time"

	"github.com/guillermoBallester/plumbline/internal/config"
	"github.com/spf13/cobra"
)

// globalFlags holds the persistent flags shared by every subcommand.
type globalFlags struct {
	projectRoot    string
	projectFile    string
	logLevel       string
	queryTimeout   time.Duration
	datasourceType string
	datasourceName string
	auditLog       string
	otel           bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "plumbline",
		Short: "Profile database tables into expectation suites and validate them",
		Long: `plumbline registers the tables of a database as assets, profiles them into
suites of expectations (not-null, value ranges, uniqueness, row-count bands)
and validates the tables against those suites.

Connection settings come from GX_DATASOURCE_* environment variables; project
state is kept under <project-root>/gx.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.projectRoot, "project-root", "", "project root directory (env GX_PROJECT_ROOT, default /app)")
	pf.StringVar(&g.projectFile, "project-file", "", "project file (env PROJECT_FILE, default <root>/gx/project.yml)")
	pf.StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn, error (env LOG_LEVEL)")
	pf.DurationVar(&g.queryTimeout, "query-timeout", 0, "per-statement timeout, 0 disables (env QUERY_TIMEOUT)")
	pf.StringVar(&g.datasourceType, "datasource-type", "", "postgres or sqlserver (env GX_DATASOURCE_TYPE)")
	pf.StringVar(&g.datasourceName, "datasource-name", "", "datasource name (env GX_DATASOURCE_NAME)")
	pf.StringVar(&g.auditLog, "audit-log", "", "write every SQL statement to this NDJSON file")
	pf.BoolVar(&g.otel, "otel", false, "enable OpenTelemetry traces and metrics (env OTEL_ENABLED)")

	root.AddCommand(
		newInitCommand(g),
		newProfileCommand(g),
		newValidateCommand(g),
		newSuitesCommand(g),
		newServeCommand(g),
		newVersionCommand(),
	)
	return root
}

// overrides keeps only the flags the user actually set, so env values
// survive otherwise.
func (g *globalFlags) overrides(cmd *cobra.Command) config.Overrides {
	fs := cmd.Flags()
	o := config.Overrides{
		OTelEnabled: g.otel,
		AuditLog:    g.auditLog,
	}
	if fs.Changed("project-root") {
		o.ProjectRoot = &g.projectRoot
	}
	if fs.Changed("project-file") {
		o.ProjectFile = &g.projectFile
	}
	if fs.Changed("log-level") {
		o.LogLevel = &g.logLevel
	}
	if fs.Changed("query-timeout") {
		o.QueryTimeout = &g.queryTimeout
	}
	if fs.Changed("datasource-type") {
		o.DatasourceType = &g.datasourceType
	}
	if fs.Changed("datasource-name") {
		o.DatasourceName = &g.datasourceName
	}
	return o
}
