package main

import (
	"fmt"
	"log/slog"

	"github.com/guillermoBallester/plumbline/internal/adapter/mcp"
	"github.com/guillermoBallester/plumbline/internal/adapter/project"
	"github.com/guillermoBallester/plumbline/internal/config"
	"github.com/guillermoBallester/plumbline/internal/core/domain"
	"github.com/guillermoBallester/plumbline/internal/core/service"
	"github.com/guillermoBallester/plumbline/internal/report"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

func newInitCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Register the datasource and one asset per configured table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, g, config.HostInit)
			if err != nil {
				return err
			}
			defer a.close()

			svc := service.NewBootstrapService(a.store, a.connector, a.logger, a.tracer)
			r, err := svc.Init(cmd.Context(), a.datasource(), a.project.Tables)
			if err != nil {
				return err
			}
			report.Init(a.out, r)
			return nil
		},
	}
}

func newProfileCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "profile [table...]",
		Short: "Profile tables and regenerate their suites",
		Long: `Profile collects per-column statistics and rebuilds the <table>_auto suite
from them. Without arguments every table of the project file is profiled.
A table that fails is reported and the rest still run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, g, config.HostProfile)
			if err != nil {
				return err
			}
			defer a.close()

			svc := service.NewProfilerService(a.store, a.connector, a.logger, a.tracer, a.inst)
			reports, err := svc.ProfileAll(cmd.Context(), a.datasource(), profileTargets(a.project.ProfileTargets(args)))
			for _, r := range reports {
				report.Profile(a.out, r)
			}
			if err != nil {
				return err
			}
			report.ProfileSummary(a.out, reports)
			return nil
		},
	}
}

func newValidateCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate every configured asset against its suite",
		Long: `Validate runs each (datasource, asset, suite) triple of the project file
and prints a summary. Runs whose datasource, asset or suite is missing are
skipped. The command exits non-zero when any run fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, g, config.HostInit)
			if err != nil {
				return err
			}
			defer a.close()

			svc := service.NewValidationService(a.store, a.connector, a.logger, a.tracer, a.inst)
			summary, err := svc.RunAll(cmd.Context(), validationTargets(a.project.Validations))
			if err != nil {
				return err
			}
			for _, e := range summary.Entries {
				report.Validation(a.out, e)
			}
			report.Summary(a.out, summary)

			if summary.HasFailures() {
				return domain.ErrValidationFailed
			}
			return nil
		},
	}
}

func newSuitesCommand(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suites",
		Short: "Inspect stored expectation suites",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List suites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, g, config.HostInit)
			if err != nil {
				return err
			}
			defer a.close()

			suites, err := a.store.ListSuites(cmd.Context())
			if err != nil {
				return err
			}
			report.SuiteList(a.out, suites)
			return nil
		},
	}

	var format string
	show := &cobra.Command{
		Use:   "show <name>",
		Short: "Print the expectations of a suite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, g, config.HostInit)
			if err != nil {
				return err
			}
			defer a.close()

			s, err := a.store.GetSuite(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return report.Suite(a.out, s, format)
		},
	}
	show.Flags().StringVarP(&format, "output", "o", report.FormatTable, "output format: table, yaml or json")

	cmd.AddCommand(list, show)
	return cmd
}

func newServeCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the suites and the profile/validate operations over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, g, config.HostProfile)
			if err != nil {
				return err
			}
			defer a.close()

			tools := mcp.Tools{
				Store:       a.store,
				Profiler:    service.NewProfilerService(a.store, a.connector, a.logger, a.tracer, a.inst),
				Validator:   service.NewValidationService(a.store, a.connector, a.logger, a.tracer, a.inst),
				Datasource:  a.datasource(),
				Validations: validationTargets(a.project.Validations),
			}
			s := mcp.NewServer(version, tools, a.logger, a.tracer, a.inst)

			a.logger.Info("serving MCP on stdio", slog.String("datasource", tools.Datasource.Name))
			return server.NewStdioServer(s).Listen(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "plumbline %s\n", version)
		},
	}
}

func profileTargets(in []project.ProfileTarget) []service.ProfileTarget {
	out := make([]service.ProfileTarget, len(in))
	for i, p := range in {
		out[i] = service.ProfileTarget{Table: p.Table, Asset: p.Asset, Suite: p.Suite}
	}
	return out
}

func validationTargets(in []project.ValidationTarget) []service.ValidationTarget {
	out := make([]service.ValidationTarget, len(in))
	for i, v := range in {
		out[i] = service.ValidationTarget{Datasource: v.Datasource, Asset: v.Asset, Suite: v.Suite}
	}
	return out
}
