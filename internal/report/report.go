// Package report renders command results for the console.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/guillermoBallester/plumbline/internal/core/domain"
	"github.com/guillermoBallester/plumbline/internal/core/service"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by Suite.
const (
	FormatTable = "table"
	FormatYAML  = "yaml"
	FormatJSON  = "json"
)

var rule = strings.Repeat("=", 60)

// Init prints what the bootstrap registered.
func Init(w io.Writer, r *service.InitReport) {
	if r.DatasourceCreated {
		_, _ = fmt.Fprintf(w, "Created datasource: %s\n", r.Datasource)
	} else {
		_, _ = fmt.Fprintf(w, "Datasource '%s' already exists\n", r.Datasource)
	}

	for _, a := range r.Assets {
		switch a.State {
		case service.AssetCreated:
			_, _ = fmt.Fprintf(w, "Added table asset: %s\n", a.Asset)
		case service.AssetExisting:
			_, _ = fmt.Fprintf(w, "Table asset already exists: %s\n", a.Asset)
		case service.AssetFailed:
			_, _ = fmt.Fprintf(w, "Warning - could not add %s: %v\n", a.Table, a.Err)
		}
	}

	created, existing, failed := r.Counts()
	_, _ = fmt.Fprintf(w, "\nAssets: %d added, %d existing, %d failed\n", created, existing, failed)
}

// Profile prints the statistics and rules produced for one table.
func Profile(w io.Writer, r service.ProfileReport) {
	_, _ = fmt.Fprintf(w, "\nAuto-profiling: %s\n", r.Table)
	if r.Err != nil {
		_, _ = fmt.Fprintf(w, "Error profiling %s: %v\n", r.Table, r.Err)
		return
	}

	_, _ = fmt.Fprintf(w, "Found %d columns\n", len(r.Stats))
	for _, st := range r.Stats {
		_, _ = fmt.Fprintf(w, "  %s\n", StatLine(st))
	}

	_, _ = fmt.Fprintf(w, "Created %d expectations automatically\n", r.Added)
	if r.Suite == nil || len(r.Suite.Expectations) == 0 {
		return
	}
	_, _ = fmt.Fprintln(w, "Expectations:")
	for _, e := range r.Suite.Expectations {
		_, _ = fmt.Fprintf(w, "  - %s\n", e.Type)
	}
}

// StatLine formats one column's statistics on a single line.
func StatLine(st domain.ColumnStats) string {
	if st.IsNumeric && st.Min != nil && st.Max != nil {
		return fmt.Sprintf("%s: %s [%.2f - %.2f] nulls=%s", st.Column, st.DataType, *st.Min, *st.Max, nulls(st.NullCount))
	}
	return fmt.Sprintf("%s: %s distinct=%d nulls=%s", st.Column, st.DataType, st.DistinctCount, nulls(st.NullCount))
}

func nulls(n *int64) string {
	if n == nil {
		return "-"
	}
	return strconv.FormatInt(*n, 10)
}

// ProfileSummary lists the suites a profile run generated.
func ProfileSummary(w io.Writer, reports []service.ProfileReport) {
	_, _ = fmt.Fprintf(w, "\n%s\nGenerated expectation suites:\n", rule)
	for _, r := range reports {
		if r.Err != nil || r.Suite == nil {
			_, _ = fmt.Fprintf(w, "  - %s: failed\n", r.Table)
			continue
		}
		_, _ = fmt.Fprintf(w, "  - %s: %d expectations\n", r.Suite.Name, len(r.Suite.Expectations))
	}
}

// Validation prints the outcome of one validation triple.
func Validation(w io.Writer, e domain.SummaryEntry) {
	_, _ = fmt.Fprintf(w, "\nValidating %s against %s...\n", e.Asset, e.Suite)
	if e.Result == nil {
		_, _ = fmt.Fprintf(w, "Error: %v\n", e.Err)
		return
	}

	status := "PASSED"
	if !e.Result.Success {
		status = "FAILED"
	}
	total, passed, failed := e.Result.Counts()
	_, _ = fmt.Fprintf(w, "Status: %s\n", status)
	_, _ = fmt.Fprintf(w, "Expectations: %d total, %d passed, %d failed\n", total, passed, failed)

	for _, r := range e.Result.Results {
		if r.Success {
			continue
		}
		switch {
		case r.Error != "":
			_, _ = fmt.Fprintf(w, "  x %s: error: %s\n", r.Expectation, r.Error)
		case r.ObservedValue != nil:
			_, _ = fmt.Fprintf(w, "  x %s: observed %d\n", r.Expectation, *r.ObservedValue)
		default:
			_, _ = fmt.Fprintf(w, "  x %s: %d unexpected of %d%s\n", r.Expectation, r.UnexpectedCount, r.ElementCount, samples(r.PartialUnexpected))
		}
	}
}

func samples(values []any) string {
	if len(values) == 0 {
		return ""
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return " (e.g. " + strings.Join(parts, ", ") + ")"
}

// Summary prints one status line per triple and the totals.
func Summary(w io.Writer, s *domain.Summary) {
	_, _ = fmt.Fprintf(w, "\n%s\nVALIDATION SUMMARY\n%s\n", rule, rule)
	for _, e := range s.Entries {
		_, _ = fmt.Fprintf(w, "[%s] %s / %s\n", e.Outcome, e.Asset, e.Suite)
	}
	passed, failed, skipped := s.Counts()
	_, _ = fmt.Fprintf(w, "\nTotal: %d passed, %d failed, %d skipped\n", passed, failed, skipped)
}

// SuiteList renders stored suites as a table.
func SuiteList(w io.Writer, suites []domain.Suite) {
	if len(suites) == 0 {
		_, _ = fmt.Fprintln(w, "(0 suites)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Suite", "Expectations", "Fingerprint", "Updated"})
	for _, s := range suites {
		t.AppendRow(table.Row{s.Name, len(s.Expectations), s.Fingerprint(), s.UpdatedAt.Format(time.RFC3339)})
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d suites)\n", len(suites))
}

// Suite renders one suite in the given format.
func Suite(w io.Writer, s *domain.Suite, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return err
		}
		return enc.Close()
	case FormatTable, "":
		renderSuiteTable(w, s)
		return nil
	default:
		return fmt.Errorf("unknown output format %q: must be table, yaml or json", format)
	}
}

func renderSuiteTable(w io.Writer, s *domain.Suite) {
	_, _ = fmt.Fprintf(w, "Suite: %s\n", s.Name)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Expectation", "Column", "Min", "Max"})
	for i, e := range s.Expectations {
		t.AppendRow(table.Row{i + 1, string(e.Type), e.Column, bound(e.MinValue), bound(e.MaxValue)})
	}
	t.Render()
}

func bound(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
