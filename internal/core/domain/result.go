package domain

import "time"

// ExpectationResult is the outcome of checking one rule against a table.
type ExpectationResult struct {
	Expectation       Expectation `json:"expectation"`
	Success           bool        `json:"success"`
	ElementCount      int64       `json:"element_count"`
	UnexpectedCount   int64       `json:"unexpected_count"`
	ObservedValue     *int64      `json:"observed_value,omitempty"`
	PartialUnexpected []any       `json:"partial_unexpected_list,omitempty"`
	Error             string      `json:"error,omitempty"`
}

// ValidationResult is the outcome of running a suite against an asset.
type ValidationResult struct {
	RunID      string              `json:"run_id"`
	Definition string              `json:"validation_definition"`
	Datasource string              `json:"datasource"`
	Asset      string              `json:"asset"`
	Suite      string              `json:"suite"`
	Success    bool                `json:"success"`
	Results    []ExpectationResult `json:"results"`
	StartedAt  time.Time           `json:"started_at"`
	Duration   time.Duration       `json:"duration_ns"`
}

// Counts returns the number of rule results, and how many passed and failed.
func (r *ValidationResult) Counts() (total, passed, failed int) {
	total = len(r.Results)
	for _, res := range r.Results {
		if res.Success {
			passed++
		}
	}
	return total, passed, total - passed
}

// Outcome is the per-run verdict printed in summaries.
type Outcome string

const (
	OutcomePass Outcome = "PASS"
	OutcomeFail Outcome = "FAIL"
	OutcomeSkip Outcome = "SKIP"
)

// SummaryEntry records how one (datasource, asset, suite) run ended.
// Result is nil and Err is set when the run was skipped.
type SummaryEntry struct {
	Datasource string
	Asset      string
	Suite      string
	Outcome    Outcome
	Result     *ValidationResult
	Err        error
}

// Summary aggregates the outcomes of a validation pass in run order.
type Summary struct {
	Entries []SummaryEntry
}

// Add appends an entry.
func (s *Summary) Add(e SummaryEntry) {
	s.Entries = append(s.Entries, e)
}

// Counts tallies entries by outcome.
func (s *Summary) Counts() (passed, failed, skipped int) {
	for _, e := range s.Entries {
		switch e.Outcome {
		case OutcomePass:
			passed++
		case OutcomeFail:
			failed++
		case OutcomeSkip:
			skipped++
		}
	}
	return passed, failed, skipped
}

// HasFailures reports whether any run failed. Skipped runs do not count.
func (s *Summary) HasFailures() bool {
	_, failed, _ := s.Counts()
	return failed > 0
}
