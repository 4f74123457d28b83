package types

import (
	"fmt"

	"github.com/google/uuid"
)

// RecordError captures a single per-record failure with enough context to
// find the offending source row later.
type RecordError struct {
	VendorCallKey string `json:"vendor_call_key"`
	Stage         string `json:"stage"`
	Reason        string `json:"reason"`
}

// RunStats is the structured outcome of one pipeline run. It is returned by
// value from each batch call and merged up the stack; nothing in the pipeline
// mutates ambient global counters.
type RunStats struct {
	RunID    string        `json:"run_id"`
	Fetched  int           `json:"fetched"`
	Imported int           `json:"imported"`
	Analyzed int           `json:"analyzed"`
	Skipped  int           `json:"skipped"`
	Errors   []RecordError `json:"errors"`
}

func NewRunStats() RunStats {
	return RunStats{RunID: uuid.New().String()}
}

// AddError records a per-record failure without aborting the run.
func (s *RunStats) AddError(key, stage string, err error) {
	s.Errors = append(s.Errors, RecordError{VendorCallKey: key, Stage: stage, Reason: err.Error()})
}

// Merge folds another run's counters and errors into this one.
func (s *RunStats) Merge(other RunStats) {
	s.Fetched += other.Fetched
	s.Imported += other.Imported
	s.Analyzed += other.Analyzed
	s.Skipped += other.Skipped
	s.Errors = append(s.Errors, other.Errors...)
}

// Summary is the one-line run outcome logged at the end of every command.
func (s RunStats) Summary() string {
	return fmt.Sprintf("fetched=%d imported=%d analyzed=%d skipped=%d errors=%d",
		s.Fetched, s.Imported, s.Analyzed, s.Skipped, len(s.Errors))
}

// FirstErrors returns at most n error messages for display, so a large batch
// of failures does not flood the output.
func (s RunStats) FirstErrors(n int) []string {
	out := []string{}
	for i, e := range s.Errors {
		if i >= n {
			break
		}
		out = append(out, fmt.Sprintf("%s [%s]: %s", e.VendorCallKey, e.Stage, e.Reason))
	}
	return out
}
