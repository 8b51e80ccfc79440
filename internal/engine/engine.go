// Package engine models the query backend as a submit-and-poll job API and
// layers the two operations the answering flow needs on top of it: a dry-run
// syntax check and a full execution.
package engine

import (
	"context"
	"fmt"
	"strings"
)

type JobState string

const (
	StateSubmitted JobState = "SUBMITTED"
	StateQueued    JobState = "QUEUED"
	StateRunning   JobState = "RUNNING"
	StateSucceeded JobState = "SUCCEEDED"
	StateFailed    JobState = "FAILED"
	StateCancelled JobState = "CANCELLED"
)

// Terminal reports whether a job has left the in-flight states.
func (s JobState) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateCancelled:
		return true
	default:
		return false
	}
}

type Submission struct {
	SQL            string
	DryRun         bool
	Catalog        string
	Database       string
	Workgroup      string
	OutputLocation string
}

type JobStatus struct {
	State       JobState
	StateReason string
}

// ResultSet holds execution output in textual form; it is consumed by the
// summarization step and never persisted verbatim.
type ResultSet struct {
	Columns []string
	Rows    [][]string
}

// Text renders the result for embedding into a summarization prompt.
func (rs ResultSet) Text() string {
	if len(rs.Columns) == 0 {
		return "(no rows)"
	}
	var b strings.Builder
	b.WriteString(strings.Join(rs.Columns, " | "))
	b.WriteByte('\n')
	for _, row := range rs.Rows {
		b.WriteString(strings.Join(row, " | "))
		b.WriteByte('\n')
	}
	return b.String()
}

// Client is the provider boundary: submit a query job, poll its state, fetch
// the rows once it succeeded.
type Client interface {
	Submit(ctx context.Context, in Submission) (string, error)
	Poll(ctx context.Context, jobID string) (JobStatus, error)
	FetchResults(ctx context.Context, jobID string) (ResultSet, error)
}

// Verdict is the outcome of a dry-run check. It is never partially valid.
type Verdict struct {
	Passed bool
	Reason string
}

func Passed() Verdict {
	return Verdict{Passed: true}
}

func Failed(reason string) Verdict {
	return Verdict{Passed: false, Reason: reason}
}

// ExecutionError reports a job that failed after its SQL already passed
// validation. It is terminal for the request; the repair loop only fixes
// generation-time failures.
type ExecutionError struct {
	JobID  string
	State  JobState
	Reason string
}

func (e *ExecutionError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("query job %s finished %s", e.JobID, e.State)
	}
	return fmt.Sprintf("query job %s finished %s: %s", e.JobID, e.State, e.Reason)
}
