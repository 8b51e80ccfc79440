package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tabletalk/tabletalk/internal/observability"
)

// Runner drives jobs through the provider: it submits, waits for a terminal
// state with a bounded poll cadence, and maps the outcome to the caller's
// vocabulary. Validate reports a Verdict; Execute returns rows or an
// ExecutionError.
type Runner struct {
	client       Client
	logger       *slog.Logger
	catalog      string
	database     string
	workgroup    string
	outputPrefix string
	pollInterval time.Duration
	waitTimeout  time.Duration
}

type RunnerOptions struct {
	Catalog      string
	Database     string
	Workgroup    string
	OutputPrefix string
	PollInterval time.Duration
	WaitTimeout  time.Duration
}

func NewRunner(client Client, logger *slog.Logger, opts RunnerOptions) (*Runner, error) {
	if client == nil {
		return nil, errors.New("engine: client is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.PollInterval <= 0 {
		return nil, errors.New("engine: poll interval must be positive")
	}
	if opts.WaitTimeout <= 0 {
		return nil, errors.New("engine: wait timeout must be positive")
	}
	return &Runner{
		client:       client,
		logger:       logger,
		catalog:      opts.Catalog,
		database:     opts.Database,
		workgroup:    opts.Workgroup,
		outputPrefix: opts.OutputPrefix,
		pollInterval: opts.PollInterval,
		waitTimeout:  opts.WaitTimeout,
	}, nil
}

// Validate dry-runs one SQL candidate. A provider or transport failure is
// returned as an error, not folded into the verdict, so callers can tell a
// rejected query apart from an unreachable backend.
func (r *Runner) Validate(ctx context.Context, sql string) (Verdict, error) {
	started := time.Now()
	status, _, err := r.run(ctx, Submission{
		SQL:            sql,
		DryRun:         true,
		Catalog:        r.catalog,
		Database:       r.database,
		Workgroup:      r.workgroup,
		OutputLocation: r.outputPrefix,
	})
	observability.ObserveEngineJob("dry_run", jobStateLabel(status, err), time.Since(started))
	if err != nil {
		return Verdict{}, err
	}
	if status.State == StateSucceeded {
		return Passed(), nil
	}
	return Failed(status.StateReason), nil
}

// Execute runs validated SQL to completion and fetches the rows.
func (r *Runner) Execute(ctx context.Context, sql string) (ResultSet, error) {
	started := time.Now()
	status, jobID, err := r.run(ctx, Submission{
		SQL:            sql,
		Catalog:        r.catalog,
		Database:       r.database,
		Workgroup:      r.workgroup,
		OutputLocation: r.outputPrefix,
	})
	observability.ObserveEngineJob("execute", jobStateLabel(status, err), time.Since(started))
	if err != nil {
		return ResultSet{}, err
	}
	if status.State != StateSucceeded {
		return ResultSet{}, &ExecutionError{JobID: jobID, State: status.State, Reason: status.StateReason}
	}
	results, err := r.client.FetchResults(ctx, jobID)
	if err != nil {
		return ResultSet{}, fmt.Errorf("fetch results for job %s: %w", jobID, err)
	}
	return results, nil
}

// jobStateLabel is the metric state label for one job. Transport and poll
// failures carry no job state, so they are labeled as errors instead of an
// empty string.
func jobStateLabel(status JobStatus, err error) string {
	if err != nil {
		return "error"
	}
	return string(status.State)
}

func (r *Runner) run(ctx context.Context, in Submission) (JobStatus, string, error) {
	jobID, err := r.client.Submit(ctx, in)
	if err != nil {
		return JobStatus{}, "", fmt.Errorf("submit query job: %w", err)
	}
	waitCtx, cancel := context.WithTimeout(ctx, r.waitTimeout)
	defer cancel()
	status, err := r.wait(waitCtx, jobID)
	if err != nil {
		return JobStatus{}, jobID, err
	}
	r.logger.Debug("query job finished",
		slog.String("job_id", jobID),
		slog.String("state", string(status.State)),
		slog.Bool("dry_run", in.DryRun))
	return status, jobID, nil
}

func (r *Runner) wait(ctx context.Context, jobID string) (JobStatus, error) {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()
	for {
		status, err := r.client.Poll(ctx, jobID)
		if err != nil {
			return JobStatus{}, fmt.Errorf("poll query job %s: %w", jobID, err)
		}
		if status.State.Terminal() {
			return status, nil
		}
		select {
		case <-ctx.Done():
			return JobStatus{}, fmt.Errorf("wait for query job %s: %w", jobID, ctx.Err())
		case <-ticker.C:
		}
	}
}
