// Package generate turns a natural-language question into validated SQL. It
// runs a bounded generate-check-repair loop: each candidate is dry-run
// checked, failures feed a corrective re-prompt, and the first passing
// candidate wins.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tabletalk/tabletalk/internal/completion"
	"github.com/tabletalk/tabletalk/internal/engine"
	"github.com/tabletalk/tabletalk/internal/observability"
	"github.com/tabletalk/tabletalk/internal/schema"
)

// ErrGenerationExhausted means the attempt budget ran out without any
// candidate passing validation. The failed candidates are carried in the
// Result alongside the error.
var ErrGenerationExhausted = errors.New("generation attempts exhausted")

// Validator dry-runs one SQL candidate. engine.Runner satisfies it.
type Validator interface {
	Validate(ctx context.Context, sql string) (engine.Verdict, error)
}

// Attempt records one loop iteration for logging and diagnostics.
type Attempt struct {
	Index   int
	SQL     string
	Verdict engine.Verdict
}

type Result struct {
	SQL      string
	Attempts []Attempt
}

type Generator struct {
	client      completion.Client
	provider    schema.Provider
	validator   Validator
	logger      *slog.Logger
	sampling    completion.Sampling
	maxAttempts int
}

type GeneratorOptions struct {
	Sampling    completion.Sampling
	MaxAttempts int
}

func NewGenerator(client completion.Client, provider schema.Provider, validator Validator, logger *slog.Logger, opts GeneratorOptions) (*Generator, error) {
	if client == nil {
		return nil, errors.New("generate: completion client is required")
	}
	if provider == nil {
		return nil, errors.New("generate: schema provider is required")
	}
	if validator == nil {
		return nil, errors.New("generate: validator is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxAttempts <= 0 {
		return nil, errors.New("generate: max attempts must be positive")
	}
	return &Generator{
		client:      client,
		provider:    provider,
		validator:   validator,
		logger:      logger,
		sampling:    opts.Sampling,
		maxAttempts: opts.MaxAttempts,
	}, nil
}

// Generate produces validated SQL for the question, re-prompting with the
// dry-run error and failed candidate after each rejection. A candidate that
// carries no marked SQL block consumes an attempt like a rejected one.
// Transport and backend failures abort the loop; they are not repairable by
// re-prompting.
func (g *Generator) Generate(ctx context.Context, question string, history []completion.Message) (Result, error) {
	descriptor, err := g.provider.Describe(ctx, question)
	if err != nil {
		return Result{}, fmt.Errorf("describe schema: %w", err)
	}
	if descriptor.Empty() {
		return Result{}, fmt.Errorf("describe schema: %w", schema.ErrMetadataUnavailable)
	}

	messages := make([]completion.Message, 0, len(history)+2*g.maxAttempts)
	messages = append(messages, history...)
	messages = append(messages, completion.Message{
		Role:    completion.RoleUser,
		Content: BuildInstructionPrompt(descriptor.PromptText(), question),
	})

	result := Result{}
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		reply, err := g.client.Complete(ctx, []string{SystemPrompt}, messages, g.sampling)
		if err != nil {
			return result, fmt.Errorf("generate sql attempt %d: %w", attempt, err)
		}

		sql, extractErr := ExtractSQL(reply.Content)
		if extractErr != nil {
			g.logger.Warn("model reply missing sql block", slog.Int("attempt", attempt))
			observability.ObserveGenerationAttempt(false)
			result.Attempts = append(result.Attempts, Attempt{
				Index:   attempt,
				Verdict: engine.Failed(extractErr.Error()),
			})
			messages = append(messages, reply, completion.Message{
				Role:    completion.RoleUser,
				Content: "Your reply did not contain a SQL query inside <SQL></SQL> tags. Answer again and return the sql query inside the <SQL></SQL> tags.",
			})
			continue
		}

		verdict, err := g.validator.Validate(ctx, sql)
		if err != nil {
			return result, fmt.Errorf("validate sql attempt %d: %w", attempt, err)
		}
		observability.ObserveGenerationAttempt(verdict.Passed)
		result.Attempts = append(result.Attempts, Attempt{Index: attempt, SQL: sql, Verdict: verdict})

		if verdict.Passed {
			g.logger.Info("sql candidate passed validation",
				slog.Int("attempt", attempt),
				slog.String("sql", sql))
			result.SQL = sql
			return result, nil
		}

		g.logger.Info("sql candidate failed validation",
			slog.Int("attempt", attempt),
			slog.String("reason", verdict.Reason))
		messages = append(messages, reply, completion.Message{
			Role:    completion.RoleUser,
			Content: BuildCorrectionPrompt(verdict.Reason, sql),
		})
	}

	observability.IncrementGenerationExhausted()
	return result, fmt.Errorf("%w after %d attempts", ErrGenerationExhausted, g.maxAttempts)
}
