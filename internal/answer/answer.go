// Package answer orchestrates one conversational turn: load session
// context, generate validated SQL, execute it, summarize the rows, and
// persist the exchange.
package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tabletalk/tabletalk/internal/completion"
	"github.com/tabletalk/tabletalk/internal/engine"
	"github.com/tabletalk/tabletalk/internal/generate"
	"github.com/tabletalk/tabletalk/internal/observability"
	"github.com/tabletalk/tabletalk/internal/session"
)

// RephraseMessage is returned as the answer when no candidate SQL survived
// validation. The turn ends without touching the executor or the history.
const RephraseMessage = "The query has failed. Please rephrase your question to attempt another query."

// Executor runs validated SQL to completion. engine.Runner satisfies it.
type Executor interface {
	Execute(ctx context.Context, sql string) (engine.ResultSet, error)
}

// Generator produces validated SQL for a question given prior turns.
type Generator interface {
	Generate(ctx context.Context, question string, history []completion.Message) (generate.Result, error)
}

// Result is the turn outcome handed back to the transport layer.
type Result struct {
	Answer string `json:"answer"`
	SQL    string `json:"sql_query"`
}

type Service struct {
	generator    Generator
	executor     Executor
	client       completion.Client
	store        session.Store
	logger       *slog.Logger
	sampling     completion.Sampling
	historyLimit int
}

type ServiceOptions struct {
	Sampling     completion.Sampling
	HistoryLimit int
}

func NewService(generator Generator, executor Executor, client completion.Client, store session.Store, logger *slog.Logger, opts ServiceOptions) (*Service, error) {
	if generator == nil {
		return nil, errors.New("answer: generator is required")
	}
	if executor == nil {
		return nil, errors.New("answer: executor is required")
	}
	if client == nil {
		return nil, errors.New("answer: completion client is required")
	}
	if store == nil {
		return nil, errors.New("answer: session store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		generator:    generator,
		executor:     executor,
		client:       client,
		store:        store,
		logger:       logger,
		sampling:     opts.Sampling,
		historyLimit: opts.HistoryLimit,
	}, nil
}

// Answer runs one full turn. Generation exhaustion is not an error at this
// level: the caller gets the rephrase message with an empty SQL field and
// nothing is written to the session. Execution and summarization failures
// are errors; history write failures are logged and counted but never fail
// a turn that already produced its answer.
func (s *Service) Answer(ctx context.Context, question string, sessionID string) (Result, error) {
	started := time.Now()

	history, err := s.loadHistory(ctx, sessionID)
	if err != nil {
		observability.ObserveTurn("history_error", time.Since(started))
		return Result{}, err
	}

	generated, err := s.generator.Generate(ctx, question, history)
	if err != nil {
		if errors.Is(err, generate.ErrGenerationExhausted) {
			s.logger.Info("generation exhausted, asking user to rephrase",
				slog.String("session_id", sessionID),
				slog.Int("attempts", len(generated.Attempts)))
			observability.ObserveTurn("rephrase", time.Since(started))
			return Result{Answer: RephraseMessage}, nil
		}
		observability.ObserveTurn("generation_error", time.Since(started))
		return Result{}, fmt.Errorf("generate sql: %w", err)
	}

	results, err := s.executor.Execute(ctx, generated.SQL)
	if err != nil {
		observability.ObserveTurn("execution_error", time.Since(started))
		return Result{}, fmt.Errorf("execute sql: %w", err)
	}

	summary, err := s.summarize(ctx, question, history, results)
	if err != nil {
		observability.ObserveTurn("summarization_error", time.Since(started))
		return Result{}, fmt.Errorf("summarize results: %w", err)
	}

	s.persistTurn(ctx, sessionID, question, generated.SQL, summary)
	observability.ObserveTurn("answered", time.Since(started))
	return Result{Answer: summary, SQL: generated.SQL}, nil
}

func (s *Service) loadHistory(ctx context.Context, sessionID string) ([]completion.Message, error) {
	turns, err := s.store.History(ctx, sessionID, s.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("load session history: %w", err)
	}
	messages := make([]completion.Message, 0, len(turns))
	for _, turn := range turns {
		messages = append(messages, completion.Message{Role: turn.Role, Content: turn.Content})
	}
	return messages, nil
}

func (s *Service) summarize(ctx context.Context, question string, history []completion.Message, results engine.ResultSet) (string, error) {
	messages := make([]completion.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, completion.Message{
		Role:    completion.RoleUser,
		Content: BuildSummaryPrompt(question, results.Text()),
	})

	reply, err := s.client.Complete(ctx, []string{generate.SystemPrompt}, messages, s.sampling)
	if err != nil {
		return "", err
	}
	return reply.Content, nil
}

// persistTurn appends the user question and the assistant memory turn. The
// assistant turn embeds the SQL next to the summary so follow-up generation
// sees what was actually queried.
func (s *Service) persistTurn(ctx context.Context, sessionID, question, sql, summary string) {
	memory := "SQL QUERY: " + sql + ". RESULTS: " + summary
	if _, err := s.store.Append(ctx, sessionID, session.RoleUser, question); err != nil {
		s.logger.Error("append user turn failed",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()))
		observability.IncrementSessionWriteFailure()
		return
	}
	if _, err := s.store.Append(ctx, sessionID, session.RoleAssistant, memory); err != nil {
		s.logger.Error("append assistant turn failed",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()))
		observability.IncrementSessionWriteFailure()
	}
}
