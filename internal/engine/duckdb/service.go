// Package duckdb runs query jobs against an embedded DuckDB instance over
// the parquet objects registered in the dataset catalog. It implements the
// submit-and-poll contract of engine.Client; each job runs asynchronously
// and stages its result set as a parquet object at the output location.
package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/tabletalk/tabletalk/internal/catalog"
	"github.com/tabletalk/tabletalk/internal/engine"
	"github.com/tabletalk/tabletalk/internal/storage"
)

var ErrJobNotFound = errors.New("query job not found")

type Service struct {
	catalog    catalog.Repository
	store      storage.ObjectStore
	logger     *slog.Logger
	rowLimit   int
	runTimeout time.Duration

	mu   sync.Mutex
	jobs map[string]*job
}

type ServiceOptions struct {
	RowLimit   int
	RunTimeout time.Duration
}

type job struct {
	submission engine.Submission
	state      engine.JobState
	reason     string
	columns    []string
	resultPath string
}

func NewService(repo catalog.Repository, store storage.ObjectStore, logger *slog.Logger, opts ServiceOptions) (*Service, error) {
	if repo == nil {
		return nil, errors.New("catalog repository is required")
	}
	if store == nil {
		return nil, errors.New("object store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = time.Minute
	}
	return &Service{
		catalog:    repo,
		store:      store,
		logger:     logger,
		rowLimit:   opts.RowLimit,
		runTimeout: opts.RunTimeout,
		jobs:       map[string]*job{},
	}, nil
}

func (s *Service) Submit(_ context.Context, in engine.Submission) (string, error) {
	if strings.TrimSpace(in.SQL) == "" {
		return "", fmt.Errorf("sql is required")
	}

	jobID := uuid.NewString()
	s.mu.Lock()
	s.jobs[jobID] = &job{submission: in, state: engine.StateQueued}
	s.mu.Unlock()

	go s.run(jobID, in)
	return jobID, nil
}

func (s *Service) Poll(_ context.Context, jobID string) (engine.JobStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.jobs[jobID]
	if !ok {
		return engine.JobStatus{}, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	status := engine.JobStatus{State: record.state, StateReason: record.reason}
	// Evict once the caller has observed the outcome. Succeeded full runs
	// stay until FetchResults consumes them.
	if status.State.Terminal() && (record.submission.DryRun || status.State != engine.StateSucceeded) {
		delete(s.jobs, jobID)
	}
	return status, nil
}

func (s *Service) FetchResults(ctx context.Context, jobID string) (engine.ResultSet, error) {
	s.mu.Lock()
	record, ok := s.jobs[jobID]
	if !ok {
		s.mu.Unlock()
		return engine.ResultSet{}, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	state := record.state
	dryRun := record.submission.DryRun
	columns := record.columns
	resultPath := record.resultPath
	s.mu.Unlock()

	if state != engine.StateSucceeded {
		return engine.ResultSet{}, fmt.Errorf("query job %s is %s, results unavailable", jobID, state)
	}
	if dryRun {
		return engine.ResultSet{}, fmt.Errorf("query job %s was a dry run, no results staged", jobID)
	}
	rows, err := s.loadResultObject(ctx, resultPath, columns)
	if err != nil {
		return engine.ResultSet{}, err
	}

	s.mu.Lock()
	delete(s.jobs, jobID)
	s.mu.Unlock()
	return engine.ResultSet{Columns: columns, Rows: rows}, nil
}

// run executes the job in the background. Jobs outlive the submitting
// request, so the run owns its own deadline.
func (s *Service) run(jobID string, in engine.Submission) {
	ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
	defer cancel()

	s.setState(jobID, engine.StateRunning, "")
	columns, resultPath, err := s.execute(ctx, jobID, in)
	if err != nil {
		s.logger.Warn("query job failed",
			slog.String("job_id", jobID),
			slog.Bool("dry_run", in.DryRun),
			slog.String("error", err.Error()))
		s.setFailed(jobID, err.Error())
		return
	}
	s.setSucceeded(jobID, columns, resultPath)
}

func (s *Service) execute(ctx context.Context, jobID string, in engine.Submission) ([]string, string, error) {
	workDir, err := os.MkdirTemp("", "tabletalk-query-")
	if err != nil {
		return nil, "", fmt.Errorf("create query temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, "", fmt.Errorf("open duckdb: %w", err)
	}
	defer func() { _ = db.Close() }()

	sqlText := stripTrailingSemicolons(in.SQL)
	if sqlText == "" {
		return nil, "", fmt.Errorf("sql is required")
	}

	if err := s.attachTables(ctx, db, workDir, sqlText); err != nil {
		return nil, "", err
	}
	if in.DryRun {
		rows, err := db.QueryContext(ctx, "EXPLAIN "+sqlText)
		if err != nil {
			return nil, "", fmt.Errorf("explain query: %w", err)
		}
		_ = rows.Close()
		return nil, "", nil
	}
	if s.rowLimit > 0 {
		sqlText = fmt.Sprintf("SELECT * FROM (%s) AS q LIMIT %d", sqlText, s.rowLimit)
	}

	rows, err := db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, "", fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, "", fmt.Errorf("query columns: %w", err)
	}

	resultRows := make([][]string, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, "", fmt.Errorf("scan row: %w", err)
		}
		resultRows = append(resultRows, renderValues(values))
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("iterate rows: %w", err)
	}

	resultPath, err := storage.BuildResultPath(in.OutputLocation, jobID)
	if err != nil {
		return nil, "", fmt.Errorf("build result path: %w", err)
	}
	if err := s.stageResultObject(ctx, resultPath, columns, resultRows); err != nil {
		return nil, "", err
	}
	return columns, resultPath, nil
}

// attachTables downloads the parquet objects of the catalog tables the SQL
// references into the work dir and exposes each as a view, so the SQL can
// reference tables by name. Tables the statement never names are skipped.
func (s *Service) attachTables(ctx context.Context, db *sql.DB, workDir, sqlText string) error {
	tables, err := s.catalog.ListTables(ctx)
	if err != nil {
		return fmt.Errorf("list catalog tables: %w", err)
	}
	tables = filterReferencedTables(tables, sqlText)
	for index, table := range tables {
		reader, err := s.store.Get(ctx, table.ObjectPath)
		if err != nil {
			return fmt.Errorf("get object %q: %w", table.ObjectPath, err)
		}
		localPath := filepath.Join(workDir, fmt.Sprintf("%s_%d.parquet", sanitizeFileComponent(table.TableName), index))
		if err := writeFile(localPath, reader); err != nil {
			_ = reader.Close()
			return fmt.Errorf("write local parquet file %q: %w", localPath, err)
		}
		if err := reader.Close(); err != nil {
			return fmt.Errorf("close object %q: %w", table.ObjectPath, err)
		}

		viewSQL := fmt.Sprintf(`CREATE OR REPLACE VIEW %s AS SELECT * FROM read_parquet(%s)`, quoteIdent(table.TableName), quoteLiteral(localPath))
		if _, err := db.ExecContext(ctx, viewSQL); err != nil {
			return fmt.Errorf("create view for table %q: %w", table.TableName, err)
		}
	}
	return nil
}

// filterReferencedTables keeps the catalog tables whose names occur as
// standalone identifiers in the SQL. When nothing matches, every table is
// attached so DuckDB reports the unknown name itself.
func filterReferencedTables(tables []catalog.TableDef, sqlText string) []catalog.TableDef {
	lowered := strings.ToLower(sqlText)
	referenced := make([]catalog.TableDef, 0, len(tables))
	for _, table := range tables {
		if sqlReferencesIdent(lowered, strings.ToLower(table.TableName)) {
			referenced = append(referenced, table)
		}
	}
	if len(referenced) == 0 {
		return tables
	}
	return referenced
}

func sqlReferencesIdent(loweredSQL, name string) bool {
	if name == "" {
		return false
	}
	for offset := 0; ; {
		pos := strings.Index(loweredSQL[offset:], name)
		if pos < 0 {
			return false
		}
		pos += offset
		end := pos + len(name)
		startsClean := pos == 0 || !isIdentByte(loweredSQL[pos-1])
		endsClean := end >= len(loweredSQL) || !isIdentByte(loweredSQL[end])
		if startsClean && endsClean {
			return true
		}
		offset = pos + 1
	}
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z')
}

func (s *Service) setState(jobID string, state engine.JobState, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.jobs[jobID]; ok {
		record.state = state
		record.reason = reason
	}
}

func (s *Service) setFailed(jobID string, reason string) {
	s.setState(jobID, engine.StateFailed, reason)
}

func (s *Service) setSucceeded(jobID string, columns []string, resultPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.jobs[jobID]; ok {
		record.state = engine.StateSucceeded
		record.columns = columns
		record.resultPath = resultPath
	}
}

func renderValues(values []any) []string {
	rendered := make([]string, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case nil:
			rendered[i] = ""
		case []byte:
			rendered[i] = string(typed)
		case time.Time:
			rendered[i] = typed.UTC().Format(time.RFC3339)
		default:
			rendered[i] = fmt.Sprint(typed)
		}
	}
	return rendered
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func quoteLiteral(value string) string {
	return `'` + strings.ReplaceAll(value, `'`, `''`) + `'`
}

func sanitizeFileComponent(value string) string {
	value = strings.ReplaceAll(value, "/", "_")
	value = strings.ReplaceAll(value, "..", "_")
	if value == "" {
		return "table"
	}
	return value
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
