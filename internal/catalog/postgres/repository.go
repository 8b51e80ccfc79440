package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tabletalk/tabletalk/internal/catalog"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) HealthCheck(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping catalog db: %w", err)
	}
	return nil
}

func (r *Repository) RegisterTable(ctx context.Context, in catalog.RegisterTableInput) (catalog.TableDef, error) {
	if in.TableName == "" {
		return catalog.TableDef{}, fmt.Errorf("table name is required")
	}
	if len(in.Columns) == 0 {
		return catalog.TableDef{}, fmt.Errorf("at least one column is required")
	}
	columnsJSON, err := json.Marshal(in.Columns)
	if err != nil {
		return catalog.TableDef{}, fmt.Errorf("marshal columns: %w", err)
	}

	query := `
INSERT INTO table_def (table_name, columns, object_path, description)
VALUES ($1, $2::jsonb, $3, $4)
RETURNING table_id, created_at`

	def := catalog.TableDef{
		TableName:   in.TableName,
		Columns:     in.Columns,
		ObjectPath:  in.ObjectPath,
		Description: in.Description,
	}
	if err := r.db.QueryRowContext(ctx, query, in.TableName, columnsJSON, in.ObjectPath, in.Description).Scan(&def.TableID, &def.CreatedAt); err != nil {
		return catalog.TableDef{}, fmt.Errorf("register table: %w", err)
	}
	return def, nil
}

func (r *Repository) GetTableByName(ctx context.Context, tableName string) (catalog.TableDef, error) {
	query := `
SELECT table_id, table_name, columns, object_path, description, created_at
FROM table_def
WHERE table_name = $1`

	def, err := scanTableDef(r.db.QueryRowContext(ctx, query, tableName))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return catalog.TableDef{}, catalog.ErrNotFound
		}
		return catalog.TableDef{}, fmt.Errorf("get table: %w", err)
	}
	return def, nil
}

func (r *Repository) ListTables(ctx context.Context) ([]catalog.TableDef, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT table_id, table_name, columns, object_path, description, created_at
FROM table_def
ORDER BY table_name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	defs := make([]catalog.TableDef, 0)
	for rows.Next() {
		def, err := scanTableDef(rows)
		if err != nil {
			return nil, fmt.Errorf("scan table row: %w", err)
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table rows: %w", err)
	}
	return defs, nil
}

func (r *Repository) DeleteTableByName(ctx context.Context, tableName string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM table_def WHERE table_name = $1`, tableName)
	if err != nil {
		return false, fmt.Errorf("delete table: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete table rows affected: %w", err)
	}
	return affected > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTableDef(row rowScanner) (catalog.TableDef, error) {
	var def catalog.TableDef
	var columnsJSON []byte
	if err := row.Scan(
		&def.TableID,
		&def.TableName,
		&columnsJSON,
		&def.ObjectPath,
		&def.Description,
		&def.CreatedAt,
	); err != nil {
		return catalog.TableDef{}, err
	}
	if err := json.Unmarshal(columnsJSON, &def.Columns); err != nil {
		return catalog.TableDef{}, fmt.Errorf("unmarshal columns for %q: %w", def.TableName, err)
	}
	return def, nil
}
