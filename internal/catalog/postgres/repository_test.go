package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/tabletalk/tabletalk/internal/catalog"
)

func TestRegisterTable(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`
INSERT INTO table_def (table_name, columns, object_path, description)
VALUES ($1, $2::jsonb, $3, $4)
RETURNING table_id, created_at`)).
		WithArgs("donations", []byte(`[{"name":"campaign_id","type":"bigint"},{"name":"donation_amount","type":"double"}]`), "datasets/default/donations.parquet", "").
		WillReturnRows(sqlmock.NewRows([]string{"table_id", "created_at"}).AddRow(int64(7), now))

	def, err := repo.RegisterTable(context.Background(), catalog.RegisterTableInput{
		TableName: "donations",
		Columns: []catalog.Column{
			{Name: "campaign_id", Type: "bigint"},
			{Name: "donation_amount", Type: "double"},
		},
		ObjectPath: "datasets/default/donations.parquet",
	})
	if err != nil {
		t.Fatalf("RegisterTable() error = %v", err)
	}
	if def.TableID != 7 {
		t.Fatalf("TableID = %d", def.TableID)
	}
	if !def.CreatedAt.Equal(now) {
		t.Fatalf("CreatedAt = %v, want %v", def.CreatedAt, now)
	}
	assertSQLMock(t, mock)
}

func TestRegisterTableRequiresColumns(t *testing.T) {
	db, _ := newSQLMock(t)
	repo := NewRepository(db)

	if _, err := repo.RegisterTable(context.Background(), catalog.RegisterTableInput{TableName: "donations"}); err == nil {
		t.Fatal("expected error for missing columns")
	}
}

func TestGetTableByNameNotFound(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`
SELECT table_id, table_name, columns, object_path, description, created_at
FROM table_def
WHERE table_name = $1`)).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetTableByName(context.Background(), "missing")
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("GetTableByName() error = %v, want ErrNotFound", err)
	}
	assertSQLMock(t, mock)
}

func TestListTablesDecodesColumns(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewRepository(db)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"table_id", "table_name", "columns", "object_path", "description", "created_at"}).
		AddRow(int64(1), "campaigns", []byte(`[{"name":"campaign_id","type":"bigint"},{"name":"campaign_name","type":"string"}]`), "datasets/default/campaigns.parquet", "", now).
		AddRow(int64(2), "donations", []byte(`[{"name":"campaign_id","type":"bigint"},{"name":"donation_amount","type":"double"}]`), "datasets/default/donations.parquet", "", now)
	mock.ExpectQuery("SELECT table_id, table_name, columns, object_path, description, created_at").WillReturnRows(rows)

	defs, err := repo.ListTables(context.Background())
	if err != nil {
		t.Fatalf("ListTables() error = %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("len(defs) = %d", len(defs))
	}
	if defs[0].Columns[1].Name != "campaign_name" {
		t.Fatalf("Columns[1].Name = %q", defs[0].Columns[1].Name)
	}
	if defs[1].Columns[1].Type != "double" {
		t.Fatalf("Columns[1].Type = %q", defs[1].Columns[1].Type)
	}
	assertSQLMock(t, mock)
}

func TestDeleteTableByName(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM table_def WHERE table_name = $1`)).
		WithArgs("donations").
		WillReturnResult(sqlmock.NewResult(0, 1))

	deleted, err := repo.DeleteTableByName(context.Background(), "donations")
	if err != nil {
		t.Fatalf("DeleteTableByName() error = %v", err)
	}
	if !deleted {
		t.Fatal("expected deleted = true")
	}
	assertSQLMock(t, mock)
}

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func assertSQLMock(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}
