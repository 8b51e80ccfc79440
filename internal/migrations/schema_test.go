package migrations

import (
	"strings"
	"testing"
)

func TestInitMigrationContainsRequiredTablesAndIndexes(t *testing.T) {
	body, err := embeddedFS.ReadFile("sql/0001_init.up.sql")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	sql := string(body)
	requiredSnippets := []string{
		"CREATE TABLE IF NOT EXISTS table_def",
		"CREATE TABLE IF NOT EXISTS session_turn",
		"seq BIGSERIAL PRIMARY KEY",
		"CREATE INDEX IF NOT EXISTS idx_session_turn_session_seq",
	}
	for _, snippet := range requiredSnippets {
		if !strings.Contains(sql, snippet) {
			t.Fatalf("migration missing required snippet: %s", snippet)
		}
	}

	if _, err := embeddedFS.ReadFile("sql/0001_init.down.sql"); err != nil {
		t.Fatalf("down migration missing: %v", err)
	}
}

func TestEmbeddedMigrationsLoad(t *testing.T) {
	items, err := loadMigrations(embeddedFS)
	if err != nil {
		t.Fatalf("loadMigrations() error = %v", err)
	}
	if len(items) == 0 {
		t.Fatal("no embedded migrations found")
	}
	if items[0].Version != 1 {
		t.Fatalf("first migration version = %d", items[0].Version)
	}
}
