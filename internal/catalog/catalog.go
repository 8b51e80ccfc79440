package catalog

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("catalog: not found")

// Column is one (name, type) entry of a table definition. Order matters: it
// is the order presented to the generation prompt.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type TableDef struct {
	TableID     int64
	TableName   string
	Columns     []Column
	ObjectPath  string
	Description string
	CreatedAt   time.Time
}

type RegisterTableInput struct {
	TableName   string
	Columns     []Column
	ObjectPath  string
	Description string
}

type Repository interface {
	HealthCheck(ctx context.Context) error
	RegisterTable(ctx context.Context, in RegisterTableInput) (TableDef, error)
	GetTableByName(ctx context.Context, tableName string) (TableDef, error)
	ListTables(ctx context.Context) ([]TableDef, error)
	DeleteTableByName(ctx context.Context, tableName string) (bool, error)
}
