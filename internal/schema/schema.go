// Package schema supplies the table metadata a generation prompt is built
// from, either from a curated static descriptor or from the live catalog.
package schema

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tabletalk/tabletalk/internal/catalog"
)

// ErrMetadataUnavailable means the underlying catalog could not be reached.
// It is fatal for the current turn; retries belong to the caller.
var ErrMetadataUnavailable = errors.New("schema: metadata unavailable")

type Table struct {
	Name    string           `json:"table_name"`
	Columns []catalog.Column `json:"columns"`
}

// Descriptor is the schema snapshot handed to one generation request. It is
// immutable once built; every question gets a fresh one.
type Descriptor struct {
	Tables []Table
}

// PromptText renders the descriptor in the form embedded between the
// database-metadata markers of the generation prompt.
func (d Descriptor) PromptText() string {
	var b strings.Builder
	for _, table := range d.Tables {
		fmt.Fprintf(&b, "Table %s:\n", table.Name)
		for _, column := range table.Columns {
			fmt.Fprintf(&b, "  %s %s\n", column.Name, column.Type)
		}
	}
	return b.String()
}

func (d Descriptor) Empty() bool {
	return len(d.Tables) == 0
}

// Provider yields the descriptor for one question. The question is advisory:
// implementations may ignore it and return the full schema.
type Provider interface {
	Describe(ctx context.Context, question string) (Descriptor, error)
}

// CatalogProvider reads the full table list from the dataset catalog on
// every call.
type CatalogProvider struct {
	repo catalog.Repository
}

func NewCatalogProvider(repo catalog.Repository) *CatalogProvider {
	return &CatalogProvider{repo: repo}
}

func (p *CatalogProvider) Describe(ctx context.Context, _ string) (Descriptor, error) {
	defs, err := p.repo.ListTables(ctx)
	if err != nil {
		return Descriptor{}, fmt.Errorf("%w: %v", ErrMetadataUnavailable, err)
	}
	tables := make([]Table, 0, len(defs))
	for _, def := range defs {
		tables = append(tables, Table{Name: def.TableName, Columns: def.Columns})
	}
	return Descriptor{Tables: tables}, nil
}

// StaticProvider serves a fixed descriptor, typically parsed from curated
// JSON shipped with the deployment.
type StaticProvider struct {
	descriptor Descriptor
}

func NewStaticProvider(tables []Table) *StaticProvider {
	return &StaticProvider{descriptor: Descriptor{Tables: tables}}
}

func NewStaticProviderFromJSON(raw []byte) (*StaticProvider, error) {
	var tables []Table
	if err := json.Unmarshal(raw, &tables); err != nil {
		return nil, fmt.Errorf("parse static schema: %w", err)
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("static schema has no tables")
	}
	return NewStaticProvider(tables), nil
}

func (p *StaticProvider) Describe(_ context.Context, _ string) (Descriptor, error) {
	return p.descriptor, nil
}
