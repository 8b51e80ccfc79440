package schema

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tabletalk/tabletalk/internal/catalog"
)

func TestCatalogProviderBuildsDescriptor(t *testing.T) {
	repo := &fakeRepo{tables: []catalog.TableDef{
		{TableName: "campaigns", Columns: []catalog.Column{{Name: "campaign_id", Type: "bigint"}, {Name: "campaign_name", Type: "string"}}},
		{TableName: "donations", Columns: []catalog.Column{{Name: "campaign_id", Type: "bigint"}, {Name: "donation_amount", Type: "double"}}},
	}}
	provider := NewCatalogProvider(repo)

	descriptor, err := provider.Describe(context.Background(), "total donations?")
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	if len(descriptor.Tables) != 2 {
		t.Fatalf("len(Tables) = %d", len(descriptor.Tables))
	}

	text := descriptor.PromptText()
	if !strings.Contains(text, "Table donations:") {
		t.Fatalf("PromptText() missing table header: %q", text)
	}
	if !strings.Contains(text, "donation_amount double") {
		t.Fatalf("PromptText() missing column line: %q", text)
	}
}

func TestCatalogProviderMapsFailureToMetadataUnavailable(t *testing.T) {
	repo := &fakeRepo{err: errors.New("connection refused")}
	provider := NewCatalogProvider(repo)

	_, err := provider.Describe(context.Background(), "anything")
	if !errors.Is(err, ErrMetadataUnavailable) {
		t.Fatalf("Describe() error = %v, want ErrMetadataUnavailable", err)
	}
}

func TestStaticProviderFromJSON(t *testing.T) {
	raw := []byte(`[{"table_name":"campaigns","columns":[{"name":"campaign_id","type":"bigint"}]}]`)
	provider, err := NewStaticProviderFromJSON(raw)
	if err != nil {
		t.Fatalf("NewStaticProviderFromJSON() error = %v", err)
	}
	descriptor, err := provider.Describe(context.Background(), "ignored")
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	if descriptor.Tables[0].Name != "campaigns" {
		t.Fatalf("table name = %q", descriptor.Tables[0].Name)
	}
}

func TestStaticProviderRejectsEmptySchema(t *testing.T) {
	if _, err := NewStaticProviderFromJSON([]byte(`[]`)); err == nil {
		t.Fatal("expected error for empty schema")
	}
}

type fakeRepo struct {
	tables []catalog.TableDef
	err    error
}

func (f *fakeRepo) HealthCheck(context.Context) error { return f.err }

func (f *fakeRepo) RegisterTable(context.Context, catalog.RegisterTableInput) (catalog.TableDef, error) {
	return catalog.TableDef{}, f.err
}

func (f *fakeRepo) GetTableByName(context.Context, string) (catalog.TableDef, error) {
	return catalog.TableDef{}, f.err
}

func (f *fakeRepo) ListTables(context.Context) ([]catalog.TableDef, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tables, nil
}

func (f *fakeRepo) DeleteTableByName(context.Context, string) (bool, error) {
	return false, f.err
}
