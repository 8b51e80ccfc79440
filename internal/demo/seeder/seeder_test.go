package seeder

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/tabletalk/tabletalk/internal/catalog"
	"github.com/tabletalk/tabletalk/internal/storage"
)

type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memoryStore) Put(_ context.Context, key string, body io.Reader, _ int64, _ storage.PutOptions) (storage.ObjectInfo, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[key] = data
	return storage.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (m *memoryStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryStore) Stat(context.Context, string) (storage.ObjectInfo, error) {
	return storage.ObjectInfo{}, nil
}

func (m *memoryStore) Delete(context.Context, string) error { return nil }

type memoryCatalog struct {
	nextID int64
	tables map[string]catalog.TableDef
}

func newMemoryCatalog() *memoryCatalog {
	return &memoryCatalog{nextID: 1, tables: map[string]catalog.TableDef{}}
}

func (c *memoryCatalog) HealthCheck(context.Context) error { return nil }

func (c *memoryCatalog) RegisterTable(_ context.Context, in catalog.RegisterTableInput) (catalog.TableDef, error) {
	table := catalog.TableDef{
		TableID:    c.nextID,
		TableName:  in.TableName,
		Columns:    in.Columns,
		ObjectPath: in.ObjectPath,
	}
	c.nextID++
	c.tables[in.TableName] = table
	return table, nil
}

func (c *memoryCatalog) GetTableByName(_ context.Context, tableName string) (catalog.TableDef, error) {
	table, ok := c.tables[tableName]
	if !ok {
		return catalog.TableDef{}, catalog.ErrNotFound
	}
	return table, nil
}

func (c *memoryCatalog) ListTables(context.Context) ([]catalog.TableDef, error) {
	tables := make([]catalog.TableDef, 0, len(c.tables))
	for _, table := range c.tables {
		tables = append(tables, table)
	}
	return tables, nil
}

func (c *memoryCatalog) DeleteTableByName(_ context.Context, tableName string) (bool, error) {
	if _, ok := c.tables[tableName]; !ok {
		return false, nil
	}
	delete(c.tables, tableName)
	return true, nil
}

func TestRunSeedsAllTables(t *testing.T) {
	store := &memoryStore{}
	repo := newMemoryCatalog()
	svc, err := NewService(Config{Seed: 42}, repo, store, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, tableName := range []string{"campaigns", "donors", "donations"} {
		table, err := repo.GetTableByName(context.Background(), tableName)
		if err != nil {
			t.Fatalf("table %q not registered: %v", tableName, err)
		}
		store.mu.Lock()
		_, ok := store.objects[table.ObjectPath]
		store.mu.Unlock()
		if !ok {
			t.Fatalf("no object at %q", table.ObjectPath)
		}
	}
}

func TestRunIsIdempotent(t *testing.T) {
	store := &memoryStore{}
	repo := newMemoryCatalog()
	svc, err := NewService(Config{Seed: 42}, repo, store, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	registered := len(repo.tables)
	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if len(repo.tables) != registered {
		t.Fatalf("second run changed table count: %d != %d", len(repo.tables), registered)
	}
}

func TestGeneratorIsDeterministic(t *testing.T) {
	first := NewGenerator(7).Donations(20, 10, 3)
	second := NewGenerator(7).Donations(20, 10, 3)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("row %d differs: %+v != %+v", i, first[i], second[i])
		}
	}
}

func TestGeneratorKeepsForeignKeysInRange(t *testing.T) {
	rows := NewGenerator(1).Donations(200, 10, 3)
	for _, row := range rows {
		if row.DonorID < 1 || row.DonorID > 10 {
			t.Fatalf("donor id out of range: %d", row.DonorID)
		}
		if row.CampaignID < 1 || row.CampaignID > 3 {
			t.Fatalf("campaign id out of range: %d", row.CampaignID)
		}
		if row.DonationAmount <= 0 {
			t.Fatalf("non-positive donation amount: %d", row.DonationAmount)
		}
	}
}
