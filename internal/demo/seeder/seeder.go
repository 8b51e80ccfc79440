// Package seeder loads a small donor-management demo dataset: it writes the
// campaigns, donors, and donations tables as parquet objects and registers
// them in the dataset catalog, so a fresh stack can answer questions
// immediately.
package seeder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/parquet-go/parquet-go"

	"github.com/tabletalk/tabletalk/internal/catalog"
	"github.com/tabletalk/tabletalk/internal/storage"
)

type Config struct {
	Database  string
	Seed      int64
	Campaigns int
	Donors    int
	Donations int
}

type Service struct {
	cfg     Config
	catalog catalog.Repository
	store   storage.ObjectStore
	logger  *slog.Logger
}

func NewService(cfg Config, repo catalog.Repository, store storage.ObjectStore, logger *slog.Logger) (*Service, error) {
	if repo == nil {
		return nil, errors.New("catalog repository is required")
	}
	if store == nil {
		return nil, errors.New("object store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Database == "" {
		cfg.Database = "default"
	}
	if cfg.Campaigns <= 0 {
		cfg.Campaigns = 5
	}
	if cfg.Donors <= 0 {
		cfg.Donors = 100
	}
	if cfg.Donations <= 0 {
		cfg.Donations = 500
	}
	return &Service{cfg: cfg, catalog: repo, store: store, logger: logger}, nil
}

// Run seeds all three tables. Already-registered tables are left alone, so
// reruns against a seeded stack are harmless.
func (s *Service) Run(ctx context.Context) error {
	generator := NewGenerator(s.cfg.Seed)

	campaigns := generator.Campaigns(s.cfg.Campaigns)
	donors := generator.Donors(s.cfg.Donors)
	donations := generator.Donations(s.cfg.Donations, len(donors), len(campaigns))

	if err := seedTable(ctx, s, "campaigns", campaigns, []catalog.Column{
		{Name: "campaign_id", Type: "bigint"},
		{Name: "campaign_name", Type: "varchar"},
		{Name: "startdate", Type: "varchar"},
		{Name: "enddate", Type: "varchar"},
		{Name: "goalamount", Type: "bigint"},
	}, "fundraising campaigns"); err != nil {
		return err
	}
	if err := seedTable(ctx, s, "donors", donors, []catalog.Column{
		{Name: "donor_id", Type: "bigint"},
		{Name: "first_name", Type: "varchar"},
		{Name: "last_name", Type: "varchar"},
		{Name: "city", Type: "varchar"},
		{Name: "state", Type: "varchar"},
		{Name: "zip_code", Type: "bigint"},
		{Name: "gender", Type: "varchar"},
		{Name: "age_group", Type: "varchar"},
		{Name: "income_level", Type: "varchar"},
	}, "registered donors"); err != nil {
		return err
	}
	if err := seedTable(ctx, s, "donations", donations, []catalog.Column{
		{Name: "donor_id", Type: "bigint"},
		{Name: "campaign_id", Type: "bigint"},
		{Name: "donation_amount", Type: "bigint"},
		{Name: "payment_method", Type: "varchar"},
		{Name: "transaction_date", Type: "varchar"},
	}, "individual donations"); err != nil {
		return err
	}
	return nil
}

func seedTable[T any](ctx context.Context, s *Service, tableName string, rows []T, columns []catalog.Column, description string) error {
	if _, err := s.catalog.GetTableByName(ctx, tableName); err == nil {
		s.logger.Info("demo table already registered", slog.String("table", tableName))
		return nil
	} else if !errors.Is(err, catalog.ErrNotFound) {
		return fmt.Errorf("check table %q: %w", tableName, err)
	}

	objectPath, err := storage.BuildTableDataPath(s.cfg.Database, tableName)
	if err != nil {
		return fmt.Errorf("build data path for %q: %w", tableName, err)
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[T](buf)
	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("write parquet rows for %q: %w", tableName, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close parquet writer for %q: %w", tableName, err)
	}

	if _, err := s.store.Put(ctx, objectPath, bytes.NewReader(buf.Bytes()), int64(buf.Len()), storage.PutOptions{ContentType: "application/octet-stream"}); err != nil {
		return fmt.Errorf("put object for %q: %w", tableName, err)
	}
	if _, err := s.catalog.RegisterTable(ctx, catalog.RegisterTableInput{
		TableName:   tableName,
		Columns:     columns,
		ObjectPath:  objectPath,
		Description: description,
	}); err != nil {
		return fmt.Errorf("register table %q: %w", tableName, err)
	}

	s.logger.Info("seeded demo table",
		slog.String("table", tableName),
		slog.Int("rows", len(rows)),
		slog.String("object_path", objectPath))
	return nil
}
