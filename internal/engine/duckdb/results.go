package duckdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"

	"github.com/tabletalk/tabletalk/internal/storage"
)

// parquetResultRow is the staged-result record. Row values are carried as a
// JSON object keyed by column name, so one schema serves every query shape;
// the column order lives with the job record.
type parquetResultRow struct {
	RowIndex    int64  `parquet:"row_index"`
	PayloadJSON string `parquet:"payload_json"`
}

func (s *Service) stageResultObject(ctx context.Context, path string, columns []string, rows [][]string) error {
	records := make([]parquetResultRow, 0, len(rows))
	for index, row := range rows {
		payload := make(map[string]string, len(columns))
		for i, column := range columns {
			if i < len(row) {
				payload[column] = row[i]
			}
		}
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode result row %d: %w", index, err)
		}
		records = append(records, parquetResultRow{RowIndex: int64(index), PayloadJSON: string(encoded)})
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[parquetResultRow](buf)
	if len(records) > 0 {
		if _, err := writer.Write(records); err != nil {
			return fmt.Errorf("write parquet result rows: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close parquet result writer: %w", err)
	}

	if _, err := s.store.Put(ctx, path, bytes.NewReader(buf.Bytes()), int64(buf.Len()), storage.PutOptions{ContentType: "application/octet-stream"}); err != nil {
		return fmt.Errorf("put result object %q: %w", path, err)
	}
	return nil
}

func (s *Service) loadResultObject(ctx context.Context, path string, columns []string) ([][]string, error) {
	reader, err := s.store.Get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("get result object %q: %w", path, err)
	}
	data, err := io.ReadAll(reader)
	closeErr := reader.Close()
	if err != nil {
		return nil, fmt.Errorf("read result object %q: %w", path, err)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("close result object %q: %w", path, closeErr)
	}

	records, err := parquet.Read[parquetResultRow](bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("decode result object %q: %w", path, err)
	}

	rows := make([][]string, 0, len(records))
	for _, record := range records {
		payload := map[string]string{}
		if err := json.Unmarshal([]byte(record.PayloadJSON), &payload); err != nil {
			return nil, fmt.Errorf("decode result row %d: %w", record.RowIndex, err)
		}
		row := make([]string, len(columns))
		for i, column := range columns {
			row[i] = payload[column]
		}
		rows = append(rows, row)
	}
	return rows, nil
}
