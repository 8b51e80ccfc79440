package storage

import (
	"fmt"
	"path"
	"regexp"
)

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// BuildTableDataPath is the object key holding a catalog table's parquet data.
func BuildTableDataPath(database, tableName string) (string, error) {
	if err := validatePathComponent(database, "database"); err != nil {
		return "", err
	}
	if err := validatePathComponent(tableName, "table name"); err != nil {
		return "", err
	}
	return path.Join("datasets", database, tableName+".parquet"), nil
}

// BuildResultPath is the object key a finished query job stages its result
// rows under. The prefix plays the role of the engine's output location.
func BuildResultPath(prefix, jobID string) (string, error) {
	if err := validatePathComponent(jobID, "job id"); err != nil {
		return "", err
	}
	if prefix == "" {
		prefix = "results"
	}
	if err := validatePathComponent(prefix, "output prefix"); err != nil {
		return "", err
	}
	return path.Join(prefix, jobID+".parquet"), nil
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
