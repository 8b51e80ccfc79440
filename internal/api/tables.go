package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/tabletalk/tabletalk/internal/catalog"
)

type tableRegisterRequest struct {
	TableName   string           `json:"table_name"`
	Columns     []catalog.Column `json:"columns"`
	ObjectPath  string           `json:"object_path"`
	Description string           `json:"description"`
}

func tablePayload(table catalog.TableDef) map[string]any {
	return map[string]any{
		"table_id":    table.TableID,
		"table_name":  table.TableName,
		"columns":     table.Columns,
		"object_path": table.ObjectPath,
		"description": table.Description,
		"created_at":  table.CreatedAt,
	}
}

func handleListTables(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.CatalogRepo == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "TABLES_NOT_CONFIGURED", "catalog dependency is not configured", false, nil)
		return
	}
	tables, err := deps.CatalogRepo.ListTables(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "CATALOG_ERROR", "failed to list tables", true, map[string]any{"details": err.Error()})
		return
	}
	items := make([]map[string]any, 0, len(tables))
	for _, table := range tables {
		items = append(items, tablePayload(table))
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": items})
}

func handleRegisterTable(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.CatalogRepo == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "TABLES_NOT_CONFIGURED", "catalog dependency is not configured", false, nil)
		return
	}

	var req tableRegisterRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid register table request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(req.TableName) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "TABLE_NAME_REQUIRED", "table_name is required", false, nil)
		return
	}
	if len(req.Columns) == 0 {
		writeError(r.Context(), w, http.StatusBadRequest, "COLUMNS_REQUIRED", "at least one column is required", false, nil)
		return
	}
	if strings.TrimSpace(req.ObjectPath) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "OBJECT_PATH_REQUIRED", "object_path is required", false, nil)
		return
	}

	table, err := deps.CatalogRepo.RegisterTable(r.Context(), catalog.RegisterTableInput{
		TableName:   strings.TrimSpace(req.TableName),
		Columns:     req.Columns,
		ObjectPath:  strings.TrimSpace(req.ObjectPath),
		Description: strings.TrimSpace(req.Description),
	})
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "CATALOG_ERROR", "failed to register table", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, tablePayload(table))
}

func handleGetTable(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.CatalogRepo == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "TABLES_NOT_CONFIGURED", "catalog dependency is not configured", false, nil)
		return
	}
	tableName := r.PathValue("table")
	table, err := deps.CatalogRepo.GetTableByName(r.Context(), tableName)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "TABLE_NOT_FOUND", "table was not found", false, map[string]any{"table_name": tableName})
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "CATALOG_ERROR", "failed to load table", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, tablePayload(table))
}

func handleDeleteTable(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.CatalogRepo == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "TABLES_NOT_CONFIGURED", "catalog dependency is not configured", false, nil)
		return
	}
	tableName := r.PathValue("table")
	deleted, err := deps.CatalogRepo.DeleteTableByName(r.Context(), tableName)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "CATALOG_ERROR", "failed to delete table", true, map[string]any{"details": err.Error()})
		return
	}
	if !deleted {
		writeError(r.Context(), w, http.StatusNotFound, "TABLE_NOT_FOUND", "table was not found", false, map[string]any{"table_name": tableName})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true, "table_name": tableName})
}
