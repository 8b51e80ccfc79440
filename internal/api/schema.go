package api

import (
	"net/http"
)

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.SchemaProvider == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SCHEMA_NOT_CONFIGURED", "schema provider is not configured", false, nil)
		return
	}

	descriptor, err := deps.SchemaProvider.Describe(r.Context(), "")
	if err != nil {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "METADATA_UNAVAILABLE", "table metadata is unavailable", true, map[string]any{"details": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"tables": descriptor.Tables})
}
