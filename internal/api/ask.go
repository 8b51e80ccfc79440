package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/tabletalk/tabletalk/internal/completion"
	"github.com/tabletalk/tabletalk/internal/engine"
	"github.com/tabletalk/tabletalk/internal/schema"
	"github.com/tabletalk/tabletalk/internal/session"
)

type askRequest struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

type askResponse struct {
	Answer   string `json:"answer"`
	SQLQuery string `json:"sql_query"`
	ID       string `json:"id"`
}

func handleAsk(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Answerer == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ASK_NOT_CONFIGURED", "ask dependencies are not configured", false, nil)
		return
	}

	var request askRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid ask request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Message) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "MESSAGE_REQUIRED", "message is required", false, nil)
		return
	}
	sessionID := strings.TrimSpace(request.ID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	result, err := deps.Answerer.Answer(r.Context(), request.Message, sessionID)
	if err != nil {
		writeAskError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, askResponse{
		Answer:   result.Answer,
		SQLQuery: result.SQL,
		ID:       sessionID,
	})
}

func writeAskError(w http.ResponseWriter, r *http.Request, err error) {
	var execErr *engine.ExecutionError
	switch {
	case errors.Is(err, schema.ErrMetadataUnavailable):
		writeError(r.Context(), w, http.StatusServiceUnavailable, "METADATA_UNAVAILABLE", "table metadata is unavailable", true, map[string]any{"details": err.Error()})
	case errors.Is(err, session.ErrStore):
		writeError(r.Context(), w, http.StatusServiceUnavailable, "SESSION_UNAVAILABLE", "session history is unavailable", true, map[string]any{"details": err.Error()})
	case errors.Is(err, completion.ErrCompletionFailed):
		writeError(r.Context(), w, http.StatusBadGateway, "COMPLETION_FAILED", "model completion failed", true, map[string]any{"details": err.Error()})
	case errors.As(err, &execErr):
		writeError(r.Context(), w, http.StatusUnprocessableEntity, "QUERY_EXECUTION_FAILED", "validated query failed during execution", false, map[string]any{
			"job_id": execErr.JobID,
			"state":  string(execErr.State),
			"reason": execErr.Reason,
		})
	default:
		writeError(r.Context(), w, http.StatusInternalServerError, "ASK_FAILED", "failed to answer the question", true, map[string]any{"details": err.Error()})
	}
}
