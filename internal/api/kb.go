package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/tabletalk/tabletalk/internal/kb"
)

type kbAskRequest struct {
	Message     string `json:"message"`
	KBSessionID string `json:"kb_session_id"`
}

type kbAskResponse struct {
	Answer      string `json:"answer"`
	SQLQuery    string `json:"sql_query"`
	KBSessionID string `json:"kb_session_id"`
}

func handleKBAsk(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.KBClient == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "KB_NOT_CONFIGURED", "knowledge base is not configured", false, nil)
		return
	}

	var request kbAskRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid knowledge base request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Message) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "MESSAGE_REQUIRED", "message is required", false, nil)
		return
	}

	result, err := deps.KBClient.Ask(r.Context(), request.Message, strings.TrimSpace(request.KBSessionID))
	if err != nil {
		if errors.Is(err, kb.ErrUnavailable) {
			writeError(r.Context(), w, http.StatusBadGateway, "KB_UNAVAILABLE", "knowledge base request failed", true, map[string]any{"details": err.Error()})
			return
		}
		writeError(r.Context(), w, http.StatusBadRequest, "KB_REQUEST_INVALID", err.Error(), false, nil)
		return
	}

	writeJSON(w, http.StatusOK, kbAskResponse{
		Answer:      result.Text,
		SQLQuery:    result.SQL,
		KBSessionID: result.SessionID,
	})
}
