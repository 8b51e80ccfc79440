package kb

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAskRoundTrip(t *testing.T) {
	var captured map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/retrieve-and-generate" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer kb-key" {
			t.Errorf("authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"output":     map[string]string{"text": "Campaign goals are tracked per campaign."},
			"citations":  []map[string]string{{"query": "select * from campaigns"}},
			"session_id": "kb-session-7",
		})
	}))
	defer server.Close()

	client, err := NewHTTPClient(HTTPConfig{Endpoint: server.URL, APIKey: "kb-key"})
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}

	answer, err := client.Ask(context.Background(), "how are campaign goals tracked?", "kb-session-7")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer.Text != "Campaign goals are tracked per campaign." {
		t.Fatalf("text = %q", answer.Text)
	}
	if answer.SQL != "select * from campaigns" {
		t.Fatalf("sql = %q", answer.SQL)
	}
	if answer.SessionID != "kb-session-7" {
		t.Fatalf("session id = %q", answer.SessionID)
	}
	if captured["session_id"] != "kb-session-7" {
		t.Fatalf("request session id = %q", captured["session_id"])
	}
}

func TestAskOmitsEmptySessionAndAssignsOne(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if _, ok := body["session_id"]; ok {
			t.Error("first turn must not send a session id")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"output": map[string]string{"text": "Hello."},
		})
	}))
	defer server.Close()

	client, err := NewHTTPClient(HTTPConfig{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}

	answer, err := client.Ask(context.Background(), "hello?", "")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer.SessionID == "" {
		t.Fatal("expected a generated session id when the service returns none")
	}
}

func TestAskMapsServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "knowledge base offline", http.StatusBadGateway)
	}))
	defer server.Close()

	client, err := NewHTTPClient(HTTPConfig{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}
	if _, err := client.Ask(context.Background(), "anything", ""); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestAskRejectsEmptyPrompt(t *testing.T) {
	client, err := NewHTTPClient(HTTPConfig{Endpoint: "http://localhost:1"})
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}
	if _, err := client.Ask(context.Background(), "  ", ""); err == nil {
		t.Fatal("expected error for empty prompt")
	}
}
