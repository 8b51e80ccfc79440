package completion

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCompleteSendsSystemAndSampling(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key-1" {
			t.Fatalf("authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "<SQL>SELECT 1</SQL>"}},
			},
		})
	}))
	defer server.Close()

	client, err := NewOpenAIClient(OpenAIConfig{BaseURL: server.URL, APIKey: "key-1", Model: "test-model"})
	if err != nil {
		t.Fatalf("NewOpenAIClient() error = %v", err)
	}

	reply, err := client.Complete(context.Background(),
		[]string{"You are a helpful assistant."},
		[]Message{{Role: RoleUser, Content: "generate sql"}},
		Sampling{Temperature: 0.5, BreadthLimit: 200},
	)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if reply.Role != RoleAssistant {
		t.Fatalf("Role = %q", reply.Role)
	}
	if reply.Content != "<SQL>SELECT 1</SQL>" {
		t.Fatalf("Content = %q", reply.Content)
	}

	if captured["top_k"] != float64(200) {
		t.Fatalf("top_k = %v", captured["top_k"])
	}
	if captured["temperature"] != 0.5 {
		t.Fatalf("temperature = %v", captured["temperature"])
	}
	messages := captured["messages"].([]any)
	first := messages[0].(map[string]any)
	if first["role"] != "system" {
		t.Fatalf("first message role = %v", first["role"])
	}
}

func TestCompleteOmitsBreadthLimitWhenZero(t *testing.T) {
	payload := buildChatPayload("m", nil, []Message{{Role: RoleUser, Content: "q"}}, Sampling{Temperature: 0.1})
	if _, ok := payload["top_k"]; ok {
		t.Fatal("top_k should be omitted when BreadthLimit is zero")
	}
}

func TestCompleteMapsHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "throttled", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, err := NewOpenAIClient(OpenAIConfig{BaseURL: server.URL, APIKey: "key-1"})
	if err != nil {
		t.Fatalf("NewOpenAIClient() error = %v", err)
	}
	_, err = client.Complete(context.Background(), nil, []Message{{Role: RoleUser, Content: "q"}}, Sampling{})
	if !errors.Is(err, ErrCompletionFailed) {
		t.Fatalf("Complete() error = %v, want ErrCompletionFailed", err)
	}
}

func TestCompleteRejectsEmptyAssistantReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": "   "}}},
		})
	}))
	defer server.Close()

	client, err := NewOpenAIClient(OpenAIConfig{BaseURL: server.URL, APIKey: "key-1"})
	if err != nil {
		t.Fatalf("NewOpenAIClient() error = %v", err)
	}
	_, err = client.Complete(context.Background(), nil, []Message{{Role: RoleUser, Content: "q"}}, Sampling{})
	if !errors.Is(err, ErrCompletionFailed) {
		t.Fatalf("Complete() error = %v, want ErrCompletionFailed", err)
	}
}

func TestCompleteRequiresTrailingUserMessage(t *testing.T) {
	client, err := NewOpenAIClient(OpenAIConfig{BaseURL: "http://localhost:1", APIKey: "key-1"})
	if err != nil {
		t.Fatalf("NewOpenAIClient() error = %v", err)
	}
	_, err = client.Complete(context.Background(), nil, []Message{{Role: RoleAssistant, Content: "?"}}, Sampling{})
	if !errors.Is(err, ErrCompletionFailed) {
		t.Fatalf("Complete() error = %v, want ErrCompletionFailed", err)
	}
}
