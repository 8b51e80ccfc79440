package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type OpenAIConfig struct {
	BaseURL      string
	APIKey       string
	Model        string
	Temperature  float64
	BreadthLimit int
	Timeout      time.Duration
}

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	baseURL      string
	apiKey       string
	model        string
	temperature  float64
	breadthLimit int
	client       *http.Client
}

func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-5"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpenAIClient{
		baseURL:      strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:       strings.TrimSpace(cfg.APIKey),
		model:        model,
		temperature:  cfg.Temperature,
		breadthLimit: cfg.BreadthLimit,
		client:       &http.Client{Timeout: timeout},
	}, nil
}

// DefaultSampling is the sampling the client was configured with; callers
// pass it through unless a step needs different randomness.
func (c *OpenAIClient) DefaultSampling() Sampling {
	return Sampling{Temperature: c.temperature, BreadthLimit: c.breadthLimit}
}

func (c *OpenAIClient) Complete(ctx context.Context, system []string, messages []Message, sampling Sampling) (Message, error) {
	if len(messages) == 0 {
		return Message{}, fmt.Errorf("%w: message history is empty", ErrCompletionFailed)
	}
	if messages[len(messages)-1].Role != RoleUser {
		return Message{}, fmt.Errorf("%w: history must end in a user message", ErrCompletionFailed)
	}

	payload := buildChatPayload(c.model, system, messages, sampling)
	body, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("%w: marshal chat payload: %v", ErrCompletionFailed, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Message{}, fmt.Errorf("%w: build chat request: %v", ErrCompletionFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrCompletionFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	rawRespBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Message{}, fmt.Errorf("%w: read chat response body: %v", ErrCompletionFailed, err)
	}
	if resp.StatusCode >= 400 {
		return Message{}, fmt.Errorf("%w: status=%d body=%s", ErrCompletionFailed, resp.StatusCode, string(rawRespBody))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(rawRespBody, &parsed); err != nil {
		return Message{}, fmt.Errorf("%w: decode chat completion response: %v", ErrCompletionFailed, err)
	}
	if len(parsed.Choices) == 0 {
		return Message{}, fmt.Errorf("%w: empty chat completion choices", ErrCompletionFailed)
	}
	content := parsed.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return Message{}, fmt.Errorf("%w: model returned an empty message", ErrCompletionFailed)
	}

	return Message{Role: RoleAssistant, Content: content}, nil
}

func buildChatPayload(model string, system []string, messages []Message, sampling Sampling) map[string]any {
	chatMessages := make([]map[string]string, 0, len(messages)+1)
	if joined := strings.TrimSpace(strings.Join(system, "\n")); joined != "" {
		chatMessages = append(chatMessages, map[string]string{"role": "system", "content": joined})
	}
	for _, message := range messages {
		chatMessages = append(chatMessages, map[string]string{"role": message.Role, "content": message.Content})
	}

	payload := map[string]any{
		"model":       model,
		"messages":    chatMessages,
		"temperature": sampling.Temperature,
	}
	if sampling.BreadthLimit > 0 {
		payload["top_k"] = sampling.BreadthLimit
	}
	return payload
}
