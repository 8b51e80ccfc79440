// Package kb answers questions through a retrieval-backed knowledge base
// service instead of the generate-and-execute pipeline. The remote service
// owns its own conversation state, addressed by a session id it hands back
// on the first turn.
package kb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrUnavailable = errors.New("kb: service unavailable")

// Answer is one knowledge-base reply. SQL carries the retrieved sample
// query backing the answer, when the service cites one.
type Answer struct {
	Text      string
	SQL       string
	SessionID string
}

type Client interface {
	Ask(ctx context.Context, prompt string, sessionID string) (Answer, error)
}

type HTTPConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

type HTTPClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		endpoint: strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/"),
		apiKey:   strings.TrimSpace(cfg.APIKey),
		client:   &http.Client{Timeout: timeout},
	}, nil
}

func (c *HTTPClient) Ask(ctx context.Context, prompt string, sessionID string) (Answer, error) {
	if strings.TrimSpace(prompt) == "" {
		return Answer{}, fmt.Errorf("prompt is required")
	}

	payload := map[string]string{"text": prompt}
	if sessionID != "" {
		payload["session_id"] = sessionID
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Answer{}, fmt.Errorf("%w: marshal request: %v", ErrUnavailable, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/retrieve-and-generate", bytes.NewReader(body))
	if err != nil {
		return Answer{}, fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Answer{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Answer{}, fmt.Errorf("%w: read response body: %v", ErrUnavailable, err)
	}
	if resp.StatusCode >= 400 {
		return Answer{}, fmt.Errorf("%w: status=%d body=%s", ErrUnavailable, resp.StatusCode, string(rawBody))
	}

	var parsed struct {
		Output struct {
			Text string `json:"text"`
		} `json:"output"`
		Citations []struct {
			Query string `json:"query"`
		} `json:"citations"`
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(rawBody, &parsed); err != nil {
		return Answer{}, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if strings.TrimSpace(parsed.Output.Text) == "" {
		return Answer{}, fmt.Errorf("%w: empty answer", ErrUnavailable)
	}

	answer := Answer{Text: parsed.Output.Text, SessionID: parsed.SessionID}
	if len(parsed.Citations) > 0 {
		answer.SQL = parsed.Citations[0].Query
	}
	if answer.SessionID == "" {
		answer.SessionID = sessionID
	}
	if answer.SessionID == "" {
		answer.SessionID = uuid.NewString()
	}
	return answer, nil
}
