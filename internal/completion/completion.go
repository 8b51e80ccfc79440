package completion

import (
	"context"
	"errors"
)

// ErrCompletionFailed wraps any failure of the completion round trip. A
// failed call is abortive for the attempt that issued it; only the
// generation loop's own budget retries it.
var ErrCompletionFailed = errors.New("completion: request failed")

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged entry of the conversation sent to the model.
type Message struct {
	Role    string
	Content string
}

// Sampling carries the model sampling parameters. BreadthLimit caps the
// candidate token pool (top-k); zero leaves the provider default in place.
type Sampling struct {
	Temperature  float64
	BreadthLimit int
}

// Client performs one completion round trip. The message history must end in
// the new user message; the client appends nothing itself.
type Client interface {
	Complete(ctx context.Context, system []string, messages []Message, sampling Sampling) (Message, error)
}
